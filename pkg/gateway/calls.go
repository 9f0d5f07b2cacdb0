package gateway

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aeolun/teamline/pkg/notify"
	"github.com/aeolun/teamline/pkg/protocol"
	"github.com/aeolun/teamline/pkg/store"
)

var (
	// ErrCallNotFound indicates the referenced call does not exist.
	ErrCallNotFound = errors.New("call not found")
	// ErrCallEnded indicates the call has reached its terminal state.
	ErrCallEnded = errors.New("call has ended")
	// ErrNotCallHost indicates the actor may not end this call.
	ErrNotCallHost = errors.New("only the host or an admin may end a call")
	// ErrNotCallParticipant indicates the actor is not in the call.
	ErrNotCallParticipant = errors.New("not a participant of this call")
)

// CallManager owns the call lifecycle: room allocation, participant
// membership and signaling fan-out. Long-lived call state lives in storage;
// the manager keeps only per-round coordination.
type CallManager struct {
	store       Store
	registry    *Registry
	broadcaster *Broadcaster
	notifier    notify.Notifier
	log         *zap.Logger
}

// NewCallManager creates a call manager.
func NewCallManager(st Store, registry *Registry, broadcaster *Broadcaster, notifier notify.Notifier, log *zap.Logger) *CallManager {
	return &CallManager{
		store:       st,
		registry:    registry,
		broadcaster: broadcaster,
		notifier:    notifier,
		log:         log,
	}
}

// Start allocates a room and creates an active call with the host as its
// first participant. Room allocation is synchronous, so there is no
// intermediate pending state.
func (cm *CallManager) Start(hostID int64, conversationID *int64, callType string) (*store.Call, error) {
	call := &store.Call{
		ID:             uuid.NewString(),
		RoomID:         uuid.NewString(),
		HostID:         hostID,
		ConversationID: conversationID,
		CallType:       callType,
		Status:         store.CallStatusActive,
		CreatedAt:      time.Now(),
	}

	if err := cm.store.CreateCall(call); err != nil {
		return nil, fmt.Errorf("failed to create call: %w", err)
	}
	if _, err := cm.store.AddCallParticipant(call.ID, hostID); err != nil {
		return nil, fmt.Errorf("failed to add host to call: %w", err)
	}

	cm.log.Info("call started",
		zap.String("call_id", call.ID),
		zap.Int64("host_id", hostID),
		zap.String("call_type", callType))
	return call, nil
}

// Invite delivers a call invitation to each target: over the realtime
// channel when online, through the push collaborator otherwise. Does not
// change call state. Returns the targets reachable by neither route.
func (cm *CallManager) Invite(actorID int64, callID string, targets []int64) ([]int64, error) {
	call, err := cm.activeCall(callID)
	if err != nil {
		return nil, err
	}

	participants, err := cm.store.CallParticipantIDs(callID)
	if err != nil {
		return nil, err
	}
	if !contains(participants, actorID) {
		return nil, ErrNotCallParticipant
	}

	env, err := protocol.NewEnvelope(protocol.TypeCallInvitation, protocol.CallInvitation{
		CallID:     call.ID,
		RoomID:     call.RoomID,
		FromUserID: actorID,
		CallType:   call.CallType,
	})
	if err != nil {
		return nil, err
	}

	var undelivered []int64
	for _, target := range targets {
		if cm.broadcaster.SendToUser(target, env) {
			continue
		}
		err := cm.notifier.Notify(target, notify.Notification{
			Title: "Incoming call",
			Body:  "You are invited to a call",
			Data:  map[string]string{"callId": call.ID, "roomId": call.RoomID},
		})
		if errors.Is(err, notify.ErrNoSubscriptions) {
			undelivered = append(undelivered, target)
		} else if err != nil {
			cm.log.Warn("call invite push failed",
				zap.String("call_id", callID),
				zap.Int64("target_id", target),
				zap.Error(err))
		}
	}
	return undelivered, nil
}

// Join adds the user to the call. Idempotent: re-joining succeeds without a
// duplicate record and without a duplicate broadcast.
func (cm *CallManager) Join(userID int64, callID string) error {
	if _, err := cm.activeCall(callID); err != nil {
		return err
	}

	added, err := cm.store.AddCallParticipant(callID, userID)
	if err != nil {
		return err
	}
	if !added {
		return nil
	}

	return cm.broadcastParticipantChange(protocol.TypeCallParticipantJoin, callID, userID)
}

// Leave removes the user from the call. The call stays active even at zero
// participants; only an explicit End terminates it.
func (cm *CallManager) Leave(userID int64, callID string) error {
	if _, err := cm.activeCall(callID); err != nil {
		return err
	}

	if err := cm.store.RemoveCallParticipant(callID, userID); err != nil {
		return err
	}

	return cm.broadcastParticipantChange(protocol.TypeCallParticipantLeft, callID, userID)
}

// End transitions the call to ended. Permitted only for the host or an
// admin identity.
func (cm *CallManager) End(actor Identity, callID string) error {
	call, err := cm.activeCall(callID)
	if err != nil {
		return err
	}
	if call.HostID != actor.UserID && !actor.Admin {
		return ErrNotCallHost
	}

	if err := cm.store.EndCall(callID); err != nil {
		return err
	}

	audience, err := cm.audience(call)
	if err != nil {
		return err
	}
	env, err := protocol.NewEnvelope(protocol.TypeCallEnded, protocol.CallEnded{
		CallID:  callID,
		EndedBy: actor.UserID,
	})
	if err != nil {
		return err
	}
	cm.broadcaster.Broadcast(audience, env)

	cm.log.Info("call ended", zap.String("call_id", callID), zap.Int64("ended_by", actor.UserID))
	return nil
}

func (cm *CallManager) broadcastParticipantChange(eventType, callID string, userID int64) error {
	call, err := cm.store.GetCall(callID)
	if err != nil {
		return err
	}
	count, err := cm.store.CallParticipantCount(callID)
	if err != nil {
		return err
	}
	audience, err := cm.audience(call)
	if err != nil {
		return err
	}

	env, err := protocol.NewEnvelope(eventType, protocol.CallParticipantEvent{
		CallID:           callID,
		UserID:           userID,
		ParticipantCount: count,
	})
	if err != nil {
		return err
	}
	cm.broadcaster.Broadcast(audience, env)
	return nil
}

// audience is the set of identities notified of call membership changes:
// the conversation members for conversation calls, the current participants
// for ad hoc calls.
func (cm *CallManager) audience(call *store.Call) ([]int64, error) {
	if call.ConversationID != nil {
		return cm.store.ConversationMemberIDs(*call.ConversationID)
	}
	return cm.store.CallParticipantIDs(call.ID)
}

func (cm *CallManager) activeCall(callID string) (*store.Call, error) {
	call, err := cm.store.GetCall(callID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrCallNotFound
	}
	if err != nil {
		return nil, err
	}
	if call.Status != store.CallStatusActive {
		return nil, ErrCallEnded
	}
	return call, nil
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
