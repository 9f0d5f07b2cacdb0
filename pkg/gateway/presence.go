package gateway

import (
	"go.uber.org/zap"

	"github.com/aeolun/teamline/pkg/protocol"
)

// PresenceTracker derives online/offline transitions from registry
// membership changes and fans them out. An identity with several devices
// transitions exactly once in each direction.
type PresenceTracker struct {
	registry    *Registry
	broadcaster *Broadcaster
	log         *zap.Logger
	metrics     *Metrics
}

// NewPresenceTracker creates a presence tracker.
func NewPresenceTracker(registry *Registry, broadcaster *Broadcaster, log *zap.Logger, metrics *Metrics) *PresenceTracker {
	return &PresenceTracker{
		registry:    registry,
		broadcaster: broadcaster,
		log:         log,
		metrics:     metrics,
	}
}

// HandleConnect runs after a connection is registered. cameOnline is the
// transition flag returned by Registry.Register; repeat connects by an
// already-online identity must not re-broadcast.
func (t *PresenceTracker) HandleConnect(conn *Conn, cameOnline bool) {
	userID := conn.UserID()

	if cameOnline {
		env, err := protocol.NewEnvelope(protocol.TypeUserOnline, protocol.PresenceChange{UserID: userID})
		if err != nil {
			t.log.Error("failed to build user_online event", zap.Error(err))
		} else {
			t.broadcaster.BroadcastAllExcept(userID, env)
		}
		t.log.Info("user online", zap.Int64("user_id", userID))
	}

	// Fresh connections get the full presence snapshot so clients need no
	// separate presence query.
	snapshot, err := protocol.NewEnvelope(protocol.TypeOnlineUsers, protocol.OnlineUsers{UserIDs: t.registry.OnlineIDs()})
	if err != nil {
		t.log.Error("failed to build online_users snapshot", zap.Error(err))
		return
	}
	if err := conn.Send(snapshot); err != nil {
		t.log.Debug("failed to send presence snapshot", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// HandleDisconnect runs after a connection is unregistered. wentOffline is
// the transition flag returned by Registry.Unregister; an identity keeping
// other devices connected stays online.
func (t *PresenceTracker) HandleDisconnect(userID int64, wentOffline bool) {
	if !wentOffline {
		return
	}

	env, err := protocol.NewEnvelope(protocol.TypeUserOffline, protocol.PresenceChange{UserID: userID})
	if err != nil {
		t.log.Error("failed to build user_offline event", zap.Error(err))
		return
	}
	t.broadcaster.BroadcastAllExcept(userID, env)
	t.log.Info("user offline", zap.Int64("user_id", userID))
}
