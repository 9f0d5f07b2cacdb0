package gateway

import (
	"errors"

	"go.uber.org/zap"

	"github.com/aeolun/teamline/pkg/notify"
	"github.com/aeolun/teamline/pkg/protocol"
)

// handleEnvelope dispatches one inbound frame to its handler.
func (s *Server) handleEnvelope(identity Identity, conn *Conn, env *protocol.Envelope) {
	switch env.Type {
	case protocol.TypeTyping:
		s.handleTyping(identity, conn, env)
	case protocol.TypeNewMessage:
		s.handleNewMessage(identity, conn, env)
	case protocol.TypeMessageEdited:
		s.handleMessageEdited(identity, conn, env)
	case protocol.TypeIncomingCall:
		s.handleIncomingCall(identity, conn, env)
	case protocol.TypeInviteToCall:
		s.handleInviteToCall(identity, conn, env)
	case protocol.TypeCallAnswered, protocol.TypeCallRejected, protocol.TypeCallCancelled:
		s.handleCallSignal(identity, conn, env)
	}
}

func (s *Server) sendError(conn *Conn, code, message string) {
	if err := conn.Send(protocol.NewError(code, message)); err != nil {
		s.log.Debug("failed to send error frame", zap.Error(err))
	}
}

// requireMember checks conversation membership for the acting identity and
// answers with an explicit error frame when it fails. Returns true when the
// handler may proceed.
func (s *Server) requireMember(conn *Conn, convID, userID int64) bool {
	member, err := s.store.IsConversationMember(convID, userID)
	if err != nil {
		s.log.Error("membership lookup failed", zap.Int64("conversation_id", convID), zap.Error(err))
		s.sendError(conn, protocol.ErrCodeStorage, "membership lookup failed")
		return false
	}
	if !member {
		s.sendError(conn, protocol.ErrCodeNotMember, "not a member of this conversation")
		return false
	}
	return true
}

// notifyOffline routes recipients without a live connection to the push
// collaborator. Failures per recipient are independent.
func (s *Server) notifyOffline(offline []int64, n notify.Notification) {
	for _, userID := range offline {
		err := s.notifier.Notify(userID, n)
		if err != nil && !errors.Is(err, notify.ErrNoSubscriptions) {
			s.log.Warn("offline notification failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
}

// handleTyping fans a typing indicator out to the other conversation
// members. The actor is excluded; their own devices do not need it.
func (s *Server) handleTyping(identity Identity, conn *Conn, env *protocol.Envelope) {
	var msg protocol.Typing
	if err := env.DecodeData(&msg); err != nil {
		s.sendError(conn, protocol.ErrCodeInvalidPayload, err.Error())
		return
	}
	if err := msg.Validate(); err != nil {
		s.sendError(conn, protocol.ErrCodeInvalidPayload, err.Error())
		return
	}
	if !s.requireMember(conn, msg.ConversationID, identity.UserID) {
		return
	}

	recipients, err := s.resolver.ConversationRecipients(msg.ConversationID, identity.UserID, false)
	if err != nil {
		s.sendError(conn, protocol.ErrCodeStorage, "failed to resolve recipients")
		return
	}

	out, err := protocol.NewEnvelope(protocol.TypeTyping, protocol.Typing{
		ConversationID: msg.ConversationID,
		UserID:         identity.UserID,
		IsTyping:       msg.IsTyping,
	})
	if err != nil {
		s.log.Error("failed to build typing event", zap.Error(err))
		return
	}
	s.broadcaster.Broadcast(recipients, out)
}

// handleNewMessage persists a message and fans it out to all members,
// including the sender for multi-device consistency. The storage write
// completes before any broadcast referencing it.
func (s *Server) handleNewMessage(identity Identity, conn *Conn, env *protocol.Envelope) {
	var msg protocol.NewMessage
	if err := env.DecodeData(&msg); err != nil {
		s.sendError(conn, protocol.ErrCodeInvalidPayload, err.Error())
		return
	}
	if err := msg.Validate(); err != nil {
		s.sendError(conn, protocol.ErrCodeInvalidPayload, err.Error())
		return
	}
	if !s.requireMember(conn, msg.ConversationID, identity.UserID) {
		return
	}

	stored, err := s.store.InsertMessage(msg.ConversationID, identity.UserID, msg.Content)
	if err != nil {
		s.log.Error("failed to store message", zap.Int64("conversation_id", msg.ConversationID), zap.Error(err))
		s.sendError(conn, protocol.ErrCodeStorage, "failed to store message")
		return
	}

	recipients, err := s.resolver.ConversationRecipients(msg.ConversationID, identity.UserID, true)
	if err != nil {
		s.sendError(conn, protocol.ErrCodeStorage, "failed to resolve recipients")
		return
	}

	out, err := protocol.NewEnvelope(protocol.TypeNewMessage, protocol.MessageEvent{
		ConversationID: stored.ConversationID,
		MessageID:      stored.ID,
		AuthorID:       stored.AuthorID,
		Content:        stored.Content,
		CreatedAt:      stored.CreatedAt,
	})
	if err != nil {
		s.log.Error("failed to build new_message event", zap.Error(err))
		return
	}

	offline := s.broadcaster.Broadcast(recipients, out)
	s.notifyOffline(offline, notify.Notification{
		Title: "New message",
		Body:  stored.Content,
		Data:  map[string]string{"conversationId": formatID(stored.ConversationID)},
	})
}

// handleMessageEdited updates a message the actor authored and fans the new
// content out, actor included.
func (s *Server) handleMessageEdited(identity Identity, conn *Conn, env *protocol.Envelope) {
	var msg protocol.MessageEdited
	if err := env.DecodeData(&msg); err != nil {
		s.sendError(conn, protocol.ErrCodeInvalidPayload, err.Error())
		return
	}
	if err := msg.Validate(); err != nil {
		s.sendError(conn, protocol.ErrCodeInvalidPayload, err.Error())
		return
	}
	if !s.requireMember(conn, msg.ConversationID, identity.UserID) {
		return
	}

	updated, err := s.store.UpdateMessage(msg.MessageID, identity.UserID, msg.Content)
	if err != nil {
		s.log.Error("failed to update message", zap.Int64("message_id", msg.MessageID), zap.Error(err))
		s.sendError(conn, protocol.ErrCodeStorage, "failed to update message")
		return
	}

	recipients, err := s.resolver.ConversationRecipients(msg.ConversationID, identity.UserID, true)
	if err != nil {
		s.sendError(conn, protocol.ErrCodeStorage, "failed to resolve recipients")
		return
	}

	event := protocol.MessageEvent{
		ConversationID: updated.ConversationID,
		MessageID:      updated.ID,
		AuthorID:       updated.AuthorID,
		Content:        updated.Content,
		CreatedAt:      updated.CreatedAt,
	}
	if updated.EditedAt != nil {
		event.EditedAt = *updated.EditedAt
	}

	out, err := protocol.NewEnvelope(protocol.TypeMessageEdited, event)
	if err != nil {
		s.log.Error("failed to build message_edited event", zap.Error(err))
		return
	}
	s.broadcaster.Broadcast(recipients, out)
}

// handleIncomingCall creates an active call in the conversation and rings
// the other members. Offline members receive a push notification.
func (s *Server) handleIncomingCall(identity Identity, conn *Conn, env *protocol.Envelope) {
	var msg protocol.IncomingCall
	if err := env.DecodeData(&msg); err != nil {
		s.sendError(conn, protocol.ErrCodeInvalidPayload, err.Error())
		return
	}
	if err := msg.Validate(); err != nil {
		s.sendError(conn, protocol.ErrCodeInvalidPayload, err.Error())
		return
	}
	if !s.requireMember(conn, msg.ConversationID, identity.UserID) {
		return
	}

	convID := msg.ConversationID
	call, err := s.calls.Start(identity.UserID, &convID, msg.CallType)
	if err != nil {
		s.log.Error("failed to start call", zap.Int64("conversation_id", convID), zap.Error(err))
		s.sendError(conn, protocol.ErrCodeStorage, "failed to start call")
		return
	}

	recipients, err := s.resolver.ConversationRecipients(convID, identity.UserID, false)
	if err != nil {
		s.sendError(conn, protocol.ErrCodeStorage, "failed to resolve recipients")
		return
	}

	out, err := protocol.NewEnvelope(protocol.TypeIncomingCall, protocol.CallEvent{
		CallID:         call.ID,
		RoomID:         call.RoomID,
		ConversationID: convID,
		FromUserID:     identity.UserID,
		CallType:       call.CallType,
	})
	if err != nil {
		s.log.Error("failed to build incoming_call event", zap.Error(err))
		return
	}

	offline := s.broadcaster.Broadcast(recipients, out)
	s.notifyOffline(offline, notify.Notification{
		Title: "Incoming call",
		Body:  "You have an incoming call",
		Data:  map[string]string{"callId": call.ID, "roomId": call.RoomID},
	})
}

// handleInviteToCall delivers invitations through the call manager and
// surfaces unreachable targets as a soft warning, not a failure.
func (s *Server) handleInviteToCall(identity Identity, conn *Conn, env *protocol.Envelope) {
	var msg protocol.InviteToCall
	if err := env.DecodeData(&msg); err != nil {
		s.sendError(conn, protocol.ErrCodeInvalidPayload, err.Error())
		return
	}
	if err := msg.Validate(); err != nil {
		s.sendError(conn, protocol.ErrCodeInvalidPayload, err.Error())
		return
	}

	undelivered, err := s.calls.Invite(identity.UserID, msg.CallID, msg.TargetIDs)
	switch {
	case errors.Is(err, ErrCallNotFound):
		s.sendError(conn, protocol.ErrCodeCallNotFound, "call not found")
		return
	case errors.Is(err, ErrCallEnded):
		s.sendError(conn, protocol.ErrCodeCallEnded, "call has ended")
		return
	case errors.Is(err, ErrNotCallParticipant):
		s.sendError(conn, protocol.ErrCodeNotParticipant, "not a participant of this call")
		return
	case err != nil:
		s.log.Error("call invite failed", zap.String("call_id", msg.CallID), zap.Error(err))
		s.sendError(conn, protocol.ErrCodeStorage, "failed to deliver invitation")
		return
	}

	if len(undelivered) > 0 {
		warn, err := protocol.NewEnvelope(protocol.TypeCallInviteDropped, protocol.CallInviteDropped{
			CallID:    msg.CallID,
			TargetIDs: undelivered,
		})
		if err == nil {
			conn.Send(warn)
		}
	}
}

// handleCallSignal relays answered/rejected/cancelled notifications to the
// other conversation members after validating membership.
func (s *Server) handleCallSignal(identity Identity, conn *Conn, env *protocol.Envelope) {
	var msg protocol.CallSignal
	if err := env.DecodeData(&msg); err != nil {
		s.sendError(conn, protocol.ErrCodeInvalidPayload, err.Error())
		return
	}
	if err := msg.Validate(); err != nil {
		s.sendError(conn, protocol.ErrCodeInvalidPayload, err.Error())
		return
	}
	if !s.requireMember(conn, msg.ConversationID, identity.UserID) {
		return
	}

	recipients, err := s.resolver.ConversationRecipients(msg.ConversationID, identity.UserID, false)
	if err != nil {
		s.sendError(conn, protocol.ErrCodeStorage, "failed to resolve recipients")
		return
	}

	out, err := protocol.NewEnvelope(env.Type, protocol.CallEvent{
		CallID:         msg.CallID,
		ConversationID: msg.ConversationID,
		FromUserID:     identity.UserID,
	})
	if err != nil {
		s.log.Error("failed to build call signal event", zap.String("event", env.Type), zap.Error(err))
		return
	}
	s.broadcaster.Broadcast(recipients, out)
}
