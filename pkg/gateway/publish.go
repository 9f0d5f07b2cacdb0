package gateway

import (
	"errors"
	"strconv"

	"github.com/aeolun/teamline/pkg/notify"
	"github.com/aeolun/teamline/pkg/protocol"
	"github.com/aeolun/teamline/pkg/store"
)

// The Publish methods are the entry point for events originating outside
// the realtime channel: HTTP handlers forwarding entity changes and the
// reminder schedulers injecting system messages. Authorization scoping goes
// through the same resolver as inbound traffic.

// PublishGlobal delivers an event to every currently connected identity.
func (s *Server) PublishGlobal(eventType string, payload interface{}) error {
	env, err := protocol.NewEnvelope(eventType, payload)
	if err != nil {
		return err
	}
	s.broadcaster.Broadcast(s.registry.OnlineIDs(), env)
	return nil
}

// PublishConversation delivers an event to the current members of a
// conversation, resolved at broadcast time.
func (s *Server) PublishConversation(convID, actorID int64, includeActor bool, eventType string, payload interface{}) error {
	recipients, err := s.resolver.ConversationRecipients(convID, actorID, includeActor)
	if err != nil {
		return err
	}

	env, err := protocol.NewEnvelope(eventType, payload)
	if err != nil {
		return err
	}
	s.broadcaster.Broadcast(recipients, env)
	return nil
}

// PublishTask delivers a task event to its stakeholders: creator, assignee
// and admins. Fails closed on an empty recipient set.
func (s *Server) PublishTask(taskID int64, eventType string, payload interface{}) error {
	task, err := s.store.GetTask(taskID)
	if err != nil {
		return err
	}

	recipients, err := s.resolver.TaskRecipients(task)
	if errors.Is(err, ErrEmptyRecipients) {
		s.metrics.RecordRefusedBroadcast()
		return err
	}
	if err != nil {
		return err
	}

	env, err := protocol.NewEnvelope(eventType, payload)
	if err != nil {
		return err
	}
	s.broadcaster.Broadcast(recipients, env)
	return nil
}

// PublishMessage fans out a message that was inserted outside an inbound
// frame, e.g. by a reminder scheduler. Offline members fall back to push.
func (s *Server) PublishMessage(m *store.Message) error {
	recipients, err := s.resolver.ConversationRecipients(m.ConversationID, m.AuthorID, true)
	if err != nil {
		return err
	}

	env, err := protocol.NewEnvelope(protocol.TypeNewMessage, protocol.MessageEvent{
		ConversationID: m.ConversationID,
		MessageID:      m.ID,
		AuthorID:       m.AuthorID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	})
	if err != nil {
		return err
	}

	offline := s.broadcaster.Broadcast(recipients, env)
	s.notifyOffline(offline, notify.Notification{
		Title: "New message",
		Body:  m.Content,
		Data:  map[string]string{"conversationId": formatID(m.ConversationID)},
	})
	return nil
}

// PublishMessageDeleted announces a soft-deleted message to all members,
// actor included.
func (s *Server) PublishMessageDeleted(convID, actorID, messageID int64) error {
	return s.PublishConversation(convID, actorID, true, protocol.TypeMessageDeleted, protocol.MessageEvent{
		ConversationID: convID,
		MessageID:      messageID,
		AuthorID:       actorID,
	})
}

// Calls exposes the call lifecycle to HTTP handlers (join/leave/end are
// driven from the REST surface, not over the realtime channel).
func (s *Server) Calls() *CallManager {
	return s.calls
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
