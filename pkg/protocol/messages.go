package protocol

import (
	"errors"
	"time"
)

// Call kinds carried by call setup payloads.
const (
	CallKindAudio = "audio"
	CallKindVideo = "video"
)

var (
	errNoConversation = errors.New("conversation_id is required")
	errNoCall         = errors.New("call_id is required")
	errNoContent      = errors.New("content is required")
	errNoMessage      = errors.New("message_id is required")
	errNoTargets      = errors.New("target_ids is required")
	errBadCallKind    = errors.New("call_type must be audio or video")
)

// IncomingCall announces a new call to a conversation. Sent by the host;
// the server allocates the call and room before fanning it out.
type IncomingCall struct {
	ConversationID int64  `json:"conversationId"`
	CallType       string `json:"callType"`
}

func (m *IncomingCall) Validate() error {
	if m.ConversationID == 0 {
		return errNoConversation
	}
	if m.CallType != CallKindAudio && m.CallType != CallKindVideo {
		return errBadCallKind
	}
	return nil
}

// InviteToCall asks the server to deliver a call invitation to a set of
// users, online or not.
type InviteToCall struct {
	CallID    string  `json:"callId"`
	TargetIDs []int64 `json:"targetIds"`
}

func (m *InviteToCall) Validate() error {
	if m.CallID == "" {
		return errNoCall
	}
	if len(m.TargetIDs) == 0 {
		return errNoTargets
	}
	return nil
}

// CallSignal covers call_answered, call_rejected and call_cancelled,
// which share a payload shape and conversation-scoped fan-out.
type CallSignal struct {
	ConversationID int64  `json:"conversationId"`
	CallID         string `json:"callId"`
}

func (m *CallSignal) Validate() error {
	if m.ConversationID == 0 {
		return errNoConversation
	}
	if m.CallID == "" {
		return errNoCall
	}
	return nil
}

// NewMessage posts a message to a conversation.
type NewMessage struct {
	ConversationID int64  `json:"conversationId"`
	Content        string `json:"content"`
}

func (m *NewMessage) Validate() error {
	if m.ConversationID == 0 {
		return errNoConversation
	}
	if m.Content == "" {
		return errNoContent
	}
	return nil
}

// MessageEdited replaces the content of an existing message.
type MessageEdited struct {
	ConversationID int64  `json:"conversationId"`
	MessageID      int64  `json:"messageId"`
	Content        string `json:"content"`
}

func (m *MessageEdited) Validate() error {
	if m.ConversationID == 0 {
		return errNoConversation
	}
	if m.MessageID == 0 {
		return errNoMessage
	}
	if m.Content == "" {
		return errNoContent
	}
	return nil
}

// Typing signals typing state inside a conversation. Outbound frames carry
// the actor's UserID; inbound frames leave it zero (the server knows the
// sender from the connection).
type Typing struct {
	ConversationID int64 `json:"conversationId"`
	UserID         int64 `json:"userId,omitempty"`
	IsTyping       bool  `json:"isTyping"`
}

func (m *Typing) Validate() error {
	if m.ConversationID == 0 {
		return errNoConversation
	}
	return nil
}

// OnlineUsers is the presence snapshot sent to every freshly connected client.
type OnlineUsers struct {
	UserIDs []int64 `json:"userIds"`
}

// PresenceChange carries user_online / user_offline.
type PresenceChange struct {
	UserID int64 `json:"userId"`
}

// MessageEvent is the outbound shape for new_message, message_edited and
// message_deleted.
type MessageEvent struct {
	ConversationID int64     `json:"conversationId"`
	MessageID      int64     `json:"messageId"`
	AuthorID       int64     `json:"authorId"`
	Content        string    `json:"content,omitempty"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
	EditedAt       time.Time `json:"editedAt,omitempty"`
}

// CallEvent is the outbound shape for incoming_call and the
// answered/rejected/cancelled signals.
type CallEvent struct {
	CallID         string `json:"callId"`
	RoomID         string `json:"roomId,omitempty"`
	ConversationID int64  `json:"conversationId,omitempty"`
	FromUserID     int64  `json:"fromUserId"`
	CallType       string `json:"callType,omitempty"`
}

// CallInvitation is delivered to invite targets.
type CallInvitation struct {
	CallID     string `json:"callId"`
	RoomID     string `json:"roomId"`
	FromUserID int64  `json:"fromUserId"`
	CallType   string `json:"callType"`
}

// CallInviteDropped is the soft warning returned to an inviter when a
// target could be reached neither live nor by push.
type CallInviteDropped struct {
	CallID    string  `json:"callId"`
	TargetIDs []int64 `json:"targetIds"`
}

// CallParticipantEvent carries join/leave fan-out with the post-change count.
type CallParticipantEvent struct {
	CallID           string `json:"callId"`
	UserID           int64  `json:"userId"`
	ParticipantCount int    `json:"participantCount"`
}

// CallEnded announces the terminal state of a call.
type CallEnded struct {
	CallID  string `json:"callId"`
	EndedBy int64  `json:"endedBy"`
}
