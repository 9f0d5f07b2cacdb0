package protocol

// Inbound event types (client → server).
const (
	TypeIncomingCall  = "incoming_call"
	TypeInviteToCall  = "invite_to_call"
	TypeCallAnswered  = "call_answered"
	TypeCallRejected  = "call_rejected"
	TypeCallCancelled = "call_cancelled"
	TypeNewMessage    = "new_message"
	TypeMessageEdited = "message_edited"
	TypeTyping        = "typing"
)

// Outbound event types (server → client).
const (
	TypeOnlineUsers         = "online_users"
	TypeUserOnline          = "user_online"
	TypeUserOffline         = "user_offline"
	TypeUserCreated         = "user_created"
	TypeUserDeleted         = "user_deleted"
	TypeTaskCreated         = "task_created"
	TypeTaskUpdated         = "task_updated"
	TypeTaskStatusUpdated   = "task_status_updated"
	TypeTaskDeleted         = "task_deleted"
	TypeConversationCreated = "conversation_created"
	TypeMessageDeleted      = "message_deleted"
	TypeCallInvitation      = "call_invitation"
	TypeCallInviteDropped   = "call_invitation_undelivered"
	TypeCallParticipantJoin = "call_participant_joined"
	TypeCallParticipantLeft = "call_participant_left"
	TypeCallEnded           = "call_ended"
	TypeError               = "error"
)

// IsInbound reports whether the event type is one this server accepts
// from clients. Everything else arriving inbound is a protocol violation.
func IsInbound(eventType string) bool {
	switch eventType {
	case TypeIncomingCall, TypeInviteToCall, TypeCallAnswered,
		TypeCallRejected, TypeCallCancelled, TypeNewMessage,
		TypeMessageEdited, TypeTyping:
		return true
	}
	return false
}
