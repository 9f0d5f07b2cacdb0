package gateway

import "github.com/aeolun/teamline/pkg/store"

// Store defines the storage operations the gateway depends on. This
// abstraction allows testing with an in-memory implementation and keeps the
// gateway indifferent to the storage backend.
type Store interface {
	// User operations
	GetUser(userID int64) (*store.User, error)
	AdminIDs() ([]int64, error)

	// Conversation operations
	ConversationMemberIDs(convID int64) ([]int64, error)
	IsConversationMember(convID, userID int64) (bool, error)

	// Message operations
	InsertMessage(convID, authorID int64, content string) (*store.Message, error)
	UpdateMessage(messageID, authorID int64, content string) (*store.Message, error)

	// Task operations
	GetTask(taskID int64) (*store.Task, error)

	// Call operations
	CreateCall(call *store.Call) error
	GetCall(callID string) (*store.Call, error)
	EndCall(callID string) error
	AddCallParticipant(callID string, userID int64) (bool, error)
	RemoveCallParticipant(callID string, userID int64) error
	CallParticipantIDs(callID string) ([]int64, error)
	CallParticipantCount(callID string) (int, error)
}
