package store

import "time"

// Call status values.
const (
	CallStatusActive = "active"
	CallStatusEnded  = "ended"
)

// Meeting reminder thresholds, in minutes before start.
const (
	MeetingReminder15 = 15
	MeetingReminder5  = 5
)

// User is a durable principal.
type User struct {
	ID          int64
	Username    string
	DisplayName string
	IsAdmin     bool
	IsSystem    bool
	CreatedAt   time.Time
}

// Conversation is a message thread between two or more users.
type Conversation struct {
	ID        int64
	Name      string
	IsGroup   bool
	CreatedAt time.Time
}

// Message is a single conversation entry.
type Message struct {
	ID             int64
	ConversationID int64
	AuthorID       int64
	Content        string
	CreatedAt      time.Time
	EditedAt       *time.Time
	Deleted        bool
}

// Task is an assignable work item with an optional due date.
type Task struct {
	ID           int64
	Title        string
	CreatorID    int64
	AssigneeID   *int64
	DueAt        *time.Time
	Completed    bool
	ReminderSent bool
}

// Meeting is a scheduled event with per-threshold reminder flags.
type Meeting struct {
	ID             int64
	Title          string
	StartAt        time.Time
	Reminder15Sent bool
	Reminder5Sent  bool
}

// Todo is a personal work item.
type Todo struct {
	ID           int64
	UserID       int64
	Title        string
	DueAt        *time.Time
	Completed    bool
	ReminderSent bool
}

// Call is an active or ended audio/video call.
type Call struct {
	ID             string
	RoomID         string
	RoomURL        string
	HostID         int64
	ConversationID *int64
	CallType       string
	Status         string
	CreatedAt      time.Time
	EndedAt        *time.Time
}

// PushSubscription is one registered push endpoint for a user.
type PushSubscription struct {
	ID       int64
	UserID   int64
	Endpoint string
}
