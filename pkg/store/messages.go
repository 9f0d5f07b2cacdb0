package store

import (
	"database/sql"
	"fmt"
)

// InsertMessage stores a message and returns the stored record.
func (db *DB) InsertMessage(convID, authorID int64, content string) (*Message, error) {
	now := nowMillis()
	result, err := db.writeConn.Exec(
		"INSERT INTO messages (conversation_id, author_id, content, created_at) VALUES (?, ?, ?, ?)",
		convID, authorID, content, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:             id,
		ConversationID: convID,
		AuthorID:       authorID,
		Content:        content,
		CreatedAt:      millisToTime(now),
	}, nil
}

// UpdateMessage replaces the content of a message authored by authorID.
func (db *DB) UpdateMessage(messageID, authorID int64, content string) (*Message, error) {
	now := nowMillis()
	result, err := db.writeConn.Exec(
		"UPDATE messages SET content = ?, edited_at = ? WHERE id = ? AND author_id = ? AND deleted = 0",
		content, now, messageID, authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return db.GetMessage(messageID)
}

// SoftDeleteMessage marks a message deleted without removing the row.
func (db *DB) SoftDeleteMessage(messageID int64) error {
	result, err := db.writeConn.Exec(
		"UPDATE messages SET deleted = 1 WHERE id = ?",
		messageID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetMessage returns a message by ID.
func (db *DB) GetMessage(messageID int64) (*Message, error) {
	var m Message
	var createdAt int64
	var editedAt sql.NullInt64
	err := db.conn.QueryRow(
		"SELECT id, conversation_id, author_id, content, created_at, edited_at, deleted FROM messages WHERE id = ?",
		messageID,
	).Scan(&m.ID, &m.ConversationID, &m.AuthorID, &m.Content, &createdAt, &editedAt, &m.Deleted)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m.CreatedAt = millisToTime(createdAt)
	if editedAt.Valid {
		t := millisToTime(editedAt.Int64)
		m.EditedAt = &t
	}
	return &m, nil
}
