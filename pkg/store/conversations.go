package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// CreateConversation inserts a conversation with the given members.
func (db *DB) CreateConversation(name string, isGroup bool, memberIDs []int64) (int64, error) {
	tx, err := db.writeConn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"INSERT INTO conversations (name, is_group, created_at) VALUES (?, ?, ?)",
		name, isGroup, nowMillis(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create conversation: %w", err)
	}
	convID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, userID := range memberIDs {
		if _, err := tx.Exec(
			"INSERT INTO conversation_members (conversation_id, user_id) VALUES (?, ?)",
			convID, userID,
		); err != nil {
			return 0, fmt.Errorf("failed to add member %d: %w", userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return convID, nil
}

// FindOrCreatePrivateConversation returns the two-member non-group
// conversation between a and b, creating it if absent. The pair_key unique
// index guarantees at most one such conversation exists per user pair even
// under concurrent invocations.
func (db *DB) FindOrCreatePrivateConversation(a, b int64) (int64, error) {
	low, high := a, b
	if low > high {
		low, high = high, low
	}
	pairKey := fmt.Sprintf("%d:%d", low, high)

	var convID int64
	err := db.conn.QueryRow("SELECT id FROM conversations WHERE pair_key = ?", pairKey).Scan(&convID)
	if err == nil {
		return convID, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	tx, err := db.writeConn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"INSERT INTO conversations (name, is_group, pair_key, created_at) VALUES ('', 0, ?, ?)",
		pairKey, nowMillis(),
	)
	if err != nil {
		// Lost the race: another writer created it between our lookup and
		// insert. The unique index rejected the duplicate, so re-read.
		if strings.Contains(err.Error(), "UNIQUE") {
			lookupErr := db.conn.QueryRow("SELECT id FROM conversations WHERE pair_key = ?", pairKey).Scan(&convID)
			if lookupErr != nil {
				return 0, lookupErr
			}
			return convID, nil
		}
		return 0, fmt.Errorf("failed to create private conversation: %w", err)
	}
	convID, err = result.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, userID := range []int64{low, high} {
		if _, err := tx.Exec(
			"INSERT INTO conversation_members (conversation_id, user_id) VALUES (?, ?)",
			convID, userID,
		); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return convID, nil
}

// ConversationMemberIDs returns the current member IDs of a conversation.
func (db *DB) ConversationMemberIDs(convID int64) ([]int64, error) {
	rows, err := db.conn.Query(
		"SELECT user_id FROM conversation_members WHERE conversation_id = ?",
		convID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IsConversationMember reports whether the user is a member of the conversation.
func (db *DB) IsConversationMember(convID, userID int64) (bool, error) {
	var one int
	err := db.conn.QueryRow(
		"SELECT 1 FROM conversation_members WHERE conversation_id = ? AND user_id = ?",
		convID, userID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
