package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// CreateCall stores a new call record.
func (db *DB) CreateCall(call *Call) error {
	_, err := db.writeConn.Exec(
		`INSERT INTO calls (id, room_id, room_url, host_id, conversation_id, call_type, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		call.ID, call.RoomID, call.RoomURL, call.HostID, call.ConversationID,
		call.CallType, call.Status, call.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to create call: %w", err)
	}
	return nil
}

// GetCall returns a call by ID.
func (db *DB) GetCall(callID string) (*Call, error) {
	var c Call
	var convID sql.NullInt64
	var createdAt int64
	var endedAt sql.NullInt64
	err := db.conn.QueryRow(
		`SELECT id, room_id, room_url, host_id, conversation_id, call_type, status, created_at, ended_at
		 FROM calls WHERE id = ?`,
		callID,
	).Scan(&c.ID, &c.RoomID, &c.RoomURL, &c.HostID, &convID, &c.CallType, &c.Status, &createdAt, &endedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if convID.Valid {
		c.ConversationID = &convID.Int64
	}
	c.CreatedAt = millisToTime(createdAt)
	if endedAt.Valid {
		t := millisToTime(endedAt.Int64)
		c.EndedAt = &t
	}
	return &c, nil
}

// EndCall transitions a call to its terminal ended status.
func (db *DB) EndCall(callID string) error {
	result, err := db.writeConn.Exec(
		"UPDATE calls SET status = ?, ended_at = ? WHERE id = ? AND status = ?",
		CallStatusEnded, nowMillis(), callID, CallStatusActive,
	)
	if err != nil {
		return fmt.Errorf("failed to end call: %w", err)
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

// AddCallParticipant records a participant. Returns false without error if
// the participant was already present.
func (db *DB) AddCallParticipant(callID string, userID int64) (bool, error) {
	_, err := db.writeConn.Exec(
		"INSERT INTO call_participants (call_id, user_id, joined_at) VALUES (?, ?, ?)",
		callID, userID, nowMillis(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "PRIMARY") {
			return false, nil
		}
		return false, fmt.Errorf("failed to add call participant: %w", err)
	}
	return true, nil
}

// RemoveCallParticipant removes a participant record.
func (db *DB) RemoveCallParticipant(callID string, userID int64) error {
	_, err := db.writeConn.Exec(
		"DELETE FROM call_participants WHERE call_id = ? AND user_id = ?",
		callID, userID,
	)
	return err
}

// CallParticipantIDs returns the current participants of a call.
func (db *DB) CallParticipantIDs(callID string) ([]int64, error) {
	rows, err := db.conn.Query(
		"SELECT user_id FROM call_participants WHERE call_id = ?",
		callID,
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

// CallParticipantCount returns the number of unique participants.
func (db *DB) CallParticipantCount(callID string) (int, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM call_participants WHERE call_id = ?",
		callID,
	).Scan(&count)
	return count, err
}
