package store

import (
	"database/sql"
	"fmt"
)

// CreateUser inserts a user and returns its ID.
func (db *DB) CreateUser(username, displayName string, isAdmin, isSystem bool) (int64, error) {
	result, err := db.writeConn.Exec(
		"INSERT INTO users (username, display_name, is_admin, is_system, created_at) VALUES (?, ?, ?, ?, ?)",
		username, displayName, isAdmin, isSystem, nowMillis(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return result.LastInsertId()
}

// GetUser returns a user by ID.
func (db *DB) GetUser(userID int64) (*User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, display_name, is_admin, is_system, created_at FROM users WHERE id = ?",
		userID,
	)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var createdAt int64
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.IsAdmin, &u.IsSystem, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = millisToTime(createdAt)
	return &u, nil
}

// AdminIDs returns the IDs of all users with admin privilege.
func (db *DB) AdminIDs() ([]int64, error) {
	rows, err := db.conn.Query("SELECT id FROM users WHERE is_admin = 1")
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

// SystemUserID returns the designated system account used to author
// automated messages.
func (db *DB) SystemUserID() (int64, error) {
	var id int64
	err := db.conn.QueryRow("SELECT id FROM users WHERE is_system = 1 LIMIT 1").Scan(&id)
	if err == sql.ErrNoRows {
		return 0, ErrNoSystemUser
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}
