package store

import "fmt"

// AddPushSubscription registers a push endpoint for a user.
func (db *DB) AddPushSubscription(userID int64, endpoint string) (int64, error) {
	result, err := db.writeConn.Exec(
		"INSERT INTO push_subscriptions (user_id, endpoint, created_at) VALUES (?, ?, ?)",
		userID, endpoint, nowMillis(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to add push subscription: %w", err)
	}
	return result.LastInsertId()
}

// PushSubscriptions returns all registered endpoints for a user.
func (db *DB) PushSubscriptions(userID int64) ([]*PushSubscription, error) {
	rows, err := db.conn.Query(
		"SELECT id, user_id, endpoint FROM push_subscriptions WHERE user_id = ?",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*PushSubscription
	for rows.Next() {
		var s PushSubscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.Endpoint); err != nil {
			return nil, err
		}
		subs = append(subs, &s)
	}
	return subs, rows.Err()
}

// DeletePushSubscription removes a stale endpoint.
func (db *DB) DeletePushSubscription(subscriptionID int64) error {
	_, err := db.writeConn.Exec("DELETE FROM push_subscriptions WHERE id = ?", subscriptionID)
	return err
}
