package store

import (
	"database/sql"
	"fmt"
	"time"
)

// CreateTodo inserts a personal todo item.
func (db *DB) CreateTodo(userID int64, title string, dueAt *time.Time) (int64, error) {
	var due interface{}
	if dueAt != nil {
		due = dueAt.UnixMilli()
	}
	result, err := db.writeConn.Exec(
		"INSERT INTO todos (user_id, title, due_at) VALUES (?, ?, ?)",
		userID, title, due,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create todo: %w", err)
	}
	return result.LastInsertId()
}

// TodosNeedingReminder returns incomplete todos overdue or due within the
// window without a reminder sent.
func (db *DB) TodosNeedingReminder(now time.Time, window time.Duration) ([]*Todo, error) {
	rows, err := db.conn.Query(
		`SELECT id, user_id, title, due_at, completed, reminder_sent
		 FROM todos
		 WHERE completed = 0 AND reminder_sent = 0 AND due_at IS NOT NULL AND due_at <= ?`,
		now.Add(window).UnixMilli(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var todos []*Todo
	for rows.Next() {
		var t Todo
		var due sql.NullInt64
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &due, &t.Completed, &t.ReminderSent); err != nil {
			return nil, err
		}
		if due.Valid {
			dt := millisToTime(due.Int64)
			t.DueAt = &dt
		}
		todos = append(todos, &t)
	}
	return todos, rows.Err()
}

// MarkTodoReminderSent persists the at-most-once reminder flag.
func (db *DB) MarkTodoReminderSent(todoID int64) error {
	_, err := db.writeConn.Exec("UPDATE todos SET reminder_sent = 1 WHERE id = ?", todoID)
	return err
}
