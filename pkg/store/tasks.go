package store

import (
	"database/sql"
	"fmt"
	"time"
)

// CreateTask inserts a task and returns its ID.
func (db *DB) CreateTask(title string, creatorID int64, assigneeID *int64, dueAt *time.Time) (int64, error) {
	var due interface{}
	if dueAt != nil {
		due = dueAt.UnixMilli()
	}
	result, err := db.writeConn.Exec(
		"INSERT INTO tasks (title, creator_id, assignee_id, due_at) VALUES (?, ?, ?, ?)",
		title, creatorID, assigneeID, due,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create task: %w", err)
	}
	return result.LastInsertId()
}

// GetTask returns a task by ID.
func (db *DB) GetTask(taskID int64) (*Task, error) {
	row := db.conn.QueryRow(
		"SELECT id, title, creator_id, assignee_id, due_at, completed, reminder_sent FROM tasks WHERE id = ?",
		taskID,
	)
	return scanTask(row.Scan)
}

func scanTask(scan func(...interface{}) error) (*Task, error) {
	var t Task
	var assignee sql.NullInt64
	var due sql.NullInt64
	err := scan(&t.ID, &t.Title, &t.CreatorID, &assignee, &due, &t.Completed, &t.ReminderSent)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if assignee.Valid {
		t.AssigneeID = &assignee.Int64
	}
	if due.Valid {
		dt := millisToTime(due.Int64)
		t.DueAt = &dt
	}
	return &t, nil
}

// TasksNeedingReminder returns incomplete tasks that are overdue or due
// within the window and have not had a reminder sent yet.
func (db *DB) TasksNeedingReminder(now time.Time, window time.Duration) ([]*Task, error) {
	rows, err := db.conn.Query(
		`SELECT id, title, creator_id, assignee_id, due_at, completed, reminder_sent
		 FROM tasks
		 WHERE completed = 0 AND reminder_sent = 0 AND due_at IS NOT NULL AND due_at <= ?`,
		now.Add(window).UnixMilli(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// MarkTaskReminderSent persists the at-most-once reminder flag.
func (db *DB) MarkTaskReminderSent(taskID int64) error {
	_, err := db.writeConn.Exec("UPDATE tasks SET reminder_sent = 1 WHERE id = ?", taskID)
	return err
}
