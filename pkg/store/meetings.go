package store

import (
	"fmt"
	"time"
)

// CreateMeeting inserts a meeting with the given participants.
func (db *DB) CreateMeeting(title string, startAt time.Time, participantIDs []int64) (int64, error) {
	tx, err := db.writeConn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"INSERT INTO meetings (title, start_at) VALUES (?, ?)",
		title, startAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create meeting: %w", err)
	}
	meetingID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, userID := range participantIDs {
		if _, err := tx.Exec(
			"INSERT INTO meeting_participants (meeting_id, user_id) VALUES (?, ?)",
			meetingID, userID,
		); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return meetingID, nil
}

// MeetingsNeedingReminder returns meetings starting within the threshold
// (minutes from now) whose flag for that threshold is still unset.
func (db *DB) MeetingsNeedingReminder(now time.Time, thresholdMinutes int) ([]*Meeting, error) {
	column := "reminder_15_sent"
	if thresholdMinutes == MeetingReminder5 {
		column = "reminder_5_sent"
	} else if thresholdMinutes != MeetingReminder15 {
		return nil, fmt.Errorf("unknown reminder threshold: %d", thresholdMinutes)
	}

	deadline := now.Add(time.Duration(thresholdMinutes) * time.Minute)
	rows, err := db.conn.Query(
		`SELECT id, title, start_at, reminder_15_sent, reminder_5_sent
		 FROM meetings
		 WHERE `+column+` = 0 AND start_at > ? AND start_at <= ?`,
		now.UnixMilli(), deadline.UnixMilli(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetings []*Meeting
	for rows.Next() {
		var m Meeting
		var startAt int64
		if err := rows.Scan(&m.ID, &m.Title, &startAt, &m.Reminder15Sent, &m.Reminder5Sent); err != nil {
			return nil, err
		}
		m.StartAt = millisToTime(startAt)
		meetings = append(meetings, &m)
	}
	return meetings, rows.Err()
}

// MarkMeetingReminderSent persists the flag for one threshold.
func (db *DB) MarkMeetingReminderSent(meetingID int64, thresholdMinutes int) error {
	column := "reminder_15_sent"
	if thresholdMinutes == MeetingReminder5 {
		column = "reminder_5_sent"
	} else if thresholdMinutes != MeetingReminder15 {
		return fmt.Errorf("unknown reminder threshold: %d", thresholdMinutes)
	}

	_, err := db.writeConn.Exec("UPDATE meetings SET "+column+" = 1 WHERE id = ?", meetingID)
	return err
}

// MeetingParticipantIDs returns the participant IDs of a meeting.
func (db *DB) MeetingParticipantIDs(meetingID int64) ([]int64, error) {
	rows, err := db.conn.Query(
		"SELECT user_id FROM meeting_participants WHERE meeting_id = ?",
		meetingID,
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
