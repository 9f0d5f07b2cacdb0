package reminder

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aeolun/teamline/pkg/store"
)

// NewMeetingScheduler reminds every participant 15 and 5 minutes before a
// meeting starts. Each threshold fires at most once per meeting; the flag
// is persisted after the participants receive their messages.
func NewMeetingScheduler(st Store, pub Publisher, interval time.Duration, log *zap.Logger) *Scheduler {
	check := func(systemID int64, now time.Time) error {
		for _, threshold := range []int{store.MeetingReminder15, store.MeetingReminder5} {
			meetings, err := st.MeetingsNeedingReminder(now, threshold)
			if err != nil {
				return err
			}

			for _, meeting := range meetings {
				participants, err := st.MeetingParticipantIDs(meeting.ID)
				if err != nil {
					log.Error("failed to resolve meeting participants",
						zap.Int64("meeting_id", meeting.ID),
						zap.Error(err))
					continue
				}

				body := fmt.Sprintf("Meeting %q starts at %s (in about %d minutes).",
					meeting.Title, meeting.StartAt.Format("15:04"), threshold)

				delivered := false
				for _, userID := range participants {
					if userID == systemID {
						continue
					}
					if err := deliver(st, pub, systemID, userID, body); err != nil {
						log.Error("failed to deliver meeting reminder",
							zap.Int64("meeting_id", meeting.ID),
							zap.Int64("user_id", userID),
							zap.Error(err))
						continue
					}
					delivered = true
				}

				if delivered || len(participants) == 0 {
					if err := st.MarkMeetingReminderSent(meeting.ID, threshold); err != nil {
						log.Error("failed to mark meeting reminder sent",
							zap.Int64("meeting_id", meeting.ID),
							zap.Int("threshold", threshold),
							zap.Error(err))
					}
				}
			}
		}
		return nil
	}

	return newScheduler("meeting", interval, st, log, check)
}
