package reminder

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aeolun/teamline/pkg/store"
)

// taskReminderWindow is how far ahead of the due date a task reminder fires.
const taskReminderWindow = 24 * time.Hour

// NewTaskScheduler reminds the responsible user about tasks that are overdue
// or due within 24 hours and not completed.
func NewTaskScheduler(st Store, pub Publisher, interval time.Duration, log *zap.Logger) *Scheduler {
	check := func(systemID int64, now time.Time) error {
		tasks, err := st.TasksNeedingReminder(now, taskReminderWindow)
		if err != nil {
			return err
		}

		for _, task := range tasks {
			target := task.CreatorID
			if task.AssigneeID != nil {
				target = *task.AssigneeID
			}

			if err := deliver(st, pub, systemID, target, taskReminderBody(task, now)); err != nil {
				log.Error("failed to deliver task reminder",
					zap.Int64("task_id", task.ID),
					zap.Error(err))
				continue
			}
			if err := st.MarkTaskReminderSent(task.ID); err != nil {
				log.Error("failed to mark task reminder sent",
					zap.Int64("task_id", task.ID),
					zap.Error(err))
			}
		}
		return nil
	}

	return newScheduler("task", interval, st, log, check)
}

func taskReminderBody(task *store.Task, now time.Time) string {
	if task.DueAt != nil && task.DueAt.Before(now) {
		return fmt.Sprintf("Task %q is overdue (was due %s).", task.Title, task.DueAt.Format("Jan 2 15:04"))
	}
	if task.DueAt != nil {
		return fmt.Sprintf("Task %q is due %s.", task.Title, task.DueAt.Format("Jan 2 15:04"))
	}
	return fmt.Sprintf("Task %q needs attention.", task.Title)
}
