package reminder

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aeolun/teamline/pkg/store"
)

// todoReminderWindow is how far ahead of the due date a todo reminder fires.
const todoReminderWindow = 24 * time.Hour

// NewTodoScheduler reminds the owner about todos that are overdue or due
// within 24 hours and not completed.
func NewTodoScheduler(st Store, pub Publisher, interval time.Duration, log *zap.Logger) *Scheduler {
	check := func(systemID int64, now time.Time) error {
		todos, err := st.TodosNeedingReminder(now, todoReminderWindow)
		if err != nil {
			return err
		}

		for _, todo := range todos {
			if err := deliver(st, pub, systemID, todo.UserID, todoReminderBody(todo, now)); err != nil {
				log.Error("failed to deliver todo reminder",
					zap.Int64("todo_id", todo.ID),
					zap.Error(err))
				continue
			}
			if err := st.MarkTodoReminderSent(todo.ID); err != nil {
				log.Error("failed to mark todo reminder sent",
					zap.Int64("todo_id", todo.ID),
					zap.Error(err))
			}
		}
		return nil
	}

	return newScheduler("todo", interval, st, log, check)
}

func todoReminderBody(todo *store.Todo, now time.Time) string {
	if todo.DueAt != nil && todo.DueAt.Before(now) {
		return fmt.Sprintf("Todo %q is overdue (was due %s).", todo.Title, todo.DueAt.Format("Jan 2 15:04"))
	}
	if todo.DueAt != nil {
		return fmt.Sprintf("Todo %q is due %s.", todo.Title, todo.DueAt.Format("Jan 2 15:04"))
	}
	return fmt.Sprintf("Todo %q needs attention.", todo.Title)
}
