// Package reminder runs the timer-driven services that inject system-authored
// deadline reminders into private conversations.
package reminder

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aeolun/teamline/pkg/store"
)

// Store defines the storage operations the schedulers depend on.
type Store interface {
	SystemUserID() (int64, error)
	FindOrCreatePrivateConversation(a, b int64) (int64, error)
	InsertMessage(convID, authorID int64, content string) (*store.Message, error)

	TasksNeedingReminder(now time.Time, window time.Duration) ([]*store.Task, error)
	MarkTaskReminderSent(taskID int64) error

	MeetingsNeedingReminder(now time.Time, thresholdMinutes int) ([]*store.Meeting, error)
	MeetingParticipantIDs(meetingID int64) ([]int64, error)
	MarkMeetingReminderSent(meetingID int64, thresholdMinutes int) error

	TodosNeedingReminder(now time.Time, window time.Duration) ([]*store.Todo, error)
	MarkTodoReminderSent(todoID int64) error
}

// Publisher fans a stored message out to its conversation members. The
// gateway server satisfies it; a nil publisher skips realtime delivery.
type Publisher interface {
	PublishMessage(m *store.Message) error
}

// checkFunc runs one sweep. now is injected so tests control the clock.
type checkFunc func(systemID int64, now time.Time) error

// Scheduler is one periodic reminder service. Each of the three services
// (task, meeting, todo) is an independent Scheduler; a failure to start one
// does not affect the others.
type Scheduler struct {
	name     string
	interval time.Duration
	store    Store
	log      *zap.Logger
	check    checkFunc

	systemID int64
	stop     chan struct{}
	wg       sync.WaitGroup
	started  bool
}

func newScheduler(name string, interval time.Duration, st Store, log *zap.Logger, check checkFunc) *Scheduler {
	return &Scheduler{
		name:     name,
		interval: interval,
		store:    st,
		log:      log,
		check:    check,
		stop:     make(chan struct{}),
	}
}

// Start resolves the system identity, runs an immediate first sweep and
// begins the periodic loop. The scheduler refuses to start without a system
// identity: failing loud here beats silently never sending a reminder.
func (s *Scheduler) Start() error {
	systemID, err := s.store.SystemUserID()
	if err != nil {
		return fmt.Errorf("%s scheduler cannot start: %w", s.name, err)
	}
	s.systemID = systemID
	s.started = true

	s.runCheck()

	s.wg.Add(1)
	go s.loop()

	s.log.Info("reminder scheduler started",
		zap.String("scheduler", s.name),
		zap.Duration("interval", s.interval))
	return nil
}

// Stop cancels the timer. Safe to call even if Start was never called or
// failed.
func (s *Scheduler) Stop() {
	if !s.started {
		return
	}
	s.started = false
	close(s.stop)
	s.wg.Wait()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.runCheck()
		}
	}
}

func (s *Scheduler) runCheck() {
	if err := s.check(s.systemID, time.Now()); err != nil {
		s.log.Error("reminder sweep failed",
			zap.String("scheduler", s.name),
			zap.Error(err))
	}
}

// deliver finds or creates the private conversation between the system
// identity and the target, inserts the reminder message and fans it out.
// The storage layer's uniqueness constraint keeps concurrent find-or-create
// invocations from creating duplicate conversations.
func deliver(st Store, pub Publisher, systemID, targetID int64, body string) error {
	convID, err := st.FindOrCreatePrivateConversation(systemID, targetID)
	if err != nil {
		return fmt.Errorf("failed to resolve reminder conversation: %w", err)
	}

	msg, err := st.InsertMessage(convID, systemID, body)
	if err != nil {
		return fmt.Errorf("failed to insert reminder message: %w", err)
	}

	if pub != nil {
		if err := pub.PublishMessage(msg); err != nil {
			return fmt.Errorf("failed to publish reminder message: %w", err)
		}
	}
	return nil
}
