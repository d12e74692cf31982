package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/jio-scheduler/internal/domain"
)

// Notice describes a reminder that is due.
type Notice struct {
	Group         domain.PollGroup
	LastConfirmed string
	DueDate       string
}

// Notifier delivers reminders.
type Notifier interface {
	NotifyReminder(ctx context.Context, notice Notice) error
}

// GroupLister lists every group the sweep should consider.
type GroupLister interface {
	ListAllGroups(ctx context.Context) ([]domain.PollGroup, error)
}

// StateStore remembers which due date a group was last notified for.
type StateStore interface {
	ReminderState(ctx context.Context, groupID string) (domain.ReminderState, bool, error)
	SaveReminderState(ctx context.Context, state domain.ReminderState) error
}

// SweepResult counts what a sweep did.
type SweepResult struct {
	Checked  int
	Due      int
	Notified int
	Skipped  int
	Failed   int
}

// Sweeper periodically notifies groups that are due.
type Sweeper struct {
	groups   GroupLister
	states   StateStore
	notifier Notifier
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewSweeper builds a sweeper evaluating due dates in location.
func NewSweeper(groups GroupLister, states StateStore, notifier Notifier, location *time.Location, now func() time.Time, logger *slog.Logger) *Sweeper {
	if location == nil {
		location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		groups:   groups,
		states:   states,
		notifier: notifier,
		location: location,
		now:      now,
		logger:   logger.With("component", "reminder_sweeper"),
	}
}

// Sweep notifies every due group not yet notified for its current due date.
// Notifier failures are logged and left for the next sweep.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	groups, err := s.groups.ListAllGroups(ctx)
	if err != nil {
		return result, fmt.Errorf("reminder: list groups: %w", err)
	}

	today := s.now().In(s.location)
	for _, group := range groups {
		result.Checked++
		if !DueForReminder(group, today) {
			continue
		}
		result.Due++

		next, _ := NextReminderDate(group)
		dueDate := next.Format(domain.DateLayout)
		logger := s.logger.With("group_id", group.ID, "due_date", dueDate)

		state, found, err := s.states.ReminderState(ctx, group.ID)
		if err != nil {
			result.Failed++
			logger.ErrorContext(ctx, "failed to load reminder state", "error", err)
			continue
		}
		if found && state.LastNotifiedFor == dueDate {
			result.Skipped++
			continue
		}

		last, _ := group.LastConfirmedDate()
		if err := s.notifier.NotifyReminder(ctx, Notice{Group: group, LastConfirmed: last, DueDate: dueDate}); err != nil {
			result.Failed++
			logger.WarnContext(ctx, "reminder notification failed", "error", err)
			continue
		}

		if err := s.states.SaveReminderState(ctx, domain.ReminderState{
			GroupID:         group.ID,
			LastNotifiedFor: dueDate,
			NotifiedAt:      s.now().UTC(),
		}); err != nil {
			logger.ErrorContext(ctx, "failed to save reminder state", "error", err)
		}
		result.Notified++
		logger.InfoContext(ctx, "reminder sent")
	}
	return result, nil
}

// Start schedules Sweep with a standard five-field cron spec evaluated in the
// sweeper's location. The jobs use ctx and stop when Stop is called.
func (s *Sweeper) Start(ctx context.Context, spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("reminder: sweeper already started")
	}

	c := cron.New(cron.WithLocation(s.location))
	_, err := c.AddFunc(spec, func() {
		result, err := s.Sweep(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "reminder sweep failed", "error", err)
			return
		}
		s.logger.InfoContext(ctx, "reminder sweep finished",
			"checked", result.Checked, "due", result.Due, "notified", result.Notified,
			"skipped", result.Skipped, "failed", result.Failed)
	})
	if err != nil {
		return fmt.Errorf("reminder: invalid schedule %q: %w", spec, err)
	}
	c.Start()
	s.cron = c
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// ValidateSchedule reports whether spec is a valid five-field cron expression.
func ValidateSchedule(spec string) error {
	_, err := cron.ParseStandard(spec)
	return err
}
