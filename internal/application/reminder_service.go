package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/jio-scheduler/internal/domain"
	"github.com/example/jio-scheduler/internal/logging"
	"github.com/example/jio-scheduler/internal/reminder"
)

// ReminderService reports when a group will next be reminded to meet.
type ReminderService struct {
	repo     *Repository
	identity actor
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewReminderService constructs a reminder service evaluating due dates in location.
func NewReminderService(repo *Repository, identity IdentityProvider, location *time.Location, now func() time.Time) *ReminderService {
	return NewReminderServiceWithLogger(repo, identity, location, now, nil)
}

// NewReminderServiceWithLogger constructs a reminder service with a specified logger.
func NewReminderServiceWithLogger(repo *Repository, identity IdentityProvider, location *time.Location, now func() time.Time, logger *slog.Logger) *ReminderService {
	if location == nil {
		location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &ReminderService{
		repo:     repo,
		identity: actor{identity: identity},
		location: location,
		now:      now,
		logger:   logging.OrDefault(logger),
	}
}

func (s *ReminderService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReminderService", operation, attrs...)
}

// ReminderStatus returns the reminder schedule of a group.
func (s *ReminderService) ReminderStatus(ctx context.Context, groupID string) (status ReminderStatus, err error) {
	if s == nil {
		err = fmt.Errorf("ReminderService is nil")
		return
	}

	var user User
	user, err = s.identity.user(ctx)
	if err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ReminderStatus", "user_id", user.ID, "group_id", groupID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to load reminder status", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "reminder status loaded", "due", status.Due, "next_reminder_date", status.NextReminderDate)
	}()

	var group domain.PollGroup
	group, err = s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return
	}

	status = ReminderStatus{GroupID: group.ID, ReminderFrequencyDays: group.ReminderFrequencyDays}
	if last, ok := group.LastConfirmedDate(); ok {
		status.LastConfirmedDate = last
	}
	if next, ok := reminder.NextReminderDate(group); ok {
		status.NextReminderDate = next.Format(domain.DateLayout)
	}
	status.Due = reminder.DueForReminder(group, s.now().In(s.location))

	state, found, stateErr := s.repo.ReminderState(ctx, groupID)
	if stateErr != nil {
		err = stateErr
		status = ReminderStatus{}
		return
	}
	if found {
		status.LastNotifiedFor = state.LastNotifiedFor
	}
	return
}
