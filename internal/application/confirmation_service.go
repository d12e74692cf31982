package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/jio-scheduler/internal/confirmation"
	"github.com/example/jio-scheduler/internal/domain"
	"github.com/example/jio-scheduler/internal/fanout"
	"github.com/example/jio-scheduler/internal/logging"
	"github.com/example/jio-scheduler/internal/persistence"
	"github.com/example/jio-scheduler/internal/scheduler"
)

// ConfirmationService turns heat-map slots into confirmed activities and
// copies them into participants' calendars.
type ConfirmationService struct {
	repo     *Repository
	identity actor
	engine   *confirmation.Engine
	writer   *fanout.Writer
	logger   *slog.Logger
}

// NewConfirmationService constructs a confirmation service.
func NewConfirmationService(repo *Repository, identity IdentityProvider, now func() time.Time) *ConfirmationService {
	return NewConfirmationServiceWithLogger(repo, identity, now, nil)
}

// NewConfirmationServiceWithLogger constructs a confirmation service with a specified logger.
func NewConfirmationServiceWithLogger(repo *Repository, identity IdentityProvider, now func() time.Time, logger *slog.Logger) *ConfirmationService {
	logger = logging.OrDefault(logger)
	return &ConfirmationService{
		repo:     repo,
		identity: actor{identity: identity},
		engine:   confirmation.NewEngine(now),
		writer:   fanout.NewWriter(repo, logger),
		logger:   logger,
	}
}

func (s *ConfirmationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ConfirmationService", operation, attrs...)
}

// ConfirmSlot confirms a date for a group. The confirmed date is appended
// to the group, the activity is stored and every participant receives a
// calendar entry per activity date. Calendar write failures are returned as
// warnings and do not undo the confirmation.
func (s *ConfirmationService) ConfirmSlot(ctx context.Context, groupID string, input ConfirmInput) (result ConfirmResult, err error) {
	if s == nil {
		err = fmt.Errorf("ConfirmationService is nil")
		return
	}

	var participant domain.Participant
	participant, err = s.identity.participant(ctx, s.repo)
	if err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ConfirmSlot", "user_id", participant.UserID, "group_id", groupID, "date", input.Date)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to confirm slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "slot confirmed",
			"activity_id", result.Activity.ID, "entries_written", result.Written, "warnings", len(result.Warnings))
	}()

	var group domain.PollGroup
	group, err = s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return
	}
	if !group.HasParticipant(participant.UserID) {
		err = ErrUnauthorized
		return
	}

	activity, updated, err := s.engine.Confirm(group, confirmation.Request{
		Date:        input.Date,
		Dates:       input.Dates,
		Name:        input.Name,
		Location:    input.Location,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		ColorTag:    input.ColorTag,
		ConfirmedBy: participant,
	})
	if err != nil {
		return
	}

	err = s.repo.AppendConfirmation(ctx, domain.Confirmation{
		ID:          persistence.Key("confirmation", groupID, activity.ID, input.Date),
		GroupID:     groupID,
		ActivityID:  activity.ID,
		Date:        input.Date,
		ConfirmedAt: activity.ConfirmedAt,
	})
	if err != nil {
		return
	}
	if err = s.repo.PutActivity(ctx, activity); err != nil {
		return
	}

	// Re-read so confirmations appended concurrently by other members are
	// reflected; the engine's copy is the fallback.
	if latest, readErr := s.repo.GetGroup(ctx, groupID); readErr == nil {
		updated = latest
	}

	result, err = s.fanout(ctx, activity, updated)
	return
}

// EditActivity updates a confirmed activity and rewrites the participants'
// calendar entries, removing entries for dates that were dropped.
func (s *ConfirmationService) EditActivity(ctx context.Context, activityID string, input EditActivityInput) (result ConfirmResult, err error) {
	if s == nil {
		err = fmt.Errorf("ConfirmationService is nil")
		return
	}

	var participant domain.Participant
	participant, err = s.identity.participant(ctx, s.repo)
	if err != nil {
		return
	}

	logger := s.loggerWith(ctx, "EditActivity", "user_id", participant.UserID, "activity_id", activityID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to edit activity", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "activity edited", "entries_written", result.Written, "warnings", len(result.Warnings))
	}()

	var activity domain.ConfirmedActivity
	activity, err = s.repo.GetActivity(ctx, activityID)
	if err != nil {
		return
	}
	var group domain.PollGroup
	group, err = s.repo.GetGroup(ctx, activity.GroupID)
	if err != nil {
		return
	}
	if !group.HasParticipant(participant.UserID) {
		err = ErrUnauthorized
		return
	}

	activity, err = s.engine.Revise(group, activity, confirmation.Request{
		Dates:     input.Dates,
		Name:      input.Name,
		Location:  input.Location,
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		ColorTag:  input.ColorTag,
	})
	if err != nil {
		return
	}
	if err = s.repo.PutActivity(ctx, activity); err != nil {
		return
	}

	result, err = s.fanout(ctx, activity, group)
	return
}

func (s *ConfirmationService) fanout(ctx context.Context, activity domain.ConfirmedActivity, group domain.PollGroup) (ConfirmResult, error) {
	result := ConfirmResult{Activity: activity, Group: group}
	written, err := s.writer.Fanout(ctx, activity, group.Participants)
	result.Written = written.Written

	var partial *fanout.PartialFanoutError
	if errors.As(err, &partial) {
		for _, f := range partial.Failures {
			result.Warnings = append(result.Warnings, FanoutWarning{
				UserID:  f.Participant.UserID,
				Message: fmt.Sprintf("calendar for %s was not updated: %v", f.Participant.DisplayName, f.Err),
			})
		}
		result.Conflicts = s.conflicts(ctx, activity, group)
		return result, nil
	}
	if err != nil {
		return result, err
	}
	result.Conflicts = s.conflicts(ctx, activity, group)
	return result, nil
}

// conflicts lists other calendar entries each participant already has at
// the activity's times. Lookup failures are logged and skipped.
func (s *ConfirmationService) conflicts(ctx context.Context, activity domain.ConfirmedActivity, group domain.PollGroup) []scheduler.Conflict {
	var out []scheduler.Conflict
	for _, p := range group.Participants {
		existing, err := s.repo.ListCalendar(ctx, p.UserID)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to check calendar conflicts", "user_id", p.UserID, "error", err)
			continue
		}
		for _, date := range activity.Dates {
			out = append(out, scheduler.DetectConflicts(existing, fanout.Entry(activity, p.UserID, date))...)
		}
	}
	return out
}
