// Package fanout copies a confirmed activity into each participant's
// personal calendar.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/jio-scheduler/internal/domain"
	"github.com/example/jio-scheduler/internal/persistence"
)

// EntryStore persists calendar entries.
type EntryStore interface {
	PutCalendarEntry(ctx context.Context, entry domain.CalendarEntry) error
	ListActivityEntries(ctx context.Context, userID, activityID string) ([]domain.CalendarEntry, error)
	DeleteCalendarEntry(ctx context.Context, id string) error
}

// ParticipantFailure is the error of one participant's unit of work.
type ParticipantFailure struct {
	Participant domain.Participant
	Err         error
}

// PartialFanoutError lists participants whose calendars were not fully
// updated. Writes for the other participants remain in place.
type PartialFanoutError struct {
	ActivityID string
	Failures   []ParticipantFailure
}

func (e *PartialFanoutError) Error() string {
	ids := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = f.Participant.UserID
	}
	return fmt.Sprintf("fanout: activity %s failed for %d participant(s): %s", e.ActivityID, len(e.Failures), strings.Join(ids, ", "))
}

func (e *PartialFanoutError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Result summarizes a fan-out run.
type Result struct {
	Participants int
	Written      int
	Pruned       int
}

// EntryID is the deterministic id of a participant's entry for one date.
func EntryID(activityID, userID, date string) string {
	return persistence.Key("calendar", activityID, userID, date)
}

// Entry builds the calendar entry of activity for userID on date.
func Entry(activity domain.ConfirmedActivity, userID, date string) domain.CalendarEntry {
	name := activity.Title
	if name == "" {
		name = activity.Name
	}
	return domain.CalendarEntry{
		ID:         EntryID(activity.ID, userID, date),
		UserID:     userID,
		ActivityID: activity.ID,
		GroupID:    activity.GroupID,
		Date:       date,
		Name:       name,
		Location:   activity.Location,
		StartTime:  activity.StartTime,
		EndTime:    activity.EndTime,
		ColorTag:   activity.ColorTag,
	}
}

// Writer performs fan-out against an EntryStore.
type Writer struct {
	entries EntryStore
	logger  *slog.Logger
}

// NewWriter returns a Writer using entries for storage.
func NewWriter(entries EntryStore, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{entries: entries, logger: logger.With("component", "fanout")}
}

// Fanout upserts one entry per (participant, date) and removes entries of
// the same activity on dates the activity no longer covers. Every
// participant is processed even if an earlier one fails; failures are
// returned as a *PartialFanoutError.
func (w *Writer) Fanout(ctx context.Context, activity domain.ConfirmedActivity, participants []domain.Participant) (Result, error) {
	result := Result{}
	var failures []ParticipantFailure
	seen := make(map[string]struct{}, len(participants))

	for _, p := range participants {
		if _, dup := seen[p.UserID]; dup {
			continue
		}
		seen[p.UserID] = struct{}{}
		result.Participants++

		written, pruned, err := w.fanoutOne(ctx, activity, p.UserID)
		result.Written += written
		result.Pruned += pruned
		if err != nil {
			w.logger.WarnContext(ctx, "calendar fanout failed for participant",
				"activity_id", activity.ID, "user_id", p.UserID, "error", err)
			failures = append(failures, ParticipantFailure{Participant: p, Err: err})
		}
	}

	if len(failures) > 0 {
		return result, &PartialFanoutError{ActivityID: activity.ID, Failures: failures}
	}
	return result, nil
}

func (w *Writer) fanoutOne(ctx context.Context, activity domain.ConfirmedActivity, userID string) (written, pruned int, err error) {
	var errs []error
	keep := make(map[string]struct{}, len(activity.Dates))
	for _, date := range activity.Dates {
		keep[date] = struct{}{}
		if err := w.entries.PutCalendarEntry(ctx, Entry(activity, userID, date)); err != nil {
			errs = append(errs, fmt.Errorf("date %s: %w", date, err))
			continue
		}
		written++
	}

	existing, err := w.entries.ListActivityEntries(ctx, userID, activity.ID)
	if err != nil {
		errs = append(errs, fmt.Errorf("list entries: %w", err))
		return written, pruned, errors.Join(errs...)
	}
	for _, entry := range existing {
		if _, ok := keep[entry.Date]; ok {
			continue
		}
		if err := w.entries.DeleteCalendarEntry(ctx, entry.ID); err != nil && !errors.Is(err, persistence.ErrNotFound) {
			errs = append(errs, fmt.Errorf("prune %s: %w", entry.Date, err))
			continue
		}
		pruned++
	}
	return written, pruned, errors.Join(errs...)
}
