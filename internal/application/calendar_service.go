package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/example/jio-scheduler/internal/domain"
	"github.com/example/jio-scheduler/internal/logging"
	"github.com/example/jio-scheduler/internal/timeslot"
)

const calendarProductID = "-//jio-scheduler//calendar//EN"

// CalendarService exposes a user's personal calendar of confirmed activities.
type CalendarService struct {
	repo     *Repository
	identity actor
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewCalendarService constructs a calendar service. Entry dates and times
// are interpreted in location when exported.
func NewCalendarService(repo *Repository, identity IdentityProvider, location *time.Location, now func() time.Time) *CalendarService {
	return NewCalendarServiceWithLogger(repo, identity, location, now, nil)
}

// NewCalendarServiceWithLogger constructs a calendar service with a specified logger.
func NewCalendarServiceWithLogger(repo *Repository, identity IdentityProvider, location *time.Location, now func() time.Time, logger *slog.Logger) *CalendarService {
	if location == nil {
		location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &CalendarService{
		repo:     repo,
		identity: actor{identity: identity},
		location: location,
		now:      now,
		logger:   logging.OrDefault(logger),
	}
}

func (s *CalendarService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CalendarService", operation, attrs...)
}

// ListCalendar returns the caller's entries ordered by date and start time,
// optionally limited to one month.
func (s *CalendarService) ListCalendar(ctx context.Context, query CalendarQuery) ([]domain.CalendarEntry, error) {
	if s == nil {
		return nil, fmt.Errorf("CalendarService is nil")
	}
	user, err := s.identity.user(ctx)
	if err != nil {
		return nil, err
	}

	from, to := "", ""
	if query.Month != "" {
		var ok bool
		from, to, ok = monthBounds(query.Month)
		if !ok {
			return nil, newValidationError("month", "must be a YYYY-MM month")
		}
	}

	entries, err := s.repo.ListCalendar(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if from == "" {
		return entries, nil
	}
	out := make([]domain.CalendarEntry, 0, len(entries))
	for _, e := range entries {
		if e.Date >= from && e.Date < to {
			out = append(out, e)
		}
	}
	return out, nil
}

// ExportCalendar renders the caller's entries as an iCalendar document.
func (s *CalendarService) ExportCalendar(ctx context.Context, query CalendarQuery) (ics string, err error) {
	if s == nil {
		return "", fmt.Errorf("CalendarService is nil")
	}

	logger := s.loggerWith(ctx, "ExportCalendar", "month", query.Month)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to export calendar", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	entries, err := s.ListCalendar(ctx, query)
	if err != nil {
		return "", err
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(calendarProductID)
	stamp := s.now().UTC()
	for _, entry := range entries {
		start, end, ok := s.bounds(entry)
		if !ok {
			logger.WarnContext(ctx, "skipping calendar entry with unreadable times", "entry_id", entry.ID)
			continue
		}
		event := cal.AddEvent(entry.ID)
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(entry.Name)
		if entry.Location != "" {
			event.SetLocation(entry.Location)
		}
		if entry.ColorTag != "" {
			event.SetProperty(ical.ComponentProperty("COLOR"), entry.ColorTag)
		}
	}
	return cal.Serialize(), nil
}

// DeleteCalendarEntry removes one of the caller's own entries.
func (s *CalendarService) DeleteCalendarEntry(ctx context.Context, entryID string) (err error) {
	if s == nil {
		return fmt.Errorf("CalendarService is nil")
	}
	user, err := s.identity.user(ctx)
	if err != nil {
		return err
	}

	logger := s.loggerWith(ctx, "DeleteCalendarEntry", "user_id", user.ID, "entry_id", entryID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete calendar entry", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "calendar entry deleted")
	}()

	entry, err := s.repo.GetCalendarEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.UserID != user.ID {
		return ErrUnauthorized
	}
	return s.repo.DeleteCalendarEntry(ctx, entryID)
}

func (s *CalendarService) bounds(entry domain.CalendarEntry) (time.Time, time.Time, bool) {
	day, err := time.ParseInLocation(domain.DateLayout, entry.Date, s.location)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	start, err := timeslot.ParseClock(entry.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err := timeslot.ParseClock(entry.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	y, m, d := day.Date()
	at := func(minutes timeslot.Slot) time.Time {
		return time.Date(y, m, d, int(minutes)/60, int(minutes)%60, 0, 0, s.location)
	}
	return at(start), at(end), true
}
