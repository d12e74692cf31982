// Package confirmation turns a chosen slot into a ConfirmedActivity.
package confirmation

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/jio-scheduler/internal/domain"
	"github.com/example/jio-scheduler/internal/timeslot"
)

// activityNamespace scopes the name-based activity ids.
var activityNamespace = uuid.MustParse("5f1c7b0e-3d2a-4e8f-9a61-0c4b7d2e9f13")

// Request is the input of a confirmation.
type Request struct {
	Date        string
	Dates       []string
	Name        string
	Location    string
	StartTime   string
	EndTime     string
	ColorTag    string
	ConfirmedBy domain.Participant
}

// Engine validates confirmation requests and builds activities.
type Engine struct {
	now func() time.Time
}

// NewEngine returns an engine reading the submission time from now.
func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

// Confirm validates req against group and returns the activity together with
// a copy of the group whose confirmed dates end with req.Date. The activity
// covers req.Date plus any extra req.Dates. Group is not modified.
func (e *Engine) Confirm(group domain.PollGroup, req Request) (domain.ConfirmedActivity, domain.PollGroup, error) {
	if vErr := ValidateRequest(req); vErr != nil {
		return domain.ConfirmedActivity{}, group, vErr
	}

	name := strings.TrimSpace(req.Name)
	submitted := e.now().UTC()
	// The chosen date is always one of the activity's days so the
	// confirmed date has a calendar entry behind it.
	dates := append([]string{req.Date}, req.Dates...)

	activity := domain.ConfirmedActivity{
		ID:          ActivityID(name, submitted),
		GroupID:     group.ID,
		Name:        name,
		Title:       Title(group.Name, name),
		Location:    strings.TrimSpace(req.Location),
		Dates:       uniqueSorted(dates),
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		ColorTag:    colorOrDefault(req.ColorTag),
		ConfirmedBy: req.ConfirmedBy,
		ConfirmedAt: submitted,
	}

	updated := group
	updated.ConfirmedDates = append(append([]string(nil), group.ConfirmedDates...), req.Date)
	return activity, updated, nil
}

// Revise applies the editable fields of req to an existing activity. The
// id, confirmer and confirmation time are kept; an empty req.Dates keeps
// the current dates. req.Date is ignored.
func (e *Engine) Revise(group domain.PollGroup, activity domain.ConfirmedActivity, req Request) (domain.ConfirmedActivity, error) {
	if vErr := ValidateTimes(req.Name, req.StartTime, req.EndTime); vErr != nil {
		return activity, vErr
	}
	dates := req.Dates
	if len(dates) == 0 {
		dates = activity.Dates
	}
	for _, d := range dates {
		if !domain.IsDate(d) {
			return activity, domain.NewValidationError("dates", "must contain only YYYY-MM-DD dates")
		}
	}

	name := strings.TrimSpace(req.Name)
	revised := activity
	revised.Name = name
	revised.Title = Title(group.Name, name)
	revised.Location = strings.TrimSpace(req.Location)
	revised.Dates = uniqueSorted(dates)
	revised.StartTime = req.StartTime
	revised.EndTime = req.EndTime
	revised.ColorTag = colorOrDefault(req.ColorTag)
	return revised, nil
}

// ValidateRequest applies the confirmation rules in order and reports only
// the first failure: name, time format, equal times, end before start,
// then dates.
func ValidateRequest(req Request) *domain.ValidationError {
	if vErr := ValidateTimes(req.Name, req.StartTime, req.EndTime); vErr != nil {
		return vErr
	}
	if !domain.IsDate(req.Date) {
		return domain.NewValidationError("date", "must be a YYYY-MM-DD date")
	}
	for _, d := range req.Dates {
		if !domain.IsDate(d) {
			return domain.NewValidationError("dates", "must contain only YYYY-MM-DD dates")
		}
	}
	return nil
}

// ValidateTimes checks the name and the time window of an activity.
func ValidateTimes(name, startTime, endTime string) *domain.ValidationError {
	if strings.TrimSpace(name) == "" {
		return domain.NewValidationError("name", "name cannot be empty")
	}
	start, err := timeslot.ParseClock(startTime)
	if err != nil {
		return domain.NewValidationError("startTime", "must be a HH:MM time")
	}
	end, err := timeslot.ParseClock(endTime)
	if err != nil {
		return domain.NewValidationError("endTime", "must be a HH:MM time")
	}
	if start == end {
		return domain.NewValidationError("endTime", "start and end time cannot be the same")
	}
	if end < start {
		return domain.NewValidationError("endTime", "end time cannot be before start time")
	}
	return nil
}

// ActivityID derives the activity id from its name and submission time.
func ActivityID(name string, submitted time.Time) string {
	return uuid.NewSHA1(activityNamespace, []byte(name+"|"+submitted.UTC().Format(time.RFC3339Nano))).String()
}

// Title is the display name shown in calendars, e.g. "Dinner Club's Hotpot".
func Title(groupName, activityName string) string {
	if strings.TrimSpace(groupName) == "" {
		return activityName
	}
	return groupName + "'s " + activityName
}

func colorOrDefault(color string) string {
	if strings.TrimSpace(color) == "" {
		return domain.DefaultColorTag
	}
	return color
}

func uniqueSorted(dates []string) []string {
	seen := make(map[string]struct{}, len(dates))
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
