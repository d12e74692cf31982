package application

import (
	"time"

	"github.com/example/jio-scheduler/internal/domain"
	"github.com/example/jio-scheduler/internal/scheduler"
)

// SaveProfileInput is the editable part of a user profile.
type SaveProfileInput struct {
	DisplayName string `json:"displayName"`
	Username    string `json:"username"`
	Email       string `json:"email"`
}

// CreateGroupInput describes a new group.
type CreateGroupInput struct {
	Name                  string `json:"name"`
	ReminderFrequencyDays int    `json:"reminderFrequencyDays"`
}

// SubmitAvailabilityInput replaces the caller's slots on each listed date.
type SubmitAvailabilityInput struct {
	Dates map[string][]string `json:"dates"`
}

// SlotInput addresses a single slot.
type SlotInput struct {
	Date string `json:"date"`
	Slot string `json:"slot"`
}

// RangeInput addresses an inclusive slot range.
type RangeInput struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// MyAvailability is the caller's availability grid in a group.
type MyAvailability struct {
	GroupID string              `json:"groupId"`
	Dates   map[string][]string `json:"dates"`
}

// ConfirmInput is the request to confirm a slot.
type ConfirmInput struct {
	Date      string   `json:"date"`
	Dates     []string `json:"dates"`
	Name      string   `json:"name"`
	Location  string   `json:"location"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
	ColorTag  string   `json:"colorTag"`
}

// EditActivityInput replaces the editable fields of a confirmed activity.
type EditActivityInput struct {
	Name      string   `json:"name"`
	Location  string   `json:"location"`
	Dates     []string `json:"dates"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
	ColorTag  string   `json:"colorTag"`
}

// FanoutWarning reports a participant whose calendar could not be updated.
type FanoutWarning struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

// ConfirmResult is returned by confirmation and edit operations. Warnings
// are non-fatal calendar write failures; Conflicts lists participants
// already booked at the activity's times.
type ConfirmResult struct {
	Activity  domain.ConfirmedActivity `json:"activity"`
	Group     domain.PollGroup         `json:"group"`
	Written   int                      `json:"entriesWritten"`
	Warnings  []FanoutWarning          `json:"warnings,omitempty"`
	Conflicts []scheduler.Conflict     `json:"conflicts,omitempty"`
}

// ReminderStatus summarizes a group's reminder schedule.
type ReminderStatus struct {
	GroupID               string `json:"groupId"`
	ReminderFrequencyDays int    `json:"reminderFrequencyDays"`
	LastConfirmedDate     string `json:"lastConfirmedDate,omitempty"`
	NextReminderDate      string `json:"nextReminderDate,omitempty"`
	Due                   bool   `json:"due"`
	LastNotifiedFor       string `json:"lastNotifiedFor,omitempty"`
}

// CalendarQuery narrows ListCalendar. Month is "YYYY-MM" or empty for all.
type CalendarQuery struct {
	Month string
}

func monthBounds(month string) (string, string, bool) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return "", "", false
	}
	return start.Format(domain.DateLayout), start.AddDate(0, 1, 0).Format(domain.DateLayout), true
}
