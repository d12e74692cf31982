// Package reminder decides when a group is due for a "time to meet again"
// nudge and runs the periodic sweep that sends it.
package reminder

import (
	"time"

	"github.com/teambition/rrule-go"

	"github.com/example/jio-scheduler/internal/domain"
)

// FrequencyPresets are the reminder intervals offered to users, in days.
var FrequencyPresets = []int{7, 14, 30, 60, 90, 180, 365}

// NextReminderDate returns the last confirmed date plus the group's
// frequency. It reports false when the group has no frequency or no
// confirmed date.
func NextReminderDate(group domain.PollGroup) (time.Time, bool) {
	if group.ReminderFrequencyDays <= 0 {
		return time.Time{}, false
	}
	last, ok := group.LastConfirmedDate()
	if !ok {
		return time.Time{}, false
	}
	start, err := time.Parse(domain.DateLayout, last)
	if err != nil {
		return time.Time{}, false
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:     rrule.DAILY,
		Interval: group.ReminderFrequencyDays,
		Count:    2,
		Dtstart:  start,
	})
	if err != nil {
		return time.Time{}, false
	}
	occurrences := rule.All()
	if len(occurrences) < 2 {
		return time.Time{}, false
	}
	return occurrences[1], true
}

// DueForReminder reports whether today's calendar date, taken in today's
// location, is on or after the next reminder date.
func DueForReminder(group domain.PollGroup, today time.Time) bool {
	next, ok := NextReminderDate(group)
	if !ok {
		return false
	}
	return !civilDate(today).Before(next)
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
