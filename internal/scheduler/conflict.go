// Package scheduler detects participants who are double-booked by a newly
// confirmed activity.
package scheduler

import (
	"sort"

	"github.com/example/jio-scheduler/internal/domain"
	"github.com/example/jio-scheduler/internal/timeslot"
)

// Conflict names an existing calendar entry that overlaps a candidate entry
// of the same user.
type Conflict struct {
	UserID         string `json:"userId"`
	Date           string `json:"date"`
	WithEntryID    string `json:"withEntryId"`
	WithActivityID string `json:"withActivityId"`
	WithName       string `json:"withName"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
}

// Overlaps reports whether two entries share a date and their half-open
// [start, end) intervals intersect. Entries with unreadable times never
// overlap.
func Overlaps(a, b domain.CalendarEntry) bool {
	if a.Date != b.Date {
		return false
	}
	aStart, aEnd, ok := span(a)
	if !ok {
		return false
	}
	bStart, bEnd, ok := span(b)
	if !ok {
		return false
	}
	return aStart < bEnd && bStart < aEnd
}

// DetectConflicts returns the entries in existing that overlap candidate,
// ignoring entries of the candidate's own activity. Results are ordered by
// start time.
func DetectConflicts(existing []domain.CalendarEntry, candidate domain.CalendarEntry) []Conflict {
	var conflicts []Conflict
	for _, entry := range existing {
		if entry.ActivityID == candidate.ActivityID || entry.UserID != candidate.UserID {
			continue
		}
		if !Overlaps(entry, candidate) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			UserID:         candidate.UserID,
			Date:           candidate.Date,
			WithEntryID:    entry.ID,
			WithActivityID: entry.ActivityID,
			WithName:       entry.Name,
			StartTime:      entry.StartTime,
			EndTime:        entry.EndTime,
		})
	}
	sort.SliceStable(conflicts, func(i, j int) bool {
		return conflicts[i].StartTime < conflicts[j].StartTime
	})
	return conflicts
}

func span(e domain.CalendarEntry) (timeslot.Slot, timeslot.Slot, bool) {
	start, err := timeslot.ParseClock(e.StartTime)
	if err != nil {
		return 0, 0, false
	}
	end, err := timeslot.ParseClock(e.EndTime)
	if err != nil || end <= start {
		return 0, 0, false
	}
	return start, end, true
}
