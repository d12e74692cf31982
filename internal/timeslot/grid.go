package timeslot

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidRange is matched by every *InvalidRangeError.
var ErrInvalidRange = errors.New("timeslot: invalid range")

// RangeReason names the first rule a bulk range violated.
type RangeReason string

const (
	ReasonEqual      RangeReason = "start and end are equal"
	ReasonReversed   RangeReason = "start is after end"
	ReasonOutOfRange RangeReason = "outside 07:00 to 23:30"
	ReasonMisaligned RangeReason = "not on a 30 minute boundary"
)

// InvalidRangeError reports why BulkAdd rejected a range.
type InvalidRangeError struct {
	Start  Slot
	End    Slot
	Reason RangeReason
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("timeslot: invalid range %s-%s: %s", e.Start, e.End, e.Reason)
}

func (e *InvalidRangeError) Is(target error) bool {
	return target == ErrInvalidRange
}

// Grid maps an ISO date to the set of selected slots. Operations return a
// new grid and never modify the receiver. A date may map to an empty set,
// which records that the user cleared that day.
type Grid map[string]map[Slot]struct{}

// NewGrid returns an empty grid.
func NewGrid() Grid {
	return Grid{}
}

// WithDate returns a copy of g whose entry for date is exactly slots.
func (g Grid) WithDate(date string, slots []Slot) Grid {
	next := g.clone()
	set := make(map[Slot]struct{}, len(slots))
	for _, s := range slots {
		set[s] = struct{}{}
	}
	next[date] = set
	return next
}

// Toggle flips membership of slot on date.
func (g Grid) Toggle(date string, slot Slot) Grid {
	next := g.clone()
	set := next.ensure(date)
	if _, ok := set[slot]; ok {
		delete(set, slot)
	} else {
		set[slot] = struct{}{}
	}
	return next
}

// BulkAdd adds every slot from start to end inclusive on date. Rules are
// checked in order and the first violation wins: start equal to end, start
// after end, either bound outside the grid, either bound misaligned.
func (g Grid) BulkAdd(date string, start, end Slot) (Grid, error) {
	if err := checkRange(start, end); err != nil {
		return g, err
	}
	next := g.clone()
	set := next.ensure(date)
	for s := start; s <= end; s += Step {
		set[s] = struct{}{}
	}
	return next, nil
}

// RangeLen returns how many slots BulkAdd would cover for a valid range.
func RangeLen(start, end Slot) int {
	if end < start {
		return 0
	}
	return int(end-start)/Step + 1
}

func checkRange(start, end Slot) error {
	var reason RangeReason
	switch {
	case start == end:
		reason = ReasonEqual
	case start > end:
		reason = ReasonReversed
	case start < First || end > Last:
		reason = ReasonOutOfRange
	case !start.Aligned() || !end.Aligned():
		reason = ReasonMisaligned
	default:
		return nil
	}
	return &InvalidRangeError{Start: start, End: end, Reason: reason}
}

// Has reports whether slot is selected on date.
func (g Grid) Has(date string, slot Slot) bool {
	_, ok := g[date][slot]
	return ok
}

// Slots returns the selected slots on date in ascending order.
func (g Grid) Slots(date string) []Slot {
	set := g[date]
	slots := make([]Slot, 0, len(set))
	for s := range set {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return slots
}

// Labels returns the selected slots on date as "HH:MM" strings.
func (g Grid) Labels(date string) []string {
	slots := g.Slots(date)
	labels := make([]string, len(slots))
	for i, s := range slots {
		labels[i] = s.String()
	}
	return labels
}

// Dates returns every date present in the grid in ascending order.
func (g Grid) Dates() []string {
	dates := make([]string, 0, len(g))
	for d := range g {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

func (g Grid) ensure(date string) map[Slot]struct{} {
	set, ok := g[date]
	if !ok {
		set = make(map[Slot]struct{})
		g[date] = set
	}
	return set
}

func (g Grid) clone() Grid {
	next := make(Grid, len(g))
	for date, set := range g {
		copied := make(map[Slot]struct{}, len(set))
		for s := range set {
			copied[s] = struct{}{}
		}
		next[date] = copied
	}
	return next
}
