// Package timeslot models the half-hour availability grid: the 33 slots
// from 07:00 to 23:30 on each calendar date, with toggle and inclusive
// range-add operations.
package timeslot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Slot is a time of day expressed in minutes since midnight.
type Slot int

const (
	// Step is the slot granularity in minutes.
	Step = 30
	// First is the earliest slot of the grid, 07:00.
	First Slot = 7 * 60
	// Last is the latest slot of the grid, 23:30.
	Last Slot = 23*60 + 30
	// Count is the number of slots in a day.
	Count = int(Last-First)/Step + 1
)

var (
	// ErrInvalidClock is returned for strings that are not a valid "HH:MM" time.
	ErrInvalidClock = errors.New("timeslot: invalid time")
	// ErrOutsideGrid is returned by ParseSlot for times outside 07:00..23:30
	// or not on a 30 minute boundary.
	ErrOutsideGrid = errors.New("timeslot: time is not a grid slot")
)

// ParseClock parses any "HH:MM" time of day between 00:00 and 23:59.
func ParseClock(label string) (Slot, error) {
	hh, mm, ok := strings.Cut(label, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, label)
	}
	hours, err := strconv.Atoi(hh)
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, label)
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, label)
	}
	return Slot(hours*60 + minutes), nil
}

// ParseSlot parses a label and requires it to be one of the grid slots.
func ParseSlot(label string) (Slot, error) {
	slot, err := ParseClock(label)
	if err != nil {
		return 0, err
	}
	if !slot.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrOutsideGrid, label)
	}
	return slot, nil
}

// Valid reports whether s lies on the grid.
func (s Slot) Valid() bool {
	return s >= First && s <= Last && s.Aligned()
}

// Aligned reports whether s falls on a 30 minute boundary.
func (s Slot) Aligned() bool {
	return int(s)%Step == 0
}

// String renders the slot as "HH:MM".
func (s Slot) String() string {
	return fmt.Sprintf("%02d:%02d", int(s)/60, int(s)%60)
}

// All returns the 33 grid slots in ascending order.
func All() []Slot {
	slots := make([]Slot, 0, Count)
	for s := First; s <= Last; s += Step {
		slots = append(slots, s)
	}
	return slots
}
