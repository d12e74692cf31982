package application

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/example/jio-scheduler/internal/confirmation"
	"github.com/example/jio-scheduler/internal/domain"
	"github.com/example/jio-scheduler/internal/fanout"
)

type failingEntries struct {
	*Repository
	failFor string
}

func (f failingEntries) PutCalendarEntry(ctx context.Context, entry domain.CalendarEntry) error {
	if entry.UserID == f.failFor {
		return errors.New("calendar unavailable")
	}
	return f.Repository.PutCalendarEntry(ctx, entry)
}

func TestConfirmationServiceConfirmSlot(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "Dinner Club", User{ID: "bob", DisplayName: "Bob"})

	if _, err := env.confirmations.ConfirmSlot(asUser("carl", "Carl"), group.ID, ConfirmInput{
		Date: "2024-05-03", Name: "Hotpot", StartTime: "19:00", EndTime: "21:00",
	}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	result, err := env.confirmations.ConfirmSlot(asUser("bob", "Bob"), group.ID, ConfirmInput{
		Date:      "2024-05-03",
		Dates:     []string{"2024-05-03", "2024-05-04"},
		Name:      "Hotpot",
		Location:  "Chinatown",
		StartTime: "19:00",
		EndTime:   "21:00",
	})
	if err != nil {
		t.Fatalf("ConfirmSlot returned error: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %+v", result.Warnings)
	}
	if result.Written != 4 {
		t.Fatalf("expected 2 participants x 2 dates written, got %d", result.Written)
	}
	if result.Activity.Title != "Dinner Club's Hotpot" || result.Activity.ConfirmedBy.UserID != "bob" {
		t.Fatalf("unexpected activity %+v", result.Activity)
	}
	if !reflect.DeepEqual(result.Group.ConfirmedDates, []string{"2024-05-03"}) {
		t.Fatalf("expected confirmed date appended, got %v", result.Group.ConfirmedDates)
	}

	for _, user := range []string{"ann", "bob"} {
		entries, err := env.repo.ListCalendar(context.Background(), user)
		if err != nil {
			t.Fatalf("ListCalendar returned error: %v", err)
		}
		if len(entries) != 2 || entries[0].Date != "2024-05-03" || entries[1].Date != "2024-05-04" {
			t.Fatalf("unexpected entries for %s: %+v", user, entries)
		}
		if entries[0].ID != fanout.EntryID(result.Activity.ID, user, "2024-05-03") {
			t.Fatalf("unexpected entry id %q", entries[0].ID)
		}
	}

	stored, err := env.repo.GetActivity(context.Background(), result.Activity.ID)
	if err != nil {
		t.Fatalf("GetActivity returned error: %v", err)
	}
	if stored.Location != "Chinatown" {
		t.Fatalf("unexpected stored activity %+v", stored)
	}
}

func TestConfirmationServiceConfirmAppendsInOrder(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "Dinner Club")
	ctx := asUser("ann", "Ann")

	for _, date := range []string{"2024-05-10", "2024-05-03"} {
		if _, err := env.confirmations.ConfirmSlot(ctx, group.ID, ConfirmInput{
			Date: date, Name: "Hotpot", StartTime: "19:00", EndTime: "21:00",
		}); err != nil {
			t.Fatalf("ConfirmSlot(%s) returned error: %v", date, err)
		}
		env.clock.Advance(1)
	}

	got, err := env.repo.GetGroup(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("GetGroup returned error: %v", err)
	}
	if !reflect.DeepEqual(got.ConfirmedDates, []string{"2024-05-10", "2024-05-03"}) {
		t.Fatalf("expected confirmation order kept, got %v", got.ConfirmedDates)
	}
	if last, _ := got.LastConfirmedDate(); last != "2024-05-03" {
		t.Fatalf("expected last appended date, got %q", last)
	}
}

func TestConfirmationServiceValidation(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "Dinner Club")

	tests := []struct {
		name    string
		input   ConfirmInput
		field   string
		message string
	}{
		{
			name:    "empty name wins over times",
			input:   ConfirmInput{Date: "2024-05-03", Name: " ", StartTime: "19:00", EndTime: "19:00"},
			field:   "name",
			message: "name cannot be empty",
		},
		{
			name:    "equal times",
			input:   ConfirmInput{Date: "2024-05-03", Name: "Hotpot", StartTime: "19:00", EndTime: "19:00"},
			field:   "endTime",
			message: "start and end time cannot be the same",
		},
		{
			name:    "end before start",
			input:   ConfirmInput{Date: "2024-05-03", Name: "Hotpot", StartTime: "20:00", EndTime: "19:00"},
			field:   "endTime",
			message: "end time cannot be before start time",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.confirmations.ConfirmSlot(asUser("ann", "Ann"), group.ID, tt.input)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if vErr.FieldErrors[tt.field] != tt.message || len(vErr.FieldErrors) != 1 {
				t.Fatalf("expected only %s=%q, got %v", tt.field, tt.message, vErr.FieldErrors)
			}
		})
	}

	got, err := env.repo.GetGroup(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("GetGroup returned error: %v", err)
	}
	if len(got.ConfirmedDates) != 0 {
		t.Fatalf("expected nothing confirmed, got %v", got.ConfirmedDates)
	}
}

func TestConfirmationServicePartialFanout(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "Dinner Club", User{ID: "bob", DisplayName: "Bob"}, User{ID: "cat", DisplayName: "Cat"})
	env.confirmations.writer = fanout.NewWriter(failingEntries{Repository: env.repo, failFor: "bob"}, discardLogger)

	result, err := env.confirmations.ConfirmSlot(asUser("ann", "Ann"), group.ID, ConfirmInput{
		Date: "2024-05-03", Name: "Hotpot", StartTime: "19:00", EndTime: "21:00",
	})
	if err != nil {
		t.Fatalf("expected partial failure to be reported as warnings, got %v", err)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].UserID != "bob" {
		t.Fatalf("expected a single warning for bob, got %+v", result.Warnings)
	}
	if result.Written != 2 {
		t.Fatalf("expected the other two participants written, got %d", result.Written)
	}

	for user, want := range map[string]int{"ann": 1, "bob": 0, "cat": 1} {
		entries, err := env.repo.ListCalendar(context.Background(), user)
		if err != nil {
			t.Fatalf("ListCalendar returned error: %v", err)
		}
		if len(entries) != want {
			t.Fatalf("expected %d entries for %s, got %d", want, user, len(entries))
		}
	}

	got, err := env.repo.GetGroup(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("GetGroup returned error: %v", err)
	}
	if len(got.ConfirmedDates) != 1 {
		t.Fatalf("expected confirmation to stand, got %v", got.ConfirmedDates)
	}
}

func TestConfirmationServiceEditActivity(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "Dinner Club", User{ID: "bob", DisplayName: "Bob"})

	confirmed, err := env.confirmations.ConfirmSlot(asUser("ann", "Ann"), group.ID, ConfirmInput{
		Date: "2024-05-03", Dates: []string{"2024-05-03", "2024-05-04"}, Name: "Hotpot", StartTime: "19:00", EndTime: "21:00",
	})
	if err != nil {
		t.Fatalf("ConfirmSlot returned error: %v", err)
	}

	if _, err := env.confirmations.EditActivity(asUser("carl", "Carl"), confirmed.Activity.ID, EditActivityInput{
		Name: "Steamboat", StartTime: "18:00", EndTime: "20:00",
	}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := env.confirmations.EditActivity(asUser("ann", "Ann"), "missing", EditActivityInput{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	edited, err := env.confirmations.EditActivity(asUser("bob", "Bob"), confirmed.Activity.ID, EditActivityInput{
		Name:      "Steamboat",
		Dates:     []string{"2024-05-04", "2024-05-05"},
		StartTime: "18:00",
		EndTime:   "20:00",
		ColorTag:  "teal",
	})
	if err != nil {
		t.Fatalf("EditActivity returned error: %v", err)
	}
	if edited.Activity.ID != confirmed.Activity.ID || edited.Activity.Title != confirmation.Title("Dinner Club", "Steamboat") {
		t.Fatalf("unexpected edited activity %+v", edited.Activity)
	}

	entries, err := env.repo.ListCalendar(context.Background(), "ann")
	if err != nil {
		t.Fatalf("ListCalendar returned error: %v", err)
	}
	var dates []string
	for _, e := range entries {
		dates = append(dates, e.Date)
		if e.StartTime != "18:00" || e.ColorTag != "teal" {
			t.Fatalf("expected entry to carry the edit, got %+v", e)
		}
	}
	if !reflect.DeepEqual(dates, []string{"2024-05-04", "2024-05-05"}) {
		t.Fatalf("expected dropped date pruned, got %v", dates)
	}

	_, err = env.confirmations.EditActivity(asUser("ann", "Ann"), confirmed.Activity.ID, EditActivityInput{
		Name: "Steamboat", StartTime: "21:00", EndTime: "20:00",
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConfirmationServiceReportsConflicts(t *testing.T) {
	env := newTestEnv(t)
	dinner := env.seedGroup(t, "Dinner Club", User{ID: "bob", DisplayName: "Bob"})
	karaoke := env.seedGroup(t, "Karaoke")

	first, err := env.confirmations.ConfirmSlot(asUser("ann", "Ann"), karaoke.ID, ConfirmInput{
		Date: "2024-05-03", Name: "Singing", StartTime: "20:00", EndTime: "23:00",
	})
	if err != nil {
		t.Fatalf("ConfirmSlot returned error: %v", err)
	}
	if len(first.Conflicts) != 0 {
		t.Fatalf("expected no conflicts on an empty calendar, got %+v", first.Conflicts)
	}
	env.clock.Advance(1)

	result, err := env.confirmations.ConfirmSlot(asUser("bob", "Bob"), dinner.ID, ConfirmInput{
		Date: "2024-05-03", Name: "Hotpot", StartTime: "19:00", EndTime: "21:00",
	})
	if err != nil {
		t.Fatalf("ConfirmSlot returned error: %v", err)
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("expected one conflict for ann, got %+v", result.Conflicts)
	}
	c := result.Conflicts[0]
	if c.UserID != "ann" || c.WithActivityID != first.Activity.ID || c.Date != "2024-05-03" {
		t.Fatalf("unexpected conflict %+v", c)
	}
}
