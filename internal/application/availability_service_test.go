package application

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/example/jio-scheduler/internal/heatmap"
	"github.com/example/jio-scheduler/internal/timeslot"
)

func TestAvailabilityServiceSubmit(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "Dinner Club", User{ID: "bob", DisplayName: "Bob"})

	if _, err := env.availability.SubmitAvailability(asUser("carl", "Carl"), group.ID, SubmitAvailabilityInput{}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-member, got %v", err)
	}

	_, err := env.availability.SubmitAvailability(asUser("bob", "Bob"), group.ID, SubmitAvailabilityInput{
		Dates: map[string][]string{"2024-05-03": {"19:00", "06:30", "19:15"}, "03/05/2024": {"19:00"}},
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"dates.2024-05-03[1]", "dates.2024-05-03[2]", "dates.03/05/2024"} {
		if vErr.FieldErrors[field] == "" {
			t.Fatalf("expected error on %s, got %v", field, vErr.FieldErrors)
		}
	}

	mine, err := env.availability.SubmitAvailability(asUser("bob", "Bob"), group.ID, SubmitAvailabilityInput{
		Dates: map[string][]string{"2024-05-03": {"20:00", "19:00", "19:00"}, "2024-05-04": {"07:00"}},
	})
	if err != nil {
		t.Fatalf("SubmitAvailability returned error: %v", err)
	}
	want := map[string][]string{"2024-05-03": {"19:00", "20:00"}, "2024-05-04": {"07:00"}}
	if !reflect.DeepEqual(mine.Dates, want) {
		t.Fatalf("expected %v, got %v", want, mine.Dates)
	}

	// Resubmitting a date overwrites it and leaves other dates alone.
	mine, err = env.availability.SubmitAvailability(asUser("bob", "Bob"), group.ID, SubmitAvailabilityInput{
		Dates: map[string][]string{"2024-05-03": {}},
	})
	if err != nil {
		t.Fatalf("SubmitAvailability returned error: %v", err)
	}
	want = map[string][]string{"2024-05-03": {}, "2024-05-04": {"07:00"}}
	if !reflect.DeepEqual(mine.Dates, want) {
		t.Fatalf("expected %v, got %v", want, mine.Dates)
	}

	records, err := env.repo.ListUserAvailability(asUser("bob", "Bob"), group.ID, "bob")
	if err != nil {
		t.Fatalf("ListUserAvailability returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected one record per date, got %d", len(records))
	}
}

func TestAvailabilityServiceToggleSlot(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "Dinner Club")
	ctx := asUser("ann", "Ann")

	mine, err := env.availability.ToggleSlot(ctx, group.ID, SlotInput{Date: "2024-05-03", Slot: "23:30"})
	if err != nil {
		t.Fatalf("ToggleSlot returned error: %v", err)
	}
	if !reflect.DeepEqual(mine.Dates["2024-05-03"], []string{"23:30"}) {
		t.Fatalf("expected slot selected, got %v", mine.Dates)
	}

	mine, err = env.availability.ToggleSlot(ctx, group.ID, SlotInput{Date: "2024-05-03", Slot: "23:30"})
	if err != nil {
		t.Fatalf("ToggleSlot returned error: %v", err)
	}
	if len(mine.Dates["2024-05-03"]) != 0 {
		t.Fatalf("expected slot deselected, got %v", mine.Dates)
	}

	_, err = env.availability.ToggleSlot(ctx, group.ID, SlotInput{Date: "2024-05-03", Slot: "24:00"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.FieldErrors["slot"] == "" {
		t.Fatalf("expected slot validation error, got %v", err)
	}
}

func TestAvailabilityServiceAddSlotRange(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "Dinner Club")
	ctx := asUser("ann", "Ann")

	tests := []struct {
		name   string
		start  string
		end    string
		reason timeslot.RangeReason
	}{
		{name: "equal", start: "09:00", end: "09:00", reason: timeslot.ReasonEqual},
		{name: "reversed", start: "10:00", end: "09:00", reason: timeslot.ReasonReversed},
		{name: "before grid", start: "06:00", end: "09:00", reason: timeslot.ReasonOutOfRange},
		{name: "misaligned", start: "09:15", end: "10:00", reason: timeslot.ReasonMisaligned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.availability.AddSlotRange(ctx, group.ID, RangeInput{Date: "2024-05-03", Start: tt.start, End: tt.end})
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if vErr.FieldErrors["range"] != string(tt.reason) {
				t.Fatalf("expected reason %q, got %v", tt.reason, vErr.FieldErrors)
			}
		})
	}

	if _, err := env.availability.ToggleSlot(ctx, group.ID, SlotInput{Date: "2024-05-03", Slot: "07:00"}); err != nil {
		t.Fatalf("ToggleSlot returned error: %v", err)
	}
	mine, err := env.availability.AddSlotRange(ctx, group.ID, RangeInput{Date: "2024-05-03", Start: "09:00", End: "10:30"})
	if err != nil {
		t.Fatalf("AddSlotRange returned error: %v", err)
	}
	want := []string{"07:00", "09:00", "09:30", "10:00", "10:30"}
	if !reflect.DeepEqual(mine.Dates["2024-05-03"], want) {
		t.Fatalf("expected %v, got %v", want, mine.Dates["2024-05-03"])
	}
}

func TestAvailabilityServiceHeatMap(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "Dinner Club", User{ID: "bob", DisplayName: "Bob"}, User{ID: "cat", DisplayName: "Cat"})

	submit := func(user, name string, dates map[string][]string) {
		t.Helper()
		if _, err := env.availability.SubmitAvailability(asUser(user, name), group.ID, SubmitAvailabilityInput{Dates: dates}); err != nil {
			t.Fatalf("SubmitAvailability(%s) returned error: %v", user, err)
		}
	}
	submit("ann", "Ann", map[string][]string{"2024-05-03": {"19:00", "19:30"}})
	submit("bob", "Bob", map[string][]string{"2024-05-03": {"19:00"}})

	view, err := env.availability.HeatMap(asUser("dan", "Dan"), group.ID, time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("HeatMap returned error: %v", err)
	}
	if view.Dates[0] != "2024-04-29" || view.Dates[4] != "2024-05-03" {
		t.Fatalf("expected week starting Monday 2024-04-29, got %v", view.Dates)
	}
	if view.TotalParticipants != 3 || len(view.Rows) != timeslot.Count {
		t.Fatalf("unexpected view shape: total=%d rows=%d", view.TotalParticipants, len(view.Rows))
	}

	var seven, sevenThirty heatmap.Cell
	for _, row := range view.Rows {
		switch row.Slot {
		case "19:00":
			seven = row.Cells[4]
		case "19:30":
			sevenThirty = row.Cells[4]
		}
	}
	if seven.Count() != 2 || seven.Intensity != 170 {
		t.Fatalf("expected 2 of 3 at 19:00 (intensity 170), got %d/%d", seven.Count(), seven.Intensity)
	}
	if sevenThirty.Count() != 1 || sevenThirty.Intensity != 85 {
		t.Fatalf("expected 1 of 3 at 19:30 (intensity 85), got %d/%d", sevenThirty.Count(), sevenThirty.Intensity)
	}
}

func TestAvailabilityServiceWatchHeatMap(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "Dinner Club", User{ID: "bob", DisplayName: "Bob"})

	updates := make(chan heatmap.HeatMap, 16)
	unsubscribe, err := env.availability.WatchHeatMap(asUser("ann", "Ann"), group.ID, func(h heatmap.HeatMap) {
		updates <- h
	})
	if err != nil {
		t.Fatalf("WatchHeatMap returned error: %v", err)
	}
	defer unsubscribe()

	first := waitForHeatMap(t, updates, func(h heatmap.HeatMap) bool { return true })
	if first.Total() != 2 || len(first.Cells()) != 0 {
		t.Fatalf("expected empty initial map for 2 participants, got total=%d cells=%d", first.Total(), len(first.Cells()))
	}

	slot, _ := timeslot.ParseSlot("19:00")
	for _, u := range []User{{ID: "ann", DisplayName: "Ann"}, {ID: "bob", DisplayName: "Bob"}} {
		if _, err := env.availability.ToggleSlot(asUser(u.ID, u.DisplayName), group.ID, SlotInput{Date: "2024-05-03", Slot: "19:00"}); err != nil {
			t.Fatalf("ToggleSlot(%s) returned error: %v", u.ID, err)
		}
	}
	waitForHeatMap(t, updates, func(h heatmap.HeatMap) bool {
		return h.Cell("2024-05-03", slot).Intensity == heatmap.MaxIntensity
	})

	// A join alone re-sends the map with the new participant total.
	if _, err := env.groups.JoinGroup(asUser("cat", "Cat"), group.ID); err != nil {
		t.Fatalf("JoinGroup returned error: %v", err)
	}
	joined := waitForHeatMap(t, updates, func(h heatmap.HeatMap) bool { return h.Total() == 3 })
	if cell := joined.Cell("2024-05-03", slot); cell.Count() != 2 || cell.Intensity != 170 {
		t.Fatalf("expected 2 of 3 after join (intensity 170), got %d/%d", cell.Count(), cell.Intensity)
	}

	if _, err := env.availability.ToggleSlot(asUser("cat", "Cat"), group.ID, SlotInput{Date: "2024-05-03", Slot: "19:00"}); err != nil {
		t.Fatalf("ToggleSlot returned error: %v", err)
	}
	waitForHeatMap(t, updates, func(h heatmap.HeatMap) bool {
		return h.Total() == 3 && h.Cell("2024-05-03", slot).Count() == 3
	})

}

func TestAvailabilityServiceHeatMapCell(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "Dinner Club", User{ID: "bob", DisplayName: "Bob"}, User{ID: "cat", DisplayName: "Cat"})
	if _, err := env.availability.ToggleSlot(asUser("bob", "Bob"), group.ID, SlotInput{Date: "2024-05-03", Slot: "19:00"}); err != nil {
		t.Fatalf("ToggleSlot returned error: %v", err)
	}

	var vErr *ValidationError
	if _, err := env.availability.HeatMapCell(asUser("ann", "Ann"), group.ID, "May 3", "19:15"); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if vErr.FieldErrors["date"] == "" || vErr.FieldErrors["slot"] == "" {
		t.Fatalf("expected date and slot errors, got %v", vErr.FieldErrors)
	}
	if _, err := env.availability.HeatMapCell(asUser("ann", "Ann"), "missing", "2024-05-03", "19:00"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	detail, err := env.availability.HeatMapCell(asUser("ann", "Ann"), group.ID, "2024-05-03", "19:00")
	if err != nil {
		t.Fatalf("HeatMapCell returned error: %v", err)
	}
	if detail.TotalParticipants != 3 || detail.Count() != 1 || detail.Intensity != 85 {
		t.Fatalf("unexpected detail %+v", detail)
	}
	var missing []string
	for _, p := range detail.Unavailable {
		missing = append(missing, p.UserID)
	}
	if !reflect.DeepEqual(missing, []string{"ann", "cat"}) {
		t.Fatalf("expected ann and cat unavailable, got %v", missing)
	}
}

func waitForHeatMap(t *testing.T, updates <-chan heatmap.HeatMap, match func(heatmap.HeatMap) bool) heatmap.HeatMap {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case h := <-updates:
			if match(h) {
				return h
			}
		case <-timeout:
			t.Fatal("timed out waiting for heat-map update")
			return heatmap.HeatMap{}
		}
	}
}
