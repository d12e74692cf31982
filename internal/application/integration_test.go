package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/jio-scheduler/internal/application"
	"github.com/example/jio-scheduler/internal/testfixtures"
	"github.com/example/jio-scheduler/internal/timeslot"
)

// TestJioFlow walks a group from creation to confirmation and deletion on
// every storage backend.
func TestJioFlow(t *testing.T) {
	for name, open := range testfixtures.Stores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			factory := testfixtures.NewServiceFactory()
			svc := factory.Build(open(t))

			ann := testfixtures.NewProfileFixture(testfixtures.WithDisplayName("Ann"))
			bob := testfixtures.NewProfileFixture(testfixtures.WithDisplayName("Bob"))
			asAnn, asBob := testfixtures.As(ctx, ann), testfixtures.As(ctx, bob)

			for _, p := range []testfixtures.ProfileFixture{ann, bob} {
				if _, err := svc.Profiles.SaveProfile(testfixtures.As(ctx, p), application.SaveProfileInput{DisplayName: p.DisplayName, Username: p.Username}); err != nil {
					t.Fatalf("SaveProfile(%s) returned error: %v", p.UserID, err)
				}
			}

			group, err := svc.Groups.CreateGroup(asAnn, application.CreateGroupInput{Name: "Dinner", ReminderFrequencyDays: 7})
			if err != nil {
				t.Fatalf("CreateGroup returned error: %v", err)
			}
			if _, err := svc.Groups.JoinGroup(asBob, group.ID); err != nil {
				t.Fatalf("JoinGroup returned error: %v", err)
			}

			for _, c := range []context.Context{asAnn, asBob} {
				if _, err := svc.Availability.ToggleSlot(c, group.ID, application.SlotInput{Date: "2024-05-03", Slot: "19:00"}); err != nil {
					t.Fatalf("ToggleSlot returned error: %v", err)
				}
			}

			view, err := svc.Availability.HeatMap(asAnn, group.ID, time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC))
			if err != nil {
				t.Fatalf("HeatMap returned error: %v", err)
			}
			row := view.Rows[int(timeslot.Slot(19*60)-timeslot.First)/timeslot.Step]
			if view.TotalParticipants != 2 || row.Slot != "19:00" || row.Cells[4].Intensity != 255 {
				t.Fatalf("expected a full cell on Friday 19:00, got %s %+v", row.Slot, row.Cells[4])
			}

			result, err := svc.Confirmations.ConfirmSlot(asBob, group.ID, application.ConfirmInput{
				Date: "2024-05-03", Name: "Hotpot", StartTime: "19:00", EndTime: "21:00",
			})
			if err != nil {
				t.Fatalf("ConfirmSlot returned error: %v", err)
			}
			if result.Written != 2 {
				t.Fatalf("expected 2 calendar entries, got %d", result.Written)
			}

			status, err := svc.Reminders.ReminderStatus(asAnn, group.ID)
			if err != nil {
				t.Fatalf("ReminderStatus returned error: %v", err)
			}
			if status.NextReminderDate != "2024-05-10" || status.Due {
				t.Fatalf("unexpected reminder status %+v", status)
			}
			factory.Clock.AdvanceDays(9)
			if status, _ = svc.Reminders.ReminderStatus(asAnn, group.ID); !status.Due {
				t.Fatalf("expected reminder due on %s, got %+v", factory.Clock.Today(time.UTC), status)
			}

			entries, err := svc.Calendar.ListCalendar(asBob, application.CalendarQuery{Month: "2024-05"})
			if err != nil {
				t.Fatalf("ListCalendar returned error: %v", err)
			}
			if len(entries) != 1 || entries[0].Name != "Dinner's Hotpot" {
				t.Fatalf("unexpected calendar %+v", entries)
			}

			if err := svc.Groups.DeleteGroup(asAnn, group.ID); err != nil {
				t.Fatalf("DeleteGroup returned error: %v", err)
			}
			if _, err := svc.Groups.GetGroup(asAnn, group.ID); !errors.Is(err, application.ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
			if entries, _ := svc.Calendar.ListCalendar(asBob, application.CalendarQuery{}); len(entries) != 0 {
				t.Fatalf("expected calendar to be emptied, got %+v", entries)
			}
		})
	}
}
