package timeslot

import (
	"errors"
	"testing"
)

func TestAllSlots(t *testing.T) {
	slots := All()
	if len(slots) != 33 || Count != 33 {
		t.Fatalf("expected 33 slots, got %d (Count=%d)", len(slots), Count)
	}
	if slots[0].String() != "07:00" || slots[len(slots)-1].String() != "23:30" {
		t.Fatalf("unexpected bounds %s..%s", slots[0], slots[len(slots)-1])
	}
	for i := 1; i < len(slots); i++ {
		if slots[i]-slots[i-1] != Step {
			t.Fatalf("expected %d minute steps, got %s then %s", Step, slots[i-1], slots[i])
		}
	}
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		label   string
		want    Slot
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:15", 9*60 + 15, false},
		{"23:59", 23*60 + 59, false},
		{"24:00", 0, true},
		{"9:00", 0, true},
		{"09:60", 0, true},
		{"0900", 0, true},
		{"ab:cd", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.label, func(t *testing.T) {
			got, err := ParseClock(tc.label)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidClock) {
					t.Fatalf("expected ErrInvalidClock, got %v", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("ParseClock(%q) = %v, %v; want %v", tc.label, got, err, tc.want)
			}
		})
	}
}

func TestParseSlot(t *testing.T) {
	if _, err := ParseSlot("07:00"); err != nil {
		t.Fatalf("expected 07:00 to be a slot, got %v", err)
	}
	for _, label := range []string{"06:30", "07:15", "23:45"} {
		if _, err := ParseSlot(label); !errors.Is(err, ErrOutsideGrid) {
			t.Fatalf("expected ErrOutsideGrid for %s, got %v", label, err)
		}
	}
}
