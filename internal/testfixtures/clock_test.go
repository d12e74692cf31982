package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
}

func TestClockAdvance(t *testing.T) {
	start := time.Date(2024, time.May, 3, 23, 30, 0, 0, time.UTC)
	clock := NewClock(start)
	nowFn := clock.NowFunc()

	if got := clock.Advance(time.Hour); !got.Equal(start.Add(time.Hour)) {
		t.Fatalf("Advance returned %v", got)
	}
	if got := nowFn(); !got.Equal(start.Add(time.Hour)) {
		t.Fatalf("NowFunc did not follow the clock, got %v", got)
	}

	clock.AdvanceDays(2)
	if got := clock.Today(time.UTC); got != "2024-05-06" {
		t.Fatalf("expected 2024-05-06, got %s", got)
	}
}

func TestClockTodayUsesLocation(t *testing.T) {
	clock := NewClock(time.Date(2024, time.May, 3, 20, 0, 0, 0, time.UTC))
	singapore := time.FixedZone("SGT", 8*60*60)

	if got := clock.Today(singapore); got != "2024-05-04" {
		t.Fatalf("expected next day in SGT, got %s", got)
	}
	if got := clock.Today(nil); got != "2024-05-03" {
		t.Fatalf("expected UTC date, got %s", got)
	}
}
