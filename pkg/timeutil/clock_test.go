package timeutil

import (
	"testing"
	"time"
)

func TestDayBoundsUseLocalMidnight(t *testing.T) {
	// 02:30 UTC on June 2nd is still June 1st in Chicago (CDT, UTC-5).
	at := time.Date(2024, 6, 2, 2, 30, 0, 0, time.UTC)
	clock := NewFixedClock(at, "America/Chicago")

	start, end := clock.DayBounds(at)
	if start.Day() != 1 || start.Month() != time.June {
		t.Fatalf("expected day start on June 1 local, got %v", start)
	}
	if start.Hour() != 0 || start.Minute() != 0 {
		t.Fatalf("expected local midnight, got %v", start)
	}
	if !end.Equal(start.AddDate(0, 0, 1)) {
		t.Fatalf("expected end one day after start, got %v", end)
	}
	if key := clock.DayKey(at); key != "2024-06-01" {
		t.Fatalf("expected day key 2024-06-01, got %s", key)
	}
}

func TestDaysAgoCrossesDSTTransition(t *testing.T) {
	// March 11 2024 is the day after the US spring-forward transition.
	at := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
	clock := NewFixedClock(at, "America/Chicago")

	yesterday := clock.DaysAgo(1)
	if clock.DayKey(yesterday) != "2024-03-10" {
		t.Fatalf("expected 2024-03-10, got %s", clock.DayKey(yesterday))
	}
}

func TestNewClockRejectsUnknownZone(t *testing.T) {
	if _, err := NewClock("Not/AZone"); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}
