package markethours

import (
	"testing"
	"time"
)

func TestIsMarketOpen_Week(t *testing.T) {
	cases := []struct {
		name string
		t    time.Time
		open bool
	}{
		{"wednesday midday", time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC), true},
		{"saturday", time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC), false},
		{"sunday before open", time.Date(2026, 8, 30, 21, 0, 0, 0, time.UTC), false},
		{"sunday after open", time.Date(2026, 8, 30, 22, 30, 0, 0, time.UTC), true},
		{"friday before close", time.Date(2026, 8, 28, 21, 59, 0, 0, time.UTC), true},
		{"friday after close", time.Date(2026, 8, 28, 22, 0, 0, 0, time.UTC), false},
		{"christmas", time.Date(2026, 12, 25, 12, 0, 0, 0, time.UTC), false},
		{"new year", time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), false},
	}
	for _, c := range cases {
		if got := IsMarketOpen(c.t); got != c.open {
			t.Errorf("%s: IsMarketOpen = %v, want %v", c.name, got, c.open)
		}
	}
}

func TestNextOpen_FromWeekend(t *testing.T) {
	sat := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	open := NextOpen(sat)
	if open.Weekday() != time.Sunday || open.Hour() != OpenHourUTC {
		t.Fatalf("expected Sunday %d:00 UTC, got %v", OpenHourUTC, open)
	}
	if !IsMarketOpen(open) {
		t.Fatal("NextOpen must return an open time")
	}
	if d := TimeUntilOpen(sat); d <= 0 || d > 48*time.Hour {
		t.Fatalf("unexpected time until open: %v", d)
	}
}

func TestNextOpen_WhenOpenReturnsNow(t *testing.T) {
	wed := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	if got := NextOpen(wed); !got.Equal(wed) {
		t.Fatalf("open market: expected %v, got %v", wed, got)
	}
	if TimeUntilOpen(wed) != 0 {
		t.Fatal("open market: expected zero wait")
	}
}
