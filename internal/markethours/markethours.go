// Package markethours models the FX trading week: open from Sunday
// 22:00 UTC (Sydney) through Friday 22:00 UTC (New York close), minus
// the few full-closure holidays. Outside these windows bars stop
// arriving, so the engine pauses evaluation instead of skipping every
// unit as stale.
package markethours

import (
	"fmt"
	"time"
)

// Week boundaries in UTC.
const (
	OpenHourUTC  = 22 // Sunday
	CloseHourUTC = 22 // Friday
)

// IsMarketOpen returns true if t falls within the FX trading week and
// is not a closure holiday.
func IsMarketOpen(t time.Time) bool {
	u := t.UTC()
	if IsHoliday(u) {
		return false
	}
	switch u.Weekday() {
	case time.Saturday:
		return false
	case time.Sunday:
		return u.Hour() >= OpenHourUTC
	case time.Friday:
		return u.Hour() < CloseHourUTC
	}
	return true
}

// IsTradingDay returns true if any part of t's UTC day is tradable.
func IsTradingDay(t time.Time) bool {
	u := t.UTC()
	return u.Weekday() != time.Saturday && !IsHoliday(u)
}

// NextOpen returns the next market open. If the market is currently
// open, it returns t.
func NextOpen(t time.Time) time.Time {
	u := t.UTC()
	if IsMarketOpen(u) {
		return u
	}
	// Walk hour boundaries; two weeks covers any weekend + holiday run.
	u = u.Truncate(time.Hour)
	for i := 0; i < 14*24; i++ {
		u = u.Add(time.Hour)
		if IsMarketOpen(u) {
			return u
		}
	}
	return u
}

// TimeUntilOpen returns the duration until the next open (zero when
// already open).
func TimeUntilOpen(t time.Time) time.Duration {
	d := NextOpen(t).Sub(t.UTC())
	if d < 0 {
		return 0
	}
	return d
}

// StatusString returns a human-readable market status.
func StatusString(t time.Time) string {
	if IsMarketOpen(t) {
		return "Market Open"
	}
	next := NextOpen(t)
	return fmt.Sprintf("Market Closed — opens %s %s UTC",
		next.Weekday().String()[:3], next.Format("15:04"))
}
