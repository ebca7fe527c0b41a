package markethours

import "time"

// Full-closure FX holidays: the interbank market effectively stops.
// Format: month, day pairs, every year.
var fxClosures = []struct {
	month time.Month
	day   int
}{
	{time.January, 1},   // New Year's Day
	{time.December, 25}, // Christmas
}

var holidaySet map[[2]int]bool

func init() {
	holidaySet = make(map[[2]int]bool, len(fxClosures))
	for _, h := range fxClosures {
		holidaySet[[2]int{int(h.month), h.day}] = true
	}
}

// IsHoliday returns true if the UTC date is a full-closure holiday.
func IsHoliday(t time.Time) bool {
	u := t.UTC()
	return holidaySet[[2]int{int(u.Month()), u.Day()}]
}
