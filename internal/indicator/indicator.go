// Package indicator provides deterministic technical indicator math over
// closed-bar series. All functions are pure: they take price slices
// (oldest to newest), return freshly-allocated output series aligned to
// the input's tail, and return nil when the input is too short. Callers
// must treat nil as "not ready", never as an error, and must filter to
// closed bars before calling.
package indicator

// highest returns the maximum of s[from..to] inclusive.
func highest(s []float64, from, to int) float64 {
	h := s[from]
	for i := from + 1; i <= to; i++ {
		if s[i] > h {
			h = s[i]
		}
	}
	return h
}

// lowest returns the minimum of s[from..to] inclusive.
func lowest(s []float64, from, to int) float64 {
	l := s[from]
	for i := from + 1; i <= to; i++ {
		if s[i] < l {
			l = s[i]
		}
	}
	return l
}

// midpoint returns (highest high + lowest low)/2 over the period ending at i.
func midpoint(highs, lows []float64, i, period int) float64 {
	return (highest(highs, i-period+1, i) + lowest(lows, i-period+1, i)) / 2
}
