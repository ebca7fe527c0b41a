package indicator

// Ema computes an exponential moving average seeded with the arithmetic
// mean of the first period closes. Smoothing constant k = 2/(period+1).
// Output length is len(closes)-period+1, aligned to the tail; nil when
// fewer than period closes are available.
func Ema(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period {
		return nil
	}

	out := make([]float64, 0, len(closes)-period+1)

	seed := 0.0
	for _, c := range closes[:period] {
		seed += c
	}
	seed /= float64(period)
	out = append(out, seed)

	k := 2.0 / float64(period+1)
	prev := seed
	for _, c := range closes[period:] {
		prev = c*k + prev*(1-k)
		out = append(out, prev)
	}
	return out
}
