package indicator

import "math"

// Atr computes the Average True Range with Wilder smoothing. True range
// at bar i is max(high-low, |high-prevClose|, |low-prevClose|); the seed
// is the mean of the first period true ranges. Requires period+1 bars;
// output length is len(closes)-period, aligned to the tail.
func Atr(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	if period <= 0 || n < period+1 || len(highs) != n || len(lows) != n {
		return nil
	}

	seed := 0.0
	for i := 1; i <= period; i++ {
		seed += trueRange(highs[i], lows[i], closes[i-1])
	}
	seed /= float64(period)

	out := make([]float64, 0, n-period)
	out = append(out, seed)

	p := float64(period)
	prev := seed
	for i := period + 1; i < n; i++ {
		tr := trueRange(highs[i], lows[i], closes[i-1])
		prev = (prev*(p-1) + tr) / p
		out = append(out, prev)
	}
	return out
}

func trueRange(high, low, prevClose float64) float64 {
	tr := high - low
	if hc := math.Abs(high - prevClose); hc > tr {
		tr = hc
	}
	if lc := math.Abs(low - prevClose); lc > tr {
		tr = lc
	}
	return tr
}
