package indicator

// Rsi computes the Relative Strength Index with Wilder smoothing.
// Seed average gain/loss is the mean of the first period deltas; after
// that avg = (avg*(period-1) + new)/period. When avgLoss is zero the
// RSI is exactly 100, never NaN. Requires at least period+1 closes;
// output length is len(closes)-period, aligned to the tail.
func Rsi(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period+1 {
		return nil
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out := make([]float64, 0, len(closes)-period)
	out = append(out, rsiValue(avgGain, avgLoss))

	p := float64(period)
	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
