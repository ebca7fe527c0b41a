package indicator

// MACD holds the three MACD series trimmed to a common tail-aligned
// length, so Hist[i] == Line[i] - Signal[i] for every index.
type MACD struct {
	Line   []float64
	Signal []float64
	Hist   []float64
}

// Macd computes MACD line (EMA fast - EMA slow, aligned by the slow-fast
// offset), its signal EMA and the histogram. Requires fast < slow and
// enough closes for the signal EMA to seed; nil otherwise.
func Macd(closes []float64, fast, slow, signalPeriod int) *MACD {
	if fast <= 0 || signalPeriod <= 0 || fast >= slow {
		return nil
	}

	emaFast := Ema(closes, fast)
	emaSlow := Ema(closes, slow)
	if emaSlow == nil {
		return nil
	}

	// emaFast starts (slow-fast) samples earlier than emaSlow.
	offset := slow - fast
	line := make([]float64, len(emaSlow))
	for i := range emaSlow {
		line[i] = emaFast[i+offset] - emaSlow[i]
	}

	signal := Ema(line, signalPeriod)
	if signal == nil {
		return nil
	}

	// Trim the line to the signal's length so all series align.
	line = line[len(line)-len(signal):]
	hist := make([]float64, len(signal))
	for i := range signal {
		hist[i] = line[i] - signal[i]
	}
	return &MACD{Line: line, Signal: signal, Hist: hist}
}
