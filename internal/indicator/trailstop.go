package indicator

// Trail direction values.
const (
	DirLong  = 1
	DirShort = -1
)

// TrailStop holds the stop-and-reverse trend series. All slices share one
// length; StartIndex is the bar index of the first sample. Flip carries
// +1 on the bar where direction turns long, -1 where it turns short, and
// 0 everywhere else (including the first sample).
type TrailStop struct {
	StartIndex int
	Stop       []float64
	Direction  []int
	Flip       []int
}

// ComputeTrailStop runs a stop-and-reverse trend follower: the baseline
// is an EMA of closes; in long mode the stop is baseline - mult*ATR and
// ratchets monotonically up, in short mode baseline + mult*ATR ratcheting
// down. Direction flips long->short when close drops below the long stop
// and short->long when close rises above the short stop; a flipped stop
// restarts from the current bar's candidate. The initial direction is
// long when the first sample's close is at or above the baseline.
// Returns nil when the series is too short for both the EMA and the ATR.
func ComputeTrailStop(highs, lows, closes []float64, emaPeriod int, mult float64, atrPeriod int) *TrailStop {
	n := len(closes)
	if len(highs) != n || len(lows) != n {
		return nil
	}
	ema := Ema(closes, emaPeriod)
	atr := Atr(highs, lows, closes, atrPeriod)
	if ema == nil || atr == nil {
		return nil
	}

	// ema[j] is the value at bar j+emaPeriod-1; atr[j] at bar j+atrPeriod.
	start := emaPeriod - 1
	if atrPeriod > start {
		start = atrPeriod
	}
	if start >= n {
		return nil
	}

	out := &TrailStop{
		StartIndex: start,
		Stop:       make([]float64, n-start),
		Direction:  make([]int, n-start),
		Flip:       make([]int, n-start),
	}

	var dir int
	var stop float64
	for i := start; i < n; i++ {
		baseline := ema[i-(emaPeriod-1)]
		band := mult * atr[i-atrPeriod]
		candLong := baseline - band
		candShort := baseline + band

		flip := 0
		switch {
		case i == start:
			if closes[i] >= baseline {
				dir, stop = DirLong, candLong
			} else {
				dir, stop = DirShort, candShort
			}
		case dir == DirLong:
			if closes[i] < stop {
				dir, stop, flip = DirShort, candShort, -1
			} else if candLong > stop {
				stop = candLong
			}
		default: // short
			if closes[i] > stop {
				dir, stop, flip = DirLong, candLong, 1
			} else if candShort < stop {
				stop = candShort
			}
		}

		j := i - start
		out.Stop[j] = stop
		out.Direction[j] = dir
		out.Flip[j] = flip
	}
	return out
}
