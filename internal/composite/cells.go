package composite

import (
	"sort"

	"market-alert-engine/internal/indicator"
	"market-alert-engine/internal/model"
)

// Indicator cell names. Each timeframe is scored across exactly these
// seven cells.
const (
	CellEMA21  = "ema21"
	CellEMA50  = "ema50"
	CellEMA200 = "ema200"
	CellMACD   = "macd"
	CellRSI    = "rsi"
	CellTrail  = "trail_stop"
	CellCloud  = "cloud"
)

// cellNames fixes the per-timeframe cell order.
var cellNames = []string{CellEMA21, CellEMA50, CellEMA200, CellMACD, CellRSI, CellTrail, CellCloud}

// isNewLookback is the number of recent closed bars within which a signal
// change marks the cell as new.
const isNewLookback = 3

// cellScoreLimit clamps every cell score to [-1.25, 1.25]; it is also the
// divisor that maps the aggregate raw score onto [-100, 100].
const cellScoreLimit = 1.25

// Cell is one indicator's reduced contribution to a timeframe score.
type Cell struct {
	Name   string       `json:"name"`
	Signal model.Signal `json:"signal"`
	IsNew  bool         `json:"is_new"`
	Score  float64      `json:"score"`
}

// scoreCell reduces a cell to its clamped score: +1/-1/0 base, a 0.25
// bonus in the signal's direction when the signal is fresh, and halving
// in quiet markets for the volatility-sensitive cells (MACD and the
// stop-and-reverse trail).
func scoreCell(name string, sig model.Signal, isNew, quiet bool) float64 {
	var score float64
	switch sig {
	case model.SignalBuy:
		score = 1
		if isNew {
			score += 0.25
		}
	case model.SignalSell:
		score = -1
		if isNew {
			score -= 0.25
		}
	}
	if quiet && (name == CellMACD || name == CellTrail) {
		score /= 2
	}
	if score > cellScoreLimit {
		score = cellScoreLimit
	}
	if score < -cellScoreLimit {
		score = -cellScoreLimit
	}
	return score
}

// rawFromCells averages the clamped cell scores with equal weight.
func rawFromCells(cells []Cell) float64 {
	if len(cells) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range cells {
		sum += c.Score
	}
	return sum / float64(len(cells))
}

// signalAt compares a price-like value against a reference line.
func signalAt(value, reference float64) model.Signal {
	switch {
	case value > reference:
		return model.SignalBuy
	case value < reference:
		return model.SignalSell
	}
	return model.SignalNeutral
}

// emaSignals reduces closes vs their EMA to a tail-aligned signal series.
func emaSignals(closes []float64, period int) []model.Signal {
	ema := indicator.Ema(closes, period)
	if ema == nil {
		return nil
	}
	out := make([]model.Signal, len(ema))
	offset := len(closes) - len(ema)
	for i := range ema {
		out[i] = signalAt(closes[offset+i], ema[i])
	}
	return out
}

// macdSignals reduces the MACD line vs its signal line.
func macdSignals(closes []float64) []model.Signal {
	m := indicator.Macd(closes, 12, 26, 9)
	if m == nil {
		return nil
	}
	out := make([]model.Signal, len(m.Line))
	for i := range m.Line {
		out[i] = signalAt(m.Line[i], m.Signal[i])
	}
	return out
}

// rsiSignals reduces RSI around the 50 midline.
func rsiSignals(closes []float64, period int) []model.Signal {
	rsi := indicator.Rsi(closes, period)
	if rsi == nil {
		return nil
	}
	out := make([]model.Signal, len(rsi))
	for i := range rsi {
		out[i] = signalAt(rsi[i], 50)
	}
	return out
}

// trailSignals reduces the stop-and-reverse direction.
func trailSignals(highs, lows, closes []float64) []model.Signal {
	ts := indicator.ComputeTrailStop(highs, lows, closes, 10, 1.5, 10)
	if ts == nil {
		return nil
	}
	out := make([]model.Signal, len(ts.Direction))
	for i, d := range ts.Direction {
		if d == indicator.DirLong {
			out[i] = model.SignalBuy
		} else {
			out[i] = model.SignalSell
		}
	}
	return out
}

// cloudSignals reduces price vs the cloud: above both senkou lines is a
// buy, below both a sell, inside the cloud neutral.
func cloudSignals(highs, lows, closes []float64) []model.Signal {
	c := indicator.ComputeCloud(highs, lows, closes,
		indicator.CloudTenkan, indicator.CloudKijun, indicator.CloudSenkouB, indicator.CloudDisplacement)
	if c == nil {
		return nil
	}
	out := make([]model.Signal, len(c.SenkouA))
	for i := range c.SenkouA {
		upper, lower := c.SenkouA[i], c.SenkouB[i]
		if lower > upper {
			upper, lower = lower, upper
		}
		price := closes[c.StartIndex+i]
		switch {
		case price > upper:
			out[i] = model.SignalBuy
		case price < lower:
			out[i] = model.SignalSell
		default:
			out[i] = model.SignalNeutral
		}
	}
	return out
}

// reduceSignals collapses a signal series to (current, isNew): isNew is
// true when the signal changed on any of the last isNewLookback closed
// bars. Series shorter than isNewLookback+1 report isNew=false.
func reduceSignals(signals []model.Signal) (model.Signal, bool) {
	n := len(signals)
	if n == 0 {
		return model.SignalNeutral, false
	}
	current := signals[n-1]
	if n < isNewLookback+1 {
		return current, false
	}
	for i := n - isNewLookback; i < n; i++ {
		if signals[i] != signals[i-1] {
			return current, true
		}
	}
	return current, false
}

// quietMarket reports whether the timeframe is in a quiet regime: the
// current ATR(10) sits strictly below the 5th percentile (nearest rank)
// of its own trailing 200 values. Fewer than 40 ATR samples means the
// regime is unknown, which never counts as quiet.
func quietMarket(highs, lows, closes []float64) bool {
	atr := indicator.Atr(highs, lows, closes, 10)
	if len(atr) < 40 {
		return false
	}
	window := atr
	if len(window) > 200 {
		window = window[len(window)-200:]
	}
	sorted := make([]float64, len(window))
	copy(sorted, window)
	sort.Float64s(sorted)

	rank := (len(sorted)*5 + 99) / 100 // ceil(0.05*n)
	if rank < 1 {
		rank = 1
	}
	p5 := sorted[rank-1]
	return atr[len(atr)-1] < p5
}
