// Package composite aggregates per-timeframe, per-indicator signals into
// a style-weighted Buy%/Sell% composite score for a symbol. Seven
// indicator cells are computed per active timeframe from closed bars,
// clamped and averaged, then combined across timeframes by the style's
// weight map. The same cell pipeline serves both the full style-weighted
// score and single-timeframe queries, so both granularities agree.
package composite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"market-alert-engine/internal/keyedlock"
	"market-alert-engine/internal/marketdata"
	"market-alert-engine/internal/model"
	"market-alert-engine/internal/snapcache"
)

// ErrNotReady reports insufficient closed-bar history for the cell
// pipeline. Callers must treat it as "skip this unit", never as a fault.
var ErrNotReady = errors.New("composite: insufficient history")

// minBars is the closed-bar history the cell pipeline needs: EMA200
// plus the is-new lookback.
const minBars = 200 + isNewLookback + 1

// TimeframeScore is the composite result for one symbol/timeframe.
type TimeframeScore struct {
	Symbol      string          `json:"symbol"`
	Timeframe   model.Timeframe `json:"timeframe"`
	BarTS       time.Time       `json:"bar_ts"` // newest closed bar scored
	Cells       []Cell          `json:"cells"`
	Quiet       bool            `json:"quiet"`
	Raw         float64         `json:"raw"`
	FinalScore  float64         `json:"final_score"`
	BuyPercent  float64         `json:"buy_percent"`
	SellPercent float64         `json:"sell_percent"`
}

// Cell returns the named cell, or a zero Cell when absent.
func (t *TimeframeScore) Cell(name string) Cell {
	for _, c := range t.Cells {
		if c.Name == name {
			return c
		}
	}
	return Cell{}
}

// Score is the style-weighted composite for a symbol.
type Score struct {
	Symbol      string             `json:"symbol"`
	Style       model.TradingStyle `json:"style"`
	FinalScore  float64            `json:"final_score"`
	BuyPercent  float64            `json:"buy_percent"`
	SellPercent float64            `json:"sell_percent"`
	Timeframes  []TimeframeScore   `json:"timeframes"`
}

// Scorer computes composite scores, publishing each timeframe's cell
// snapshots into the shared cache under the ind: namespace.
type Scorer struct {
	provider marketdata.Provider
	cache    *snapcache.Cache[Cell]
	barCount int
	now      func() time.Time
}

// NewScorer creates a scorer. barCount is the bar window fetched per
// unit (snapcache.DefaultCapacity when <= 0).
func NewScorer(p marketdata.Provider, cache *snapcache.Cache[Cell], barCount int) *Scorer {
	if barCount <= 0 {
		barCount = snapcache.DefaultCapacity
	}
	return &Scorer{provider: p, cache: cache, barCount: barCount, now: time.Now}
}

// SetNow overrides the clock; tests only.
func (s *Scorer) SetNow(now func() time.Time) { s.now = now }

// ScoreTimeframe computes the composite for a single timeframe (weight
// 1.0). Returns marketdata.ErrNoData / marketdata.ErrStale / ErrNotReady
// when the unit must be skipped.
func (s *Scorer) ScoreTimeframe(ctx context.Context, symbol string, tf model.Timeframe) (*TimeframeScore, error) {
	bars, err := marketdata.ClosedBars(ctx, s.provider, symbol, tf, s.barCount, s.now())
	if err != nil {
		return nil, err
	}
	if len(bars) < minBars {
		return nil, ErrNotReady
	}

	highs, lows, closes := model.HLC(bars)
	quiet := quietMarket(highs, lows, closes)

	series := map[string][]model.Signal{
		CellEMA21:  emaSignals(closes, 21),
		CellEMA50:  emaSignals(closes, 50),
		CellEMA200: emaSignals(closes, 200),
		CellMACD:   macdSignals(closes),
		CellRSI:    rsiSignals(closes, 14),
		CellTrail:  trailSignals(highs, lows, closes),
		CellCloud:  cloudSignals(highs, lows, closes),
	}

	barTS := bars[len(bars)-1].TS
	ts := &TimeframeScore{
		Symbol:    symbol,
		Timeframe: tf,
		BarTS:     barTS,
		Quiet:     quiet,
		Cells:     make([]Cell, 0, len(cellNames)),
	}
	for _, name := range cellNames {
		sig, isNew := reduceSignals(series[name])
		cell := Cell{
			Name:   name,
			Signal: sig,
			IsNew:  isNew,
			Score:  scoreCell(name, sig, isNew, quiet),
		}
		ts.Cells = append(ts.Cells, cell)
		if s.cache != nil {
			s.cache.Update(cellKey(symbol, tf, name), barTS, cell)
		}
	}

	ts.Raw = rawFromCells(ts.Cells)
	ts.FinalScore, ts.BuyPercent, ts.SellPercent = finalize(ts.Raw)
	return ts, nil
}

// Score computes the style-weighted composite across the style's active
// timeframes. Timeframes that are skippable (no data, stale, warming up)
// are dropped and the remaining weights renormalized; if every timeframe
// is skippable the first error is returned.
func (s *Scorer) Score(ctx context.Context, symbol string, style model.TradingStyle) (*Score, error) {
	if !style.Valid() {
		return nil, fmt.Errorf("composite: unknown style %q", style)
	}

	out := &Score{Symbol: symbol, Style: style}
	var firstErr error
	weightSum, weighted := 0.0, 0.0

	for _, tf := range StyleTimeframes(style) {
		tfs, err := s.ScoreTimeframe(ctx, symbol, tf)
		if err != nil {
			if skippable(err) {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			return nil, err
		}
		w := StyleWeight(style, tf)
		weighted += tfs.Raw * w
		weightSum += w
		out.Timeframes = append(out.Timeframes, *tfs)
	}

	if weightSum == 0 {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, ErrNotReady
	}

	raw := weighted / weightSum
	out.FinalScore, out.BuyPercent, out.SellPercent = finalize(raw)
	return out, nil
}

// skippable reports whether err means "unit not evaluable right now".
func skippable(err error) bool {
	return errors.Is(err, marketdata.ErrNoData) ||
		errors.Is(err, marketdata.ErrStale) ||
		errors.Is(err, ErrNotReady)
}

// finalize maps an aggregate raw cell score onto the score/percent scale.
func finalize(raw float64) (final, buyPct, sellPct float64) {
	final = 100 * raw / cellScoreLimit
	if final > 100 {
		final = 100
	}
	if final < -100 {
		final = -100
	}
	buyPct = (final + 100) / 2
	sellPct = 100 - buyPct
	return final, buyPct, sellPct
}

// cellKey builds the cache key for a cell snapshot.
func cellKey(symbol string, tf model.Timeframe, cell string) string {
	return keyedlock.NSIndicator + symbol + ":" + string(tf) + ":" + cell
}
