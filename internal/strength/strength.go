// Package strength ranks currencies by relative strength derived from the
// major pairs' recent closed-bar performance. Each pair's percent change
// over the lookback window credits its base currency and debits its quote
// currency; per-currency scores are the average over the pairs the
// currency appears in. Snapshots land in the shared cache under the
// curstr: namespace and feed leader-change alerts.
package strength

import (
	"context"
	"sort"
	"strings"
	"time"

	"market-alert-engine/internal/keyedlock"
	"market-alert-engine/internal/marketdata"
	"market-alert-engine/internal/model"
	"market-alert-engine/internal/snapcache"
)

// Currencies tracked by the strength board.
var Currencies = []string{"USD", "EUR", "GBP", "JPY", "AUD", "NZD", "CAD", "CHF"}

// MajorPairs are the 28 crosses of the tracked currencies.
var MajorPairs = []string{
	"EURUSD", "GBPUSD", "AUDUSD", "NZDUSD", "USDJPY", "USDCAD", "USDCHF",
	"EURGBP", "EURJPY", "EURAUD", "EURNZD", "EURCAD", "EURCHF",
	"GBPJPY", "GBPAUD", "GBPNZD", "GBPCAD", "GBPCHF",
	"AUDJPY", "AUDNZD", "AUDCAD", "AUDCHF",
	"NZDJPY", "NZDCAD", "NZDCHF",
	"CADJPY", "CADCHF", "CHFJPY",
}

// DefaultLookback is the closed-bar window for the percent-change window.
const DefaultLookback = 20

// Snapshot is one ranked strength board. Ranking is strongest to weakest.
type Snapshot struct {
	TS      time.Time          `json:"ts"` // newest bar ts that contributed
	Scores  map[string]float64 `json:"scores"`
	Ranking []string           `json:"ranking"`
}

// Leader returns the strongest currency.
func (s *Snapshot) Leader() string { return s.Ranking[0] }

// Laggard returns the weakest currency.
func (s *Snapshot) Laggard() string { return s.Ranking[len(s.Ranking)-1] }

// SnapshotKey is the cache key for a timeframe's strength board.
func SnapshotKey(tf model.Timeframe) string {
	return keyedlock.NSStrength + string(tf)
}

// Board computes strength snapshots from a market-data provider.
type Board struct {
	provider marketdata.Provider
	cache    *snapcache.Cache[Snapshot]
	lookback int
	now      func() time.Time
}

// NewBoard creates a strength board. lookback <= 0 selects DefaultLookback.
func NewBoard(p marketdata.Provider, cache *snapcache.Cache[Snapshot], lookback int) *Board {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &Board{provider: p, cache: cache, lookback: lookback, now: time.Now}
}

// SetNow overrides the clock; tests only.
func (b *Board) SetNow(now func() time.Time) { b.now = now }

// Compute builds the strength snapshot for a timeframe and stores it in
// the cache. Pairs with missing, stale or short history are skipped; the
// snapshot is not-ready (nil, marketdata.ErrNoData) only when no pair
// contributed at all.
func (b *Board) Compute(ctx context.Context, tf model.Timeframe) (*Snapshot, error) {
	sums := make(map[string]float64, len(Currencies))
	counts := make(map[string]int, len(Currencies))
	var newest time.Time

	for _, pair := range MajorPairs {
		// Fetch headroom over the window: the newest bar is usually still
		// open and gets dropped by ClosedBars.
		bars, err := marketdata.ClosedBars(ctx, b.provider, pair, tf, b.lookback+2, b.now())
		if err != nil || len(bars) < b.lookback+1 {
			continue // per-unit isolation: one pair never sinks the board
		}
		first := bars[len(bars)-1-b.lookback].Close
		last := bars[len(bars)-1].Close
		if first == 0 {
			continue
		}
		change := 100 * (last - first) / first

		base, quote := pair[:3], pair[3:]
		sums[base] += change
		counts[base]++
		sums[quote] -= change
		counts[quote]++
		if bars[len(bars)-1].TS.After(newest) {
			newest = bars[len(bars)-1].TS
		}
	}

	if len(counts) == 0 {
		return nil, marketdata.ErrNoData
	}

	snap := &Snapshot{TS: newest, Scores: make(map[string]float64, len(counts))}
	for cur, n := range counts {
		snap.Scores[cur] = sums[cur] / float64(n)
	}

	snap.Ranking = make([]string, 0, len(snap.Scores))
	for cur := range snap.Scores {
		snap.Ranking = append(snap.Ranking, cur)
	}
	sort.Slice(snap.Ranking, func(i, j int) bool {
		a, bb := snap.Ranking[i], snap.Ranking[j]
		if snap.Scores[a] != snap.Scores[bb] {
			return snap.Scores[a] > snap.Scores[bb]
		}
		return strings.Compare(a, bb) < 0 // stable order on ties
	})

	if b.cache != nil {
		b.cache.Update(SnapshotKey(tf), snap.TS, *snap)
	}
	return snap, nil
}
