// Package marketdata defines the contract the engine consumes from a
// market-data provider and supplies two implementations: a live
// session-authenticated HTTP/WebSocket client and a deterministic
// in-memory provider for tests and dry runs.
package marketdata

import (
	"context"
	"errors"
	"time"

	"market-alert-engine/internal/model"
)

// Sentinel conditions. Both mean "skip this unit and continue"; neither
// is a batch-level failure.
var (
	// ErrNoData reports that the provider has no bars for the symbol
	// and timeframe.
	ErrNoData = errors.New("marketdata: no bars available")

	// ErrStale reports that the newest bar is older than twice the
	// timeframe's duration. Stale units are skipped silently.
	ErrStale = errors.New("marketdata: bars are stale")
)

// Provider is the market-data contract. Bars come oldest to newest with
// a truthful Closed flag; a bar at the same TS may be returned repeatedly
// while open and becomes immutable once closed.
type Provider interface {
	// GetBars returns up to count most recent bars for symbol/timeframe.
	GetBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.Bar, error)

	// GetLatestTick returns the most recent quote for symbol.
	GetLatestTick(ctx context.Context, symbol string) (model.Tick, error)
}

// ClosedBars fetches bars, drops the open bar, and applies the staleness
// guard: if the newest closed bar is older than 2x the timeframe's
// duration the unit is stale. now is injectable for tests.
func ClosedBars(ctx context.Context, p Provider, symbol string, tf model.Timeframe, count int, now time.Time) ([]model.Bar, error) {
	bars, err := p.GetBars(ctx, symbol, tf, count)
	if err != nil {
		return nil, err
	}
	closed := model.ClosedBars(bars)
	if len(closed) == 0 {
		return nil, ErrNoData
	}
	newest := closed[len(closed)-1]
	if now.Sub(newest.TS) > 2*tf.Duration() {
		return nil, ErrStale
	}
	return closed, nil
}
