package marketdata

import (
	"context"
	"sync"

	"market-alert-engine/internal/model"
)

// SimProvider serves bars and ticks from in-memory series. It is used by
// tests and by dry-run mode; series are loaded up front and never block.
type SimProvider struct {
	mu    sync.RWMutex
	bars  map[string][]model.Bar // key: symbol:timeframe
	ticks map[string]model.Tick
}

// NewSimProvider creates an empty in-memory provider.
func NewSimProvider() *SimProvider {
	return &SimProvider{
		bars:  make(map[string][]model.Bar),
		ticks: make(map[string]model.Tick),
	}
}

// SetBars replaces the bar series for symbol/timeframe (oldest to newest).
func (s *SimProvider) SetBars(symbol string, tf model.Timeframe, bars []model.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bars[symbol+":"+string(tf)] = bars
}

// AppendBar appends one bar to the series for its symbol/timeframe.
func (s *SimProvider) AppendBar(b model.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := b.Key()
	s.bars[key] = append(s.bars[key], b)
}

// SetTick sets the latest quote for a symbol.
func (s *SimProvider) SetTick(t model.Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks[t.Symbol] = t
}

// GetBars returns up to count most recent bars, oldest to newest.
func (s *SimProvider) GetBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series, ok := s.bars[symbol+":"+string(tf)]
	if !ok || len(series) == 0 {
		return nil, ErrNoData
	}
	if count > 0 && len(series) > count {
		series = series[len(series)-count:]
	}
	out := make([]model.Bar, len(series))
	copy(out, series)
	return out, nil
}

// GetLatestTick returns the stored quote for symbol.
func (s *SimProvider) GetLatestTick(ctx context.Context, symbol string) (model.Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.ticks[symbol]
	if !ok {
		return model.Tick{}, ErrNoData
	}
	return t, nil
}
