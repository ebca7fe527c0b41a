package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"market-alert-engine/internal/model"
)

func mkBars(symbol string, tf model.Timeframe, n int, last time.Time) []model.Bar {
	bars := make([]model.Bar, n)
	for i := 0; i < n; i++ {
		bars[i] = model.Bar{
			Symbol:    symbol,
			Timeframe: tf,
			TS:        last.Add(-time.Duration(n-1-i) * tf.Duration()),
			Close:     1.1,
			Closed:    true,
		}
	}
	return bars
}

func TestClosedBars_DropsOpenBar(t *testing.T) {
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	p := NewSimProvider()
	bars := mkBars("EURUSD", model.TFH1, 5, now.Add(-time.Hour))
	open := model.Bar{Symbol: "EURUSD", Timeframe: model.TFH1, TS: now, Closed: false}
	p.SetBars("EURUSD", model.TFH1, append(bars, open))

	got, err := ClosedBars(context.Background(), p, "EURUSD", model.TFH1, 10, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 closed bars, got %d", len(got))
	}
	for i, b := range got {
		if !b.Closed {
			t.Fatalf("bar %d not closed", i)
		}
	}
}

func TestClosedBars_StaleFeed(t *testing.T) {
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	p := NewSimProvider()
	// Newest closed bar 3 hours old on H1: beyond the 2x budget.
	p.SetBars("EURUSD", model.TFH1, mkBars("EURUSD", model.TFH1, 5, now.Add(-3*time.Hour)))

	_, err := ClosedBars(context.Background(), p, "EURUSD", model.TFH1, 10, now)
	if !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
}

func TestClosedBars_NoData(t *testing.T) {
	p := NewSimProvider()
	_, err := ClosedBars(context.Background(), p, "XAUUSD", model.TFH1, 10, time.Now())
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}

	// A series with only an open bar is also no-data after filtering.
	p.SetBars("XAUUSD", model.TFH1, []model.Bar{{Symbol: "XAUUSD", Timeframe: model.TFH1, TS: time.Now(), Closed: false}})
	_, err = ClosedBars(context.Background(), p, "XAUUSD", model.TFH1, 10, time.Now())
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData for open-only series, got %v", err)
	}
}

func TestSimProvider_CountTrimsOldest(t *testing.T) {
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	p := NewSimProvider()
	p.SetBars("GBPUSD", model.TFM5, mkBars("GBPUSD", model.TFM5, 20, now))

	got, err := p.GetBars(context.Background(), "GBPUSD", model.TFM5, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("expected 7 bars, got %d", len(got))
	}
	if !got[6].TS.Equal(now) {
		t.Fatalf("expected newest bar last, got %v", got[6].TS)
	}
}
