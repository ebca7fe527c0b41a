package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"market-alert-engine/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "alerts.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RoundTripAllKinds(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	configs := []model.AlertConfig{
		{
			ID: "r1", UserID: "u1", Kind: model.KindRSIThreshold, Enabled: true,
			Symbols: []string{"EURUSD"}, Timeframe: model.TFM15, CooldownMin: 15,
			RSI: &model.RSIThresholdSpec{Period: 14, Overbought: 70, Oversold: 30},
		},
		{
			ID: "c1", UserID: "u1", Kind: model.KindCompositeThreshold, Enabled: true,
			Symbols: []string{"EURUSD", "GBPUSD"},
			Composite: &model.CompositeThresholdSpec{
				Style: model.StyleSwing, BuyThreshold: 80, SellThreshold: 80,
			},
		},
		{
			ID: "f1", UserID: "u2", Kind: model.KindIndicatorFlip, Enabled: true,
			Symbols: []string{"USDJPY"}, Timeframe: model.TFH1,
			Flip: &model.IndicatorFlipSpec{Indicator: "trail_stop"},
		},
		{
			ID: "l1", UserID: "u2", Kind: model.KindLeaderChange, Enabled: true,
			Timeframe: model.TFH4,
			Leader:    &model.LeaderChangeSpec{},
		},
		{
			ID: "m1", UserID: "u3", Kind: model.KindPairMismatch, Enabled: true,
			Timeframe: model.TFH1,
			Mismatch: &model.PairMismatchSpec{
				SymbolA: "EURUSD", SymbolB: "GBPUSD",
				Policy: model.PolicyCorrelationSign,
			},
		},
	}
	for _, cfg := range configs {
		if err := s.Upsert(ctx, cfg); err != nil {
			t.Fatalf("upsert %s: %v", cfg.ID, err)
		}
	}

	got, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(got) != len(configs) {
		t.Fatalf("expected %d configs, got %d", len(configs), len(got))
	}

	byID := make(map[string]model.AlertConfig, len(got))
	for _, cfg := range got {
		byID[cfg.ID] = cfg
	}
	if r := byID["r1"]; r.RSI == nil || r.RSI.Overbought != 70 || r.CooldownMin != 15 {
		t.Fatalf("rsi config lost fields: %+v", r)
	}
	if c := byID["c1"]; c.Composite == nil || c.Composite.Style != model.StyleSwing || len(c.Symbols) != 2 {
		t.Fatalf("composite config lost fields: %+v", c)
	}
	if m := byID["m1"]; m.Mismatch == nil || m.Mismatch.Policy != model.PolicyCorrelationSign {
		t.Fatalf("mismatch config lost fields: %+v", m)
	}
}

func TestStore_DisabledRowsAreNotLoaded(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cfg := model.AlertConfig{
		ID: "r1", UserID: "u1", Kind: model.KindRSIThreshold, Enabled: true,
		Symbols: []string{"EURUSD"}, Timeframe: model.TFM15,
		RSI: &model.RSIThresholdSpec{Period: 14, Overbought: 70, Oversold: 30},
	}
	if err := s.Upsert(ctx, cfg); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.SetEnabled(ctx, "r1", false); err != nil {
		t.Fatalf("disable: %v", err)
	}

	got, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("disabled alert must not load, got %d", len(got))
	}

	if err := s.SetEnabled(ctx, "missing", true); err == nil {
		t.Fatal("enabling a missing alert must fail")
	}
}

func TestStore_BadRowIsSkipped(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	good := model.AlertConfig{
		ID: "ok", UserID: "u1", Kind: model.KindRSIThreshold, Enabled: true,
		Symbols: []string{"EURUSD"}, Timeframe: model.TFM15,
		RSI: &model.RSIThresholdSpec{Period: 14, Overbought: 70, Oversold: 30},
	}
	if err := s.Upsert(ctx, good); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Corrupt row inserted behind the repository's back.
	_, err := s.db.Exec(`INSERT INTO alerts (id, user_id, kind, params) VALUES ('bad', 'u1', 'rsi_threshold', 'not-json')`)
	if err != nil {
		t.Fatalf("raw insert: %v", err)
	}

	got, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ok" {
		t.Fatalf("expected only the good config, got %+v", got)
	}
}

func TestHolder_RefreshAndActiveIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	h := NewHolder(s, 0, nil)
	if err := h.Refresh(ctx); err != nil {
		t.Fatalf("refresh empty: %v", err)
	}
	if len(h.Snapshot()) != 0 {
		t.Fatal("expected empty snapshot")
	}

	cfg := model.AlertConfig{
		ID: "r1", UserID: "u1", Kind: model.KindRSIThreshold, Enabled: true,
		Symbols: []string{"EURUSD"}, Timeframe: model.TFM15,
		RSI: &model.RSIThresholdSpec{Period: 14, Overbought: 70, Oversold: 30},
	}
	if err := s.Upsert(ctx, cfg); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := h.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(h.Snapshot()) != 1 {
		t.Fatalf("expected 1 config, got %d", len(h.Snapshot()))
	}
	ids := h.ActiveIDs()
	if !ids["r1"] || len(ids) != 1 {
		t.Fatalf("unexpected active ids: %v", ids)
	}
}
