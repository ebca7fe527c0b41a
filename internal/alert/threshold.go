package alert

import (
	"context"
	"time"

	"market-alert-engine/internal/composite"
	"market-alert-engine/internal/indicator"
	"market-alert-engine/internal/marketdata"
	"market-alert-engine/internal/model"
)

// evalRSI runs the raw-RSI threshold specialization: the sell side tracks
// the overbought threshold from below, the buy side the oversold
// threshold from above. Both sides watch the same metric.
func (e *Evaluator) evalRSI(ctx context.Context, cfg model.AlertConfig, symbol string) error {
	spec := cfg.RSI
	bars, err := marketdata.ClosedBars(ctx, e.provider, symbol, cfg.Timeframe, e.barCount, e.now())
	if err != nil {
		return err
	}
	rsi := indicator.Rsi(model.Closes(bars), spec.Period)
	if rsi == nil {
		return composite.ErrNotReady
	}
	curr := rsi[len(rsi)-1]
	barTS := bars[len(bars)-1].TS

	st := e.unit(stateKey{cfg.ID, symbol, cfg.Timeframe})
	if st.LastBarTS.Equal(barTS) {
		return errSkipSameBar
	}
	st.LastBarTS = barTS

	if !st.Init {
		// Baseline: arm each side to match the current zone, never fire.
		st.Init = true
		st.Sell.Armed = curr < spec.Overbought
		st.Buy.Armed = curr > spec.Oversold
		st.PrevSell, st.PrevBuy = curr, curr
		return nil
	}

	prev := st.PrevSell
	cooldown := e.cooldownFor(cfg)

	if crossUp(&st.Sell, prev, curr, spec.Overbought, e.margin) {
		e.fireSide(&st.Sell, cooldown, model.TriggerEvent{
			AlertID:   cfg.ID,
			UserID:    cfg.UserID,
			Kind:      cfg.Kind,
			Symbol:    symbol,
			Timeframe: cfg.Timeframe,
			Side:      model.SideSell,
			Condition: "overbought",
			Metric:    curr,
			Threshold: spec.Overbought,
			BarTS:     barTS,
		})
	}
	if crossDown(&st.Buy, prev, curr, spec.Oversold, e.margin) {
		e.fireSide(&st.Buy, cooldown, model.TriggerEvent{
			AlertID:   cfg.ID,
			UserID:    cfg.UserID,
			Kind:      cfg.Kind,
			Symbol:    symbol,
			Timeframe: cfg.Timeframe,
			Side:      model.SideBuy,
			Condition: "oversold",
			Metric:    curr,
			Threshold: spec.Oversold,
			BarTS:     barTS,
		})
	}

	st.PrevSell, st.PrevBuy = curr, curr
	return nil
}

// evalComposite runs the composite-score specialization: the buy side
// tracks buy% against its threshold, the sell side sell% against its
// own. A config with a timeframe watches that single timeframe; without
// one it watches the full style-weighted composite.
func (e *Evaluator) evalComposite(ctx context.Context, cfg model.AlertConfig, symbol string) error {
	spec := cfg.Composite

	var buyPct, sellPct float64
	var barTS time.Time
	if cfg.Timeframe != "" {
		ts, err := e.scorer.ScoreTimeframe(ctx, symbol, cfg.Timeframe)
		if err != nil {
			return err
		}
		buyPct, sellPct, barTS = ts.BuyPercent, ts.SellPercent, ts.BarTS
	} else {
		score, err := e.scorer.Score(ctx, symbol, spec.Style)
		if err != nil {
			return err
		}
		buyPct, sellPct = score.BuyPercent, score.SellPercent
		for _, tfs := range score.Timeframes {
			if tfs.BarTS.After(barTS) {
				barTS = tfs.BarTS
			}
		}
	}

	st := e.unit(stateKey{cfg.ID, symbol, cfg.Timeframe})
	if st.LastBarTS.Equal(barTS) {
		return errSkipSameBar
	}
	st.LastBarTS = barTS

	if !st.Init {
		st.Init = true
		st.Buy.Armed = buyPct < spec.BuyThreshold
		st.Sell.Armed = sellPct < spec.SellThreshold
		st.PrevBuy, st.PrevSell = buyPct, sellPct
		return nil
	}

	cooldown := e.cooldownFor(cfg)

	if crossUp(&st.Buy, st.PrevBuy, buyPct, spec.BuyThreshold, e.margin) {
		e.fireSide(&st.Buy, cooldown, model.TriggerEvent{
			AlertID:   cfg.ID,
			UserID:    cfg.UserID,
			Kind:      cfg.Kind,
			Symbol:    symbol,
			Timeframe: cfg.Timeframe,
			Side:      model.SideBuy,
			Condition: "composite_buy",
			Metric:    buyPct,
			Threshold: spec.BuyThreshold,
			BarTS:     barTS,
		})
	}
	if crossUp(&st.Sell, st.PrevSell, sellPct, spec.SellThreshold, e.margin) {
		e.fireSide(&st.Sell, cooldown, model.TriggerEvent{
			AlertID:   cfg.ID,
			UserID:    cfg.UserID,
			Kind:      cfg.Kind,
			Symbol:    symbol,
			Timeframe: cfg.Timeframe,
			Side:      model.SideSell,
			Condition: "composite_sell",
			Metric:    sellPct,
			Threshold: spec.SellThreshold,
			BarTS:     barTS,
		})
	}

	st.PrevBuy, st.PrevSell = buyPct, sellPct
	return nil
}

// fireSide applies the wall-clock cooldown and emits. A crossing inside
// the cooldown window is consumed silently: the side has already
// disarmed, so hysteresis behaves identically either way.
func (e *Evaluator) fireSide(side *sideState, cooldown time.Duration, ev model.TriggerEvent) {
	if !e.allowFire(side, cooldown) {
		e.skip("cooldown")
		return
	}
	side.LastTriggerAt = e.now()
	e.emit(ev)
}
