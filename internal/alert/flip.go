package alert

import (
	"context"
	"fmt"
	"strings"

	"market-alert-engine/internal/composite"
	"market-alert-engine/internal/model"
)

// evalFlip runs the indicator-flip specialization: it fires whenever the
// tracked cell's signal changes from the recorded baseline. Flip units
// re-arm instantly, there is no hysteresis band to retreat through.
func (e *Evaluator) evalFlip(ctx context.Context, cfg model.AlertConfig, symbol string) error {
	if !ValidFlipIndicator(cfg.Flip.Indicator) {
		return fmt.Errorf("unknown indicator %q", cfg.Flip.Indicator)
	}
	ts, err := e.scorer.ScoreTimeframe(ctx, symbol, cfg.Timeframe)
	if err != nil {
		return err
	}
	cell := ts.Cell(cfg.Flip.Indicator)

	st := e.unit(stateKey{cfg.ID, symbol, cfg.Timeframe})
	if st.LastBarTS.Equal(ts.BarTS) {
		return errSkipSameBar
	}
	st.LastBarTS = ts.BarTS

	if !st.Init {
		st.Init = true
		st.LastSignal = cell.Signal
		return nil
	}
	if cell.Signal == st.LastSignal {
		return nil
	}
	prev := st.LastSignal
	st.LastSignal = cell.Signal

	cooldown := e.cooldownFor(cfg)
	if !e.allowFire(&st.Buy, cooldown) {
		e.skip("cooldown")
		return nil
	}
	st.Buy.LastTriggerAt = e.now()

	var side model.Side
	switch cell.Signal {
	case model.SignalBuy:
		side = model.SideBuy
	case model.SignalSell:
		side = model.SideSell
	}
	e.emit(model.TriggerEvent{
		AlertID:   cfg.ID,
		UserID:    cfg.UserID,
		Kind:      cfg.Kind,
		Symbol:    symbol,
		Timeframe: cfg.Timeframe,
		Side:      side,
		Condition: fmt.Sprintf("%s_flip_%s_to_%s", cell.Name,
			strings.ToLower(string(prev)), strings.ToLower(string(cell.Signal))),
		Metric: cell.Score,
		BarTS:  ts.BarTS,
	})
	return nil
}

// flipIndicators lists the cells an indicator-flip alert may track.
var flipIndicators = map[string]bool{
	composite.CellEMA21:  true,
	composite.CellEMA50:  true,
	composite.CellEMA200: true,
	composite.CellMACD:   true,
	composite.CellRSI:    true,
	composite.CellTrail:  true,
	composite.CellCloud:  true,
}

// ValidFlipIndicator reports whether name is a trackable indicator cell.
func ValidFlipIndicator(name string) bool { return flipIndicators[name] }
