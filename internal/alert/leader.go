package alert

import (
	"context"

	"market-alert-engine/internal/marketdata"
	"market-alert-engine/internal/model"
	"market-alert-engine/internal/strength"
)

// evalLeader runs the leader-change specialization over the cached
// currency-strength board. It fires when the strongest or weakest
// currency of the ranking differs from the recorded baseline. The board
// itself is refreshed elsewhere; a missing or unchanged snapshot is a
// skip, not a fault.
func (e *Evaluator) evalLeader(ctx context.Context, cfg model.AlertConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tf := cfg.Timeframe
	if tf == "" {
		tf = model.TFH1
	}
	if e.strength == nil {
		return marketdata.ErrNoData
	}
	entry, ok := e.strength.Latest(strength.SnapshotKey(tf))
	if !ok {
		return marketdata.ErrNoData
	}
	snap := entry.Value
	if len(snap.Ranking) == 0 {
		return marketdata.ErrNoData
	}

	st := e.unit(stateKey{cfg.ID, "", tf})
	if st.LastBarTS.Equal(snap.TS) {
		return errSkipSameBar
	}
	st.LastBarTS = snap.TS

	leader, laggard := snap.Leader(), snap.Laggard()
	if !st.Init {
		st.Init = true
		st.LastLeader, st.LastLaggard = leader, laggard
		return nil
	}

	cooldown := e.cooldownFor(cfg)
	if leader != st.LastLeader {
		st.LastLeader = leader
		e.fireSide(&st.Buy, cooldown, model.TriggerEvent{
			AlertID:   cfg.ID,
			UserID:    cfg.UserID,
			Kind:      cfg.Kind,
			Symbol:    leader,
			Timeframe: tf,
			Condition: "leader_changed",
			Metric:    snap.Scores[leader],
			BarTS:     snap.TS,
		})
	}
	if laggard != st.LastLaggard {
		st.LastLaggard = laggard
		e.fireSide(&st.Sell, cooldown, model.TriggerEvent{
			AlertID:   cfg.ID,
			UserID:    cfg.UserID,
			Kind:      cfg.Kind,
			Symbol:    laggard,
			Timeframe: tf,
			Condition: "laggard_changed",
			Metric:    snap.Scores[laggard],
			BarTS:     snap.TS,
		})
	}
	return nil
}
