package alert

import (
	"context"
	"math"
	"time"

	"market-alert-engine/internal/model"
)

// DefaultDivergence is the composite-score gap that flags a mismatch
// when the config leaves the threshold unset.
const DefaultDivergence = 50.0

// evalMismatch runs the correlated-pair specialization: both symbols are
// scored on the shared timeframe and the configured policy decides
// whether the pair is currently mismatched. The unit fires on the
// not-mismatched to mismatched transition only.
func (e *Evaluator) evalMismatch(ctx context.Context, cfg model.AlertConfig) error {
	spec := cfg.Mismatch
	a, err := e.scorer.ScoreTimeframe(ctx, spec.SymbolA, cfg.Timeframe)
	if err != nil {
		return err
	}
	b, err := e.scorer.ScoreTimeframe(ctx, spec.SymbolB, cfg.Timeframe)
	if err != nil {
		return err
	}

	st := e.unit(stateKey{cfg.ID, spec.SymbolA, cfg.Timeframe})
	if st.LastBarTS.Equal(a.BarTS) && st.PairBarTSB.Equal(b.BarTS) {
		return errSkipSameBar
	}
	st.LastBarTS, st.PairBarTSB = a.BarTS, b.BarTS

	gap := math.Abs(a.FinalScore - b.FinalScore)
	mismatch := pairMismatched(spec, a.FinalScore, b.FinalScore)

	if !st.Init {
		st.Init = true
		st.LastMismatch = mismatch
		return nil
	}
	fire := mismatch && !st.LastMismatch
	st.LastMismatch = mismatch
	if !fire {
		return nil
	}

	threshold := spec.Threshold
	if spec.Policy != model.PolicyDivergenceAbs {
		threshold = 0
	} else if threshold <= 0 {
		threshold = DefaultDivergence
	}
	e.fireSide(&st.Buy, e.cooldownFor(cfg), model.TriggerEvent{
		AlertID:   cfg.ID,
		UserID:    cfg.UserID,
		Kind:      cfg.Kind,
		Symbol:    spec.SymbolA + "/" + spec.SymbolB,
		Timeframe: cfg.Timeframe,
		Condition: "pair_mismatch_" + string(spec.Policy),
		Metric:    gap,
		Threshold: threshold,
		BarTS:     latestTS(a.BarTS, b.BarTS),
	})
	return nil
}

// pairMismatched applies the config's policy to the two composite
// scores.
func pairMismatched(spec *model.PairMismatchSpec, scoreA, scoreB float64) bool {
	switch spec.Policy {
	case model.PolicyCorrelationSign:
		corr := correlationSign(spec.SymbolA, spec.SymbolB)
		sa, sb := scoreSign(scoreA), scoreSign(scoreB)
		if sa == 0 || sb == 0 {
			return false
		}
		if corr > 0 {
			return sa != sb
		}
		return sa == sb
	default: // divergence_abs
		threshold := spec.Threshold
		if threshold <= 0 {
			threshold = DefaultDivergence
		}
		return math.Abs(scoreA-scoreB) >= threshold
	}
}

func scoreSign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// correlationSigns pins the sign for pairs whose relationship is not
// derivable from a shared currency.
var correlationSigns = map[[2]string]int{
	{"AUDUSD", "NZDUSD"}: 1,
	{"EURUSD", "GBPUSD"}: 1,
	{"EURJPY", "GBPJPY"}: 1,
	{"AUDJPY", "NZDJPY"}: 1,
	{"EURCHF", "GBPCHF"}: 1,
	{"AUDUSD", "USDCAD"}: -1,
	{"NZDUSD", "USDCAD"}: -1,
}

// correlationSign returns the assumed correlation sign between two
// six-letter pairs: the static table first, then shared-currency
// inference (same side positive, opposite sides negative). Pairs with no
// table entry and no shared currency default to positive.
func correlationSign(symA, symB string) int {
	if symA == symB {
		return 1
	}
	key := [2]string{symA, symB}
	if symB < symA {
		key = [2]string{symB, symA}
	}
	if sign, ok := correlationSigns[key]; ok {
		return sign
	}
	if len(symA) == 6 && len(symB) == 6 {
		baseA, quoteA := symA[:3], symA[3:]
		baseB, quoteB := symB[:3], symB[3:]
		switch {
		case baseA == baseB || quoteA == quoteB:
			return 1
		case baseA == quoteB || quoteA == baseB:
			return -1
		}
	}
	return 1
}

func latestTS(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
