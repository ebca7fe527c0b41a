// Package alert implements the generic alert-evaluation state machine and
// its per-kind specializations. Every tracked unit — one (alert, symbol,
// timeframe) combination, with a buy and a sell side where applicable —
// moves through Uninitialized -> Armed <-> Disarmed. The first observation
// only records a baseline and never fires; afterwards a side fires exactly
// once per closed bar when its metric crosses the threshold while armed,
// then stays disarmed until the metric retreats past the hysteresis
// margin. Evaluations of the same unit are serialized by the keyed lock;
// unrelated units run concurrently.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"market-alert-engine/internal/composite"
	"market-alert-engine/internal/keyedlock"
	"market-alert-engine/internal/logger"
	"market-alert-engine/internal/marketdata"
	"market-alert-engine/internal/metrics"
	"market-alert-engine/internal/model"
	"market-alert-engine/internal/snapcache"
	"market-alert-engine/internal/strength"
)

// Defaults for the trigger state machine.
const (
	DefaultRearmMargin = 5.0 // points on the 0-100 metric scale
	DefaultCooldown    = 30 * time.Minute
)

// TriggerSink consumes emitted trigger events. Enqueue must never block;
// it reports false when the event was dropped.
type TriggerSink interface {
	Enqueue(ev model.TriggerEvent) bool
}

// stateKey identifies one tracked unit.
type stateKey struct {
	AlertID   string
	Symbol    string
	Timeframe model.Timeframe
}

// sideState is one direction of a unit's hysteresis machine.
type sideState struct {
	Armed         bool
	LastTriggerAt time.Time
}

// unitState is the mutable state of one tracked unit. Created lazily on
// first observation; mutated only while the unit's keyed lock is held.
type unitState struct {
	Init      bool
	LastBarTS time.Time

	Buy  sideState
	Sell sideState

	// Previous closed-bar metric per side, recorded every evaluated bar.
	PrevBuy  float64
	PrevSell float64

	// Kind-specific baselines.
	LastSignal   model.Signal // indicator-flip
	LastLeader   string       // leader-change
	LastLaggard  string
	LastMismatch bool // pair-mismatch
	PairBarTSB   time.Time
}

// Evaluator runs alert configs against market state and emits triggers.
type Evaluator struct {
	provider marketdata.Provider
	scorer   *composite.Scorer
	strength *snapcache.Cache[strength.Snapshot]
	locks    *keyedlock.Registry
	sink     TriggerSink
	prom     *metrics.Metrics

	margin   float64
	cooldown time.Duration
	barCount int
	now      func() time.Time

	mu    sync.Mutex
	state map[stateKey]*unitState
}

// Options tunes an Evaluator; zero values select defaults.
type Options struct {
	RearmMargin float64
	Cooldown    time.Duration
	BarCount    int
	Metrics     *metrics.Metrics
}

// New creates an evaluator. scorer and strengthCache may be nil when no
// config of the corresponding kinds will be evaluated.
func New(p marketdata.Provider, scorer *composite.Scorer, strengthCache *snapcache.Cache[strength.Snapshot],
	locks *keyedlock.Registry, sink TriggerSink, opts Options) *Evaluator {
	if opts.RearmMargin == 0 {
		opts.RearmMargin = DefaultRearmMargin
	}
	if opts.Cooldown == 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.BarCount <= 0 {
		opts.BarCount = snapcache.DefaultCapacity
	}
	return &Evaluator{
		provider: p,
		scorer:   scorer,
		strength: strengthCache,
		locks:    locks,
		sink:     sink,
		prom:     opts.Metrics,
		margin:   opts.RearmMargin,
		cooldown: opts.Cooldown,
		barCount: opts.BarCount,
		now:      time.Now,
		state:    make(map[stateKey]*unitState, 256),
	}
}

// SetNow overrides the clock; tests only.
func (e *Evaluator) SetNow(now func() time.Time) { e.now = now }

// EvaluateAll runs one pass over the config snapshot. Per-unit failures
// are isolated: they are logged and counted, and the pass continues.
func (e *Evaluator) EvaluateAll(ctx context.Context, configs []model.AlertConfig) {
	start := e.now()
	for _, cfg := range configs {
		if ctx.Err() != nil {
			return
		}
		if !cfg.Enabled {
			continue
		}
		if err := cfg.Validate(); err != nil {
			log.Printf("[alert] skipping invalid config: %v", err)
			e.skip("invalid_config")
			continue
		}

		switch cfg.Kind {
		case model.KindLeaderChange:
			e.runUnit(ctx, cfg, "")
		case model.KindPairMismatch:
			e.runUnit(ctx, cfg, cfg.Mismatch.SymbolA)
		default:
			for _, symbol := range cfg.Symbols {
				if ctx.Err() != nil {
					return
				}
				e.runUnit(ctx, cfg, symbol)
			}
		}
	}
	if e.prom != nil {
		e.prom.EvaluationsTotal.Inc()
		e.prom.EvalDuration.Observe(e.now().Sub(start).Seconds())
		e.mu.Lock()
		e.prom.StateUnits.Set(float64(len(e.state)))
		e.mu.Unlock()
	}
}

// runUnit evaluates one unit under its keyed lock, converting panics in
// indicator math into isolated per-unit errors. Each run carries a trace
// ID so provider and store logs correlate back to the unit pass.
func (e *Evaluator) runUnit(ctx context.Context, cfg model.AlertConfig, symbol string) {
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID(cfg.ID, e.now()))

	release := e.acquireUnit(cfg, symbol)
	defer release()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("computation panic: %v", r)
			}
		}()
		return e.evaluateUnit(ctx, cfg, symbol)
	}()

	switch {
	case err == nil:
	case skippable(err):
		e.skip(skipReason(err))
	default:
		log.Printf("[alert] unit %s/%s/%s: %v (trace %s)", cfg.ID, symbol, cfg.Timeframe, err, logger.TraceID(ctx))
		if e.prom != nil {
			e.prom.UnitErrors.Inc()
		}
	}
}

// acquireUnit locks the unit key; pair-mismatch units hold both symbols'
// keys, taken in deterministic order.
func (e *Evaluator) acquireUnit(cfg model.AlertConfig, symbol string) func() {
	if cfg.Kind == model.KindPairMismatch {
		return e.locks.AcquireTwo(
			unitKey(cfg.ID, cfg.Mismatch.SymbolA, cfg.Timeframe),
			unitKey(cfg.ID, cfg.Mismatch.SymbolB, cfg.Timeframe),
		)
	}
	return e.locks.Acquire(unitKey(cfg.ID, symbol, cfg.Timeframe))
}

func unitKey(alertID, symbol string, tf model.Timeframe) string {
	return keyedlock.NSAlert + alertID + ":" + symbol + ":" + string(tf)
}

// evaluateUnit dispatches to the kind-specific specialization.
func (e *Evaluator) evaluateUnit(ctx context.Context, cfg model.AlertConfig, symbol string) error {
	switch cfg.Kind {
	case model.KindCompositeThreshold, model.KindIndicatorFlip, model.KindPairMismatch:
		if e.scorer == nil {
			return fmt.Errorf("kind %s needs a scorer", cfg.Kind)
		}
	}
	switch cfg.Kind {
	case model.KindRSIThreshold:
		return e.evalRSI(ctx, cfg, symbol)
	case model.KindCompositeThreshold:
		return e.evalComposite(ctx, cfg, symbol)
	case model.KindIndicatorFlip:
		return e.evalFlip(ctx, cfg, symbol)
	case model.KindLeaderChange:
		return e.evalLeader(ctx, cfg)
	case model.KindPairMismatch:
		return e.evalMismatch(ctx, cfg)
	}
	return fmt.Errorf("unknown kind %q", cfg.Kind)
}

// unit returns (creating if needed) the state for a key. Only the map
// access is guarded here; the caller holds the unit's keyed lock for all
// field mutation.
func (e *Evaluator) unit(key stateKey) *unitState {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.state[key]
	if !ok {
		st = &unitState{}
		e.state[key] = st
	}
	return st
}

// Sync evicts state for alerts that no longer exist in the config
// snapshot, so state growth tracks the live alert population.
func (e *Evaluator) Sync(activeIDs map[string]bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key := range e.state {
		if !activeIDs[key.AlertID] {
			delete(e.state, key)
		}
	}
}

// Units reports the number of tracked state units.
func (e *Evaluator) Units() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.state)
}

// emit assigns the event ID and hands the trigger to the sink.
func (e *Evaluator) emit(ev model.TriggerEvent) {
	ev.ID = uuid.NewString()
	ev.FiredAt = e.now()
	if !e.sink.Enqueue(ev) {
		log.Printf("[alert] trigger dropped (queue full): %s", ev.Title())
	}
	if e.prom != nil {
		e.prom.TriggersTotal.WithLabelValues(string(ev.Kind)).Inc()
	}
}

// cooldownFor returns the effective cooldown for a config: disabled kinds
// pass 0 minutes explicitly.
func (e *Evaluator) cooldownFor(cfg model.AlertConfig) time.Duration {
	if cfg.CooldownMin < 0 {
		return 0
	}
	if cfg.CooldownMin == 0 {
		return e.cooldown
	}
	return time.Duration(cfg.CooldownMin) * time.Minute
}

// allowFire applies the wall-clock cooldown for one side.
func (e *Evaluator) allowFire(side *sideState, cooldown time.Duration) bool {
	if cooldown <= 0 || side.LastTriggerAt.IsZero() {
		return true
	}
	return e.now().Sub(side.LastTriggerAt) >= cooldown
}

// crossUp fires when an armed side's metric crosses from below to
// at-or-above the threshold. On a fire the side disarms; a disarmed side
// re-arms once the metric retreats to threshold-margin or below.
func crossUp(side *sideState, prev, curr, threshold, margin float64) bool {
	if side.Armed {
		if prev < threshold && curr >= threshold {
			side.Armed = false
			return true
		}
		return false
	}
	if curr <= threshold-margin {
		side.Armed = true
	}
	return false
}

// crossDown mirrors crossUp for metrics entering a zone from above.
func crossDown(side *sideState, prev, curr, threshold, margin float64) bool {
	if side.Armed {
		if prev > threshold && curr <= threshold {
			side.Armed = false
			return true
		}
		return false
	}
	if curr >= threshold+margin {
		side.Armed = true
	}
	return false
}

// skip counts a skipped unit by reason.
func (e *Evaluator) skip(reason string) {
	if e.prom != nil {
		e.prom.UnitsSkipped.WithLabelValues(reason).Inc()
	}
}

// errSkipSameBar short-circuits a unit whose newest closed bar was
// already evaluated.
var errSkipSameBar = errors.New("alert: bar already evaluated")

func skippable(err error) bool {
	return errors.Is(err, errSkipSameBar) ||
		errors.Is(err, marketdata.ErrNoData) ||
		errors.Is(err, marketdata.ErrStale) ||
		errors.Is(err, composite.ErrNotReady)
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, errSkipSameBar):
		return "same_bar"
	case errors.Is(err, marketdata.ErrStale):
		return "stale"
	case errors.Is(err, composite.ErrNotReady):
		return "warmup"
	default:
		return "no_data"
	}
}
