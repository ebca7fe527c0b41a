package model

import "fmt"

// AlertKind tags the variant of an AlertConfig.
type AlertKind string

const (
	KindRSIThreshold       AlertKind = "rsi_threshold"
	KindCompositeThreshold AlertKind = "composite_threshold"
	KindIndicatorFlip      AlertKind = "indicator_flip"
	KindLeaderChange       AlertKind = "leader_change"
	KindPairMismatch       AlertKind = "pair_mismatch"
)

// MismatchPolicy selects how the pair-mismatch kind decides a mismatch.
// The two policies are intentionally independent; neither is canonical.
type MismatchPolicy string

const (
	// PolicyDivergenceAbs flags a mismatch when the absolute gap between
	// the two symbols' composite scores reaches the configured threshold.
	PolicyDivergenceAbs MismatchPolicy = "divergence_abs"

	// PolicyCorrelationSign classifies the pair by correlation sign from a
	// static table: positively correlated pairs mismatch when their score
	// signs disagree, negatively correlated pairs when they agree.
	PolicyCorrelationSign MismatchPolicy = "correlation_sign"
)

// RSIThresholdSpec configures a raw-RSI threshold alert.
type RSIThresholdSpec struct {
	Period     int     `json:"period"`
	Overbought float64 `json:"overbought"`
	Oversold   float64 `json:"oversold"`
}

// CompositeThresholdSpec configures a composite-score threshold alert.
// BuyThreshold is tested against buy%, SellThreshold against sell%.
type CompositeThresholdSpec struct {
	Style         TradingStyle `json:"style"`
	BuyThreshold  float64      `json:"buy_threshold"`
	SellThreshold float64      `json:"sell_threshold"`
}

// IndicatorFlipSpec configures a single-indicator flip alert. Indicator
// names one of the seven composite cells: "ema21", "ema50", "ema200",
// "macd", "rsi", "trail_stop", "cloud". Flip alerts re-arm instantly:
// any signal change after baseline fires.
type IndicatorFlipSpec struct {
	Indicator string `json:"indicator"`
}

// LeaderChangeSpec configures a ranked-set leader/laggard change alert
// over the currency-strength snapshot. The snapshot window is a board
// setting, so the variant carries no fields of its own.
type LeaderChangeSpec struct{}

// PairMismatchSpec configures a correlated-pair mismatch alert between
// SymbolA and SymbolB.
type PairMismatchSpec struct {
	SymbolA   string         `json:"symbol_a"`
	SymbolB   string         `json:"symbol_b"`
	Policy    MismatchPolicy `json:"policy"`
	Threshold float64        `json:"threshold"` // divergence_abs only
}

// AlertConfig is a tagged union over alert kinds: exactly the variant
// pointer matching Kind is non-nil. Configs are read-only snapshots; the
// evaluator never mutates them.
type AlertConfig struct {
	ID          string
	UserID      string
	Kind        AlertKind
	Enabled     bool
	Symbols     []string
	Timeframe   Timeframe
	CooldownMin int // 0 = no cooldown

	RSI       *RSIThresholdSpec
	Composite *CompositeThresholdSpec
	Flip      *IndicatorFlipSpec
	Leader    *LeaderChangeSpec
	Mismatch  *PairMismatchSpec
}

// Validate checks that the variant pointer matches Kind and that the
// kind-specific fields are usable.
func (c *AlertConfig) Validate() error {
	switch c.Kind {
	case KindRSIThreshold:
		if c.RSI == nil {
			return fmt.Errorf("alert %s: kind %s without rsi spec", c.ID, c.Kind)
		}
		if c.RSI.Period <= 1 {
			return fmt.Errorf("alert %s: rsi period %d", c.ID, c.RSI.Period)
		}
	case KindCompositeThreshold:
		if c.Composite == nil {
			return fmt.Errorf("alert %s: kind %s without composite spec", c.ID, c.Kind)
		}
		if !c.Composite.Style.Valid() {
			return fmt.Errorf("alert %s: unknown style %q", c.ID, c.Composite.Style)
		}
	case KindIndicatorFlip:
		if c.Flip == nil {
			return fmt.Errorf("alert %s: kind %s without flip spec", c.ID, c.Kind)
		}
	case KindLeaderChange:
		if c.Leader == nil {
			return fmt.Errorf("alert %s: kind %s without leader spec", c.ID, c.Kind)
		}
	case KindPairMismatch:
		if c.Mismatch == nil {
			return fmt.Errorf("alert %s: kind %s without mismatch spec", c.ID, c.Kind)
		}
		if c.Mismatch.SymbolA == "" || c.Mismatch.SymbolB == "" {
			return fmt.Errorf("alert %s: mismatch pair incomplete", c.ID)
		}
	default:
		return fmt.Errorf("alert %s: unknown kind %q", c.ID, c.Kind)
	}
	if c.Kind != KindPairMismatch && c.Kind != KindLeaderChange && len(c.Symbols) == 0 {
		return fmt.Errorf("alert %s: no symbols", c.ID)
	}
	if c.Timeframe != "" && !c.Timeframe.Valid() {
		return fmt.Errorf("alert %s: unknown timeframe %q", c.ID, c.Timeframe)
	}
	switch c.Kind {
	case KindRSIThreshold, KindIndicatorFlip, KindPairMismatch:
		if c.Timeframe == "" {
			return fmt.Errorf("alert %s: kind %s needs a timeframe", c.ID, c.Kind)
		}
	}
	return nil
}
