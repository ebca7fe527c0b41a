package model

// Signal is the direction an indicator cell or alert side points to.
type Signal string

const (
	SignalBuy     Signal = "BUY"
	SignalSell    Signal = "SELL"
	SignalNeutral Signal = "NEUTRAL"
)

// Side names one tracked direction of an alert's state machine.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// TradingStyle selects a timeframe weight profile for composite scoring.
type TradingStyle string

const (
	StyleScalper  TradingStyle = "scalper"
	StyleIntraday TradingStyle = "intraday"
	StyleSwing    TradingStyle = "swing"
	StylePosition TradingStyle = "position"
)

// Valid reports whether s is a known trading style.
func (s TradingStyle) Valid() bool {
	switch s {
	case StyleScalper, StyleIntraday, StyleSwing, StylePosition:
		return true
	}
	return false
}
