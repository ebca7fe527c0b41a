// Package model defines the shared data types for the alert engine:
// bars, ticks, signals, alert configurations, and trigger events.
package model

import (
	"encoding/json"
	"time"
)

// Timeframe identifies a candle duration ("M1", "M5", "M15", "M30", "H1", "H4", "D1").
type Timeframe string

const (
	TFM1  Timeframe = "M1"
	TFM5  Timeframe = "M5"
	TFM15 Timeframe = "M15"
	TFM30 Timeframe = "M30"
	TFH1  Timeframe = "H1"
	TFH4  Timeframe = "H4"
	TFD1  Timeframe = "D1"
)

var tfDurations = map[Timeframe]time.Duration{
	TFM1:  time.Minute,
	TFM5:  5 * time.Minute,
	TFM15: 15 * time.Minute,
	TFM30: 30 * time.Minute,
	TFH1:  time.Hour,
	TFH4:  4 * time.Hour,
	TFD1:  24 * time.Hour,
}

// Duration returns the candle duration for the timeframe. Unknown
// timeframes return 0; callers must treat that as invalid.
func (tf Timeframe) Duration() time.Duration {
	return tfDurations[tf]
}

// Valid reports whether tf is one of the known timeframes.
func (tf Timeframe) Valid() bool {
	_, ok := tfDurations[tf]
	return ok
}

// Bar is one OHLC candle for a symbol and timeframe. A bar with
// Closed=false may be revised repeatedly at the same TS; once Closed
// it is immutable. The engine only reads bars, never mutates them.
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timeframe Timeframe `json:"timeframe"`
	TS        time.Time `json:"ts"` // bucket start time (UTC)
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Closed    bool      `json:"closed"`
}

// Key returns "symbol:timeframe".
func (b *Bar) Key() string {
	return b.Symbol + ":" + string(b.Timeframe)
}

// JSON returns the JSON-encoded bar (ignoring errors for hot-path usage).
func (b *Bar) JSON() []byte {
	data, _ := json.Marshal(b)
	return data
}

// Tick is the latest quote for a symbol.
type Tick struct {
	Symbol string    `json:"symbol"`
	Bid    float64   `json:"bid"`
	Ask    float64   `json:"ask"`
	TS     time.Time `json:"ts"`
}

// Mid returns the quote midpoint.
func (t *Tick) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

// ClosedBars filters bars down to fully-closed ones, preserving order.
// Indicator math must only ever see closed bars.
func ClosedBars(bars []Bar) []Bar {
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if b.Closed {
			out = append(out, b)
		}
	}
	return out
}

// Closes extracts the close series from bars, oldest to newest.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// HLC extracts aligned high, low and close series from bars.
func HLC(bars []Bar) (highs, lows, closes []float64) {
	highs = make([]float64, len(bars))
	lows = make([]float64, len(bars))
	closes = make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
	}
	return highs, lows, closes
}
