package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// TriggerEvent is emitted exactly once per closed bar when an alert's
// condition transitions into the triggered state.
type TriggerEvent struct {
	ID        string    `json:"id"` // uuid, assigned by the evaluator
	AlertID   string    `json:"alert_id"`
	UserID    string    `json:"user_id"`
	Kind      AlertKind `json:"kind"`
	Symbol    string    `json:"symbol"`
	Timeframe Timeframe `json:"timeframe"`
	Side      Side      `json:"side,omitempty"`
	Condition string    `json:"condition"` // e.g. "overbought", "leader_changed"
	Metric    float64   `json:"metric"`
	Threshold float64   `json:"threshold,omitempty"`
	BarTS     time.Time `json:"bar_ts"`
	FiredAt   time.Time `json:"fired_at"`
}

// Title renders a short human-readable headline for notifications.
func (e *TriggerEvent) Title() string {
	return fmt.Sprintf("%s %s %s", e.Symbol, e.Timeframe, e.Condition)
}

// Message renders the notification body.
func (e *TriggerEvent) Message() string {
	if e.Threshold != 0 {
		return fmt.Sprintf("%s @ %s: %s (%.2f vs %.2f) on bar %s",
			e.Symbol, e.Timeframe, e.Condition, e.Metric, e.Threshold,
			e.BarTS.UTC().Format(time.RFC3339))
	}
	return fmt.Sprintf("%s @ %s: %s (%.2f) on bar %s",
		e.Symbol, e.Timeframe, e.Condition, e.Metric,
		e.BarTS.UTC().Format(time.RFC3339))
}

// JSON returns the JSON-encoded event.
func (e *TriggerEvent) JSON() []byte {
	data, _ := json.Marshal(e)
	return data
}
