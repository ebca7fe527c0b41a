// Package notification delivers trigger events to external channels
// (Telegram, webhooks) through a buffered dispatcher that keeps delivery
// latency out of the evaluation path.
package notification

import (
	"context"
	"log"

	"market-alert-engine/internal/model"
)

// Notifier is the interface for all delivery backends.
type Notifier interface {
	// Send delivers one trigger event. Returns error if delivery fails.
	Send(ctx context.Context, ev model.TriggerEvent) error
}

// LogNotifier logs events instead of delivering them (useful for
// development and dry runs).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, ev model.TriggerEvent) error {
	log.Printf("[notify] [%s] %s: %s", ev.Kind, ev.Title(), ev.Message())
	return nil
}
