package notification

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"market-alert-engine/internal/model"
)

// WebhookNotifier POSTs the JSON-encoded trigger event to a generic
// HTTP endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier.
// url: The HTTP endpoint to POST trigger events to.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (w *WebhookNotifier) Send(ctx context.Context, ev model.TriggerEvent) error {
	req, err := http.NewRequestWithContext(ctx, "POST", w.url, bytes.NewReader(ev.JSON()))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}

	log.Printf("[webhook] sent trigger to %s: %s", w.url, ev.Title())
	return nil
}
