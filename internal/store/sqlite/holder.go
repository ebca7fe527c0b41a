package sqlite

import (
	"context"
	"log"
	"sync"
	"time"

	"market-alert-engine/internal/metrics"
	"market-alert-engine/internal/model"
)

// DefaultRefreshInterval is how often the holder re-reads the store.
const DefaultRefreshInterval = 5 * time.Minute

// Holder keeps an in-memory snapshot of the enabled alert configs and
// refreshes it on an interval. The evaluator reads the snapshot; it
// never touches the database directly.
type Holder struct {
	store    *Store
	interval time.Duration
	prom     *metrics.Metrics

	mu      sync.RWMutex
	configs []model.AlertConfig
}

// NewHolder creates a holder (DefaultRefreshInterval when interval <= 0).
// Call Refresh once before the first evaluation pass.
func NewHolder(store *Store, interval time.Duration, prom *metrics.Metrics) *Holder {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Holder{store: store, interval: interval, prom: prom}
}

// Refresh re-reads the store. A failed read keeps the previous snapshot.
func (h *Holder) Refresh(ctx context.Context) error {
	configs, err := h.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.configs = configs
	h.mu.Unlock()

	if h.prom != nil {
		h.prom.ConfigRefreshes.Inc()
		h.prom.ActiveAlerts.Set(float64(len(configs)))
	}
	return nil
}

// Run refreshes on the interval until ctx is cancelled.
func (h *Holder) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.Refresh(ctx); err != nil {
				log.Printf("[sqlite] config refresh failed, keeping previous snapshot: %v", err)
			}
		}
	}
}

// Snapshot returns the current configs. The slice is shared; callers
// must not mutate it.
func (h *Holder) Snapshot() []model.AlertConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.configs
}

// ActiveIDs returns the set of alert IDs in the current snapshot, for
// evaluator state eviction.
func (h *Holder) ActiveIDs() map[string]bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make(map[string]bool, len(h.configs))
	for _, cfg := range h.configs {
		ids[cfg.ID] = true
	}
	return ids
}
