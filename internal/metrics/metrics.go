// Package metrics exposes Prometheus metrics for the alert engine.
package metrics

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the alert engine.
type Metrics struct {
	EvaluationsTotal prometheus.Counter
	EvalDuration     prometheus.Histogram
	TriggersTotal    *prometheus.CounterVec // labels: kind
	UnitsSkipped     *prometheus.CounterVec // labels: reason
	UnitErrors       prometheus.Counter

	StateUnits    prometheus.Gauge
	CacheKeys     prometheus.Gauge
	LockKeys      prometheus.Gauge
	DispatchQueue prometheus.Gauge
	DispatchDrops prometheus.Counter
	DispatchFails prometheus.Counter

	ConfigRefreshes   prometheus.Counter
	ActiveAlerts      prometheus.Gauge
	StrengthRefreshes prometheus.Counter
}

// New registers and returns all metrics.
func New() *Metrics {
	m := &Metrics{
		EvaluationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_evaluations_total",
			Help: "Alert evaluation passes completed",
		}),
		EvalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "alertengine_evaluation_duration_seconds",
			Help:    "Duration of one full evaluation pass",
			Buckets: prometheus.DefBuckets,
		}),
		TriggersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertengine_triggers_total",
			Help: "Trigger events emitted (by alert kind)",
		}, []string{"kind"}),
		UnitsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertengine_units_skipped_total",
			Help: "Evaluation units skipped (by reason)",
		}, []string{"reason"}),
		UnitErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_unit_errors_total",
			Help: "Per-unit computation errors (isolated, batch continued)",
		}),

		StateUnits: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alertengine_state_units",
			Help: "Tracked alert state machine units",
		}),
		CacheKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alertengine_cache_keys",
			Help: "Distinct snapshot cache keys",
		}),
		LockKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alertengine_lock_keys",
			Help: "Distinct keyed locks ever created",
		}),
		DispatchQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alertengine_dispatch_queue_depth",
			Help: "Outbound notification queue depth",
		}),
		DispatchDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_dispatch_drops_total",
			Help: "Trigger events dropped due to full outbound queue",
		}),
		DispatchFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_dispatch_failures_total",
			Help: "Notification deliveries that failed (never retried)",
		}),

		ConfigRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_config_refreshes_total",
			Help: "Alert-config snapshot refreshes",
		}),
		ActiveAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alertengine_active_alerts",
			Help: "Enabled alerts in the current config snapshot",
		}),
		StrengthRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_strength_refreshes_total",
			Help: "Currency-strength snapshot computations",
		}),
	}

	prometheus.MustRegister(
		m.EvaluationsTotal,
		m.EvalDuration,
		m.TriggersTotal,
		m.UnitsSkipped,
		m.UnitErrors,
		m.StateUnits,
		m.CacheKeys,
		m.LockKeys,
		m.DispatchQueue,
		m.DispatchDrops,
		m.DispatchFails,
		m.ConfigRefreshes,
		m.ActiveAlerts,
		m.StrengthRefreshes,
	)
	return m
}

// Serve starts the /metrics endpoint and blocks until ctx is cancelled.
func Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[metrics] serving on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("[metrics] server error: %v", err)
	}
}
