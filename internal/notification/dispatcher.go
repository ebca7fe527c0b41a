package notification

import (
	"context"
	"log"
	"time"

	"market-alert-engine/internal/metrics"
	"market-alert-engine/internal/model"
)

// DefaultQueueSize is the dispatcher's buffered queue depth.
const DefaultQueueSize = 256

// sendTimeout bounds one backend delivery attempt.
const sendTimeout = 10 * time.Second

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, ev model.TriggerEvent) error

func (f NotifierFunc) Send(ctx context.Context, ev model.TriggerEvent) error { return f(ctx, ev) }

// Dispatcher decouples trigger emission from delivery: Enqueue never
// blocks the evaluator, a single worker fans each event out to every
// backend. Failed deliveries are logged and counted, never retried; a
// full queue drops the event.
type Dispatcher struct {
	queue     chan model.TriggerEvent
	notifiers []Notifier
	prom      *metrics.Metrics
}

// NewDispatcher creates a dispatcher with the given queue depth
// (DefaultQueueSize when <= 0).
func NewDispatcher(queueSize int, prom *metrics.Metrics, notifiers ...Notifier) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		queue:     make(chan model.TriggerEvent, queueSize),
		notifiers: notifiers,
		prom:      prom,
	}
}

// Enqueue hands an event to the worker. It never blocks; when the queue
// is full the event is dropped and Enqueue reports false.
func (d *Dispatcher) Enqueue(ev model.TriggerEvent) bool {
	select {
	case d.queue <- ev:
		if d.prom != nil {
			d.prom.DispatchQueue.Set(float64(len(d.queue)))
		}
		return true
	default:
		if d.prom != nil {
			d.prom.DispatchDrops.Inc()
		}
		return false
	}
}

// Run delivers queued events until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Printf("[dispatch] worker started, %d backend(s)", len(d.notifiers))
	for {
		select {
		case <-ctx.Done():
			log.Printf("[dispatch] worker stopped, %d event(s) left in queue", len(d.queue))
			return
		case ev := <-d.queue:
			if d.prom != nil {
				d.prom.DispatchQueue.Set(float64(len(d.queue)))
			}
			d.deliver(ctx, ev)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev model.TriggerEvent) {
	for _, n := range d.notifiers {
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		if err := n.Send(sendCtx, ev); err != nil {
			log.Printf("[dispatch] delivery failed for %s: %v", ev.Title(), err)
			if d.prom != nil {
				d.prom.DispatchFails.Inc()
			}
		}
		cancel()
	}
}

// Pending reports the number of queued, undelivered events.
func (d *Dispatcher) Pending() int { return len(d.queue) }
