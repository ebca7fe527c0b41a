package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"market-alert-engine/internal/model"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.TriggerEvent
	err  error
}

func (r *recordingNotifier) Send(ctx context.Context, ev model.TriggerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, ev)
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestDispatcher_EnqueueDropsWhenFull(t *testing.T) {
	d := NewDispatcher(2, nil)

	ev := model.TriggerEvent{AlertID: "a1"}
	if !d.Enqueue(ev) || !d.Enqueue(ev) {
		t.Fatal("queue of 2 must accept 2 events")
	}
	if d.Enqueue(ev) {
		t.Fatal("full queue must drop, not block")
	}
	if d.Pending() != 2 {
		t.Fatalf("expected 2 pending, got %d", d.Pending())
	}
}

func TestDispatcher_FansOutToAllBackends(t *testing.T) {
	a := &recordingNotifier{}
	b := &recordingNotifier{err: errors.New("boom")}
	d := NewDispatcher(8, nil, a, b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	d.Enqueue(model.TriggerEvent{AlertID: "a1", Condition: "overbought"})
	d.Enqueue(model.TriggerEvent{AlertID: "a2", Condition: "oversold"})

	deadline := time.After(2 * time.Second)
	for a.count() < 2 || b.count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("delivery timed out: a=%d b=%d", a.count(), b.count())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done

	// A failing backend must not stop delivery to the others.
	if a.count() != 2 || b.count() != 2 {
		t.Fatalf("expected 2 deliveries each, got a=%d b=%d", a.count(), b.count())
	}
}
