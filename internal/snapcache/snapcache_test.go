package snapcache

import (
	"sync"
	"testing"
	"time"

	"market-alert-engine/internal/keyedlock"
)

func ts(i int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute)
}

func TestUpdate_EvictsOldestAtCapacity(t *testing.T) {
	const capacity = 10
	c := New[float64](capacity, keyedlock.New())

	// Insert capacity+5 entries; the first 5 must be unrecoverable.
	for i := 0; i < capacity+5; i++ {
		c.Update("ind:EURUSD:H1:rsi14", ts(i), float64(i))
	}

	got := c.Recent("ind:EURUSD:H1:rsi14", capacity)
	if got == nil {
		t.Fatal("expected full window")
	}
	for i, e := range got {
		want := float64(i + 5)
		if e.Value != want {
			t.Fatalf("entry %d: expected %v, got %v", i, want, e.Value)
		}
		if i > 0 && !got[i-1].TS.Before(e.TS) {
			t.Fatalf("entries not in ascending time order at %d", i)
		}
	}

	// Asking for more than capacity can never succeed.
	if c.Recent("ind:EURUSD:H1:rsi14", capacity+1) != nil {
		t.Fatal("recent beyond capacity should be nil")
	}
}

func TestRecent_InsufficientHistoryIsNil(t *testing.T) {
	c := New[int](5, keyedlock.New())
	c.Update("k", ts(0), 1)
	c.Update("k", ts(1), 2)

	if got := c.Recent("k", 3); got != nil {
		t.Fatalf("expected nil for insufficient history, got %v", got)
	}
	if got := c.Recent("k", 2); len(got) != 2 {
		t.Fatalf("expected 2 entries, got %v", got)
	}
}

func TestUpdate_SameTimestampRevisesInPlace(t *testing.T) {
	c := New[float64](5, keyedlock.New())
	c.Update("price:EURUSD", ts(0), 1.10)
	c.Update("price:EURUSD", ts(0), 1.11) // open-bar revision

	if got := c.Len("price:EURUSD"); got != 1 {
		t.Fatalf("expected 1 entry after revision, got %d", got)
	}
	e, ok := c.Latest("price:EURUSD")
	if !ok || e.Value != 1.11 {
		t.Fatalf("expected revised value 1.11, got %v ok=%v", e.Value, ok)
	}
}

func TestUpdate_OlderTimestampDropped(t *testing.T) {
	c := New[int](5, keyedlock.New())
	c.Update("k", ts(2), 20)
	c.Update("k", ts(1), 10) // stale, must be ignored

	if got := c.Len("k"); got != 1 {
		t.Fatalf("expected stale update dropped, len=%d", got)
	}
	e, _ := c.Latest("k")
	if e.Value != 20 {
		t.Fatalf("expected 20, got %v", e.Value)
	}
}

func TestLatest_EmptyKey(t *testing.T) {
	c := New[int](5, keyedlock.New())
	if _, ok := c.Latest("missing"); ok {
		t.Fatal("latest on empty key should report not found")
	}
}

func TestCache_ConcurrentKeys(t *testing.T) {
	c := New[int](50, keyedlock.New())
	keys := []string{"a", "b", "c", "d"}

	var wg sync.WaitGroup
	for _, k := range keys {
		k := k
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.Update(k, ts(i), i)
			}
		}()
	}
	wg.Wait()

	for _, k := range keys {
		got := c.Recent(k, 50)
		if got == nil {
			t.Fatalf("key %s: expected full window", k)
		}
		if got[49].Value != 199 {
			t.Fatalf("key %s: expected newest 199, got %d", k, got[49].Value)
		}
	}
	if c.Keys() != len(keys) {
		t.Fatalf("expected %d keys, got %d", len(keys), c.Keys())
	}
}
