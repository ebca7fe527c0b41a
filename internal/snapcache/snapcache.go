// Package snapcache provides fixed-capacity, timestamp-ordered snapshot
// caches keyed by arbitrary strings (symbol:timeframe:indicator:params).
// Each key holds a bounded FIFO window of recent values; the oldest entry
// is evicted on overflow. Every read and mutation runs under the keyed
// lock for that entry's key, so concurrent evaluators touching the same
// key are strictly serialized while unrelated keys proceed in parallel.
package snapcache

import (
	"sync"
	"time"

	"market-alert-engine/internal/keyedlock"
)

// DefaultCapacity is the per-key window size used when 0 is passed to New.
const DefaultCapacity = 300

// Entry is one timestamped value inside a cache window.
type Entry[T any] struct {
	TS    time.Time
	Value T
}

// ring is a bounded window over Entry values. start..start+count-1
// (mod len(buf)) are live, oldest first. Access is guarded by the
// cache's keyed lock, never by the ring itself.
type ring[T any] struct {
	buf   []Entry[T]
	start int
	count int
}

func (r *ring[T]) at(i int) Entry[T] {
	return r.buf[(r.start+i)%len(r.buf)]
}

func (r *ring[T]) push(e Entry[T]) {
	if r.count == len(r.buf) {
		// Full: overwrite the oldest slot.
		r.buf[r.start] = e
		r.start = (r.start + 1) % len(r.buf)
		return
	}
	r.buf[(r.start+r.count)%len(r.buf)] = e
	r.count++
}

// Cache is a keyed collection of bounded snapshot windows.
type Cache[T any] struct {
	capacity int
	locks    *keyedlock.Registry

	mu    sync.Mutex // guards rings map creation only
	rings map[string]*ring[T]
}

// New creates a cache whose per-key windows hold capacity entries
// (DefaultCapacity if capacity <= 0). locks is the process-wide keyed
// lock registry shared with other cache users.
func New[T any](capacity int, locks *keyedlock.Registry) *Cache[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache[T]{
		capacity: capacity,
		locks:    locks,
		rings:    make(map[string]*ring[T], 128),
	}
}

// ringFor returns the ring for key, creating it under the short map lock.
func (c *Cache[T]) ringFor(key string) *ring[T] {
	c.mu.Lock()
	r, ok := c.rings[key]
	if !ok {
		r = &ring[T]{buf: make([]Entry[T], c.capacity)}
		c.rings[key] = r
	}
	c.mu.Unlock()
	return r
}

// Update appends (ts, v) to the key's window, evicting the oldest entry
// at capacity. A ts equal to the newest entry overwrites it in place
// (open-bar revision); a ts older than the newest is dropped so the
// window stays strictly time-ordered.
func (c *Cache[T]) Update(key string, ts time.Time, v T) {
	release := c.locks.Acquire(key)
	defer release()

	r := c.ringFor(key)
	if r.count > 0 {
		last := r.at(r.count - 1)
		if ts.Before(last.TS) {
			return
		}
		if ts.Equal(last.TS) {
			r.buf[(r.start+r.count-1)%len(r.buf)] = Entry[T]{TS: ts, Value: v}
			return
		}
	}
	r.push(Entry[T]{TS: ts, Value: v})
}

// Latest returns the newest entry for key, if any.
func (c *Cache[T]) Latest(key string) (Entry[T], bool) {
	release := c.locks.Acquire(key)
	defer release()

	r := c.ringFor(key)
	if r.count == 0 {
		return Entry[T]{}, false
	}
	return r.at(r.count - 1), true
}

// Recent returns the last n entries oldest to newest, or nil if the key
// holds fewer than n. Insufficient history means not-ready, not an error.
func (c *Cache[T]) Recent(key string, n int) []Entry[T] {
	if n <= 0 {
		return nil
	}
	release := c.locks.Acquire(key)
	defer release()

	r := c.ringFor(key)
	if r.count < n {
		return nil
	}
	out := make([]Entry[T], n)
	for i := 0; i < n; i++ {
		out[i] = r.at(r.count - n + i)
	}
	return out
}

// Len returns the number of entries currently held for key.
func (c *Cache[T]) Len(key string) int {
	release := c.locks.Acquire(key)
	defer release()
	return c.ringFor(key).count
}

// Keys returns the number of distinct keys seen. Exposed for metrics.
func (c *Cache[T]) Keys() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rings)
}
