// Package keyedlock provides a registry of lazily-created mutexes, one per
// string key. Acquiring different keys never blocks; acquiring the same key
// is strictly serialized. The registry map itself is only touched under a
// short global lock, so unrelated critical sections never contend on it.
package keyedlock

import "sync"

// Namespace prefixes keep unrelated subsystems off the same logical key.
const (
	NSIndicator = "ind:"
	NSPrice     = "price:"
	NSStrength  = "curstr:"
	NSAlert     = "alert:"
)

// Registry hands out per-key mutexes. The zero value is not usable; use New.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an empty lock registry.
func New() *Registry {
	return &Registry{locks: make(map[string]*sync.Mutex, 256)}
}

// lockFor returns the mutex for key, creating it under the registry lock.
func (r *Registry) lockFor(key string) *sync.Mutex {
	r.mu.Lock()
	m, ok := r.locks[key]
	if !ok {
		m = &sync.Mutex{}
		r.locks[key] = m
	}
	r.mu.Unlock()
	return m
}

// Acquire blocks until the caller holds exclusive access to key and
// returns the release func. Only the per-key mutex is held during the
// caller's critical section.
func (r *Registry) Acquire(key string) func() {
	m := r.lockFor(key)
	m.Lock()
	return m.Unlock
}

// AcquireTwo acquires both keys in lexicographic order so that two callers
// locking the same pair in opposite argument order cannot deadlock. If the
// keys are identical it acquires once.
func (r *Registry) AcquireTwo(a, b string) func() {
	if a == b {
		return r.Acquire(a)
	}
	if b < a {
		a, b = b, a
	}
	relA := r.Acquire(a)
	relB := r.Acquire(b)
	return func() {
		relB()
		relA()
	}
}

// Len returns the number of keys ever acquired. Exposed for metrics.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
