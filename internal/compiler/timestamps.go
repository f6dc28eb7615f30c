package compiler

import (
	"sync"
	"time"
)

// Timestamps is a shared path -> last-seen-modification-time map. Parent and
// child compilers hold the same instance by reference so both observe the
// same incremental state; watch cycles mutate it, and it is torn down with
// the top-level compiler.
type Timestamps struct {
	mu sync.RWMutex
	m  map[string]time.Time
}

// NewTimestamps creates an empty timestamp map.
func NewTimestamps() *Timestamps {
	return &Timestamps{m: make(map[string]time.Time)}
}

// Get returns the recorded time for path.
func (t *Timestamps) Get(path string) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ts, ok := t.m[path]
	return ts, ok
}

// Set records the modification time for path.
func (t *Timestamps) Set(path string, ts time.Time) {
	t.mu.Lock()
	t.m[path] = ts
	t.mu.Unlock()
}

// Delete forgets path.
func (t *Timestamps) Delete(path string) {
	t.mu.Lock()
	delete(t.m, path)
	t.mu.Unlock()
}

// Reset clears all entries without replacing the map, preserving sharing.
func (t *Timestamps) Reset() {
	t.mu.Lock()
	for k := range t.m {
		delete(t.m, k)
	}
	t.mu.Unlock()
}

// Len returns the number of tracked paths.
func (t *Timestamps) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.m)
}
