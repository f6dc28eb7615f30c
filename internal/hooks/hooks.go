// Package hooks provides the typed extension points the compiler pipeline is
// built from. A hook is a named list of taps; the hook kind decides how taps
// are sequenced and how their results aggregate. Four kinds exist: Sync,
// SyncBail, AsyncSeries and AsyncParallel. Tap registration order is
// preserved forever; later taps never run before earlier ones.
package hooks

import (
	"context"
	"sync"
)

// Tap is one registered callback attached to a hook.
type Tap[F any] struct {
	Name string
	Fn   F
}

// Sync invokes every tap in registration order. Return values do not exist;
// the only way a sync tap can abort its siblings is by panicking, which
// propagates to the caller.
type Sync[T any] struct {
	mu   sync.RWMutex
	taps []Tap[func(T)]
}

// NewSync creates an empty sync hook.
func NewSync[T any]() *Sync[T] { return &Sync[T]{} }

// Tap registers fn under name at the end of the call order.
func (h *Sync[T]) Tap(name string, fn func(T)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.taps = append(h.taps, Tap[func(T)]{Name: name, Fn: fn})
	h.mu.Unlock()
}

// Call invokes all taps in order with v.
func (h *Sync[T]) Call(v T) {
	for _, t := range h.snapshot() {
		t.Fn(v)
	}
}

// CopyTaps appends all of src's taps to h, preserving src's order.
// Used when a child compiler inherits its parent's generic lifecycle taps.
func (h *Sync[T]) CopyTaps(src *Sync[T]) {
	for _, t := range src.snapshot() {
		h.Tap(t.Name, t.Fn)
	}
}

func (h *Sync[T]) snapshot() []Tap[func(T)] {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Tap[func(T)](nil), h.taps...)
}

// SyncBail invokes taps in order and stops at the first tap that produces a
// result. If no tap produces one, the hook's effective result is absent.
type SyncBail[T, R any] struct {
	mu   sync.RWMutex
	taps []Tap[func(T) (R, bool)]
}

// NewSyncBail creates an empty sync-bail hook.
func NewSyncBail[T, R any]() *SyncBail[T, R] { return &SyncBail[T, R]{} }

// Tap registers fn under name. fn reports a result by returning ok=true.
func (h *SyncBail[T, R]) Tap(name string, fn func(T) (R, bool)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.taps = append(h.taps, Tap[func(T) (R, bool)]{Name: name, Fn: fn})
	h.mu.Unlock()
}

// Call invokes taps in order until one returns ok=true and yields that
// result. ok=false means every tap declined.
func (h *SyncBail[T, R]) Call(v T) (R, bool) {
	for _, t := range h.snapshot() {
		if r, ok := t.Fn(v); ok {
			return r, true
		}
	}
	var zero R
	return zero, false
}

// CopyTaps appends all of src's taps to h, preserving src's order.
func (h *SyncBail[T, R]) CopyTaps(src *SyncBail[T, R]) {
	for _, t := range src.snapshot() {
		h.Tap(t.Name, t.Fn)
	}
}

func (h *SyncBail[T, R]) snapshot() []Tap[func(T) (R, bool)] {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Tap[func(T) (R, bool)](nil), h.taps...)
}

// AsyncSeries invokes taps one at a time in registration order. Each tap may
// block on I/O; the next tap starts only after the previous one returned.
// The first error aborts the remaining series and surfaces to the caller.
type AsyncSeries[T any] struct {
	mu   sync.RWMutex
	taps []Tap[func(context.Context, T) error]
}

// NewAsyncSeries creates an empty async-series hook.
func NewAsyncSeries[T any]() *AsyncSeries[T] { return &AsyncSeries[T]{} }

// Tap registers fn under name at the end of the call order.
func (h *AsyncSeries[T]) Tap(name string, fn func(context.Context, T) error) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.taps = append(h.taps, Tap[func(context.Context, T) error]{Name: name, Fn: fn})
	h.mu.Unlock()
}

// CallAsync runs the series. It returns the first tap error, or nil once
// every tap completed.
func (h *AsyncSeries[T]) CallAsync(ctx context.Context, v T) error {
	for _, t := range h.snapshot() {
		if err := t.Fn(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

// CopyTaps appends all of src's taps to h, preserving src's order.
func (h *AsyncSeries[T]) CopyTaps(src *AsyncSeries[T]) {
	for _, t := range src.snapshot() {
		h.Tap(t.Name, t.Fn)
	}
}

func (h *AsyncSeries[T]) snapshot() []Tap[func(context.Context, T) error] {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Tap[func(context.Context, T) error](nil), h.taps...)
}

// AsyncParallel starts every tap concurrently. Taps have no mutual ordering
// guarantee, but all of them are started before the hook can settle. A tap
// failure is recorded, never cancels its siblings: already-started taps run
// to completion so their side effects on shared state stay consistent.
// CallAsync returns only after every tap has finished, yielding the first
// failure reported (nil when all succeeded).
type AsyncParallel[T any] struct {
	mu   sync.RWMutex
	taps []Tap[func(context.Context, T) error]
}

// NewAsyncParallel creates an empty async-parallel hook.
func NewAsyncParallel[T any]() *AsyncParallel[T] { return &AsyncParallel[T]{} }

// Tap registers fn under name.
func (h *AsyncParallel[T]) Tap(name string, fn func(context.Context, T) error) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.taps = append(h.taps, Tap[func(context.Context, T) error]{Name: name, Fn: fn})
	h.mu.Unlock()
}

// CallAsync starts all taps and waits for all of them.
func (h *AsyncParallel[T]) CallAsync(ctx context.Context, v T) error {
	taps := h.snapshot()
	if len(taps) == 0 {
		return nil
	}

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	wg.Add(len(taps))
	for _, t := range taps {
		go func(fn func(context.Context, T) error) {
			defer wg.Done()
			if err := fn(ctx, v); err != nil {
				errOnce.Do(func() { firstErr = err })
			}
		}(t.Fn)
	}
	wg.Wait()
	return firstErr
}

// CopyTaps appends all of src's taps to h, preserving src's order.
func (h *AsyncParallel[T]) CopyTaps(src *AsyncParallel[T]) {
	for _, t := range src.snapshot() {
		h.Tap(t.Name, t.Fn)
	}
}

func (h *AsyncParallel[T]) snapshot() []Tap[func(context.Context, T) error] {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Tap[func(context.Context, T) error](nil), h.taps...)
}
