package hooks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncCallOrder(t *testing.T) {
	h := NewSync[*[]string]()
	h.Tap("a", func(out *[]string) { *out = append(*out, "a") })
	h.Tap("b", func(out *[]string) { *out = append(*out, "b") })
	h.Tap("c", func(out *[]string) { *out = append(*out, "c") })

	var got []string
	h.Call(&got)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestSyncBailStopsAtFirstResult(t *testing.T) {
	h := NewSyncBail[int, string]()
	var calls []string
	h.Tap("decline", func(int) (string, bool) {
		calls = append(calls, "decline")
		return "", false
	})
	h.Tap("answer", func(v int) (string, bool) {
		calls = append(calls, "answer")
		return "yes", true
	})
	h.Tap("never", func(int) (string, bool) {
		calls = append(calls, "never")
		return "no", true
	})

	r, ok := h.Call(1)
	require.True(t, ok)
	assert.Equal(t, "yes", r)
	assert.Equal(t, []string{"decline", "answer"}, calls)
}

func TestSyncBailAllDecline(t *testing.T) {
	h := NewSyncBail[int, string]()
	h.Tap("a", func(int) (string, bool) { return "", false })
	h.Tap("b", func(int) (string, bool) { return "", false })

	_, ok := h.Call(0)
	assert.False(t, ok)
}

func TestAsyncSeriesOrderAndAbort(t *testing.T) {
	h := NewAsyncSeries[*[]string]()
	boom := errors.New("boom")
	h.Tap("a", func(_ context.Context, out *[]string) error {
		*out = append(*out, "a")
		return nil
	})
	h.Tap("b", func(_ context.Context, out *[]string) error {
		// Suspend briefly to prove sequencing is by completion, not start.
		time.Sleep(5 * time.Millisecond)
		*out = append(*out, "b")
		return boom
	})
	h.Tap("c", func(_ context.Context, out *[]string) error {
		*out = append(*out, "c")
		return nil
	})

	var got []string
	err := h.CallAsync(context.Background(), &got)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, got, "tap after the failure must not run")
}

func TestAsyncParallelAllStartedBeforeSettle(t *testing.T) {
	h := NewAsyncParallel[int]()
	var started atomic.Int32
	release := make(chan struct{})
	for range 3 {
		h.Tap("tap", func(context.Context, int) error {
			started.Add(1)
			<-release
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- h.CallAsync(context.Background(), 0) }()

	require.Eventually(t, func() bool { return started.Load() == 3 },
		time.Second, time.Millisecond, "all taps must start before the hook settles")
	close(release)
	require.NoError(t, <-done)
}

func TestAsyncParallelFailureDoesNotCancelSiblings(t *testing.T) {
	h := NewAsyncParallel[int]()
	boom := errors.New("boom")
	var completed atomic.Int32
	h.Tap("ok-1", func(context.Context, int) error {
		time.Sleep(10 * time.Millisecond)
		completed.Add(1)
		return nil
	})
	h.Tap("fail", func(context.Context, int) error { return boom })
	h.Tap("ok-2", func(context.Context, int) error {
		time.Sleep(10 * time.Millisecond)
		completed.Add(1)
		return nil
	})

	err := h.CallAsync(context.Background(), 0)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), completed.Load(),
		"sibling taps run to completion even though the hook reports the failure")
}

func TestCopyTapsPreservesOrder(t *testing.T) {
	src := NewSync[*[]string]()
	src.Tap("a", func(out *[]string) { *out = append(*out, "a") })
	src.Tap("b", func(out *[]string) { *out = append(*out, "b") })

	dst := NewSync[*[]string]()
	dst.CopyTaps(src)
	dst.Tap("c", func(out *[]string) { *out = append(*out, "c") })

	var got []string
	dst.Call(&got)
	assert.Equal(t, []string{"a", "b", "c"}, got)

	// The copy is a snapshot: later taps on src do not appear on dst.
	src.Tap("d", func(out *[]string) { *out = append(*out, "d") })
	got = got[:0]
	dst.Call(&got)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestTapIsConcurrencySafe(t *testing.T) {
	h := NewSync[int]()
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Tap("t", func(int) {})
		}()
	}
	wg.Wait()
	h.Tap("last", func(int) {})
	assert.Len(t, h.snapshot(), 17)
}
