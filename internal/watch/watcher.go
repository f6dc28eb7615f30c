// Package watch drives continuous rebuilds: it observes the configured paths
// for file changes, coalesces change bursts through a debounce window, and
// triggers one compiler cycle per settled burst. Changes arriving while a
// build runs fold into exactly one follow-up build.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/bundler/internal/compiler"
	"git.home.luguber.info/inful/bundler/internal/errors"
	"git.home.luguber.info/inful/bundler/internal/logfields"
	"git.home.luguber.info/inful/bundler/internal/metrics"
	"git.home.luguber.info/inful/bundler/internal/util/sets"
)

type state int

const (
	stateIdle state = iota
	stateBuilding
	stateClosed
)

// Options configure a Watcher.
type Options struct {
	// Paths are the directories observed for changes.
	Paths []string

	// Debounce is the quiet period required after the last change before a
	// rebuild triggers.
	Debounce time.Duration

	// PollInterval, when positive, adds a periodic rebuild trigger for
	// file systems without change events.
	PollInterval time.Duration

	Metrics metrics.Recorder
	Logger  *slog.Logger
}

// Watcher owns one compiler's watch session.
type Watcher struct {
	compiler *compiler.Compiler
	fsw      *fsnotify.Watcher
	sched    gocron.Scheduler
	opts     Options
	log      *slog.Logger
	metrics  metrics.Recorder

	// OnBuild, when set before Start, is called after every completed
	// cycle with its outcome.
	OnBuild func(stats *compiler.Stats, err error)

	mu       sync.Mutex
	state    state
	pending  bool
	debounce *time.Timer

	stop chan struct{}
	done sync.WaitGroup
}

// New creates a watcher bound to the given compiler. The session starts on
// Start and ends on Close.
func New(c *compiler.Compiler, opts Options) (*Watcher, error) {
	if len(opts.Paths) == 0 {
		return nil, errors.ValidationFailed("watch.paths", "at least one path is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NoopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = c.Logger()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WatchError(fmt.Errorf("failed to create file watcher: %w", err))
	}

	return &Watcher{
		compiler: c,
		fsw:      fsw,
		opts:     opts,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		stop:     make(chan struct{}),
	}, nil
}

// Start acquires the compiler's run guard, runs the initial build, and begins
// observing the configured paths. It returns after the initial build; the
// session continues in the background until Close.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.compiler.BeginWatch(); err != nil {
		return err
	}

	for _, p := range w.opts.Paths {
		if err := w.fsw.Add(p); err != nil {
			w.compiler.EndWatch()
			_ = w.fsw.Close()
			return errors.WatchError(fmt.Errorf("failed to watch %s: %w", p, err))
		}
		w.log.Debug("watching path", logfields.Path(p))
	}

	if w.opts.PollInterval > 0 {
		if err := w.startPoll(); err != nil {
			w.compiler.EndWatch()
			_ = w.fsw.Close()
			return err
		}
	}

	// First build runs before any change arrives.
	w.mu.Lock()
	w.state = stateBuilding
	w.mu.Unlock()
	w.runCycle(ctx)

	w.done.Add(1)
	go w.eventLoop(ctx)
	return nil
}

// startPoll schedules a periodic rebuild trigger.
func (w *Watcher) startPoll() error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return errors.WatchError(fmt.Errorf("failed to create poll scheduler: %w", err))
	}
	_, err = s.NewJob(
		gocron.DurationJob(w.opts.PollInterval),
		gocron.NewTask(func() {
			w.Invalidate("", time.Now())
		}),
		gocron.WithName("watch-poll"),
	)
	if err != nil {
		return errors.WatchError(fmt.Errorf("failed to schedule poll job: %w", err))
	}
	s.Start()
	w.sched = s
	return nil
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer w.done.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watch error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	now := time.Now()
	switch {
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		w.compiler.FileTimestamps.Delete(event.Name)
		w.compiler.RemovedFiles.Add(event.Name)
	case event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create):
		w.compiler.FileTimestamps.Set(event.Name, now)
	default:
		return
	}
	w.Invalidate(event.Name, now)
}

// Invalidate marks the current output stale because of a change to path. It
// fires the invalid hook, then either arms the debounce window or, when a
// build is already running, flags one follow-up build. The poll trigger calls
// it with an empty path.
func (w *Watcher) Invalidate(path string, at time.Time) {
	w.compiler.Hooks().Invalid.Call(&compiler.InvalidEvent{Path: path, ChangeTime: at})
	w.metrics.IncWatchInvalidations()
	w.log.Debug("build invalidated", logfields.Path(path))

	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.state {
	case stateClosed:
		return
	case stateBuilding:
		// Coalesce: any number of changes during a build produce exactly
		// one follow-up build.
		w.pending = true
	case stateIdle:
		if w.debounce != nil {
			w.debounce.Stop()
		}
		w.debounce = time.AfterFunc(w.opts.Debounce, w.beginBuild)
	}
}

// beginBuild transitions Idle -> Building once the debounce window settles.
func (w *Watcher) beginBuild() {
	w.mu.Lock()
	if w.state != stateIdle {
		w.mu.Unlock()
		return
	}
	w.state = stateBuilding
	// Registered under the same lock that guards the state transition, so a
	// concurrent Close either observes stateBuilding with the counter already
	// raised, or wins the race and this build never starts.
	w.done.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.done.Done()
		w.runCycle(context.Background())
	}()
}

// runCycle executes one compiler cycle and resolves the follow-up state.
func (w *Watcher) runCycle(ctx context.Context) {
	stats, err := w.compiler.RunCycle(ctx)
	if err != nil {
		w.log.Error("watch build failed", logfields.Error(err))
	} else {
		w.addDependencyPaths(stats)
	}
	if w.OnBuild != nil {
		w.OnBuild(stats, err)
	}

	w.mu.Lock()
	if w.state == stateClosed {
		w.mu.Unlock()
		return
	}
	w.state = stateIdle
	rerun := w.pending
	w.pending = false
	if rerun {
		if w.debounce != nil {
			w.debounce.Stop()
		}
		w.debounce = time.AfterFunc(w.opts.Debounce, w.beginBuild)
	}
	w.mu.Unlock()
}

// addDependencyPaths extends the watch set with paths the build reported as
// dependencies. A path that cannot be observed is skipped; the configured
// roots still cover the common case.
func (w *Watcher) addDependencyPaths(stats *compiler.Stats) {
	for _, dep := range sets.SortedStrings(stats.Compilation.Dependencies) {
		if err := w.fsw.Add(dep); err != nil {
			w.log.Debug("cannot watch dependency", logfields.Path(dep), logfields.Error(err))
		}
	}
}

// Close ends the watch session: stops the observers, fires the watchClose
// hook, and releases the compiler's run guard. Safe to call once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.state == stateClosed {
		w.mu.Unlock()
		return nil
	}
	w.state = stateClosed
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.mu.Unlock()

	close(w.stop)
	var firstErr error
	if w.sched != nil {
		if err := w.sched.Shutdown(); err != nil {
			firstErr = err
		}
	}
	if err := w.fsw.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	w.done.Wait()

	w.compiler.Hooks().WatchClose.Call(w.compiler)
	w.compiler.EndWatch()
	return firstErr
}
