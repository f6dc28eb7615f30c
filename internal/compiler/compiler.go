// Package compiler is the orchestration core of the bundler: it drives a
// declarative build configuration through the build phases in strict order
// (dependency-resolution kickoff, module-graph construction, finalize, seal,
// artifact emission, record persistence) and exposes the typed hook surface
// third-party plugins attach to. It supports one-shot builds, continuous
// watch rebuilds, and nested child-compiler sub-builds.
package compiler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/bundler/internal/assets"
	"git.home.luguber.info/inful/bundler/internal/errors"
	"git.home.luguber.info/inful/bundler/internal/fsio"
	"git.home.luguber.info/inful/bundler/internal/logfields"
	"git.home.luguber.info/inful/bundler/internal/metrics"
	"git.home.luguber.info/inful/bundler/internal/records"
	"git.home.luguber.info/inful/bundler/internal/util/sets"
)

// OutputOptions control where and how assets are emitted.
type OutputOptions struct {
	// Path is the output directory for emitted assets.
	Path string

	// Cache enables the identity-keyed write-deduplication cache.
	Cache bool

	// Concurrency bounds simultaneous asset writes (0 = default cap).
	Concurrency int
}

// Plugin installs behavior onto a compiler by tapping its hooks.
type Plugin interface {
	Apply(c *Compiler) error
}

// Config assembles a top-level compiler.
type Config struct {
	// Name identifies the compiler in logs and records (optional).
	Name string

	// Context is the base directory of the build.
	Context string

	Output OutputOptions

	// RecordsInputPath / RecordsOutputPath locate the continuity records
	// file. Either may be empty.
	RecordsInputPath  string
	RecordsOutputPath string

	// FS is the file-system collaborator. Defaults to the real disk.
	FS fsio.FileSystem

	// Metrics receives build observations. Defaults to a no-op recorder.
	Metrics metrics.Recorder

	// Module-graph collaborator factories. Defaults are inert.
	NormalModuleFactory  ModuleFactoryProvider
	ContextModuleFactory ModuleFactoryProvider

	Plugins []Plugin

	Logger *slog.Logger
}

// Compiler owns one hook bus per lifecycle event, the re-entrancy guard,
// and drives the full build pipeline.
type Compiler struct {
	Name    string
	Context string

	// Shared incremental state. Child compilers hold these by reference.
	FileTimestamps    *Timestamps
	ContextTimestamps *Timestamps
	RemovedFiles      sets.Set[string]

	options           OutputOptions
	recordsInputPath  string
	recordsOutputPath string

	running   atomic.Bool
	watchMode bool
	startTime time.Time

	fs          fsio.FileSystem
	writer      *assets.Writer
	recordStore *records.Store
	rec         records.Records
	recBound    bool // child compilers arrive with their slot pre-assigned

	hooks             *Hooks
	parentCompilation *Compilation

	normalFactory  ModuleFactoryProvider
	contextFactory ModuleFactoryProvider

	metrics metrics.Recorder
	log     *slog.Logger
}

// New constructs a compiler and applies its plugins.
func New(cfg Config) (*Compiler, error) {
	if cfg.FS == nil {
		cfg.FS = fsio.NewOS()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NoopRecorder{}
	}
	if cfg.NormalModuleFactory == nil {
		cfg.NormalModuleFactory = NoopNormalModuleFactory
	}
	if cfg.ContextModuleFactory == nil {
		cfg.ContextModuleFactory = NoopContextModuleFactory
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Compiler{
		Name:              cfg.Name,
		Context:           cfg.Context,
		FileTimestamps:    NewTimestamps(),
		ContextTimestamps: NewTimestamps(),
		RemovedFiles:      sets.New[string](),
		options:           cfg.Output,
		recordsInputPath:  cfg.RecordsInputPath,
		recordsOutputPath: cfg.RecordsOutputPath,
		fs:                cfg.FS,
		writer: assets.NewWriter(cfg.FS, assets.Options{
			Concurrency: cfg.Output.Concurrency,
			Cache:       cfg.Output.Cache,
		}),
		recordStore:    records.NewStore(cfg.FS),
		rec:            records.New(),
		hooks:          NewHooks(),
		normalFactory:  cfg.NormalModuleFactory,
		contextFactory: cfg.ContextModuleFactory,
		metrics:        cfg.Metrics,
		log:            cfg.Logger.With(logfields.Compiler(cfg.Name)),
	}
	c.metrics.SetEmitConcurrency(effectiveConcurrency(cfg.Output.Concurrency))

	for _, p := range cfg.Plugins {
		if err := p.Apply(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func effectiveConcurrency(n int) int {
	if n <= 0 {
		return assets.DefaultConcurrency
	}
	return n
}

// Hooks exposes the compiler's lifecycle hooks to plugins.
func (c *Compiler) Hooks() *Hooks { return c.hooks }

// Options returns a copy of the output options.
func (c *Compiler) Options() OutputOptions { return c.options }

// OutputPath is the resolved output directory.
func (c *Compiler) OutputPath() string { return c.options.Path }

// Records returns the live continuity record set.
func (c *Compiler) Records() records.Records { return c.rec }

// ParentCompilation returns the compilation this compiler was spawned under,
// or nil for top-level compilers. The reference is non-owning.
func (c *Compiler) ParentCompilation() *Compilation { return c.parentCompilation }

// IsRunning reports whether a run/watch cycle is in flight.
func (c *Compiler) IsRunning() bool { return c.running.Load() }

// WatchMode reports whether the compiler is driven by a watcher.
func (c *Compiler) WatchMode() bool { return c.watchMode }

// Run executes one full build. A second concurrent invocation fails with
// ConcurrentCompilationError without mutating any state. On any pipeline
// failure the failed hook fires with the error before the guard resets.
func (c *Compiler) Run(ctx context.Context) (*Stats, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, &ConcurrentCompilationError{CompilerName: c.Name}
	}

	stats, err := c.runPipeline(ctx)
	if err != nil {
		c.hooks.Failed.Call(err)
		c.running.Store(false)
		c.metrics.IncBuildOutcome(metrics.OutcomeFailed)
		return nil, err
	}
	c.running.Store(false)

	if stats.HasErrors() {
		c.metrics.IncBuildOutcome(metrics.OutcomeSoftErrors)
	} else {
		c.metrics.IncBuildOutcome(metrics.OutcomeSuccess)
	}
	return stats, nil
}

func (c *Compiler) runPipeline(ctx context.Context) (*Stats, error) {
	c.startTime = time.Now()

	if err := c.hooks.BeforeRun.CallAsync(ctx, c); err != nil {
		return nil, err
	}
	if err := c.hooks.Run.CallAsync(ctx, c); err != nil {
		return nil, err
	}
	if err := c.ReadRecords(ctx); err != nil {
		return nil, err
	}
	return c.buildLoop(ctx)
}

// buildLoop runs compile cycles until no additional pass is requested. The
// loop is deliberately unbounded: a pathological plugin that keeps
// requesting passes is a collaborator responsibility, not guarded here.
func (c *Compiler) buildLoop(ctx context.Context) (*Stats, error) {
	pass := 0
	for {
		pass++
		c.log.Debug("compile pass starting", logfields.Pass(pass))

		comp, err := c.Compile(ctx)
		if err != nil {
			return nil, err
		}

		// An explicit negative from shouldEmit skips emission entirely.
		if v, ok := c.hooks.ShouldEmit.Call(comp); ok && !v {
			c.log.Debug("emission vetoed", logfields.Hook("shouldEmit"), logfields.Compilation(comp.ID))
			return c.finalize(ctx, comp)
		}

		if err := c.emitAssets(ctx, comp); err != nil {
			return nil, err
		}

		if comp.NeedsAdditionalPass() {
			stats := c.newStats(comp)
			if err := c.hooks.Done.CallAsync(ctx, stats); err != nil {
				return nil, err
			}
			if err := c.hooks.AdditionalPass.CallAsync(ctx, c); err != nil {
				return nil, err
			}
			c.log.Info("additional pass requested", logfields.Pass(pass))
			continue
		}

		if err := c.emitRecords(ctx); err != nil {
			return nil, err
		}
		return c.finalize(ctx, comp)
	}
}

func (c *Compiler) finalize(ctx context.Context, comp *Compilation) (*Stats, error) {
	stats := c.newStats(comp)
	c.metrics.ObserveBuildDuration(stats.Duration())
	if err := c.hooks.Done.CallAsync(ctx, stats); err != nil {
		return nil, err
	}
	c.log.Info("build done",
		logfields.Compilation(comp.ID),
		logfields.Hash(stats.Hash()),
		logfields.Duration(stats.Duration()))
	return stats, nil
}

func (c *Compiler) newStats(comp *Compilation) *Stats {
	return &Stats{Compilation: comp, StartTime: c.startTime, EndTime: time.Now()}
}

// Compile produces one sealed compilation. Any failure at any step
// short-circuits directly to the caller.
func (c *Compiler) Compile(ctx context.Context) (*Compilation, error) {
	params := c.newCompilationParams()

	if err := c.hooks.BeforeCompile.CallAsync(ctx, params); err != nil {
		return nil, err
	}
	c.hooks.Compile.Call(params)

	comp := newCompilation(c, params)
	// thisCompilation fires only on the owning compiler; compilation also
	// fires on children, giving plugins first access in both scopes.
	c.hooks.ThisCompilation.Call(comp)
	c.hooks.Compilation.Call(comp)

	c.log.Debug("make phase starting", logfields.Compilation(comp.ID))
	if err := c.hooks.Make.CallAsync(ctx, comp); err != nil {
		// Make taps are third-party plugin code: label which hook failed.
		return nil, errors.HookFailed("make", err)
	}
	if err := comp.Finish(ctx); err != nil {
		return nil, err
	}
	if err := comp.Seal(ctx); err != nil {
		return nil, err
	}
	if err := c.hooks.AfterCompile.CallAsync(ctx, comp); err != nil {
		return nil, err
	}
	return comp, nil
}

// newCompilationParams builds fresh collaborator handles. The factory hooks
// fire exactly once per instance so plugins can augment them before use.
func (c *Compiler) newCompilationParams() *CompilationParams {
	normal := c.normalFactory()
	contextual := c.contextFactory()
	c.hooks.NormalModuleFactory.Call(normal)
	c.hooks.ContextModuleFactory.Call(contextual)
	return &CompilationParams{
		NormalModuleFactory:     normal,
		ContextModuleFactory:    contextual,
		CompilationDependencies: sets.New[string](),
	}
}

// ReadRecords loads the continuity records. With no configured input path
// the in-memory record set is kept as-is (empty on the first build), which
// preserves slot continuity across successive runs. A missing file yields an
// empty set; malformed content is fatal. Child compilers arrive with their
// record slot pre-assigned and skip the read.
func (c *Compiler) ReadRecords(ctx context.Context) error {
	if c.recBound || c.recordsInputPath == "" {
		return nil
	}
	rec, err := c.recordStore.Read(ctx, c.recordsInputPath)
	if err != nil {
		return err
	}
	c.rec = rec
	return nil
}

// emitAssets drives the emission protocol: the emit hook, the bounded
// writes, and the afterEmit hook. afterEmit fires even when a write failed;
// the write failure still propagates once afterEmit resolved.
func (c *Compiler) emitAssets(ctx context.Context, comp *Compilation) error {
	if err := c.hooks.Emit.CallAsync(ctx, comp); err != nil {
		return err
	}

	start := time.Now()
	res, werr := c.writer.WriteAssets(ctx, c.OutputPath(), comp.Assets())
	if res != nil {
		comp.markEmitted(res.Written)
		c.metrics.AddAssetsWritten(len(res.Written))
		c.metrics.AddAssetsSkipped(len(res.Skipped))
	}
	c.metrics.ObserveEmitDuration(time.Since(start))

	aerr := c.hooks.AfterEmit.CallAsync(ctx, comp)
	if werr != nil {
		return werr
	}
	return aerr
}

// emitRecords fires the emitRecords hook, then persists the records file.
func (c *Compiler) emitRecords(ctx context.Context) error {
	if err := c.hooks.EmitRecords.CallAsync(ctx, c); err != nil {
		return err
	}
	return c.recordStore.Write(ctx, c.recordsOutputPath, c.rec)
}

// BeginWatch acquires the run guard for a watch session and resets the
// incremental state maps in place, preserving the sharing with any child
// compilers. The watcher, not the compiler, owns the repeat-trigger loop.
func (c *Compiler) BeginWatch() error {
	if !c.running.CompareAndSwap(false, true) {
		return &ConcurrentCompilationError{CompilerName: c.Name}
	}
	c.watchMode = true
	c.FileTimestamps.Reset()
	c.ContextTimestamps.Reset()
	c.RemovedFiles.Clear()
	return nil
}

// RunCycle executes one watch-mode build cycle. It assumes the guard taken
// by BeginWatch is held and must only be called by the owning watcher.
func (c *Compiler) RunCycle(ctx context.Context) (*Stats, error) {
	c.startTime = time.Now()

	if err := c.hooks.WatchRun.CallAsync(ctx, c); err != nil {
		c.hooks.Failed.Call(err)
		c.metrics.IncBuildOutcome(metrics.OutcomeFailed)
		return nil, err
	}
	if err := c.ReadRecords(ctx); err != nil {
		c.hooks.Failed.Call(err)
		c.metrics.IncBuildOutcome(metrics.OutcomeFailed)
		return nil, err
	}
	stats, err := c.buildLoop(ctx)
	if err != nil {
		c.hooks.Failed.Call(err)
		c.metrics.IncBuildOutcome(metrics.OutcomeFailed)
		return nil, err
	}
	if stats.HasErrors() {
		c.metrics.IncBuildOutcome(metrics.OutcomeSoftErrors)
	} else {
		c.metrics.IncBuildOutcome(metrics.OutcomeSuccess)
	}
	return stats, nil
}

// EndWatch releases the guard taken by BeginWatch.
func (c *Compiler) EndWatch() {
	c.watchMode = false
	c.running.Store(false)
}

// Logger returns the compiler's structured logger.
func (c *Compiler) Logger() *slog.Logger { return c.log }

// FS returns the file-system collaborator.
func (c *Compiler) FS() fsio.FileSystem { return c.fs }
