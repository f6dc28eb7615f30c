package compiler

import (
	"time"

	"git.home.luguber.info/inful/bundler/internal/hooks"
)

// InvalidEvent describes a watched file invalidating the current build.
type InvalidEvent struct {
	Path       string
	ChangeTime time.Time
}

// Hooks are the compiler's lifecycle extension points, one hook instance per
// event. Plugins tap these; the compiler fires them in the documented
// pipeline order.
type Hooks struct {
	// Run lifecycle.
	BeforeRun *hooks.AsyncSeries[*Compiler]
	Run       *hooks.AsyncSeries[*Compiler]
	WatchRun  *hooks.AsyncSeries[*Compiler]

	// Compile lifecycle.
	BeforeCompile        *hooks.AsyncSeries[*CompilationParams]
	Compile              *hooks.Sync[*CompilationParams]
	ThisCompilation      *hooks.Sync[*Compilation]
	Compilation          *hooks.Sync[*Compilation]
	NormalModuleFactory  *hooks.Sync[ModuleFactory]
	ContextModuleFactory *hooks.Sync[ModuleFactory]
	Make                 *hooks.AsyncParallel[*Compilation]
	AfterCompile         *hooks.AsyncSeries[*Compilation]

	// Emission lifecycle.
	ShouldEmit     *hooks.SyncBail[*Compilation, bool]
	Emit           *hooks.AsyncSeries[*Compilation]
	AfterEmit      *hooks.AsyncSeries[*Compilation]
	AdditionalPass *hooks.AsyncSeries[*Compiler]
	EmitRecords    *hooks.AsyncSeries[*Compiler]

	// Terminal events.
	Done   *hooks.AsyncSeries[*Stats]
	Failed *hooks.Sync[error]

	// Watch events.
	Invalid    *hooks.Sync[*InvalidEvent]
	WatchClose *hooks.Sync[*Compiler]
}

// NewHooks creates a full set of empty hooks.
func NewHooks() *Hooks {
	return &Hooks{
		BeforeRun:            hooks.NewAsyncSeries[*Compiler](),
		Run:                  hooks.NewAsyncSeries[*Compiler](),
		WatchRun:             hooks.NewAsyncSeries[*Compiler](),
		BeforeCompile:        hooks.NewAsyncSeries[*CompilationParams](),
		Compile:              hooks.NewSync[*CompilationParams](),
		ThisCompilation:      hooks.NewSync[*Compilation](),
		Compilation:          hooks.NewSync[*Compilation](),
		NormalModuleFactory:  hooks.NewSync[ModuleFactory](),
		ContextModuleFactory: hooks.NewSync[ModuleFactory](),
		Make:                 hooks.NewAsyncParallel[*Compilation](),
		AfterCompile:         hooks.NewAsyncSeries[*Compilation](),
		ShouldEmit:           hooks.NewSyncBail[*Compilation, bool](),
		Emit:                 hooks.NewAsyncSeries[*Compilation](),
		AfterEmit:            hooks.NewAsyncSeries[*Compilation](),
		AdditionalPass:       hooks.NewAsyncSeries[*Compiler](),
		EmitRecords:          hooks.NewAsyncSeries[*Compiler](),
		Done:                 hooks.NewAsyncSeries[*Stats](),
		Failed:               hooks.NewSync[error](),
		Invalid:              hooks.NewSync[*InvalidEvent](),
		WatchClose:           hooks.NewSync[*Compiler](),
	}
}

// copyForChild builds the hook set for a child compiler. Build-specific hooks
// (make, compile, emit, afterEmit, invalid, done, thisCompilation) start
// empty so parent-scoped build logic cannot run twice; every other hook's
// existing taps are copied verbatim, keeping generic lifecycle plugins
// active on children.
func copyForChild(parent *Hooks) *Hooks {
	child := NewHooks()

	child.BeforeRun.CopyTaps(parent.BeforeRun)
	child.Run.CopyTaps(parent.Run)
	child.WatchRun.CopyTaps(parent.WatchRun)
	child.BeforeCompile.CopyTaps(parent.BeforeCompile)
	child.Compilation.CopyTaps(parent.Compilation)
	child.NormalModuleFactory.CopyTaps(parent.NormalModuleFactory)
	child.ContextModuleFactory.CopyTaps(parent.ContextModuleFactory)
	child.AfterCompile.CopyTaps(parent.AfterCompile)
	child.ShouldEmit.CopyTaps(parent.ShouldEmit)
	child.AdditionalPass.CopyTaps(parent.AdditionalPass)
	child.EmitRecords.CopyTaps(parent.EmitRecords)
	child.Failed.CopyTaps(parent.Failed)
	child.WatchClose.CopyTaps(parent.WatchClose)

	return child
}
