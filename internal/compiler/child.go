package compiler

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/bundler/internal/assets"
	"git.home.luguber.info/inful/bundler/internal/logfields"
	"git.home.luguber.info/inful/bundler/internal/records"
)

// OutputOverrides are layered over a copy of the parent's output options
// when spawning a child compiler. Nil fields keep the parent's value; the
// copy-on-write semantics mean mutating the child's options never affects
// the parent.
type OutputOverrides struct {
	Path        *string
	Cache       *bool
	Concurrency *int
}

// CreateChildCompiler spawns a scoped nested compiler for a sub-build inside
// the given compilation. The child shares this compiler's file-system handle
// and timestamp maps by reference, so both observe the same incremental
// state, but gets fresh hook instances: taps for the build-specific hooks
// are not copied from the parent, every other hook's taps are. The child's
// record slot is looked up (or created) at records[name][index] and reused
// on repeated builds addressing the same pair.
func (c *Compiler) CreateChildCompiler(comp *Compilation, name string, index int, overrides OutputOverrides, plugins []Plugin) (*Compiler, error) {
	if err := comp.claimChildSlot(name, index); err != nil {
		return nil, err
	}

	options := c.options
	if overrides.Path != nil {
		options.Path = *overrides.Path
	}
	if overrides.Cache != nil {
		options.Cache = *overrides.Cache
	}
	if overrides.Concurrency != nil {
		options.Concurrency = *overrides.Concurrency
	}

	child := &Compiler{
		Name:              name,
		Context:           c.Context,
		FileTimestamps:    c.FileTimestamps,
		ContextTimestamps: c.ContextTimestamps,
		RemovedFiles:      c.RemovedFiles,
		options:           options,
		fs:                c.fs,
		writer: assets.NewWriter(c.fs, assets.Options{
			Concurrency: options.Concurrency,
			Cache:       options.Cache,
		}),
		recordStore:       c.recordStore,
		rec:               records.Records(c.rec.ChildSlot(name, index)),
		recBound:          true,
		hooks:             copyForChild(c.hooks),
		parentCompilation: comp,
		normalFactory:     c.normalFactory,
		contextFactory:    c.contextFactory,
		metrics:           c.metrics,
		log:               c.log.With(logfields.Compiler(name)),
	}

	for _, p := range plugins {
		if err := p.Apply(child); err != nil {
			return nil, err
		}
	}

	c.log.Debug("child compiler created", logfields.Compiler(name), logfields.Pass(index))
	return child, nil
}

// RunAsChild executes the child's compile cycle inside the parent's make
// phase and merges the produced assets into the parent compilation. The
// parent handles emission; child compilers never write records or assets
// themselves.
func (c *Compiler) RunAsChild(ctx context.Context) (*Stats, error) {
	if c.parentCompilation == nil {
		return nil, fmt.Errorf("compiler %q is not a child compiler", c.Name)
	}

	c.startTime = time.Now()
	comp, err := c.Compile(ctx)
	if err != nil {
		return nil, err
	}

	parent := c.parentCompilation
	for name, src := range comp.Assets() {
		parent.EmitAsset(name, src)
	}
	for _, err := range comp.Errors() {
		parent.AddError(err)
	}
	return c.newStats(comp), nil
}
