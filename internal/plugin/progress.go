// Package plugin holds the built-in compiler plugins: structured progress
// logging, the build-event journal, completion notification, and VCS
// provenance stamping. Each is a small hook-tapping unit installed through
// the compiler's plugin mechanism.
package plugin

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/bundler/internal/compiler"
	"git.home.luguber.info/inful/bundler/internal/logfields"
)

// Progress logs the build lifecycle phases.
type Progress struct {
	Logger *slog.Logger
}

func (p *Progress) Apply(c *compiler.Compiler) error {
	log := p.Logger
	if log == nil {
		log = c.Logger()
	}

	c.Hooks().BeforeCompile.Tap("progress", func(context.Context, *compiler.CompilationParams) error {
		log.Info("compiling", logfields.Phase("compile"))
		return nil
	})
	c.Hooks().Emit.Tap("progress", func(_ context.Context, comp *compiler.Compilation) error {
		log.Info("emitting assets",
			logfields.Phase("emit"),
			slog.Int("assets", len(comp.Assets())))
		return nil
	})
	c.Hooks().Done.Tap("progress", func(_ context.Context, stats *compiler.Stats) error {
		log.Info("build finished",
			logfields.Phase("done"),
			logfields.Hash(stats.Hash()),
			logfields.Duration(stats.Duration()))
		return nil
	})
	c.Hooks().Failed.Tap("progress", func(err error) {
		log.Error("build failed", logfields.Error(err))
	})
	c.Hooks().Invalid.Tap("progress", func(ev *compiler.InvalidEvent) {
		log.Info("build invalidated", logfields.Path(ev.Path))
	})
	return nil
}
