package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/bundler/internal/config"
	"git.home.luguber.info/inful/bundler/internal/errors"
)

// BuildCmd runs one build and exits. Soft build errors are reported in the
// summary and surface as a build-error exit status.
type BuildCmd struct {
	Output string `short:"o" help:"Override the configured output directory"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if b.Output != "" {
		cfg.Output.Path = b.Output
	}
	logger := buildLogger(cfg, root.Verbose)

	a, err := assemble(cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.close()

	stats, err := a.compiler.Run(context.Background())
	if err != nil {
		return errors.CompileFailed(err)
	}

	fmt.Print(stats.Summary())
	if stats.HasErrors() {
		return errors.New(errors.CategoryCompile, errors.SeverityError, "build completed with errors")
	}
	return nil
}
