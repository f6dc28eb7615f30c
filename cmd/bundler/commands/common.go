// Package commands implements the bundler CLI subcommands.
package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/bundler/internal/compiler"
	"git.home.luguber.info/inful/bundler/internal/config"
	"git.home.luguber.info/inful/bundler/internal/errors"
	"git.home.luguber.info/inful/bundler/internal/eventstore"
	"git.home.luguber.info/inful/bundler/internal/metrics"
	"git.home.luguber.info/inful/bundler/internal/notify"
	"git.home.luguber.info/inful/bundler/internal/plugin"
)

// Global carries state shared across subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI is the root command definition.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"bundler.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Run one build and exit"`
	Watch   WatchCmd   `cmd:"" help:"Build continuously, rebuilding on file changes"`
	Records RecordsCmd `cmd:"" help:"Inspect continuity records and the build journal"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; sets up logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// buildLogger constructs the logger the configuration asks for, respecting
// the --verbose override.
func buildLogger(cfg *config.Config, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// assembly is everything a command needs to run builds, plus the resources
// to release afterwards.
type assembly struct {
	compiler *compiler.Compiler
	metrics  metrics.Recorder
	registry *prom.Registry
	closers  []func() error
}

func (a *assembly) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

// assemble builds the compiler and its plugin set from the configuration.
func assemble(cfg *config.Config, logger *slog.Logger, withMetrics bool) (*assembly, error) {
	a := &assembly{metrics: metrics.NoopRecorder{}}
	if withMetrics && cfg.Monitoring.MetricsListen != "" {
		a.registry = prom.NewRegistry()
		a.metrics = metrics.NewPrometheusRecorder(a.registry)
	}

	plugins := []compiler.Plugin{
		&plugin.Progress{Logger: logger},
		plugin.VCSStamp{},
	}

	if cfg.Journal.Path != "" {
		store, err := eventstore.NewSQLiteStore(cfg.Journal.Path)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryRuntime, errors.SeverityFatal, "failed to open build journal").
				WithContext("path", cfg.Journal.Path)
		}
		a.closers = append(a.closers, store.Close)
		plugins = append(plugins, &plugin.Journal{Store: store})
	}

	if cfg.Notify.URL != "" {
		pub, err := notify.NewNATSPublisher(cfg.Notify.URL, cfg.Notify.Subject, logger)
		if err != nil {
			a.close()
			return nil, errors.Wrap(err, errors.CategoryRuntime, errors.SeverityFatal, "failed to connect build notifier").
				WithContext("url", cfg.Notify.URL)
		}
		a.closers = append(a.closers, pub.Close)
		plugins = append(plugins, &plugin.Notify{Publisher: pub})
	}

	c, err := compiler.New(compiler.Config{
		Name:    cfg.Name,
		Context: cfg.Context,
		Output: compiler.OutputOptions{
			Path:        cfg.Output.Path,
			Cache:       cfg.Output.CacheEnabled(),
			Concurrency: cfg.Output.Concurrency,
		},
		RecordsInputPath:  cfg.Records.RecordsInputPath(),
		RecordsOutputPath: cfg.Records.RecordsOutputPath(),
		Metrics:           a.metrics,
		Plugins:           plugins,
		Logger:            logger,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.compiler = c
	return a, nil
}
