package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"git.home.luguber.info/inful/bundler/internal/compiler"
	"git.home.luguber.info/inful/bundler/internal/config"
	"git.home.luguber.info/inful/bundler/internal/errors"
	"git.home.luguber.info/inful/bundler/internal/logfields"
	"git.home.luguber.info/inful/bundler/internal/metrics"
	"git.home.luguber.info/inful/bundler/internal/watch"
)

// WatchCmd builds continuously until interrupted.
type WatchCmd struct{}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	logger := buildLogger(cfg, root.Verbose)

	a, err := assemble(cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.close()

	if a.registry != nil {
		srv := &http.Server{
			Addr:              cfg.Monitoring.MetricsListen,
			Handler:           metrics.HTTPHandler(a.registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics endpoint failed", logfields.Error(err))
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		logger.Info("metrics endpoint listening", logfields.Path(cfg.Monitoring.MetricsListen))
	}

	watcher, err := watch.New(a.compiler, watch.Options{
		Paths:        cfg.Watch.Paths,
		Debounce:     cfg.Watch.Debounce,
		PollInterval: cfg.Watch.PollInterval,
		Metrics:      a.metrics,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	// Print a summary per cycle, but only when output changed.
	var mu sync.Mutex
	lastHash := ""
	watcher.OnBuild = func(stats *compiler.Stats, err error) {
		if err != nil || stats == nil {
			return
		}
		mu.Lock()
		changed := stats.Hash() != lastHash
		lastHash = stats.Hash()
		mu.Unlock()
		if changed {
			fmt.Print(stats.Summary())
		}
	}

	if err := watcher.Start(context.Background()); err != nil {
		return errors.WatchError(err)
	}

	logger.Info("watching for changes", logfields.Path(cfg.Context))
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	if err := watcher.Close(); err != nil {
		return errors.WatchError(err)
	}
	return nil
}
