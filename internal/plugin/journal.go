package plugin

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"git.home.luguber.info/inful/bundler/internal/compiler"
	"git.home.luguber.info/inful/bundler/internal/eventstore"
	"git.home.luguber.info/inful/bundler/internal/logfields"
)

// Journal appends one event per build lifecycle transition to the event
// store. Journal failures are logged, never escalated: a broken journal must
// not break builds.
type Journal struct {
	Store eventstore.Store

	mu      sync.Mutex
	buildID string
}

func (j *Journal) Apply(c *compiler.Compiler) error {
	log := c.Logger()
	record := func(ctx context.Context, e eventstore.Event) {
		e.Compiler = c.Name
		if err := j.Store.Append(ctx, e); err != nil {
			log.Warn("journal append failed", logfields.Error(err))
		}
	}
	currentBuild := func() string {
		j.mu.Lock()
		defer j.mu.Unlock()
		return j.buildID
	}

	c.Hooks().ThisCompilation.Tap("journal", func(comp *compiler.Compilation) {
		j.mu.Lock()
		j.buildID = comp.ID
		j.mu.Unlock()
		record(context.Background(), eventstore.Event{
			BuildID: comp.ID,
			Type:    eventstore.TypeBuildStarted,
		})
	})
	c.Hooks().AfterEmit.Tap("journal", func(ctx context.Context, comp *compiler.Compilation) error {
		payload, _ := json.Marshal(map[string]any{"assets": len(comp.Assets())})
		record(ctx, eventstore.Event{
			BuildID: comp.ID,
			Type:    eventstore.TypeAssetsEmitted,
			Payload: payload,
		})
		return nil
	})
	c.Hooks().AdditionalPass.Tap("journal", func(ctx context.Context, _ *compiler.Compiler) error {
		record(ctx, eventstore.Event{
			BuildID: currentBuild(),
			Type:    eventstore.TypePassCompleted,
		})
		return nil
	})
	c.Hooks().Done.Tap("journal", func(ctx context.Context, stats *compiler.Stats) error {
		report := stats.Report()
		payload, _ := json.Marshal(map[string]any{
			"hash":        report.Hash,
			"duration_ms": report.DurationMS,
			"errors":      len(report.Errors),
		})
		record(ctx, eventstore.Event{
			BuildID: stats.Compilation.ID,
			Type:    eventstore.TypeBuildFinished,
			Payload: payload,
		})
		return nil
	})
	c.Hooks().Failed.Tap("journal", func(err error) {
		payload, _ := json.Marshal(map[string]string{"error": err.Error()})
		record(context.Background(), eventstore.Event{
			BuildID: currentBuild(),
			Type:    eventstore.TypeBuildFailed,
			Payload: payload,
		})
	})
	c.Hooks().Invalid.Tap("journal", func(ev *compiler.InvalidEvent) {
		payload, _ := json.Marshal(map[string]any{
			"path":      ev.Path,
			"change_at": ev.ChangeTime.Format(time.RFC3339Nano),
		})
		record(context.Background(), eventstore.Event{
			BuildID: currentBuild(),
			Type:    eventstore.TypeWatchInvalidated,
			Payload: payload,
		})
	})
	return nil
}
