// Package eventstore journals build lifecycle events to a local SQLite file.
// The journal is append-only: each build run writes a started event, one
// event per completed intermediate pass, and a finished or failed terminal
// event. The
// history survives process restarts and supports post-hoc build forensics.
package eventstore

import (
	"context"
	"time"
)

// Event types written by the build pipeline.
const (
	TypeBuildStarted     = "BuildStarted"
	TypePassCompleted    = "PassCompleted"
	TypeAssetsEmitted    = "AssetsEmitted"
	TypeBuildFinished    = "BuildFinished"
	TypeBuildFailed      = "BuildFailed"
	TypeWatchInvalidated = "WatchInvalidated"
)

// Event is one journaled build occurrence.
type Event struct {
	ID        int64
	Compiler  string
	BuildID   string
	Type      string
	Timestamp time.Time
	Payload   []byte
}

// Store persists and retrieves build events.
type Store interface {
	// Append adds one event to the journal.
	Append(ctx context.Context, e Event) error

	// ByBuildID retrieves all events of one build run in append order.
	ByBuildID(ctx context.Context, buildID string) ([]Event, error)

	// Range retrieves events within a time window in append order.
	Range(ctx context.Context, start, end time.Time) ([]Event, error)

	// Close releases the underlying storage.
	Close() error
}
