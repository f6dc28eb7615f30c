package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"git.home.luguber.info/inful/bundler/internal/config"
	"git.home.luguber.info/inful/bundler/internal/errors"
	"git.home.luguber.info/inful/bundler/internal/eventstore"
	"git.home.luguber.info/inful/bundler/internal/fsio"
	"git.home.luguber.info/inful/bundler/internal/records"
)

// RecordsCmd inspects the build continuity records and the event journal.
type RecordsCmd struct {
	Show  RecordsShowCmd  `cmd:"" default:"1" help:"Print the continuity records file"`
	Build RecordsBuildCmd `cmd:"" help:"Print the journaled events of one build"`
}

// RecordsShowCmd prints the records file as indented JSON.
type RecordsShowCmd struct{}

func (RecordsShowCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	path := cfg.Records.RecordsInputPath()
	if path == "" {
		return errors.ConfigRequired("records.path")
	}

	store := records.NewStore(fsio.NewOS())
	rec, err := store.Read(context.Background(), path)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.InternalError("serialize records", err)
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}

// RecordsBuildCmd prints the journal entries of one build run.
type RecordsBuildCmd struct {
	ID string `arg:"" help:"Build (compilation) ID to inspect"`
}

func (r *RecordsBuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if cfg.Journal.Path == "" {
		return errors.ConfigRequired("journal.path")
	}

	store, err := eventstore.NewSQLiteStore(cfg.Journal.Path)
	if err != nil {
		return errors.Wrap(err, errors.CategoryRuntime, errors.SeverityFatal, "failed to open build journal").
			WithContext("path", cfg.Journal.Path)
	}
	defer store.Close()

	events, err := store.ByBuildID(context.Background(), r.ID)
	if err != nil {
		return errors.Wrap(err, errors.CategoryRuntime, errors.SeverityFatal, "failed to query build journal")
	}
	if len(events) == 0 {
		fmt.Printf("no events for build %s\n", r.ID)
		return nil
	}
	for _, e := range events {
		fmt.Printf("%s  %-18s", e.Timestamp.Format("2006-01-02 15:04:05.000"), e.Type)
		if len(e.Payload) > 0 {
			fmt.Printf("  %s", e.Payload)
		}
		fmt.Println()
	}
	return nil
}
