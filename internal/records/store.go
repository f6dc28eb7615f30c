package records

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/bundler/internal/errors"
	"git.home.luguber.info/inful/bundler/internal/fsio"
	"git.home.luguber.info/inful/bundler/internal/logfields"
)

// Store reads and writes record files through the file-system collaborator.
type Store struct {
	fs  fsio.FileSystem
	log *slog.Logger
}

// NewStore creates a record store backed by fs.
func NewStore(fs fsio.FileSystem) *Store {
	return &Store{fs: fs, log: slog.Default()}
}

// Read loads records from path. An unset path or a missing file is not an
// error: both yield an empty record set (first build). A present but
// malformed file is fatal and aborts the pipeline.
func (s *Store) Read(ctx context.Context, path string) (Records, error) {
	if path == "" {
		return New(), nil
	}

	data, err := s.fs.ReadFile(ctx, path)
	if err != nil {
		if stderrors.Is(err, fsio.ErrNotFound) {
			s.log.Debug("no records file yet, starting fresh", logfields.Path(path))
			return New(), nil
		}
		return nil, errors.FileSystemError("read", path, err)
	}

	var r Records
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.RecordsParseFailed(path, err)
	}
	if r == nil {
		r = New()
	}
	return r, nil
}

// Write serializes records to path, creating parent directories first.
func (s *Store) Write(ctx context.Context, path string, r Records) error {
	if path == "" {
		return nil
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.InternalError("serialize records", err)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := s.fs.Mkdirp(ctx, dir); err != nil {
			return errors.FileSystemError("mkdirp", dir, err)
		}
	}
	if err := s.fs.WriteFile(ctx, path, data); err != nil {
		return errors.FileSystemError("write", path, err)
	}
	s.log.Debug("records written", logfields.Path(path))
	return nil
}
