// Package fsio defines the narrow file-system collaborator the build core
// writes through. The compiler, asset writer and record store never touch the
// os package directly; they go through FileSystem so tests can substitute a
// counting in-memory double and callers can layer custom storage.
package fsio

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// ErrNotFound is returned by Stat and ReadFile when the path does not exist.
var ErrNotFound = errors.New("fsio: file not found")

// FileInfo is the subset of file metadata the build core consumes.
type FileInfo struct {
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// FileSystem is the collaborator interface for all persistent I/O performed
// by the build pipeline. All operations accept a context and may block.
type FileSystem interface {
	Stat(ctx context.Context, path string) (FileInfo, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte) error
	Mkdirp(ctx context.Context, path string) error
	Join(elem ...string) string
}

// OS is the production FileSystem backed by the local disk.
type OS struct{}

// NewOS returns a FileSystem backed by the os package.
func NewOS() *OS { return &OS{} }

func (*OS) Stat(_ context.Context, path string) (FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FileInfo{}, ErrNotFound
		}
		return FileInfo{}, err
	}
	return FileInfo{Size: info.Size(), ModTime: info.ModTime(), IsDir: info.IsDir()}, nil
}

func (*OS) ReadFile(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (*OS) WriteFile(_ context.Context, path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func (*OS) Mkdirp(_ context.Context, path string) error {
	return os.MkdirAll(path, 0o755)
}

func (*OS) Join(elem ...string) string {
	return filepath.Join(elem...)
}
