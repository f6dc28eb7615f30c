package fsio

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// MemFS is an in-memory FileSystem for tests. It counts calls, tracks the
// peak number of concurrent writes, and supports failure injection.
type MemFS struct {
	mu    sync.Mutex
	files map[string][]byte
	mods  map[string]time.Time
	dirs  map[string]bool
	calls MemCalls

	// WriteDelay makes each write block, widening the window in which
	// concurrent writes overlap. Useful for concurrency-cap assertions.
	WriteDelay time.Duration

	// WriteErr, when set, is returned by every WriteFile call.
	WriteErr error

	inFlight    int
	maxInFlight int
}

// MemCalls tracks method invocations for test verification.
type MemCalls struct {
	Stat      int
	ReadFile  int
	WriteFile int
	Mkdirp    int
}

// NewMemFS creates an empty in-memory file system.
func NewMemFS() *MemFS {
	return &MemFS{
		files: make(map[string][]byte),
		mods:  make(map[string]time.Time),
		dirs:  make(map[string]bool),
	}
}

func (m *MemFS) Stat(_ context.Context, path string) (FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Stat++
	if data, ok := m.files[path]; ok {
		return FileInfo{Size: int64(len(data)), ModTime: m.mods[path]}, nil
	}
	if m.dirs[path] {
		return FileInfo{IsDir: true}, nil
	}
	return FileInfo{}, ErrNotFound
}

func (m *MemFS) ReadFile(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.ReadFile++
	data, ok := m.files[path]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemFS) WriteFile(_ context.Context, path string, data []byte) error {
	m.mu.Lock()
	m.calls.WriteFile++
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	delay := m.WriteDelay
	werr := m.WriteErr
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight--
	if werr != nil {
		return werr
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	m.files[path] = stored
	m.mods[path] = time.Now()
	return nil
}

func (m *MemFS) Mkdirp(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Mkdirp++
	clean := filepath.ToSlash(filepath.Clean(path))
	for p := clean; p != "." && p != "/" && p != ""; p = parentDir(p) {
		m.dirs[p] = true
	}
	return nil
}

func (*MemFS) Join(elem ...string) string {
	return filepath.ToSlash(filepath.Join(elem...))
}

// Calls returns a snapshot of the invocation counters.
func (m *MemFS) Calls() MemCalls {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MaxInFlight reports the peak number of concurrent WriteFile calls observed.
func (m *MemFS) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// FileBytes returns the stored content of path, or nil when absent.
func (m *MemFS) FileBytes(path string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}

// HasDir reports whether Mkdirp created the given directory.
func (m *MemFS) HasDir(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirs[filepath.ToSlash(filepath.Clean(path))]
}

// Seed places a file into the store without counting a write.
func (m *MemFS) Seed(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = data
	m.mods[path] = time.Now()
}

func parentDir(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i <= 0 {
		return ""
	}
	return p[:i]
}
