package assets

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"git.home.luguber.info/inful/bundler/internal/errors"
	"git.home.luguber.info/inful/bundler/internal/fsio"
	"git.home.luguber.info/inful/bundler/internal/logfields"
)

// DefaultConcurrency is the hard cap on simultaneous in-flight asset writes.
// Exceeding it queues; it never fails.
const DefaultConcurrency = 15

// Options configures a Writer.
type Options struct {
	// Concurrency bounds simultaneous writes. Zero means DefaultConcurrency.
	Concurrency int

	// Cache enables the identity-keyed write-generation cache. When false
	// the writer falls back to legacy existsAt tracking on the source.
	Cache bool
}

// Result reports what one emission pass did.
type Result struct {
	Written []string // filenames physically written this pass
	Skipped []string // filenames skipped because an identical write already happened
}

// cacheEntry records, per target path, which write generation of that path
// holds this source's content. When the recorded generation still matches
// the path's current generation the file on disk is known to be identical
// and the write is skipped (files are assumed not to be deleted externally
// during a run).
type cacheEntry struct {
	writtenTo map[string]int
}

// Writer emits a compilation's assets through the file-system collaborator.
// Its generation counters live for the whole process lifetime of the owning
// compiler and are never reset between builds: they encode "ever written".
type Writer struct {
	fs    fsio.FileSystem
	opts  Options
	log   *slog.Logger

	mu        sync.Mutex
	entries   map[Source]*cacheEntry
	targetGen map[string]int
	pathLocks map[string]*sync.Mutex
}

// NewWriter creates a Writer over fs.
func NewWriter(fs fsio.FileSystem, opts Options) *Writer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Writer{
		fs:        fs,
		opts:      opts,
		log:       slog.Default(),
		entries:   make(map[Source]*cacheEntry),
		targetGen: make(map[string]int),
		pathLocks: make(map[string]*sync.Mutex),
	}
}

// pathLock returns the mutex serializing writes to one resolved target path.
// Names that differ only by query suffix share a path and must not write it
// concurrently.
func (w *Writer) pathLock(targetPath string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	l := w.pathLocks[targetPath]
	if l == nil {
		l = &sync.Mutex{}
		w.pathLocks[targetPath] = l
	}
	return l
}

// WriteAssets writes every asset under outputPath with bounded concurrency.
// The output directory is created first. In caching mode, sources already
// written to their exact target at the current generation are skipped, and
// written sources are replaced in the map by a size-only stand-in. All
// writes settle before WriteAssets returns; the first error is reported.
func (w *Writer) WriteAssets(ctx context.Context, outputPath string, assets map[string]Source) (*Result, error) {
	if err := w.fs.Mkdirp(ctx, outputPath); err != nil {
		return nil, errors.FileSystemError("mkdirp", outputPath, err)
	}

	names := make([]string, 0, len(assets))
	for name := range assets {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		wg       sync.WaitGroup
		sem      = make(chan struct{}, w.opts.Concurrency)
		resMu    sync.Mutex
		result   Result
		errOnce  sync.Once
		firstErr error
	)

	for _, name := range names {
		src := assets[name]
		wg.Add(1)
		go func(name string, src Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			written, err := w.writeOne(ctx, outputPath, name, src, assets, &resMu)
			if err != nil {
				errOnce.Do(func() { firstErr = errors.EmitFailed(name, err) })
				return
			}
			resMu.Lock()
			if written {
				result.Written = append(result.Written, name)
			} else {
				result.Skipped = append(result.Skipped, name)
			}
			resMu.Unlock()
		}(name, src)
	}
	wg.Wait()

	sort.Strings(result.Written)
	sort.Strings(result.Skipped)
	return &result, firstErr
}

// writeOne handles a single asset. It returns whether a physical write
// happened.
func (w *Writer) writeOne(ctx context.Context, outputPath, name string, src Source, assets map[string]Source, assetsMu *sync.Mutex) (bool, error) {
	// A query-string suffix addresses the same physical file.
	targetFile := name
	if i := strings.IndexByte(targetFile, '?'); i >= 0 {
		targetFile = targetFile[:i]
	}

	targetPath := w.fs.Join(outputPath, targetFile)

	// Filenames carrying a path separator land in a subdirectory that may
	// not exist yet.
	if strings.ContainsAny(targetFile, "/\\") {
		if err := w.fs.Mkdirp(ctx, filepath.Dir(targetPath)); err != nil {
			return false, err
		}
	}

	l := w.pathLock(targetPath)
	l.Lock()
	defer l.Unlock()

	if w.opts.Cache {
		return w.writeCached(ctx, targetPath, name, src, assets, assetsMu)
	}
	return w.writeLegacy(ctx, targetPath, src)
}

func (w *Writer) writeCached(ctx context.Context, targetPath, name string, src Source, assets map[string]Source, assetsMu *sync.Mutex) (bool, error) {
	w.mu.Lock()
	entry := w.entries[src]
	if entry == nil {
		entry = &cacheEntry{writtenTo: make(map[string]int)}
		w.entries[src] = entry
	}
	gen := w.targetGen[targetPath]
	if g, ok := entry.writtenTo[targetPath]; ok && g == gen {
		w.mu.Unlock()
		w.log.Debug("asset unchanged, write skipped", logfields.Asset(name), logfields.Path(targetPath))
		return false, nil
	}
	w.mu.Unlock()

	content, err := src.Bytes()
	if err != nil {
		return false, err
	}
	if err := w.fs.WriteFile(ctx, targetPath, content); err != nil {
		return false, err
	}

	w.mu.Lock()
	next := w.targetGen[targetPath] + 1
	w.targetGen[targetPath] = next
	entry.writtenTo[targetPath] = next

	// Release the bulk content: leave a size-only stand-in in the asset map
	// and re-key the cache entry under it. The original source's key is
	// dropped so the written bytes become collectable once no outer owner
	// holds them.
	standIn := NewSizeOnlySource(int64(len(content)))
	delete(w.entries, src)
	w.entries[standIn] = entry
	w.mu.Unlock()

	assetsMu.Lock()
	assets[name] = standIn
	assetsMu.Unlock()

	return true, nil
}

func (w *Writer) writeLegacy(ctx context.Context, targetPath string, src Source) (bool, error) {
	if t, ok := src.(EmitTracker); ok && t.WrittenTo() == targetPath {
		return false, nil
	}

	content, err := src.Bytes()
	if err != nil {
		return false, err
	}
	if err := w.fs.WriteFile(ctx, targetPath, content); err != nil {
		return false, err
	}
	if t, ok := src.(EmitTracker); ok {
		t.SetWrittenTo(targetPath)
	}
	return true, nil
}
