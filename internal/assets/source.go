// Package assets implements artifact emission: bounded-concurrency writes,
// write deduplication across incremental rebuilds, and release of bulk
// content once it has been durably written.
package assets

import (
	"errors"
	"sync"
)

// ErrContentReleased is returned by Bytes on a source whose content was
// dropped after a durable write. Only the byte length remains.
var ErrContentReleased = errors.New("assets: content already written and released")

// Source is an emittable content object: it knows its byte length and can
// materialize its content on demand.
type Source interface {
	Size() int64
	Bytes() ([]byte, error)
}

// EmitTracker is implemented by sources that track where they were already
// written. The writer's legacy mode uses it to skip repeat writes without
// the identity cache.
type EmitTracker interface {
	WrittenTo() string
	SetWrittenTo(path string)
}

// RawSource is an in-memory Source over a byte slice.
type RawSource struct {
	mu       sync.Mutex
	data     []byte
	existsAt string
}

// NewRawSource wraps data in a Source. The slice is not copied.
func NewRawSource(data []byte) *RawSource {
	return &RawSource{data: data}
}

func (s *RawSource) Size() int64 { return int64(len(s.data)) }

func (s *RawSource) Bytes() ([]byte, error) { return s.data, nil }

func (s *RawSource) WrittenTo() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existsAt
}

func (s *RawSource) SetWrittenTo(path string) {
	s.mu.Lock()
	s.existsAt = path
	s.mu.Unlock()
}

// SizeOnlySource is the lightweight stand-in left in the asset map once a
// source's content has been written in caching mode. It retains only the
// byte length for reporting; the bulk bytes are released for reclamation.
type SizeOnlySource struct {
	size int64
}

// NewSizeOnlySource creates a stand-in reporting the given size.
func NewSizeOnlySource(size int64) *SizeOnlySource {
	return &SizeOnlySource{size: size}
}

func (s *SizeOnlySource) Size() int64 { return s.size }

func (s *SizeOnlySource) Bytes() ([]byte, error) { return nil, ErrContentReleased }
