package records

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bundler/internal/errors"
	"git.home.luguber.info/inful/bundler/internal/fsio"
)

func TestReadUnsetPathYieldsEmptyRecords(t *testing.T) {
	s := NewStore(fsio.NewMemFS())
	r, err := s.Read(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, r)
}

func TestReadMissingFileYieldsEmptyRecords(t *testing.T) {
	s := NewStore(fsio.NewMemFS())
	r, err := s.Read(context.Background(), "data/records.json")
	require.NoError(t, err)
	assert.Empty(t, r)
}

func TestReadMalformedFileIsFatal(t *testing.T) {
	fs := fsio.NewMemFS()
	fs.Seed("data/records.json", []byte("{not json"))
	s := NewStore(fs)

	_, err := s.Read(context.Background(), "data/records.json")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryRecords))
}

func TestWriteReadRoundTrip(t *testing.T) {
	fs := fsio.NewMemFS()
	s := NewStore(fs)
	ctx := context.Background()

	r := New()
	slot := r.ChildSlot("sub", 0)
	slot["chunkIds"] = map[string]any{"main": float64(0)}

	require.NoError(t, s.Write(ctx, "data/records.json", r))
	assert.True(t, fs.HasDir("data"), "parent directory must be created")

	got, err := s.Read(ctx, "data/records.json")
	require.NoError(t, err)
	gotSlot := got.ChildSlot("sub", 0)
	assert.Equal(t, map[string]any{"main": float64(0)}, gotSlot["chunkIds"])
}

func TestWriteUnsetPathIsNoop(t *testing.T) {
	fs := fsio.NewMemFS()
	s := NewStore(fs)
	require.NoError(t, s.Write(context.Background(), "", New()))
	assert.Zero(t, fs.Calls().WriteFile)
}

func TestChildSlotContinuityAndIndependence(t *testing.T) {
	r := New()

	first := r.ChildSlot("sub", 0)
	first["k"] = "v"

	// Same (name, index) pair returns the same slot.
	again := r.ChildSlot("sub", 0)
	assert.Equal(t, "v", again["k"])

	// A sibling index gets an independent slot.
	sibling := r.ChildSlot("sub", 1)
	sibling["k"] = "other"
	assert.Equal(t, "v", r.ChildSlot("sub", 0)["k"])
	assert.Equal(t, "other", r.ChildSlot("sub", 1)["k"])

	// A different name partitions separately.
	other := r.ChildSlot("other", 0)
	assert.Empty(t, other)
}
