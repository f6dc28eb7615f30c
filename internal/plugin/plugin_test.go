package plugin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bundler/internal/assets"
	"git.home.luguber.info/inful/bundler/internal/compiler"
	"git.home.luguber.info/inful/bundler/internal/eventstore"
	"git.home.luguber.info/inful/bundler/internal/fsio"
	"git.home.luguber.info/inful/bundler/internal/notify"
)

func runWithPlugins(t *testing.T, plugins []compiler.Plugin, makeTap func(context.Context, *compiler.Compilation) error) (*compiler.Stats, error) {
	t.Helper()
	c, err := compiler.New(compiler.Config{
		Name:    "plugged",
		Output:  compiler.OutputOptions{Path: "out", Cache: true},
		FS:      fsio.NewMemFS(),
		Plugins: plugins,
	})
	require.NoError(t, err)
	c.Hooks().Make.Tap("make", makeTap)
	return c.Run(context.Background())
}

func emitOne(_ context.Context, comp *compiler.Compilation) error {
	comp.EmitAsset("main.js", assets.NewRawSource([]byte("bundle")))
	return nil
}

func TestJournalRecordsBuildLifecycle(t *testing.T) {
	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	stats, err := runWithPlugins(t, []compiler.Plugin{&Journal{Store: store}}, emitOne)
	require.NoError(t, err)

	events, err := store.ByBuildID(context.Background(), stats.Compilation.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, eventstore.TypeBuildStarted, events[0].Type)
	assert.Equal(t, eventstore.TypeAssetsEmitted, events[1].Type)
	assert.Equal(t, eventstore.TypeBuildFinished, events[2].Type)
	assert.Equal(t, "plugged", events[0].Compiler)
}

func TestJournalRecordsCompletedPasses(t *testing.T) {
	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	passes := 0
	_, err = runWithPlugins(t, []compiler.Plugin{&Journal{Store: store}},
		func(_ context.Context, comp *compiler.Compilation) error {
			passes++
			comp.EmitAsset("main.js", assets.NewRawSource([]byte("bundle")))
			if passes == 1 {
				comp.SetNeedAdditionalPass()
			}
			return nil
		})
	require.NoError(t, err)
	require.Equal(t, 2, passes)

	events, err := store.Range(context.Background(), time.Unix(0, 0), time.Now().Add(time.Hour))
	require.NoError(t, err)
	var passEvents int
	for _, e := range events {
		if e.Type == eventstore.TypePassCompleted {
			passEvents++
		}
	}
	assert.Equal(t, 1, passEvents, "one event per intermediate pass")
}

func TestJournalRecordsFailure(t *testing.T) {
	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	_, err = runWithPlugins(t, []compiler.Plugin{&Journal{Store: store}},
		func(context.Context, *compiler.Compilation) error {
			return errors.New("make exploded")
		})
	require.Error(t, err)

	events, err := store.Range(context.Background(), time.Unix(0, 0), time.Now().Add(time.Hour))
	require.NoError(t, err)
	var types []string
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, eventstore.TypeBuildFailed)
}

func TestNotifyPublishesReport(t *testing.T) {
	pub := notify.NewMemoryPublisher()

	stats, err := runWithPlugins(t, []compiler.Plugin{&Notify{Publisher: pub}}, emitOne)
	require.NoError(t, err)

	reports := pub.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, "plugged", reports[0].Compiler)
	assert.Equal(t, stats.Compilation.ID, reports[0].BuildID)
	assert.Equal(t, stats.Hash(), reports[0].Hash)
	assert.Equal(t, 1, reports[0].Assets)
}

func TestProgressInstallsWithoutError(t *testing.T) {
	_, err := runWithPlugins(t, []compiler.Plugin{&Progress{}}, emitOne)
	require.NoError(t, err)
}

func TestVCSStampOutsideRepositoryIsSilent(t *testing.T) {
	c, err := compiler.New(compiler.Config{
		Name:    "plugged",
		Context: t.TempDir(),
		Output:  compiler.OutputOptions{Path: "out"},
		FS:      fsio.NewMemFS(),
		Plugins: []compiler.Plugin{VCSStamp{}},
	})
	require.NoError(t, err)
	c.Hooks().Make.Tap("make", emitOne)

	stats, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stats.Compilation.Meta())
}
