package compiler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bundler/internal/assets"
	derrors "git.home.luguber.info/inful/bundler/internal/errors"
	"git.home.luguber.info/inful/bundler/internal/fsio"
)

func newTestCompiler(t *testing.T, fs *fsio.MemFS) *Compiler {
	t.Helper()
	c, err := New(Config{
		Name:    "test",
		Context: "/src",
		Output:  OutputOptions{Path: "out", Cache: true},
		FS:      fs,
	})
	require.NoError(t, err)
	return c
}

// emitOnMake taps make to register one asset per compile.
func emitOnMake(c *Compiler, name, content string) {
	c.Hooks().Make.Tap("test-emitter", func(_ context.Context, comp *Compilation) error {
		comp.EmitAsset(name, assets.NewRawSource([]byte(content)))
		return nil
	})
}

func TestRunEmitsAssets(t *testing.T) {
	fs := fsio.NewMemFS()
	c := newTestCompiler(t, fs)
	emitOnMake(c, "main.js", "bundle")

	stats, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, stats.HasErrors())
	assert.NotEmpty(t, stats.Hash())
	assert.Equal(t, []byte("bundle"), fs.FileBytes("out/main.js"))
	assert.True(t, stats.Compilation.WasEmitted("main.js"))
}

func TestSecondConcurrentRunFails(t *testing.T) {
	fs := fsio.NewMemFS()
	c := newTestCompiler(t, fs)

	entered := make(chan struct{})
	release := make(chan struct{})
	c.Hooks().Make.Tap("blocker", func(context.Context, *Compilation) error {
		close(entered)
		<-release
		return nil
	})
	emitOnMake(c, "main.js", "bundle")

	type result struct {
		stats *Stats
		err   error
	}
	first := make(chan result, 1)
	go func() {
		s, err := c.Run(context.Background())
		first <- result{s, err}
	}()

	<-entered
	_, err := c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsConcurrentCompilation(err))

	close(release)
	got := <-first
	require.NoError(t, got.err, "the first run's result is unaffected by the rejected second call")
	require.NotNil(t, got.stats)
	assert.Equal(t, []byte("bundle"), fs.FileBytes("out/main.js"))
}

func TestHookOrderThroughPipeline(t *testing.T) {
	fs := fsio.NewMemFS()
	c := newTestCompiler(t, fs)

	var order []string
	note := func(name string) func(context.Context, *Compiler) error {
		return func(context.Context, *Compiler) error {
			order = append(order, name)
			return nil
		}
	}
	c.Hooks().BeforeRun.Tap("t", note("beforeRun"))
	c.Hooks().Run.Tap("t", note("run"))
	c.Hooks().BeforeCompile.Tap("t", func(context.Context, *CompilationParams) error {
		order = append(order, "beforeCompile")
		return nil
	})
	c.Hooks().Compile.Tap("t", func(*CompilationParams) { order = append(order, "compile") })
	c.Hooks().ThisCompilation.Tap("t", func(*Compilation) { order = append(order, "thisCompilation") })
	c.Hooks().Compilation.Tap("t", func(*Compilation) { order = append(order, "compilation") })
	c.Hooks().Make.Tap("t", func(context.Context, *Compilation) error {
		order = append(order, "make")
		return nil
	})
	c.Hooks().AfterCompile.Tap("t", func(context.Context, *Compilation) error {
		order = append(order, "afterCompile")
		return nil
	})
	c.Hooks().Emit.Tap("t", func(context.Context, *Compilation) error {
		order = append(order, "emit")
		return nil
	})
	c.Hooks().AfterEmit.Tap("t", func(context.Context, *Compilation) error {
		order = append(order, "afterEmit")
		return nil
	})
	c.Hooks().EmitRecords.Tap("t", note("emitRecords"))
	c.Hooks().Done.Tap("t", func(context.Context, *Stats) error {
		order = append(order, "done")
		return nil
	})

	_, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"beforeRun", "run",
		"beforeCompile", "compile", "thisCompilation", "compilation",
		"make", "afterCompile",
		"emit", "afterEmit", "emitRecords", "done",
	}, order)
}

func TestShouldEmitNegativeSkipsEmission(t *testing.T) {
	fs := fsio.NewMemFS()
	c := newTestCompiler(t, fs)
	emitOnMake(c, "main.js", "bundle")

	c.Hooks().ShouldEmit.Tap("suppress", func(*Compilation) (bool, bool) {
		return false, true
	})
	var doneFired bool
	c.Hooks().Done.Tap("t", func(context.Context, *Stats) error {
		doneFired = true
		return nil
	})

	stats, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, doneFired)
	assert.Nil(t, fs.FileBytes("out/main.js"), "emission must be skipped entirely")
	assert.NotNil(t, stats)
}

func TestAdditionalPassRunsSecondCompile(t *testing.T) {
	fs := fsio.NewMemFS()
	c, err := New(Config{
		Name:              "test",
		Context:           "/src",
		Output:            OutputOptions{Path: "out", Cache: true},
		RecordsOutputPath: "data/records.json",
		FS:                fs,
	})
	require.NoError(t, err)

	var compiles, dones, additionalPasses, recordEmits int
	c.Hooks().Make.Tap("pass-driver", func(_ context.Context, comp *Compilation) error {
		compiles++
		comp.EmitAsset("main.js", assets.NewRawSource([]byte("bundle")))
		if compiles == 1 {
			comp.SetNeedAdditionalPass()
		}
		return nil
	})
	c.Hooks().Done.Tap("t", func(context.Context, *Stats) error {
		dones++
		return nil
	})
	c.Hooks().AdditionalPass.Tap("t", func(context.Context, *Compiler) error {
		additionalPasses++
		return nil
	})
	c.Hooks().EmitRecords.Tap("t", func(context.Context, *Compiler) error {
		recordEmits++
		return nil
	})

	_, err = c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, compiles, "exactly two compile cycles")
	assert.Equal(t, 1, additionalPasses)
	assert.Equal(t, 2, dones, "done fires once per pass")
	assert.Equal(t, 1, recordEmits, "records written once, on the final pass")
	assert.NotNil(t, fs.FileBytes("data/records.json"))
}

func TestPipelineFailureFiresFailedHook(t *testing.T) {
	fs := fsio.NewMemFS()
	c := newTestCompiler(t, fs)
	boom := errors.New("make exploded")
	c.Hooks().Make.Tap("boom", func(context.Context, *Compilation) error { return boom })

	var failedWith error
	c.Hooks().Failed.Tap("t", func(err error) { failedWith = err })

	_, err := c.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.ErrorIs(t, failedWith, boom)
	assert.False(t, c.IsRunning(), "guard must reset after failure")

	var berr *derrors.BundlerError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, derrors.CategoryHook, berr.Category)
	assert.Equal(t, "make", berr.Context["hook"])

	// The compiler is usable again after a failure.
	c2 := newTestCompiler(t, fs)
	emitOnMake(c2, "ok.js", "x")
	_, err = c2.Run(context.Background())
	require.NoError(t, err)
}

func TestAfterEmitFiresEvenWhenWriteFails(t *testing.T) {
	fs := fsio.NewMemFS()
	fs.WriteErr = errors.New("disk full")
	c := newTestCompiler(t, fs)
	emitOnMake(c, "main.js", "bundle")

	var afterEmitFired bool
	c.Hooks().AfterEmit.Tap("t", func(context.Context, *Compilation) error {
		afterEmitFired = true
		return nil
	})

	_, err := c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, afterEmitFired, "afterEmit fires before the write failure propagates")
}

func TestSoftErrorsDoNotAbortPipeline(t *testing.T) {
	fs := fsio.NewMemFS()
	c := newTestCompiler(t, fs)
	c.Hooks().Make.Tap("soft", func(_ context.Context, comp *Compilation) error {
		comp.EmitAsset("main.js", assets.NewRawSource([]byte("bundle")))
		comp.AddError(errors.New("module parse warning escalated"))
		return nil
	})

	stats, err := c.Run(context.Background())
	require.NoError(t, err, "soft errors never abort the pipeline")
	assert.True(t, stats.HasErrors())
	assert.Equal(t, []byte("bundle"), fs.FileBytes("out/main.js"), "emission still proceeds")
}

func TestReadRecordsMalformedIsFatal(t *testing.T) {
	fs := fsio.NewMemFS()
	fs.Seed("data/records.json", []byte("{broken"))
	c, err := New(Config{
		Name:             "test",
		Output:           OutputOptions{Path: "out"},
		RecordsInputPath: "data/records.json",
		FS:               fs,
	})
	require.NoError(t, err)

	_, err = c.Run(context.Background())
	require.Error(t, err)
}

func TestRecordsRoundTripAcrossRuns(t *testing.T) {
	fs := fsio.NewMemFS()
	mk := func() *Compiler {
		c, err := New(Config{
			Name:              "test",
			Output:            OutputOptions{Path: "out", Cache: true},
			RecordsInputPath:  "data/records.json",
			RecordsOutputPath: "data/records.json",
			FS:                fs,
		})
		require.NoError(t, err)
		emitOnMake(c, "main.js", "bundle")
		return c
	}

	c1 := mk()
	c1.Hooks().EmitRecords.Tap("stamp", func(_ context.Context, c *Compiler) error {
		c.Records()["moduleIds"] = map[string]any{"main": 0}
		return nil
	})
	_, err := c1.Run(context.Background())
	require.NoError(t, err)

	c2 := mk()
	_, err = c2.Run(context.Background())
	require.NoError(t, err)
	ids, ok := c2.Records()["moduleIds"].(map[string]any)
	require.True(t, ok, "records persist across compiler processes")
	assert.Equal(t, float64(0), ids["main"])
}

func TestFactoryHooksFireOncePerCompile(t *testing.T) {
	fs := fsio.NewMemFS()
	c := newTestCompiler(t, fs)
	emitOnMake(c, "main.js", "bundle")

	var normal, contextual int
	c.Hooks().NormalModuleFactory.Tap("t", func(f ModuleFactory) {
		assert.Equal(t, "normal", f.FactoryKind())
		normal++
	})
	c.Hooks().ContextModuleFactory.Tap("t", func(f ModuleFactory) {
		assert.Equal(t, "context", f.FactoryKind())
		contextual++
	})

	_, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, normal)
	assert.Equal(t, 1, contextual)

	_, err = c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, normal, "one factory instance per compile invocation")
}

func TestConflictingAssetNamesRecordSoftError(t *testing.T) {
	fs := fsio.NewMemFS()
	c := newTestCompiler(t, fs)
	c.Hooks().Make.Tap("dup", func(_ context.Context, comp *Compilation) error {
		comp.EmitAsset("main.js", assets.NewRawSource([]byte("one")))
		comp.EmitAsset("main.js", assets.NewRawSource([]byte("two")))
		return nil
	})

	stats, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.HasErrors())
	assert.Equal(t, []byte("one"), fs.FileBytes("out/main.js"), "first source wins")
}

func TestWatchCycleLifecycle(t *testing.T) {
	fs := fsio.NewMemFS()
	c := newTestCompiler(t, fs)
	emitOnMake(c, "main.js", "bundle")

	c.FileTimestamps.Set("/src/a.js", time.Now())
	require.NoError(t, c.BeginWatch())
	assert.True(t, c.WatchMode())
	assert.Zero(t, c.FileTimestamps.Len(), "watch start resets incremental state")

	// A Run during an active watch session is re-entrant.
	_, err := c.Run(context.Background())
	assert.True(t, IsConcurrentCompilation(err))

	stats, err := c.RunCycle(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, stats)

	c.EndWatch()
	assert.False(t, c.IsRunning())
}
