package compiler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/bundler/internal/assets"
	"git.home.luguber.info/inful/bundler/internal/hooks"
	"git.home.luguber.info/inful/bundler/internal/util/sets"
)

// CompilationHooks are the extension points collaborators populate the
// finalize protocol through.
type CompilationHooks struct {
	FinishModules      *hooks.AsyncSeries[*Compilation]
	Seal               *hooks.AsyncSeries[*Compilation]
	NeedAdditionalPass *hooks.SyncBail[*Compilation, bool]
}

// Compilation is the mutable state of one build attempt, owned exclusively
// by one compiler for the duration of one build and replaced on the next.
// The module graph itself is opaque here; only the asset mapping, the soft
// error list and the finalize protocol matter to the orchestration core.
type Compilation struct {
	ID    string
	Hooks *CompilationHooks

	compiler *Compiler // non-owning back-reference
	params   *CompilationParams

	mu                 sync.Mutex
	assets             map[string]assets.Source
	errs               []error
	needAdditionalPass bool
	sealed             bool
	hash               string
	meta               map[string]string
	emitted            sets.Set[string]
	childSlots         sets.Set[string]

	// Dependencies are the paths this build result depends on, supplied by
	// collaborators during make.
	Dependencies sets.Set[string]
}

func newCompilation(c *Compiler, params *CompilationParams) *Compilation {
	return &Compilation{
		ID: uuid.NewString(),
		Hooks: &CompilationHooks{
			FinishModules:      hooks.NewAsyncSeries[*Compilation](),
			Seal:               hooks.NewAsyncSeries[*Compilation](),
			NeedAdditionalPass: hooks.NewSyncBail[*Compilation, bool](),
		},
		compiler:     c,
		params:       params,
		assets:       make(map[string]assets.Source),
		meta:         make(map[string]string),
		emitted:      sets.New[string](),
		childSlots:   sets.New[string](),
		Dependencies: sets.New[string](),
	}
}

// Compiler returns the owning compiler. The reference is observational; the
// compilation never outlives its compiler.
func (comp *Compilation) Compiler() *Compiler { return comp.compiler }

// Params returns the collaborator handles this compilation was built from.
func (comp *Compilation) Params() *CompilationParams { return comp.params }

// EmitAsset registers an output asset. Safe to call from concurrent make
// taps. Emitting the same filename twice records a soft error and keeps the
// first source.
func (comp *Compilation) EmitAsset(name string, src assets.Source) {
	comp.mu.Lock()
	defer comp.mu.Unlock()
	if _, exists := comp.assets[name]; exists {
		comp.errs = append(comp.errs, fmt.Errorf("conflict: multiple assets emit to filename %s", name))
		return
	}
	comp.assets[name] = src
}

// Assets returns the live asset mapping. After seal, emission may replace
// entries with size-only stand-ins.
func (comp *Compilation) Assets() map[string]assets.Source {
	return comp.assets
}

// AddError records a soft build error. Soft errors never abort the pipeline;
// they surface through the stats result and the exit-status contract.
func (comp *Compilation) AddError(err error) {
	if err == nil {
		return
	}
	comp.mu.Lock()
	comp.errs = append(comp.errs, err)
	comp.mu.Unlock()
}

// Errors returns a snapshot of the soft error list.
func (comp *Compilation) Errors() []error {
	comp.mu.Lock()
	defer comp.mu.Unlock()
	return append([]error(nil), comp.errs...)
}

// SetNeedAdditionalPass flags that this pass's output is stale relative to
// itself and the compiler must run another compile cycle.
func (comp *Compilation) SetNeedAdditionalPass() {
	comp.mu.Lock()
	comp.needAdditionalPass = true
	comp.mu.Unlock()
}

// NeedsAdditionalPass reports whether another compile cycle is required,
// combining the flag with the bail-style collaborator query.
func (comp *Compilation) NeedsAdditionalPass() bool {
	comp.mu.Lock()
	flagged := comp.needAdditionalPass
	comp.mu.Unlock()
	if flagged {
		return true
	}
	if v, ok := comp.Hooks.NeedAdditionalPass.Call(comp); ok {
		return v
	}
	return false
}

// SetMeta attaches auxiliary build metadata (e.g. VCS provenance) carried
// into the stats report.
func (comp *Compilation) SetMeta(key, value string) {
	comp.mu.Lock()
	comp.meta[key] = value
	comp.mu.Unlock()
}

// Meta returns a snapshot of the auxiliary metadata.
func (comp *Compilation) Meta() map[string]string {
	comp.mu.Lock()
	defer comp.mu.Unlock()
	out := make(map[string]string, len(comp.meta))
	for k, v := range comp.meta {
		out[k] = v
	}
	return out
}

// Finish runs the module-graph validation phase. Collaborator failures
// propagate unmodified.
func (comp *Compilation) Finish(ctx context.Context) error {
	return comp.Hooks.FinishModules.CallAsync(ctx, comp)
}

// Seal fixes the output shape: collaborators chunk the graph into assets,
// then the compilation hash is computed over the sealed asset mapping.
// Must be called after Finish; never skipped.
func (comp *Compilation) Seal(ctx context.Context) error {
	if err := comp.Hooks.Seal.CallAsync(ctx, comp); err != nil {
		return err
	}
	comp.mu.Lock()
	comp.sealed = true
	comp.hash = comp.computeHashLocked()
	comp.mu.Unlock()
	return nil
}

// Hash is the identity of this build's output, stable for identical output.
// Empty until sealed.
func (comp *Compilation) Hash() string {
	comp.mu.Lock()
	defer comp.mu.Unlock()
	return comp.hash
}

// computeHashLocked digests sorted asset names, sizes and available content.
func (comp *Compilation) computeHashLocked() string {
	h := sha256.New()
	for _, name := range sortedAssetNames(comp.assets) {
		src := comp.assets[name]
		fmt.Fprintf(h, "%s:%d:", name, src.Size())
		if data, err := src.Bytes(); err == nil {
			h.Write(data)
		}
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}

func (comp *Compilation) markEmitted(names []string) {
	comp.mu.Lock()
	for _, n := range names {
		comp.emitted.Add(n)
	}
	comp.mu.Unlock()
}

// WasEmitted reports whether the named asset was physically written during
// this build (false when the write was deduplicated).
func (comp *Compilation) WasEmitted(name string) bool {
	comp.mu.Lock()
	defer comp.mu.Unlock()
	return comp.emitted.Has(name)
}

// claimChildSlot reserves a (name, index) pair for a child compiler. The
// pair must be unique per sibling set inside one parent build.
func (comp *Compilation) claimChildSlot(name string, index int) error {
	key := fmt.Sprintf("%s\x00%d", name, index)
	comp.mu.Lock()
	defer comp.mu.Unlock()
	if comp.childSlots.Has(key) {
		return fmt.Errorf("child compiler slot (%s, %d) already used in this build", name, index)
	}
	comp.childSlots.Add(key)
	return nil
}

func sortedAssetNames(m map[string]assets.Source) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
