package compiler

import (
	"git.home.luguber.info/inful/bundler/internal/util/sets"
)

// ModuleFactory is an opaque collaborator that resolves and builds modules
// during the make phase. Its internals are owned by the module-graph layer;
// the orchestration core only creates one instance per compile and gives
// plugins a chance to augment it through the factory hooks.
type ModuleFactory interface {
	FactoryKind() string
}

// ModuleFactoryProvider produces a fresh factory per compile invocation.
type ModuleFactoryProvider func() ModuleFactory

// CompilationParams carries the collaborator handles a new compilation is
// constructed from.
type CompilationParams struct {
	NormalModuleFactory     ModuleFactory
	ContextModuleFactory    ModuleFactory
	CompilationDependencies sets.Set[string]
}

type noopModuleFactory struct {
	kind string
}

func (f noopModuleFactory) FactoryKind() string { return f.kind }

// NoopNormalModuleFactory is the default normal-module-factory provider used
// when no module-graph collaborator is wired in.
func NoopNormalModuleFactory() ModuleFactory {
	return noopModuleFactory{kind: "normal"}
}

// NoopContextModuleFactory is the default context-module-factory provider.
func NoopContextModuleFactory() ModuleFactory {
	return noopModuleFactory{kind: "context"}
}
