// Package typeenv implements the type environment: scoped name lookup,
// import resolution, primitive method resolution, and behavior
// subsumption over the module registry. It is grounded on
// internal/types/scope.go (Scope/Symbol) and internal/types/constraints.go
// (the existing single-module Environment), generalized here to span every
// loaded module via internal/registry.
package typeenv

import (
	"github.com/tml-lang/tmlc/internal/registry"
	"github.com/tml-lang/tmlc/internal/types"
)

// Env is the cross-module type environment threaded through checking of
// one compilation unit. It owns the current lexical scope stack and
// defers declaration lookups to the Registry.
type Env struct {
	reg *registry.Registry

	// CurrentModule is the module path whose body is presently being
	// checked; primitive/import resolution is relative to it.
	CurrentModule string

	scope *types.Scope

	// primitiveImpls holds inherent impls on primitive types, keyed by
	// "<module>|<PrimitiveKind>|<method>".
	primitiveImpls map[string]*registry.FuncSig
}

func New(reg *registry.Registry) *Env {
	return &Env{
		reg:            reg,
		scope:          types.NewScope(nil),
		primitiveImpls: make(map[string]*registry.FuncSig),
	}
}

// Registry exposes the underlying module registry.
func (e *Env) Registry() *registry.Registry { return e.reg }

// PushScope enters a new lexical scope.
func (e *Env) PushScope() { e.scope = types.NewScope(e.scope) }

// PopScope discards the innermost scope's definitions.
func (e *Env) PopScope() {
	if e.scope.Parent != nil {
		e.scope = e.scope.Parent
	}
}

// Define adds name to the innermost scope (shadowing permitted).
func (e *Env) Define(name string, t types.Type) {
	e.scope.Insert(name, &types.Symbol{Name: name, Type: t})
}

// DefineSymbol adds a fully formed symbol to the innermost scope.
func (e *Env) DefineSymbol(sym *types.Symbol) { e.scope.Insert(sym.Name, sym) }

// Lookup walks outward from the innermost scope.
func (e *Env) Lookup(name string) *types.Symbol { return e.scope.Lookup(name) }

// RegisterPrimitiveMethod records an inherent `impl` method on a primitive
// kind (e.g. `impl i64 { fn abs(self) -> i64 { ... } }`).
func (e *Env) RegisterPrimitiveMethod(modulePath string, kind types.PrimitiveKind, method string, sig *registry.FuncSig) {
	e.primitiveImpls[primitiveKey(modulePath, kind, method)] = sig
}

func primitiveKey(modulePath string, kind types.PrimitiveKind, method string) string {
	return modulePath + "|" + string(kind) + "|" + method
}

// ResolvePrimitiveMethod implements two-tier lookup: the
// local module's impl first, then every imported module's impl.
func (e *Env) ResolvePrimitiveMethod(kind types.PrimitiveKind, method string) (*registry.FuncSig, bool) {
	if sig, ok := e.primitiveImpls[primitiveKey(e.CurrentModule, kind, method)]; ok {
		return sig, true
	}
	mod, ok := e.reg.Lookup(e.CurrentModule)
	if !ok {
		return nil, false
	}
	for _, imp := range mod.Imports {
		importedModule, _ := splitQualified(imp.QualifiedPath)
		if importedModule == "" {
			continue
		}
		if sig, ok := e.primitiveImpls[primitiveKey(importedModule, kind, method)]; ok {
			return sig, true
		}
	}
	return nil, false
}

// ResolveImportedSymbol resolves a use-declaration's short name to its
// fully qualified "module::symbol" path, searching the current module's
// imports.
func (e *Env) ResolveImportedSymbol(name string) (string, bool) {
	mod, ok := e.reg.Lookup(e.CurrentModule)
	if !ok {
		return "", false
	}
	return mod.ResolveImportedSymbol(name)
}

func splitQualified(qualified string) (modPath, symbol string) {
	idx := -1
	for i := len(qualified) - 1; i >= 1; i-- {
		if qualified[i-1] == ':' && qualified[i] == ':' {
			idx = i - 1
			break
		}
	}
	if idx < 0 {
		return "", qualified
	}
	return qualified[:idx], qualified[idx+2:]
}
