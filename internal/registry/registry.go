// Package registry implements the cross-module name resolution table
// shared by the type checker and the code generator.
//
// A Registry is a map from `::`-separated module path to Module. It is populated
// in two passes while a module tree is loaded: pass 1 registers every
// declared name so forward references across functions and types resolve,
// pass 2 resolves bodies (the checker drives pass 2). The registry itself
// never touches the filesystem; a Loader (loader.go) is the only piece
// that does, grounded on sunholo-data-ailang/internal/module's resolver.
package registry

import (
	"fmt"
	"sort"

	"github.com/tml-lang/tmlc/internal/ast"
	"github.com/tml-lang/tmlc/internal/types"
)

// FuncSig is the registry-resident signature of a function.
type FuncSig struct {
	Name             string
	TypeParams       []types.TypeParam
	Params           []types.Type
	ParamNames       []string
	ReturnType       types.Type
	WhereConstraints []WhereConstraint
	Decl             *ast.FnDecl
}

// WhereConstraint is one `T: Behavior` predicate from a where-clause.
type WhereConstraint struct {
	TypeParam string
	Behavior  string
}

// StructDef is the registry-resident definition of a struct.
type StructDef struct {
	Name       string
	TypeParams []types.TypeParam
	Fields     []StructFieldDef
	IsUnion    bool
	Decl       *ast.StructDecl
}

type StructFieldDef struct {
	Name       string
	Type       types.Type
	HasDefault bool
}

// EnumDef is the registry-resident definition of an enum.
// Tag values are assigned by source order: tag 0 is the first variant.
type EnumDef struct {
	Name       string
	TypeParams []types.TypeParam
	Variants   []EnumVariantDef
	Decl       *ast.EnumDecl
}

type EnumVariantDef struct {
	Name    string
	Tag     int
	Payload []types.Type
}

// TagOf returns the stable source-order tag of a variant, or -1.
func (e *EnumDef) TagOf(variant string) int {
	for _, v := range e.Variants {
		if v.Name == variant {
			return v.Tag
		}
	}
	return -1
}

// BehaviorDef is the registry-resident definition of a behavior/trait.
type BehaviorDef struct {
	Name            string
	SuperBehaviors  []string
	AssociatedTypes []string
	Methods         []BehaviorMethod
	Decl            *ast.TraitDecl
}

type BehaviorMethod struct {
	Name        string
	TypeParams  []types.TypeParam
	Params      []types.Type
	Return      types.Type
	HasDefault  bool
	DefaultDecl *ast.FnDecl
}

// ImplDef records one `impl Behavior for Type` (or inherent `impl Type`)
// block, keyed by (behavior, type) so the checker's method resolution and
// the emitter's vtable construction share one source of
// truth.
type ImplDef struct {
	Behavior   string // "" for an inherent impl
	TargetType types.Type
	TargetName string // mangled/base name of TargetType, used as a map key
	TypeParams []types.TypeParam
	Methods    map[string]*FuncSig
	AssocTypes map[string]types.Type
	Decl       *ast.ImplDecl
}

// Import maps a use-declaration's short name to a fully qualified path.
type Import struct {
	ShortName     string
	QualifiedPath string // "module::symbol"
}

// Module groups every declaration namespace for one compilation unit.
type Module struct {
	Path      string
	Functions map[string]*FuncSig
	Structs   map[string]*StructDef
	Enums     map[string]*EnumDef
	Behaviors map[string]*BehaviorDef
	Classes   map[string]*types.ClassDef
	Constants map[string]*ConstDef
	Aliases   map[string]types.Type
	Imports   []Import
	// Impls, keyed by "<behavior>|<typeName>" ("" behavior for inherent).
	Impls map[string]*ImplDef
}

type ConstDef struct {
	Name  string
	Type  types.Type
	Value ast.Expr
}

func NewModule(path string) *Module {
	return &Module{
		Path:      path,
		Functions: make(map[string]*FuncSig),
		Structs:   make(map[string]*StructDef),
		Enums:     make(map[string]*EnumDef),
		Behaviors: make(map[string]*BehaviorDef),
		Classes:   make(map[string]*types.ClassDef),
		Constants: make(map[string]*ConstDef),
		Aliases:   make(map[string]types.Type),
		Impls:     make(map[string]*ImplDef),
	}
}

func implKey(behavior, typeName string) string { return behavior + "|" + typeName }

// AddImpl registers an impl block under its (behavior, type) key.
func (m *Module) AddImpl(impl *ImplDef) {
	m.Impls[implKey(impl.Behavior, impl.TargetName)] = impl
}

// LookupImpl finds the impl of `behavior` for `typeName` (behavior == ""
// for an inherent impl).
func (m *Module) LookupImpl(behavior, typeName string) (*ImplDef, bool) {
	impl, ok := m.Impls[implKey(behavior, typeName)]
	return impl, ok
}

// ImplsFor returns every impl block (inherent and behavior) registered for
// typeName, in a deterministic order.
func (m *Module) ImplsFor(typeName string) []*ImplDef {
	var out []*ImplDef
	for _, impl := range m.Impls {
		if impl.TargetName == typeName {
			out = append(out, impl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Behavior < out[j].Behavior })
	return out
}

// Registry is the process-wide (per-compilation) map from module path to
// Module.
type Registry struct {
	modules map[string]*Module
	order   []string // insertion order, for deterministic iteration
}

func New() *Registry {
	return &Registry{modules: make(map[string]*Module)}
}

// Declare registers a new, empty module at path, replacing nothing if one
// already exists (returns the existing module in that case).
func (r *Registry) Declare(path string) *Module {
	if m, ok := r.modules[path]; ok {
		return m
	}
	m := NewModule(path)
	r.modules[path] = m
	r.order = append(r.order, path)
	return m
}

// Lookup returns the module at path, if registered.
func (r *Registry) Lookup(path string) (*Module, bool) {
	m, ok := r.modules[path]
	return m, ok
}

// MustLookup panics if path is not registered; only used internally where
// a prior Declare is a compiler invariant, never for user-facing paths.
func (r *Registry) MustLookup(path string) *Module {
	m, ok := r.modules[path]
	if !ok {
		panic(fmt.Sprintf("registry: module %q not declared", path))
	}
	return m
}

// Paths returns every registered module path in registration order.
func (r *Registry) Paths() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Resolve looks up `name` within module `path`, following its Imports if
// `name` is not declared locally.
// kind selects which namespace to search.
func (r *Registry) Resolve(path, name string, kind Kind) (interface{}, bool) {
	m, ok := r.modules[path]
	if !ok {
		return nil, false
	}
	if v, ok := lookupLocal(m, name, kind); ok {
		return v, true
	}
	for _, imp := range m.Imports {
		if imp.ShortName != name {
			continue
		}
		modPath, symbol := splitQualified(imp.QualifiedPath)
		if modPath == "" {
			modPath = path
		}
		if target, ok := r.modules[modPath]; ok {
			if v, ok := lookupLocal(target, symbol, kind); ok {
				return v, true
			}
		}
	}
	return nil, false
}

// Kind selects a declaration namespace for Resolve/ResolveImportedSymbol.
type Kind int

const (
	KindFunc Kind = iota
	KindStruct
	KindEnum
	KindBehavior
	KindClass
	KindConst
	KindAlias
)

func lookupLocal(m *Module, name string, kind Kind) (interface{}, bool) {
	switch kind {
	case KindFunc:
		v, ok := m.Functions[name]
		return v, ok
	case KindStruct:
		v, ok := m.Structs[name]
		return v, ok
	case KindEnum:
		v, ok := m.Enums[name]
		return v, ok
	case KindBehavior:
		v, ok := m.Behaviors[name]
		return v, ok
	case KindClass:
		v, ok := m.Classes[name]
		return v, ok
	case KindConst:
		v, ok := m.Constants[name]
		return v, ok
	case KindAlias:
		v, ok := m.Aliases[name]
		return v, ok
	}
	return nil, false
}

// ResolveImportedSymbol returns the fully qualified "module::symbol" path
// a use-declaration's short name maps to.
func (m *Module) ResolveImportedSymbol(name string) (string, bool) {
	for _, imp := range m.Imports {
		if imp.ShortName == name {
			return imp.QualifiedPath, true
		}
	}
	return "", false
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
