package typeenv

import (
	"testing"

	"github.com/tml-lang/tmlc/internal/registry"
	"github.com/tml-lang/tmlc/internal/types"
)

func TestEnv_ScopeShadowing(t *testing.T) {
	e := New(registry.New())
	e.Define("x", types.TypeI64)
	if sym := e.Lookup("x"); sym == nil || sym.Type != types.TypeI64 {
		t.Fatalf("expected x to resolve to i64 in outer scope")
	}

	e.PushScope()
	e.Define("x", types.TypeString)
	if sym := e.Lookup("x"); sym == nil || sym.Type != types.TypeString {
		t.Fatalf("expected inner x to shadow outer x")
	}
	e.PopScope()

	if sym := e.Lookup("x"); sym == nil || sym.Type != types.TypeI64 {
		t.Fatalf("expected outer x to be visible again after PopScope")
	}
}

func TestEnv_LookupWalksOuterScopes(t *testing.T) {
	e := New(registry.New())
	e.Define("outer", types.TypeBool)
	e.PushScope()
	if sym := e.Lookup("outer"); sym == nil {
		t.Fatalf("expected inner scope to see outer-scope definitions")
	}
	if sym := e.Lookup("missing"); sym != nil {
		t.Fatalf("expected undeclared name to resolve to nil, got %+v", sym)
	}
}

func TestEnv_PopScopeAtRootIsNoop(t *testing.T) {
	e := New(registry.New())
	e.Define("x", types.TypeI64)
	e.PopScope() // no parent; must not panic or discard the root scope
	if sym := e.Lookup("x"); sym == nil {
		t.Fatalf("expected PopScope at the root scope to be a no-op")
	}
}

func TestEnv_ResolvePrimitiveMethod_LocalThenImported(t *testing.T) {
	reg := registry.New()
	mathMod := reg.Declare("std::math")
	appMod := reg.Declare("app::main")
	appMod.Imports = append(appMod.Imports, registry.Import{ShortName: "abs", QualifiedPath: "std::math::abs"})

	e := New(reg)
	e.CurrentModule = "app::main"

	absSig := &registry.FuncSig{Name: "abs"}
	e.RegisterPrimitiveMethod("std::math", types.I64, "abs", absSig)
	_ = mathMod

	sig, ok := e.ResolvePrimitiveMethod(types.I64, "abs")
	if !ok || sig != absSig {
		t.Fatalf("expected imported primitive method `abs` on i64 to resolve")
	}

	if _, ok := e.ResolvePrimitiveMethod(types.I64, "unknown"); ok {
		t.Fatalf("expected unregistered primitive method to fail to resolve")
	}

	// A local impl takes precedence over an imported one of the same name.
	localSig := &registry.FuncSig{Name: "abs-local"}
	e.RegisterPrimitiveMethod("app::main", types.I64, "abs", localSig)
	if sig, ok := e.ResolvePrimitiveMethod(types.I64, "abs"); !ok || sig != localSig {
		t.Fatalf("expected local primitive method to shadow the imported one")
	}
}

func TestEnv_ResolveImportedSymbol(t *testing.T) {
	reg := registry.New()
	app := reg.Declare("app::main")
	app.Imports = append(app.Imports, registry.Import{ShortName: "List", QualifiedPath: "collections::list::List"})

	e := New(reg)
	e.CurrentModule = "app::main"

	qualified, ok := e.ResolveImportedSymbol("List")
	if !ok || qualified != "collections::list::List" {
		t.Fatalf("expected List to resolve to collections::list::List, got %q, %v", qualified, ok)
	}
	if _, ok := e.ResolveImportedSymbol("Unknown"); ok {
		t.Fatalf("expected unknown import to fail")
	}
}

func TestEnv_ResolveImportedSymbol_UnknownModule(t *testing.T) {
	e := New(registry.New())
	e.CurrentModule = "does::not::exist"
	if _, ok := e.ResolveImportedSymbol("anything"); ok {
		t.Fatalf("expected resolution against an undeclared module to fail")
	}
}
