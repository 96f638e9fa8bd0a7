package registry

import "testing"

func TestRegistry_DeclareIsIdempotent(t *testing.T) {
	r := New()
	a := r.Declare("app::main")
	b := r.Declare("app::main")
	if a != b {
		t.Fatalf("expected Declare to return the same module on repeat calls")
	}
	if got := r.Paths(); len(got) != 1 || got[0] != "app::main" {
		t.Fatalf("expected Paths() = [app::main], got %v", got)
	}
}

func TestRegistry_ResolveFollowsImports(t *testing.T) {
	r := New()
	list := r.Declare("collections::list")
	list.Functions["new"] = &FuncSig{Name: "new"}

	main := r.Declare("app::main")
	main.Imports = append(main.Imports, Import{ShortName: "new", QualifiedPath: "collections::list::new"})

	if _, ok := r.Resolve("app::main", "new", KindFunc); !ok {
		t.Fatalf("expected imported symbol `new` to resolve")
	}
	if _, ok := r.Resolve("app::main", "missing", KindFunc); ok {
		t.Fatalf("expected lookup of undeclared symbol to fail")
	}
}

func TestModule_ImplsForSortsByBehavior(t *testing.T) {
	m := NewModule("app::main")
	m.AddImpl(&ImplDef{Behavior: "Clone", TargetName: "Point"})
	m.AddImpl(&ImplDef{Behavior: "", TargetName: "Point"})
	m.AddImpl(&ImplDef{Behavior: "Debug", TargetName: "Point"})

	impls := m.ImplsFor("Point")
	if len(impls) != 3 {
		t.Fatalf("expected 3 impls for Point, got %d", len(impls))
	}
	if impls[0].Behavior != "" || impls[1].Behavior != "Clone" || impls[2].Behavior != "Debug" {
		t.Fatalf("expected impls sorted by behavior (inherent first), got %+v", impls)
	}
}

func TestModule_LookupImplInherentVsBehavior(t *testing.T) {
	m := NewModule("app::main")
	m.AddImpl(&ImplDef{Behavior: "", TargetName: "Point", Methods: map[string]*FuncSig{"area": {Name: "area"}}})
	m.AddImpl(&ImplDef{Behavior: "Clone", TargetName: "Point"})

	if _, ok := m.LookupImpl("", "Point"); !ok {
		t.Fatalf("expected inherent impl to be found")
	}
	if _, ok := m.LookupImpl("Clone", "Point"); !ok {
		t.Fatalf("expected Clone impl to be found")
	}
	if _, ok := m.LookupImpl("Debug", "Point"); ok {
		t.Fatalf("expected no Debug impl for Point")
	}
}

func TestModule_ResolveImportedSymbol(t *testing.T) {
	m := NewModule("app::main")
	m.Imports = append(m.Imports, Import{ShortName: "List", QualifiedPath: "collections::list::List"})

	qualified, ok := m.ResolveImportedSymbol("List")
	if !ok || qualified != "collections::list::List" {
		t.Fatalf("expected List to resolve to collections::list::List, got %q, %v", qualified, ok)
	}
	if _, ok := m.ResolveImportedSymbol("Unknown"); ok {
		t.Fatalf("expected unknown import to fail")
	}
}
