package typeenv

import (
	"testing"

	"github.com/tml-lang/tmlc/internal/registry"
)

func TestEnv_TypeImplements_DirectImpl(t *testing.T) {
	reg := registry.New()
	mod := reg.Declare("app::main")
	mod.AddImpl(&registry.ImplDef{Behavior: "Clone", TargetName: "Point"})

	e := New(reg)
	if !e.TypeImplements("Point", "Clone") {
		t.Fatalf("expected Point to implement Clone via a direct impl")
	}
	if e.TypeImplements("Point", "Debug") {
		t.Fatalf("expected Point not to implement Debug")
	}
}

func TestEnv_TypeImplements_TransitiveSuperBehavior(t *testing.T) {
	reg := registry.New()
	mod := reg.Declare("app::main")
	mod.Behaviors["Eq"] = &registry.BehaviorDef{Name: "Eq", SuperBehaviors: []string{"PartialEq"}}
	mod.Behaviors["Ord"] = &registry.BehaviorDef{Name: "Ord", SuperBehaviors: []string{"Eq"}}
	mod.AddImpl(&registry.ImplDef{Behavior: "Ord", TargetName: "Point"})

	e := New(reg)
	if !e.TypeImplements("Point", "Ord") {
		t.Fatalf("expected Point to implement Ord directly")
	}
	if !e.TypeImplements("Point", "Eq") {
		t.Fatalf("expected Point to implement Eq via Ord's super-behavior chain")
	}
	if !e.TypeImplements("Point", "PartialEq") {
		t.Fatalf("expected Point to implement PartialEq transitively through Eq")
	}
	if e.TypeImplements("Point", "Hash") {
		t.Fatalf("expected Point not to implement an unrelated behavior")
	}
}

func TestEnv_TypeImplements_SuperBehaviorCycleTerminates(t *testing.T) {
	reg := registry.New()
	mod := reg.Declare("app::main")
	mod.Behaviors["A"] = &registry.BehaviorDef{Name: "A", SuperBehaviors: []string{"B"}}
	mod.Behaviors["B"] = &registry.BehaviorDef{Name: "B", SuperBehaviors: []string{"A"}}
	mod.AddImpl(&registry.ImplDef{Behavior: "A", TargetName: "Loop"})

	e := New(reg)
	if e.TypeImplements("Loop", "C") {
		t.Fatalf("expected an unrelated behavior to be unreachable despite the A/B cycle")
	}
}

func TestEnv_TypeImplements_SendSyncDelegatesToAutoDerives(t *testing.T) {
	reg := registry.New()
	mod := reg.Declare("app::main")
	mod.Structs["Pair"] = &registry.StructDef{Name: "Pair"}

	e := New(reg)
	if !e.TypeImplements("Pair", "Send") {
		t.Fatalf("expected an empty struct to auto-derive Send")
	}
	if !e.TypeImplements("Pair", "Sync") {
		t.Fatalf("expected an empty struct to auto-derive Sync")
	}
}
