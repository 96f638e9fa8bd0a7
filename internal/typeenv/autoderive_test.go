package typeenv

import (
	"testing"

	"github.com/tml-lang/tmlc/internal/registry"
	"github.com/tml-lang/tmlc/internal/types"
)

func TestEnv_AutoDerives_StructOfPrimitivesDerivesBoth(t *testing.T) {
	reg := registry.New()
	mod := reg.Declare("app::main")
	mod.Structs["Point"] = &registry.StructDef{
		Name: "Point",
		Fields: []registry.StructFieldDef{
			{Name: "x", Type: types.TypeI64},
			{Name: "y", Type: types.TypeI64},
		},
	}

	e := New(reg)
	if !e.AutoDerives("Point", "Send") {
		t.Fatalf("expected an all-i64 struct to derive Send")
	}
	if !e.AutoDerives("Point", "Sync") {
		t.Fatalf("expected an all-i64 struct to derive Sync")
	}
}

func TestEnv_AutoDerives_RawPointerFieldBlocksBoth(t *testing.T) {
	reg := registry.New()
	mod := reg.Declare("app::main")
	mod.Structs["Cell"] = &registry.StructDef{
		Name: "Cell",
		Fields: []registry.StructFieldDef{
			{Name: "data", Type: &types.Pointer{Inner: types.TypeI64}},
		},
	}

	e := New(reg)
	if e.AutoDerives("Cell", "Send") {
		t.Fatalf("expected a raw-pointer field to block Send")
	}
	if e.AutoDerives("Cell", "Sync") {
		t.Fatalf("expected a raw-pointer field to block Sync")
	}
}

func TestEnv_AutoDerives_EnumVariantPayloads(t *testing.T) {
	reg := registry.New()
	mod := reg.Declare("app::main")
	mod.Enums["Maybe"] = &registry.EnumDef{
		Name: "Maybe",
		Variants: []registry.EnumVariantDef{
			{Name: "None", Tag: 0},
			{Name: "Some", Tag: 1, Payload: []types.Type{types.TypeI64}},
		},
	}

	e := New(reg)
	if !e.AutoDerives("Maybe", "Send") {
		t.Fatalf("expected Maybe[i64] to derive Send through its variant payloads")
	}
}

func TestEnv_AutoDerives_MutReferenceIsSendNotSync(t *testing.T) {
	e := New(registry.New())
	mutRef := &types.Reference{Mutable: true, Elem: types.TypeI64}
	if !e.TypeDerives(mutRef, "Send", make(map[string]bool)) {
		t.Fatalf("expected &mut i64 to be Send (unique access transfers safely)")
	}
	if e.TypeDerives(mutRef, "Sync", make(map[string]bool)) {
		t.Fatalf("expected &mut i64 not to be Sync (no concurrent shared access)")
	}
}

func TestEnv_AutoDerives_SharedReferenceIsSendAndSync(t *testing.T) {
	e := New(registry.New())
	sharedRef := &types.Reference{Mutable: false, Elem: types.TypeI64}
	if !e.TypeDerives(sharedRef, "Send", make(map[string]bool)) {
		t.Fatalf("expected &i64 to be Send when its referent is Sync")
	}
	if !e.TypeDerives(sharedRef, "Sync", make(map[string]bool)) {
		t.Fatalf("expected &i64 to be Sync")
	}
}

func TestEnv_AutoDerives_CyclicStructTerminates(t *testing.T) {
	reg := registry.New()
	mod := reg.Declare("app::main")
	mod.Structs["Node"] = &registry.StructDef{
		Name: "Node",
		Fields: []registry.StructFieldDef{
			{Name: "next", Type: &types.Named{Name: "Node"}},
		},
	}

	e := New(reg)
	// Must terminate rather than recurse forever on the self-referential
	// field; a revisited type is treated as not disqualifying the marker.
	if !e.AutoDerives("Node", "Send") {
		t.Fatalf("expected a self-referential struct to still derive Send once the cycle is skipped")
	}
}

func TestEnv_TypeNeedsDrop_PrimitivesNeverDrop(t *testing.T) {
	e := New(registry.New())
	if e.TypeNeedsDrop(types.TypeI64) {
		t.Fatalf("expected i64 never to need drop")
	}
	if e.TypeNeedsDrop(&types.Reference{Elem: types.TypeI64}) {
		t.Fatalf("expected a reference never to need drop")
	}
}

func TestEnv_TypeNeedsDrop_StructWithDropImplNeedsDrop(t *testing.T) {
	reg := registry.New()
	mod := reg.Declare("app::main")
	mod.Structs["File"] = &registry.StructDef{Name: "File"}
	mod.AddImpl(&registry.ImplDef{Behavior: "Drop", TargetName: "File"})

	e := New(reg)
	if !e.TypeNeedsDrop(&types.Named{Name: "File"}) {
		t.Fatalf("expected a type with a Drop impl to need drop")
	}
}

func TestEnv_TypeNeedsDrop_PropagatesThroughFields(t *testing.T) {
	reg := registry.New()
	mod := reg.Declare("app::main")
	mod.Structs["File"] = &registry.StructDef{Name: "File"}
	mod.AddImpl(&registry.ImplDef{Behavior: "Drop", TargetName: "File"})
	mod.Structs["Handle"] = &registry.StructDef{
		Name: "Handle",
		Fields: []registry.StructFieldDef{
			{Name: "f", Type: &types.Named{Name: "File"}},
		},
	}

	e := New(reg)
	if !e.TypeNeedsDrop(&types.Named{Name: "Handle"}) {
		t.Fatalf("expected a struct holding a Drop type to need drop")
	}
}

func TestEnv_TypeNeedsDrop_StructWithoutDropDoesNotNeedDrop(t *testing.T) {
	reg := registry.New()
	mod := reg.Declare("app::main")
	mod.Structs["Point"] = &registry.StructDef{
		Name: "Point",
		Fields: []registry.StructFieldDef{
			{Name: "x", Type: types.TypeI64},
		},
	}

	e := New(reg)
	if e.TypeNeedsDrop(&types.Named{Name: "Point"}) {
		t.Fatalf("expected a plain-data struct not to need drop")
	}
}
