package mir2llvm

import (
	"strings"
	"testing"

	"github.com/tml-lang/tmlc/internal/mir"
	"github.com/tml-lang/tmlc/internal/registry"
	"github.com/tml-lang/tmlc/internal/typeenv"
	"github.com/tml-lang/tmlc/internal/types"
)

// TestGenerateFunction_LifetimeMarkersWithoutTypeEnv checks that every
// alloca still gets a matching llvm.lifetime.start/.end pair when no
// typeenv.Env is wired in, since that wiring only gates drop calls.
func TestGenerateFunction_LifetimeMarkersWithoutTypeEnv(t *testing.T) {
	gen := newTestGenerator()

	fn := createTestFunction("simple", []mir.Local{}, types.TypeVoid)
	fn.Locals = []mir.Local{{ID: 1, Name: "n", Type: types.TypeInt}}
	fn.Entry.Terminator = &mir.Return{Value: nil}

	module := &mir.Module{Functions: []*mir.Function{fn}}

	result, err := gen.Generate(module)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if !strings.Contains(result, "declare void @llvm.lifetime.start.p0i8") {
		t.Errorf("Generate() should declare llvm.lifetime.start, got:\n%s", result)
	}
	if !strings.Contains(result, "call void @llvm.lifetime.start.p0i8(i64 -1") {
		t.Errorf("Generate() should start the local's lifetime, got:\n%s", result)
	}
	if !strings.Contains(result, "call void @llvm.lifetime.end.p0i8(i64 -1") {
		t.Errorf("Generate() should end the local's lifetime before return, got:\n%s", result)
	}
	if strings.Contains(result, "_drop(") {
		t.Errorf("Generate() should not emit a drop call with no typeEnv wired, got:\n%s", result)
	}
}

// TestGenerateFunction_DropCallWhenTypeNeedsDrop checks that a local whose
// type implements Drop gets a drop call (in addition to the lifetime
// markers) before each return, as long as a matching `<Type>_drop`
// function was actually lowered into the module.
func TestGenerateFunction_DropCallWhenTypeNeedsDrop(t *testing.T) {
	gen := newTestGenerator()

	reg := registry.New()
	mod := reg.Declare("test")
	mod.AddImpl(&registry.ImplDef{Behavior: "Drop", TargetName: "Owned"})
	gen.SetTypeEnv(typeenv.New(reg))

	gen.structTypes["Owned"] = true

	ownedType := &types.Named{Name: "Owned"}
	fn := createTestFunction("consume", []mir.Local{}, types.TypeVoid)
	fn.Locals = []mir.Local{{ID: 1, Name: "o", Type: ownedType}}
	fn.Entry.Terminator = &mir.Return{Value: nil}

	dropFn := createTestFunction("Owned_drop", []mir.Local{{ID: 2, Name: "self", Type: ownedType}}, types.TypeVoid)
	dropFn.Entry.Terminator = &mir.Return{Value: nil}

	module := &mir.Module{Functions: []*mir.Function{fn, dropFn}}

	result, err := gen.Generate(module)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if !strings.Contains(result, "call void @Owned_drop(i8*") {
		t.Errorf("Generate() should call Owned_drop before returning, got:\n%s", result)
	}
}

// TestGenerateFunction_DropSkippedWithoutLoweredDropFn checks that a type
// needing drop but lacking a lowered `<Type>_drop` function in this module
// still gets its lifetime.end marker, just no drop call (MIR does not yet
// lower every impl method, so this must degrade gracefully rather than
// reference a function that was never generated).
func TestGenerateFunction_DropSkippedWithoutLoweredDropFn(t *testing.T) {
	gen := newTestGenerator()

	reg := registry.New()
	mod := reg.Declare("test")
	mod.AddImpl(&registry.ImplDef{Behavior: "Drop", TargetName: "Owned"})
	gen.SetTypeEnv(typeenv.New(reg))
	gen.structTypes["Owned"] = true

	ownedType := &types.Named{Name: "Owned"}
	fn := createTestFunction("consume", []mir.Local{}, types.TypeVoid)
	fn.Locals = []mir.Local{{ID: 1, Name: "o", Type: ownedType}}
	fn.Entry.Terminator = &mir.Return{Value: nil}

	module := &mir.Module{Functions: []*mir.Function{fn}}

	result, err := gen.Generate(module)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if strings.Contains(result, "_drop(") {
		t.Errorf("Generate() should not call an undefined drop function, got:\n%s", result)
	}
	if !strings.Contains(result, "call void @llvm.lifetime.end.p0i8(i64 -1") {
		t.Errorf("Generate() should still end the local's lifetime, got:\n%s", result)
	}
}
