package mir

import (
	"testing"

	"github.com/tml-lang/tmlc/internal/types"
)

func TestMonomorphize_Simple(t *testing.T) {
	// Setup: fn id[T](x: T) -> T { return x }
	// Call id(1) -> id[int](1)
	// Call id(true) -> id[bool](true)

	// Create types
	typeParamT := &types.TypeParam{Name: "T"}
	typeInt := types.TypeInt
	typeBool := types.TypeBool

	// Create generic function "id"
	idFn := &Function{
		Name:       "id",
		TypeParams: []types.TypeParam{*typeParamT},
		Params: []Local{
			{ID: 0, Name: "x", Type: typeParamT},
		},
		ReturnType: typeParamT,
		Locals: []Local{
			{ID: 0, Name: "x", Type: typeParamT},
		},
		Blocks: []*BasicBlock{},
	}

	// Entry block for id
	idEntry := &BasicBlock{
		Label:      "entry",
		Statements: []Statement{},
		Terminator: &Return{
			Value: &LocalRef{Local: idFn.Params[0]},
		},
	}
	idFn.Blocks = append(idFn.Blocks, idEntry)
	idFn.Entry = idEntry

	// Create main function that calls id
	mainFn := &Function{
		Name:       "main",
		Params:     []Local{},
		ReturnType: types.TypeVoid,
		Locals: []Local{
			{ID: 0, Name: "r1", Type: typeInt},
			{ID: 1, Name: "r2", Type: typeBool},
		},
		Blocks: []*BasicBlock{},
	}

	// Entry block for main
	mainEntry := &BasicBlock{
		Label: "entry",
		Statements: []Statement{
			// r1 = call id(1) [int]
			&Call{
				Result: mainFn.Locals[0],
				Func:   "id",
				Args: []Operand{
					&Literal{Value: int64(1), Type: typeInt},
				},
				TypeArgs: []types.Type{typeInt},
			},
			// r2 = call id(true) [bool]
			&Call{
				Result: mainFn.Locals[1],
				Func:   "id",
				Args: []Operand{
					&Literal{Value: true, Type: typeBool},
				},
				TypeArgs: []types.Type{typeBool},
			},
		},
		Terminator: &Return{Value: nil},
	}
	mainFn.Blocks = append(mainFn.Blocks, mainEntry)
	mainFn.Entry = mainEntry

	// Create module
	module := &Module{
		Functions: []*Function{idFn, mainFn},
	}

	// Run monomorphization
	monomorphizer := NewMonomorphizer(module)
	err := monomorphizer.Monomorphize()
	if err != nil {
		t.Fatalf("Monomorphization failed: %v", err)
	}

	// Verify results
	// Should have: id, main, id__I64, id__Bool (types.MangleName's scheme)
	if len(module.Functions) != 4 {
		t.Errorf("Expected 4 functions, got %d", len(module.Functions))
		for _, fn := range module.Functions {
			t.Logf("Function: %s", fn.Name)
		}
	}

	// Check for specialized functions
	hasIdInt := false
	hasIdBool := false
	for _, fn := range module.Functions {
		if fn.Name == "id__I64" {
			hasIdInt = true
			// Verify signature
			if fn.ReturnType.String() != "i64" {
				t.Errorf("id__I64 return type expected i64, got %s", fn.ReturnType)
			}
			if len(fn.Params) != 1 || fn.Params[0].Type.String() != "i64" {
				t.Errorf("id__I64 param type expected i64, got %v", fn.Params)
			}
		} else if fn.Name == "id__Bool" {
			hasIdBool = true
			// Verify signature
			if fn.ReturnType.String() != "bool" {
				t.Errorf("id__Bool return type expected bool, got %s", fn.ReturnType)
			}
			if len(fn.Params) != 1 || fn.Params[0].Type.String() != "bool" {
				t.Errorf("id__Bool param type expected bool, got %v", fn.Params)
			}
		}
	}

	if !hasIdInt {
		t.Error("Missing specialized function id__I64")
	}
	if !hasIdBool {
		t.Error("Missing specialized function id__Bool")
	}

	// Verify calls in main are updated
	call1 := mainEntry.Statements[0].(*Call)
	if call1.Func != "id__I64" {
		t.Errorf("First call expected to id__I64, got %s", call1.Func)
	}
	if len(call1.TypeArgs) != 0 {
		t.Errorf("First call should have empty TypeArgs, got %v", call1.TypeArgs)
	}

	call2 := mainEntry.Statements[1].(*Call)
	if call2.Func != "id__Bool" {
		t.Errorf("Second call expected to id__Bool, got %s", call2.Func)
	}
	if len(call2.TypeArgs) != 0 {
		t.Errorf("Second call should have empty TypeArgs, got %v", call2.TypeArgs)
	}
}
