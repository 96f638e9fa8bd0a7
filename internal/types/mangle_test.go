package types

import "testing"

func TestMangleType_Primitives(t *testing.T) {
	cases := []struct {
		kind PrimitiveKind
		want string
	}{
		{I8, "I8"}, {I64, "I64"}, {U128, "U128"},
		{F32, "F32"}, {F64, "F64"}, {Bool, "Bool"},
		{Char, "Char"}, {Str, "Str"}, {Unit, "Unit"},
	}
	for _, c := range cases {
		got := MangleType(&Primitive{Kind: c.kind})
		if got != c.want {
			t.Errorf("MangleType(%s) = %q, want %q", c.kind, got, c.want)
		}
	}
}

func TestMangleType_ReferencesAndPointersFlatten(t *testing.T) {
	inner := &Primitive{Kind: I32}
	if got := MangleType(&Reference{Elem: inner}); got != "I32" {
		t.Errorf("reference should flatten to inner type, got %q", got)
	}
	if got := MangleType(&Pointer{Inner: inner}); got != "I32" {
		t.Errorf("pointer should flatten to inner type, got %q", got)
	}
}

func TestMangleType_Tuple(t *testing.T) {
	tup := &Tuple{Elements: []Type{&Primitive{Kind: I64}, &Primitive{Kind: Bool}}}
	want := "Tup_2__I64_Bool"
	if got := MangleType(tup); got != want {
		t.Errorf("MangleType(tuple) = %q, want %q", got, want)
	}
}

func TestMangleName_GenericInstantiation(t *testing.T) {
	got := MangleName("Pair", []Type{&Primitive{Kind: I32}, &Primitive{Kind: Str}})
	want := "Pair__I32__Str"
	if got != want {
		t.Errorf("MangleName(Pair, [I32, Str]) = %q, want %q", got, want)
	}

	// Recursive: Pair[Maybe[I64], I32]
	maybeI64 := &GenericInstance{Base: &Enum{Name: "Maybe"}, Args: []Type{&Primitive{Kind: I64}}}
	got2 := MangleName("Pair", []Type{maybeI64, &Primitive{Kind: I32}})
	want2 := "Pair__Maybe__I64__I32"
	if got2 != want2 {
		t.Errorf("MangleName(Pair, [Maybe[I64], I32]) = %q, want %q", got2, want2)
	}
}

func TestStructurallyEqual_NamedIgnoresModulePath(t *testing.T) {
	a := &Named{Name: "Widget", ModulePath: "pkg/a"}
	b := &Named{Name: "Widget", ModulePath: "pkg/b"}
	if !StructurallyEqual(a, b) {
		t.Error("Named types with the same name/args but different module paths should be structurally equal")
	}
}

func TestStructurallyEqual_DifferingTypeArgs(t *testing.T) {
	a := &Named{Name: "Box", TypeArgs: []Type{&Primitive{Kind: I32}}}
	b := &Named{Name: "Box", TypeArgs: []Type{&Primitive{Kind: I64}}}
	if StructurallyEqual(a, b) {
		t.Error("Box[I32] and Box[I64] should not be structurally equal")
	}
}
