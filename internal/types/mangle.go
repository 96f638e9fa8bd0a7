package types

import "strings"

// primitiveMangled gives each primitive kind a stable short mangled name
// (primitive mangling).
func primitiveMangled(k PrimitiveKind) string {
	switch k {
	case I8:
		return "I8"
	case I16:
		return "I16"
	case I32:
		return "I32"
	case I64:
		return "I64"
	case I128:
		return "I128"
	case U8:
		return "U8"
	case U16:
		return "U16"
	case U32:
		return "U32"
	case U64:
		return "U64"
	case U128:
		return "U128"
	case F32:
		return "F32"
	case F64:
		return "F64"
	case Bool:
		return "Bool"
	case Char:
		return "Char"
	case Str:
		return "Str"
	case Unit:
		return "Unit"
	}
	return "Unknown"
}

// MangleType recursively mangles t into the component used inside a
// mangled symbol name. References and pointers flatten the inner type.
func MangleType(t Type) string {
	switch t := t.(type) {
	case *Primitive:
		return primitiveMangled(t.Kind)
	case *Named:
		if len(t.TypeArgs) == 0 {
			return t.Name
		}
		return MangleName(t.Name, t.TypeArgs)
	case *Struct:
		return t.Name
	case *Enum:
		return t.Name
	case *Class:
		return t.Name
	case *TypeParam:
		return t.Name
	case *Reference:
		return MangleType(t.Elem)
	case *Pointer:
		return MangleType(t.Inner)
	case *Tuple:
		parts := make([]string, len(t.Elements))
		for i, e := range t.Elements {
			parts[i] = MangleType(e)
		}
		return "Tup_" + itoa(int64(len(t.Elements))) + "__" + strings.Join(parts, "_")
	case *Slice:
		return "Slice_" + MangleType(t.Elem)
	case *Array:
		return "Arr_" + itoa(t.Len) + "_" + MangleType(t.Elem)
	case *Closure:
		return "Fn"
	case *DynBehavior:
		return "Dyn_" + strings.Join(t.Behaviors, "_")
	case *GenericInstance:
		args := make([]Type, len(t.Args))
		copy(args, t.Args)
		return MangleName(t.Base.String(), args)
	}
	if t == nil {
		return "Unit"
	}
	return t.String()
}

// MangleName maps
// (base_name, type_args_normalized) to a unique symbol, stripping module
// paths and recursively mangling component types, e.g.
// Maybe[I64] -> Maybe__I64, Pair[I32, Str] -> Pair__I32__Str.
func MangleName(baseName string, typeArgs []Type) string {
	if len(typeArgs) == 0 {
		return baseName
	}
	parts := make([]string, len(typeArgs))
	for i, a := range typeArgs {
		parts[i] = MangleType(a)
	}
	return baseName + "__" + strings.Join(parts, "__")
}

// StructurallyEqual checks structural equality: kind +
// structural comparison of payloads, with Named types compared by
// (name, args) ignoring module path.
func StructurallyEqual(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch a := a.(type) {
	case *Primitive:
		b, ok := b.(*Primitive)
		return ok && a.Kind == b.Kind
	case *Named:
		b, ok := b.(*Named)
		if !ok || a.Name != b.Name || len(a.TypeArgs) != len(b.TypeArgs) {
			return false
		}
		for i := range a.TypeArgs {
			if !StructurallyEqual(a.TypeArgs[i], b.TypeArgs[i]) {
				return false
			}
		}
		return true
	case *Reference:
		b, ok := b.(*Reference)
		return ok && a.Mutable == b.Mutable && StructurallyEqual(a.Elem, b.Elem)
	case *Pointer:
		b, ok := b.(*Pointer)
		return ok && StructurallyEqual(a.Inner, b.Inner)
	case *Tuple:
		b, ok := b.(*Tuple)
		if !ok || len(a.Elements) != len(b.Elements) {
			return false
		}
		for i := range a.Elements {
			if !StructurallyEqual(a.Elements[i], b.Elements[i]) {
				return false
			}
		}
		return true
	case *Array:
		b, ok := b.(*Array)
		return ok && a.Len == b.Len && StructurallyEqual(a.Elem, b.Elem)
	case *Slice:
		b, ok := b.(*Slice)
		return ok && StructurallyEqual(a.Elem, b.Elem)
	case *Function:
		b, ok := b.(*Function)
		if !ok || len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if !StructurallyEqual(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return StructurallyEqual(a.Return, b.Return)
	case *Struct:
		b, ok := b.(*Struct)
		return ok && a.Name == b.Name
	case *Enum:
		b, ok := b.(*Enum)
		return ok && a.Name == b.Name
	case *Class:
		b, ok := b.(*Class)
		return ok && a.Name == b.Name
	case *DynBehavior:
		b, ok := b.(*DynBehavior)
		if !ok || len(a.Behaviors) != len(b.Behaviors) {
			return false
		}
		for i := range a.Behaviors {
			if a.Behaviors[i] != b.Behaviors[i] {
				return false
			}
		}
		return true
	case *TypeParam:
		b, ok := b.(*TypeParam)
		return ok && a.Name == b.Name
	}
	return a == b
}
