package types

import (
	"fmt"
	"strings"
)

// TypeParam represents a generic type parameter (e.g. T).
type TypeParam struct {
	Name   string
	Bounds []Type // List of traits that this parameter must satisfy
}

func (t *TypeParam) String() string {
	if len(t.Bounds) == 0 {
		return t.Name
	}
	var bounds []string
	for _, b := range t.Bounds {
		bounds = append(bounds, b.String())
	}
	return t.Name + ": " + strings.Join(bounds, " + ")
}

func (t *TypeParam) IsType() {}

// GenericInstance represents a concrete instantiation of a generic type (e.g. Box[int]).
type GenericInstance struct {
	Base Type   // The generic type being instantiated (e.g. Struct with TypeParams)
	Args []Type // The type arguments (e.g. int)
}

func (g *GenericInstance) String() string {
	var args []string
	for _, a := range g.Args {
		args = append(args, a.String())
	}
	return g.Base.String() + "[" + strings.Join(args, ", ") + "]"
}

func (g *GenericInstance) IsType() {}

// Substitute replaces type parameters in t with their values from the map.
func Substitute(t Type, subst map[string]Type) Type {
	if t == nil {
		return nil
	}

	switch t := t.(type) {
	case *TypeParam:
		if replacement, ok := subst[t.Name]; ok {
			return replacement
		}
		return t
	case *GenericInstance:
		var newArgs []Type
		changed := false
		for _, arg := range t.Args {
			newArg := Substitute(arg, subst)
			if newArg != arg {
				changed = true
			}
			newArgs = append(newArgs, newArg)
		}
		if !changed {
			return t
		}
		return &GenericInstance{Base: t.Base, Args: newArgs}
	case *Function:
		var newParams []Type
		changed := false
		for _, p := range t.Params {
			newParam := Substitute(p, subst)
			if newParam != p {
				changed = true
			}
			newParams = append(newParams, newParam)
		}
		newReturn := Substitute(t.Return, subst)
		if newReturn != t.Return {
			changed = true
		}
		if !changed {
			return t
		}
		return &Function{TypeParams: t.TypeParams, Params: newParams, Return: newReturn}
	case *Channel:
		newElem := Substitute(t.Elem, subst)
		if newElem != t.Elem {
			return &Channel{Elem: newElem, Dir: t.Dir}
		}
		return t
	case *Reference:
		newElem := Substitute(t.Elem, subst)
		if newElem != t.Elem {
			return &Reference{Mutable: t.Mutable, Elem: newElem, Lifetime: t.Lifetime}
		}
		return t
	case *Pointer:
		newInner := Substitute(t.Inner, subst)
		if newInner != t.Inner {
			return &Pointer{Inner: newInner}
		}
		return t
	case *Slice:
		newElem := Substitute(t.Elem, subst)
		if newElem != t.Elem {
			return &Slice{Elem: newElem}
		}
		return t
	case *Array:
		newElem := Substitute(t.Elem, subst)
		if newElem != t.Elem {
			return &Array{Elem: newElem, Len: t.Len}
		}
		return t
	case *Tuple:
		changed := false
		newElems := make([]Type, len(t.Elements))
		for i, e := range t.Elements {
			ne := Substitute(e, subst)
			if ne != e {
				changed = true
			}
			newElems[i] = ne
		}
		if !changed {
			return t
		}
		return &Tuple{Elements: newElems}
	case *Closure:
		changed := false
		newParams := make([]Type, len(t.Params))
		for i, p := range t.Params {
			np := Substitute(p, subst)
			if np != p {
				changed = true
			}
			newParams[i] = np
		}
		newReturn := Substitute(t.Return, subst)
		if newReturn != t.Return {
			changed = true
		}
		if !changed {
			return t
		}
		return &Closure{Params: newParams, Return: newReturn, Captures: t.Captures}
	case *Named:
		if len(t.TypeArgs) == 0 {
			return t
		}
		changed := false
		newArgs := make([]Type, len(t.TypeArgs))
		for i, a := range t.TypeArgs {
			na := Substitute(a, subst)
			if na != a {
				changed = true
			}
			newArgs[i] = na
		}
		if !changed {
			return t
		}
		return &Named{Name: t.Name, ModulePath: t.ModulePath, TypeArgs: newArgs, Ref: t.Ref}
	default:
		return t
	}
}

// Unify attempts to find a substitution that makes t1 and t2 equivalent.
// It returns the substitution map or an error if unification fails.
func Unify(t1, t2 Type) (map[string]Type, error) {
	subst := make(map[string]Type)
	err := unify(t1, t2, subst)
	return subst, err
}

func unify(t1, t2 Type, subst map[string]Type) error {
	t1 = Substitute(t1, subst)
	t2 = Substitute(t2, subst)

	if t1 == t2 {
		return nil
	}

	if p, ok := t1.(*TypeParam); ok {
		return bind(p.Name, t2, subst)
	}
	if p, ok := t2.(*TypeParam); ok {
		return bind(p.Name, t1, subst)
	}

	switch t1 := t1.(type) {
	case *GenericInstance:
		if t2, ok := t2.(*GenericInstance); ok {
			// Check if bases are the same.
			// For now, we assume pointer equality for Struct/Enum definitions.
			if t1.Base != t2.Base {
				return fmt.Errorf("cannot unify %s with %s", t1, t2)
			}
			if len(t1.Args) != len(t2.Args) {
				return fmt.Errorf("arity mismatch: %s vs %s", t1, t2)
			}
			for i := range t1.Args {
				if err := unify(t1.Args[i], t2.Args[i], subst); err != nil {
					return err
				}
			}
			return nil
		}
	case *Primitive:
		if t2, ok := t2.(*Primitive); ok && t1.Kind == t2.Kind {
			return nil
		}
	case *Function:
		if t2, ok := t2.(*Function); ok {
			if len(t1.Params) != len(t2.Params) {
				return fmt.Errorf("arity mismatch: %s vs %s", t1, t2)
			}
			for i := range t1.Params {
				if err := unify(t1.Params[i], t2.Params[i], subst); err != nil {
					return err
				}
			}
			return unify(t1.Return, t2.Return, subst)
		}
	case *Reference:
		if t2, ok := t2.(*Reference); ok {
			if t1.Mutable != t2.Mutable {
				return fmt.Errorf("cannot unify %s with %s: mutability mismatch", t1, t2)
			}
			return unify(t1.Elem, t2.Elem, subst)
		}
	case *Pointer:
		if t2, ok := t2.(*Pointer); ok {
			return unify(t1.Inner, t2.Inner, subst)
		}
	case *Slice:
		if t2, ok := t2.(*Slice); ok {
			return unify(t1.Elem, t2.Elem, subst)
		}
	case *Array:
		if t2, ok := t2.(*Array); ok {
			if t1.Len != t2.Len {
				return fmt.Errorf("array length mismatch: %s vs %s", t1, t2)
			}
			return unify(t1.Elem, t2.Elem, subst)
		}
	case *Tuple:
		if t2, ok := t2.(*Tuple); ok {
			if len(t1.Elements) != len(t2.Elements) {
				return fmt.Errorf("tuple arity mismatch: %s vs %s", t1, t2)
			}
			for i := range t1.Elements {
				if err := unify(t1.Elements[i], t2.Elements[i], subst); err != nil {
					return err
				}
			}
			return nil
		}
	case *Named:
		if t2, ok := t2.(*Named); ok {
			if t1.Name != t2.Name || len(t1.TypeArgs) != len(t2.TypeArgs) {
				return fmt.Errorf("cannot unify %s with %s", t1, t2)
			}
			for i := range t1.TypeArgs {
				if err := unify(t1.TypeArgs[i], t2.TypeArgs[i], subst); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return fmt.Errorf("cannot unify %s with %s", t1, t2)
}

func bind(name string, t Type, subst map[string]Type) error {
	// TODO: Occurs check to prevent infinite types (e.g. T = Box[T])
	subst[name] = t
	return nil
}
