package registry

import (
	"sort"

	"github.com/tml-lang/tmlc/internal/types"
)

// checkerView is the slice of *types.Checker that PopulateFromChecker
// needs. Declared as an interface so this file does not have to import
// the concrete checker for its full surface, only the three tables it
// harvests.
type checkerView interface {
	Scope() *types.Scope
	Methods() map[string]map[string]*types.Function
	Impls() map[string][]string
}

// PopulateFromChecker harvests the declarations a *types.Checker collected
// for one compilation unit (its global scope, method table, and registered
// trait impls) into mod, so that every later pass sharing the same
// Registry — the borrow checker's get_move_state, the type environment's
// Send/Sync and Drop queries, monomorphization — sees the same struct
// fields, enum variants, and impl blocks the checker itself resolved
// against. Without this step a Registry handed to those passes is
// permanently empty, since Declare only reserves a module path.
func PopulateFromChecker(mod *Module, c checkerView) {
	for name, sym := range c.Scope().Symbols {
		switch t := sym.Type.(type) {
		case *types.Function:
			mod.Functions[name] = funcSigFromFunction(name, t)
		case *types.Struct:
			mod.Structs[name] = structDefFromStruct(t)
		case *types.Enum:
			mod.Enums[name] = enumDefFromEnum(t)
		case *types.Trait:
			mod.Behaviors[name] = behaviorDefFromTrait(t)
		}
	}

	for targetName, methods := range c.Methods() {
		impl := &ImplDef{
			TargetName: targetName,
			Methods:    make(map[string]*FuncSig, len(methods)),
		}
		for methodName, fn := range methods {
			impl.Methods[methodName] = funcSigFromFunction(methodName, fn)
		}
		mod.AddImpl(impl)
	}

	for behavior, targetNames := range c.Impls() {
		for _, targetName := range targetNames {
			if _, ok := mod.LookupImpl(behavior, targetName); ok {
				continue
			}
			mod.AddImpl(&ImplDef{Behavior: behavior, TargetName: targetName})
		}
	}
}

func funcSigFromFunction(name string, fn *types.Function) *FuncSig {
	return &FuncSig{
		Name:       name,
		TypeParams: fn.TypeParams,
		Params:     fn.Params,
		ReturnType: fn.Return,
	}
}

func structDefFromStruct(s *types.Struct) *StructDef {
	fields := make([]StructFieldDef, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = StructFieldDef{Name: f.Name, Type: f.Type}
	}
	return &StructDef{Name: s.Name, TypeParams: s.TypeParams, Fields: fields}
}

func enumDefFromEnum(e *types.Enum) *EnumDef {
	variants := make([]EnumVariantDef, len(e.Variants))
	for i, v := range e.Variants {
		variants[i] = EnumVariantDef{Name: v.Name, Tag: i, Payload: v.Payload}
	}
	return &EnumDef{Name: e.Name, TypeParams: e.TypeParams, Variants: variants}
}

func behaviorDefFromTrait(t *types.Trait) *BehaviorDef {
	methods := make([]BehaviorMethod, len(t.Methods))
	for i, m := range t.Methods {
		methods[i] = BehaviorMethod{Name: m.Name, TypeParams: m.TypeParams, Params: m.Params, Return: m.Return}
	}
	assoc := make([]string, len(t.AssociatedTypes))
	for i, a := range t.AssociatedTypes {
		assoc[i] = a.Name
	}
	sort.Strings(assoc)
	return &BehaviorDef{Name: t.Name, Methods: methods, AssociatedTypes: assoc}
}
