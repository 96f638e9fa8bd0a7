package typeenv

import "github.com/tml-lang/tmlc/internal/types"

// AutoDerives computes Send/Sync derivation for a named
// aggregate type by walking its fields/variant payloads (cycle-guarded).
func (e *Env) AutoDerives(typeName, marker string) bool {
	return e.namedDerives(typeName, marker, make(map[string]bool))
}

func (e *Env) namedDerives(typeName, marker string, visited map[string]bool) bool {
	if visited[typeName] {
		// A cycle in the field graph never disqualifies the marker by
		// itself; the cycle is simply skipped once a type is revisited.
		return true
	}
	visited[typeName] = true

	for _, modPath := range e.reg.Paths() {
		mod, ok := e.reg.Lookup(modPath)
		if !ok {
			continue
		}
		if s, ok := mod.Structs[typeName]; ok {
			for _, f := range s.Fields {
				if !e.TypeDerives(f.Type, marker, visited) {
					return false
				}
			}
			return true
		}
		if en, ok := mod.Enums[typeName]; ok {
			for _, v := range en.Variants {
				for _, p := range v.Payload {
					if !e.TypeDerives(p, marker, visited) {
						return false
					}
				}
			}
			return true
		}
		if cd, ok := mod.Classes[typeName]; ok {
			for _, f := range cd.Fields {
				if !e.TypeDerives(f.Type, marker, visited) {
					return false
				}
			}
			return true
		}
	}
	// Unknown aggregate: conservatively neither, matching closures, which
	// would require capture analysis to refine.
	return false
}

// TypeDerives evaluates Send/Sync for an arbitrary Type value, walking
// component types structurally.
func (e *Env) TypeDerives(t types.Type, marker string, visited map[string]bool) bool {
	switch t := t.(type) {
	case *types.Primitive:
		return true
	case *types.Pointer:
		return false
	case *types.Reference:
		switch marker {
		case "Send":
			if t.Mutable {
				return e.TypeDerives(t.Elem, "Send", visited)
			}
			return e.TypeDerives(t.Elem, "Sync", visited)
		case "Sync":
			if t.Mutable {
				return false
			}
			return e.TypeDerives(t.Elem, "Sync", visited)
		}
		return false
	case *types.Function:
		return true
	case *types.Closure:
		return false
	case *types.Tuple:
		for _, elem := range t.Elements {
			if !e.TypeDerives(elem, marker, visited) {
				return false
			}
		}
		return true
	case *types.Array:
		return e.TypeDerives(t.Elem, marker, visited)
	case *types.Slice:
		return e.TypeDerives(t.Elem, marker, visited)
	case *types.Optional:
		return e.TypeDerives(t.Elem, marker, visited)
	case *types.Named:
		return e.namedDerives(t.Name, marker, visited)
	case *types.Struct:
		return e.namedDerives(t.Name, marker, visited)
	case *types.Enum:
		return e.namedDerives(t.Name, marker, visited)
	case *types.Class:
		return e.namedDerives(t.Name, marker, visited)
	case *types.DynBehavior:
		return false
	}
	return false
}

// TypeNeedsDrop implements `type_needs_drop`.
func (e *Env) TypeNeedsDrop(t types.Type) bool {
	return e.typeNeedsDrop(t, make(map[string]bool))
}

func (e *Env) typeNeedsDrop(t types.Type, visited map[string]bool) bool {
	switch t := t.(type) {
	case *types.Primitive, *types.Reference, *types.Pointer, *types.Slice, *types.Function:
		return false
	case *types.Tuple:
		for _, elem := range t.Elements {
			if e.typeNeedsDrop(elem, visited) {
				return true
			}
		}
		return false
	case *types.Array:
		return e.typeNeedsDrop(t.Elem, visited)
	case *types.Optional:
		return e.typeNeedsDrop(t.Elem, visited)
	case *types.Named:
		return e.namedNeedsDrop(t.Name, visited)
	case *types.Struct:
		return e.namedNeedsDrop(t.Name, visited)
	case *types.Enum:
		return e.namedNeedsDrop(t.Name, visited)
	case *types.Class:
		return e.namedNeedsDrop(t.Name, visited)
	}
	return false
}

func (e *Env) namedNeedsDrop(typeName string, visited map[string]bool) bool {
	if visited[typeName] {
		return false
	}
	visited[typeName] = true

	if e.TypeImplements(typeName, "Drop") {
		return true
	}
	for _, modPath := range e.reg.Paths() {
		mod, ok := e.reg.Lookup(modPath)
		if !ok {
			continue
		}
		if s, ok := mod.Structs[typeName]; ok {
			for _, f := range s.Fields {
				if e.typeNeedsDrop(f.Type, visited) {
					return true
				}
			}
			return false
		}
		if en, ok := mod.Enums[typeName]; ok {
			for _, v := range en.Variants {
				for _, p := range v.Payload {
					if e.typeNeedsDrop(p, visited) {
						return true
					}
				}
			}
			return false
		}
		if cd, ok := mod.Classes[typeName]; ok {
			for _, f := range cd.Fields {
				if e.typeNeedsDrop(f.Type, visited) {
					return true
				}
			}
			return false
		}
	}
	return false
}
