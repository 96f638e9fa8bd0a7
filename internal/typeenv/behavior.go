package typeenv

import "github.com/tml-lang/tmlc/internal/registry"

// TypeImplements reports whether typeName implements behavior: true iff
// (a) an explicit impl of the behavior for the type exists, (b) some impl of
// a super-behavior exists that transitively super-behaves it (DAG
// traversal, cycle-guarded), or (c) the behavior is Send/Sync and every
// component of the type auto-derives it.
func (e *Env) TypeImplements(typeName, behavior string) bool {
	if behavior == "Send" || behavior == "Sync" {
		return e.AutoDerives(typeName, behavior)
	}
	return e.implementsDirectOrSuper(typeName, behavior, make(map[string]bool))
}

func (e *Env) implementsDirectOrSuper(typeName, behavior string, visited map[string]bool) bool {
	for _, modPath := range e.reg.Paths() {
		mod, ok := e.reg.Lookup(modPath)
		if !ok {
			continue
		}
		if _, ok := mod.LookupImpl(behavior, typeName); ok {
			return true
		}
	}
	// (b) DAG traversal: does T implement some B' whose super-behavior
	// chain reaches `behavior`?
	for _, modPath := range e.reg.Paths() {
		mod, ok := e.reg.Lookup(modPath)
		if !ok {
			continue
		}
		for _, impl := range mod.ImplsFor(typeName) {
			if impl.Behavior == "" || visited[impl.Behavior] {
				continue
			}
			visited[impl.Behavior] = true
			if e.superBehaviorReaches(impl.Behavior, behavior, visited) {
				return true
			}
		}
	}
	return false
}

func (e *Env) superBehaviorReaches(from, target string, visited map[string]bool) bool {
	def := e.lookupBehavior(from)
	if def == nil {
		return false
	}
	for _, super := range def.SuperBehaviors {
		if super == target {
			return true
		}
		if visited[super] {
			continue
		}
		visited[super] = true
		if e.superBehaviorReaches(super, target, visited) {
			return true
		}
	}
	return false
}

func (e *Env) lookupBehavior(name string) *registry.BehaviorDef {
	for _, modPath := range e.reg.Paths() {
		mod, ok := e.reg.Lookup(modPath)
		if !ok {
			continue
		}
		if def, ok := mod.Behaviors[name]; ok {
			return def
		}
	}
	return nil
}
