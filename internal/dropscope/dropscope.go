// Package dropscope implements a stack of lexical scopes that tracks which
// locals need a Drop::drop call and which borrows need an
// `llvm.lifetime.end` marker when control leaves the scope, in
// declaration-reverse order. It sits between the borrow checker
// (internal/borrow, which already knows every place's liveness) and the
// LLVM emitter (internal/codegen/mir2llvm, which lowers the resulting
// drop/lifetime-end list into calls and intrinsics at each scope exit).
package dropscope

// Entry is one local tracked for scope-exit cleanup.
type Entry struct {
	Name       string
	TypeName   string
	NeedsDrop  bool
	IsBorrowed bool // has an llvm.lifetime.start already been emitted for it
}

type scope struct {
	entries []Entry
}

// Stack is a synchronized lexical/drop/lifetime scope stack: one frame per
// block, popped in reverse declaration order on scope exit.
type Stack struct {
	scopes []scope
}

func New() *Stack { return &Stack{} }

func (s *Stack) Push() { s.scopes = append(s.scopes, scope{}) }

// Pop returns this scope's entries in reverse declaration order — the
// order drops and lifetime-ends must be emitted in.
func (s *Stack) Pop() []Entry {
	n := len(s.scopes)
	top := s.scopes[n-1]
	s.scopes = s.scopes[:n-1]
	reversed := make([]Entry, len(top.entries))
	for i, e := range top.entries {
		reversed[len(top.entries)-1-i] = e
	}
	return reversed
}

// Depth reports how many scopes are currently open.
func (s *Stack) Depth() int { return len(s.scopes) }

// Entries returns the innermost scope's entries in reverse declaration
// order without closing the scope, for callers that must plan cleanup at
// more than one exit point of the same scope (e.g. several return
// statements inside one function body).
func (s *Stack) Entries() []Entry {
	if len(s.scopes) == 0 {
		return nil
	}
	top := s.scopes[len(s.scopes)-1]
	reversed := make([]Entry, len(top.entries))
	for i, e := range top.entries {
		reversed[len(top.entries)-1-i] = e
	}
	return reversed
}

// Track registers a local in the current (innermost) scope.
func (s *Stack) Track(name, typeName string, needsDrop bool) {
	top := len(s.scopes) - 1
	s.scopes[top].entries = append(s.scopes[top].entries, Entry{Name: name, TypeName: typeName, NeedsDrop: needsDrop})
}

// MarkBorrowed flags that a lifetime.start was emitted for name, so the
// matching Pop emits lifetime.end for it.
func (s *Stack) MarkBorrowed(name string) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		for j := range s.scopes[i].entries {
			if s.scopes[i].entries[j].Name == name {
				s.scopes[i].entries[j].IsBorrowed = true
				return
			}
		}
	}
}

// Action is one entry's cleanup step, performed when a scope closes: a drop
// call (if NeedsDrop) is emitted before a matching lifetime.end (if
// IsBorrowed).
type Action struct {
	Entry       Entry
	EmitDrop    bool
	EmitLifetimeEnd bool
}

// PlanExit converts one Pop() result into the Action sequence the emitter
// should lower, in the order they must be emitted: drops
// before lifetime-ends, both in reverse declaration order.
func PlanExit(entries []Entry) []Action {
	actions := make([]Action, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, Action{Entry: e, EmitDrop: e.NeedsDrop, EmitLifetimeEnd: e.IsBorrowed})
	}
	return actions
}
