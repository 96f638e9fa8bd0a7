package borrow

import "github.com/tml-lang/tmlc/internal/lexer"

// OwnershipState is a place's position in the state machine of 
type OwnershipState int

const (
	Owned OwnershipState = iota
	Moved
	Borrowed
	MutBorrowed
	Dropped
)

// MoveState summarizes how much of an aggregate has been moved out of,
// computed on demand from MovedFields.
type MoveState int

const (
	FullyOwned MoveState = iota
	PartiallyMoved
	FullyMoved
)

// BorrowKind distinguishes a shared borrow from an exclusive one.
type BorrowKind int

const (
	Shared BorrowKind = iota
	Exclusive
)

// LifetimeID names one borrow's synthesized non-lexical lifetime.
type LifetimeID int

// Lifetime tracks the [start, end] validity window of one borrow, where end
// is the statement index of its last use, or unbounded until non-lexical-
// lifetime analysis narrows it.
type Lifetime struct {
	ID            LifetimeID
	Start         int
	End           int // -1 means unbounded (not yet pruned by apply_nll)
	BorrowedPlace Place
}

// IsLiveAt reports whether loc falls within [Start, End] (or [Start, +inf)
// if End is unset).
func (l *Lifetime) IsLiveAt(loc int) bool {
	if loc < l.Start {
		return false
	}
	return l.End < 0 || loc <= l.End
}

// Borrow is one outstanding borrow of a place.
type Borrow struct {
	Place      Place
	Kind       BorrowKind
	Start      int
	LastUse    int
	ScopeDepth int
	Lifetime   *Lifetime
	CreateSpan lexer.Span
}

// PlaceState is the BorrowEnv's per-variable bookkeeping.
type PlaceState struct {
	Name            string
	IsMutable       bool
	State           OwnershipState
	ActiveBorrows   []*Borrow
	DefSpan         lexer.Span
	LastUseLoc      int
	MoveSpan        lexer.Span
	MovedFields     map[string]bool
	IsInitialized   bool
	ScopeDepth      int

	// TypeName is the declared/inferred struct type name, when known, used
	// to consult the registry's field list for get_move_state's all-fields-
	// moved classification. "" when the place's type could not be
	// determined from the AST (e.g. a parameter with no type annotation).
	TypeName string
}

// SetTypeName records a place's declared struct type, if known, for later
// field-count-aware MoveState queries.
func (e *Env) SetTypeName(name, typeName string) {
	if ps, ok := e.places[name]; ok && typeName != "" {
		ps.TypeName = typeName
	}
}

// scopeFrame groups the places introduced in one lexical scope, so
// PopScope can return them together on scope exit.
type scopeFrame struct {
	places []string
}

// Env is the per-function borrow-checking environment: a flat name table
// plus a scope stack for drop ordering, and a monotonic statement-location
// counter driving non-lexical-lifetime borrow release.
type Env struct {
	places         map[string]*PlaceState
	scopes         []scopeFrame
	nextLifetimeID LifetimeID
	loc            int
}

func NewEnv() *Env {
	e := &Env{places: make(map[string]*PlaceState)}
	e.PushScope()
	return e
}

func (e *Env) PushScope() { e.scopes = append(e.scopes, scopeFrame{}) }

// PopScope returns the names defined in the popped scope, in declaration
// order, so the checker can emit drops/lifetime-ends in reverse.
func (e *Env) PopScope() []string {
	n := len(e.scopes)
	top := e.scopes[n-1]
	e.scopes = e.scopes[:n-1]
	return top.places
}

func (e *Env) ScopeDepth() int { return len(e.scopes) }

// Location returns the current synchronized statement-location counter.
func (e *Env) Location() int { return e.loc }

// Advance moves to the next statement location and prunes dead borrows.
func (e *Env) Advance() { e.loc++; e.ReleaseDeadBorrows() }

func (e *Env) Define(name string, mutable bool, initialized bool, span lexer.Span) *PlaceState {
	ps := &PlaceState{
		Name:          name,
		IsMutable:     mutable,
		State:         Owned,
		DefSpan:       span,
		IsInitialized: initialized,
		MovedFields:   make(map[string]bool),
		ScopeDepth:    e.ScopeDepth(),
	}
	e.places[name] = ps
	top := len(e.scopes) - 1
	e.scopes[top].places = append(e.scopes[top].places, name)
	return ps
}

func (e *Env) Lookup(name string) (*PlaceState, bool) {
	ps, ok := e.places[name]
	return ps, ok
}

func (e *Env) MarkUsed(name string) {
	if ps, ok := e.places[name]; ok {
		ps.LastUseLoc = e.loc
		for _, b := range ps.ActiveBorrows {
			b.LastUse = e.loc
			if b.Lifetime != nil {
				b.Lifetime.End = e.loc
			}
		}
	}
}

// MarkRefUsed extends the lifetime of whichever borrow produced ref, so
// using a reference keeps its source borrow alive.
func (e *Env) MarkRefUsed(b *Borrow) {
	b.LastUse = e.loc
	if b.Lifetime != nil {
		b.Lifetime.End = e.loc
	}
}

func (e *Env) NextLifetimeID() LifetimeID {
	e.nextLifetimeID++
	return e.nextLifetimeID
}

// CreateBorrow registers a new borrow of place, starting at the current
// location with an unbounded lifetime (NLL narrows it later).
func (e *Env) CreateBorrow(owner string, place Place, kind BorrowKind, span lexer.Span) *Borrow {
	lt := &Lifetime{ID: e.NextLifetimeID(), Start: e.loc, End: -1, BorrowedPlace: place}
	b := &Borrow{Place: place, Kind: kind, Start: e.loc, LastUse: e.loc, ScopeDepth: e.ScopeDepth(), Lifetime: lt, CreateSpan: span}
	if ps, ok := e.places[owner]; ok {
		ps.ActiveBorrows = append(ps.ActiveBorrows, b)
		if kind == Exclusive {
			ps.State = MutBorrowed
		} else if ps.State == Owned {
			ps.State = Borrowed
		}
	}
	return b
}

// ReleaseBorrow removes b from its owner's active-borrow list, reverting
// the owner to Owned if no borrows remain.
func (e *Env) ReleaseBorrow(owner string, b *Borrow) {
	ps, ok := e.places[owner]
	if !ok {
		return
	}
	filtered := ps.ActiveBorrows[:0]
	for _, existing := range ps.ActiveBorrows {
		if existing != b {
			filtered = append(filtered, existing)
		}
	}
	ps.ActiveBorrows = filtered
	if len(ps.ActiveBorrows) == 0 && ps.State != Moved && ps.State != Dropped {
		ps.State = Owned
	}
}

// ReleaseBorrowsAtDepth releases every borrow whose ScopeDepth is >= depth,
// called when popping a scope.
func (e *Env) ReleaseBorrowsAtDepth(depth int) {
	for name, ps := range e.places {
		kept := ps.ActiveBorrows[:0]
		for _, b := range ps.ActiveBorrows {
			if b.ScopeDepth >= depth {
				continue
			}
			kept = append(kept, b)
		}
		ps.ActiveBorrows = kept
		if len(kept) == 0 && ps.State != Moved && ps.State != Dropped {
			ps.State = Owned
		}
		_ = name
	}
}

// ReleaseDeadBorrows implements `apply_nll`: prunes every active borrow
// whose lifetime is no longer live at the current location.
func (e *Env) ReleaseDeadBorrows() {
	for _, ps := range e.places {
		kept := ps.ActiveBorrows[:0]
		for _, b := range ps.ActiveBorrows {
			if b.Lifetime != nil && !b.Lifetime.IsLiveAt(e.loc) {
				continue
			}
			kept = append(kept, b)
		}
		ps.ActiveBorrows = kept
		if len(kept) == 0 && ps.State != Moved && ps.State != Dropped {
			ps.State = Owned
		}
	}
}

// ConflictingBorrow returns the first active borrow of ps that conflicts
// with kind, or nil if none does (an Exclusive request conflicts with any
// borrow; a Shared request only conflicts with an Exclusive borrow).
func (ps *PlaceState) ConflictingBorrow(kind BorrowKind) *Borrow {
	for _, b := range ps.ActiveBorrows {
		if kind == Exclusive || b.Kind == Exclusive {
			return b
		}
	}
	return nil
}

// MoveState classifies how much of ps has been moved out of. declaredFields
// is the struct type's full field list (from the registry, via
// Checker.declaredFields); when it is non-empty and every one of its
// entries has been individually moved, the place counts as FullyMoved even
// though ps.State itself is still Owned — a struct literal whose fields
// were all moved out field-by-field has nothing left for Drop to run
// against. Pass a nil/empty slice when the declared fields aren't known;
// MoveState then falls back to PartiallyMoved whenever any field moved.
func (ps *PlaceState) MoveState(declaredFields []string) MoveState {
	if ps.State == Moved {
		return FullyMoved
	}
	if len(ps.MovedFields) == 0 {
		return FullyOwned
	}
	if len(declaredFields) > 0 {
		allMoved := true
		for _, f := range declaredFields {
			if !ps.MovedFields[f] {
				allMoved = false
				break
			}
		}
		if allMoved {
			return FullyMoved
		}
	}
	return PartiallyMoved
}

func (ps *PlaceState) IsFieldMoved(field string) bool { return ps.MovedFields[field] }
