// Package borrow implements the borrow checker: ownership
// tracking, non-lexical lifetimes, two-phase borrows, partial moves, and
// escape analysis over a type-checked AST, expressed in the idiom of
// internal/types' checker (explicit Go structs, error accumulation rather
// than exceptions, no exported mutable globals).
package borrow

import "strings"

// ProjectionKind distinguishes the three ways a place can be refined.
type ProjectionKind int

const (
	ProjField ProjectionKind = iota
	ProjIndex
	ProjDeref
)

// Projection is one step of a place's access path: `.field`, `[_]`, or `*`.
type Projection struct {
	Kind      ProjectionKind
	FieldName string // set when Kind == ProjField
}

// Place identifies a storage location reachable from a local variable:
// `x`, `x.f`, `x.f.g`, `x[_]`, `*x`, etc.
type Place struct {
	Base        string
	Projections []Projection
}

func NewPlace(base string) Place { return Place{Base: base} }

// Extend returns a new place with one more projection appended.
func (p Place) Extend(proj Projection) Place {
	np := Place{Base: p.Base, Projections: make([]Projection, len(p.Projections)+1)}
	copy(np.Projections, p.Projections)
	np.Projections[len(p.Projections)] = proj
	return np
}

// String renders the place as `x.f[_].g` / `x.*` for diagnostics.
func (p Place) String() string {
	var b strings.Builder
	b.WriteString(p.Base)
	for _, proj := range p.Projections {
		switch proj.Kind {
		case ProjField:
			b.WriteByte('.')
			b.WriteString(proj.FieldName)
		case ProjIndex:
			b.WriteString("[_]")
		case ProjDeref:
			b.WriteString(".*")
		}
	}
	return b.String()
}

// IsPrefixOf reports whether p is an ancestor access path of other (p == other
// counts), e.g. `x` is a prefix of `x.f`, and `x.f` is a prefix of `x.f.g`.
func (p Place) IsPrefixOf(other Place) bool {
	if p.Base != other.Base || len(p.Projections) > len(other.Projections) {
		return false
	}
	for i, proj := range p.Projections {
		if proj != other.Projections[i] {
			return false
		}
	}
	return true
}

// OverlapsWith reports whether two places can alias the same storage: one
// is a prefix of the other. An index
// projection is treated as potentially aliasing any other index at the
// same depth, conservatively.
func (p Place) OverlapsWith(other Place) bool {
	return p.IsPrefixOf(other) || other.IsPrefixOf(p)
}

// FieldOf returns the place for immediate field f of p.
func (p Place) FieldOf(f string) Place {
	return p.Extend(Projection{Kind: ProjField, FieldName: f})
}

// TopFieldName returns the name of p's outermost field projection, if its
// single projection is a field access directly off the base (used for
// partial-move bookkeeping where only depth-1 fields are tracked).
func (p Place) TopFieldName() (string, bool) {
	if len(p.Projections) == 1 && p.Projections[0].Kind == ProjField {
		return p.Projections[0].FieldName, true
	}
	return "", false
}
