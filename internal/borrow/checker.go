package borrow

import (
	"github.com/tml-lang/tmlc/internal/ast"
	"github.com/tml-lang/tmlc/internal/lexer"
	"github.com/tml-lang/tmlc/internal/registry"
)

// Checker walks a module's function bodies after type checking, tracking
// ownership/borrow state per Env and emitting B001-B013 diagnostics.
type Checker struct {
	reg    *registry.Registry
	errors []Error
}

func NewChecker(reg *registry.Registry) *Checker {
	return &Checker{reg: reg}
}

func (c *Checker) Errors() []Error { return c.errors }

func (c *Checker) report(e Error) { c.errors = append(c.errors, e) }

// CheckModule borrow-checks every free function and impl method declared
// in the given file's top-level declarations.
func (c *Checker) CheckModule(file *ast.File) {
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FnDecl:
			c.checkFnDecl(d, nil)
		case *ast.ImplDecl:
			for _, m := range d.Methods {
				c.checkFnDecl(m, d.Target)
			}
		}
	}
}

// checkFnDecl borrow-checks one function body. receiverType is non-nil when
// checking a method, used only to seed a `self` place with the impl target.
func (c *Checker) checkFnDecl(fn *ast.FnDecl, receiverType ast.TypeExpr) {
	if fn.Body == nil {
		return
	}
	env := NewEnv()
	for _, p := range fn.Params {
		mutable, _ := paramIsMutRef(p.Type)
		env.Define(p.Name.Name, mutable, true, p.Span())
		env.SetTypeName(p.Name.Name, typeExprName(p.Type))
	}
	c.checkBlock(env, fn.Body)
}

// typeExprName extracts the base struct/enum name from a type annotation,
// unwrapping reference/pointer/optional wrappers, for registry field-count
// lookups. Returns "" for type shapes that don't name a single declared
// type (tuples, functions, generics with no resolvable base, etc).
func typeExprName(t ast.TypeExpr) string {
	switch v := t.(type) {
	case *ast.NamedType:
		if v.Name != nil {
			return v.Name.Name
		}
	case *ast.ReferenceType:
		return typeExprName(v.Elem)
	case *ast.PointerType:
		return typeExprName(v.Elem)
	case *ast.OptionalType:
		return typeExprName(v.Elem)
	case *ast.GenericTypeExpr:
		return typeExprName(v.Base)
	}
	return ""
}

// structLiteralName extracts the declared struct name from a struct
// literal's Name expression (a bare Ident, or an IndexExpr base for a
// generic literal like `Box[int]{...}`).
func structLiteralName(e ast.Expr) string {
	switch v := e.(type) {
	case *ast.Ident:
		return v.Name
	case *ast.IndexExpr:
		return structLiteralName(v.Target)
	}
	return ""
}

// declaredFields returns the field names of typeName's struct definition,
// searched across every module the checker's registry knows about (the
// borrow checker itself does not track which module declared which type,
// so it searches all of them, matching typeenv's TypeImplements pattern).
// Returns nil if typeName is "" or not found — callers treat that as
// "unknown," not as "zero fields."
func (c *Checker) declaredFields(typeName string) []string {
	if typeName == "" || c.reg == nil {
		return nil
	}
	for _, path := range c.reg.Paths() {
		mod, ok := c.reg.Lookup(path)
		if !ok {
			continue
		}
		if def, ok := mod.Structs[typeName]; ok {
			names := make([]string, len(def.Fields))
			for i, f := range def.Fields {
				names[i] = f.Name
			}
			return names
		}
	}
	return nil
}

func paramIsMutRef(t ast.TypeExpr) (bool, bool) {
	if rt, ok := t.(*ast.ReferenceType); ok {
		return rt.Mutable, true
	}
	return false, false
}

func (c *Checker) checkBlock(env *Env, block *ast.BlockExpr) {
	env.PushScope()
	for _, stmt := range block.Stmts {
		c.checkStmt(env, stmt)
		env.Advance()
	}
	if block.Tail != nil {
		c.checkExpr(env, block.Tail)
		env.Advance()
	}
	depth := env.ScopeDepth()
	env.ReleaseBorrowsAtDepth(depth)
	env.PopScope()
}

func (c *Checker) checkStmt(env *Env, stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		if s.Value != nil {
			c.checkLetValue(env, s.Value)
		}
		env.Define(s.Name.Name, s.Mutable, s.Value != nil, s.Span())
		if typeName := typeExprName(s.Type); typeName != "" {
			env.SetTypeName(s.Name.Name, typeName)
		} else if sl, ok := s.Value.(*ast.StructLiteral); ok {
			env.SetTypeName(s.Name.Name, structLiteralName(sl.Name))
		}
	case *ast.ExprStmt:
		c.checkExpr(env, s.Expr)
	case *ast.ReturnStmt:
		if s.Value != nil {
			c.checkReturnValue(env, s.Value)
		}
	case *ast.IfStmt:
		for _, clause := range s.Clauses {
			c.checkExpr(env, clause.Condition)
			c.checkBlock(env, clause.Body)
		}
		if s.Else != nil {
			c.checkBlock(env, s.Else)
		}
	case *ast.WhileStmt:
		c.checkExpr(env, s.Condition)
		c.checkBlock(env, s.Body)
	case *ast.ForStmt:
		c.checkExpr(env, s.Iterable)
		env.PushScope()
		env.Define(s.Iterator.Name, false, true, s.Iterator.Span())
		for _, inner := range s.Body.Stmts {
			c.checkStmt(env, inner)
			env.Advance()
		}
		env.ReleaseBorrowsAtDepth(env.ScopeDepth())
		env.PopScope()
	case *ast.BreakStmt, *ast.ContinueStmt:
		// no place effects
	case *ast.SpawnStmt:
		if s.Call != nil {
			c.checkExpr(env, s.Call)
		}
		if s.Block != nil {
			c.checkBlock(env, s.Block)
		}
	}
}

// checkReturnValue flags returning a reference to a place defined in the
// current function: a bare `&local` or
// `&local.field` tail expression can never outlive the callee's frame.
func (c *Checker) checkReturnValue(env *Env, expr ast.Expr) {
	c.checkExpr(env, expr)
	if pe, ok := expr.(*ast.PrefixExpr); ok && isRefOp(pe.Op) {
		if place, ok := exprToPlace(pe.Expr); ok {
			if _, defined := env.Lookup(place.Base); defined {
				c.report(errReturnsLocalRef(place.String(), expr.Span()))
			}
		}
	}
}

func isRefOp(op lexer.TokenType) bool {
	return op == lexer.AMPERSAND || op == lexer.REF_MUT
}

// exprToPlace converts a chain of Ident/FieldExpr/IndexExpr/PrefixExpr(deref)
// nodes into a Place, for move/borrow tracking. Returns ok=false for
// expressions that are not place expressions (calls, literals, etc).
func exprToPlace(e ast.Expr) (Place, bool) {
	switch v := e.(type) {
	case *ast.Ident:
		return NewPlace(v.Name), true
	case *ast.FieldExpr:
		base, ok := exprToPlace(v.Target)
		if !ok {
			return Place{}, false
		}
		return base.FieldOf(v.Field.Name), true
	case *ast.IndexExpr:
		base, ok := exprToPlace(v.Target)
		if !ok {
			return Place{}, false
		}
		return base.Extend(Projection{Kind: ProjIndex}), true
	case *ast.PrefixExpr:
		if v.Op == lexer.ASTERISK {
			base, ok := exprToPlace(v.Expr)
			if !ok {
				return Place{}, false
			}
			return base.Extend(Projection{Kind: ProjDeref}), true
		}
	}
	return Place{}, false
}

// checkExpr recursively checks an expression for move/borrow violations,
// reporting them through c.report; it returns nothing.
func (c *Checker) checkExpr(env *Env, e ast.Expr) {
	if e == nil {
		return
	}
	switch v := e.(type) {
	case *ast.Ident:
		c.useIdent(env, v)
	case *ast.PrefixExpr:
		switch v.Op {
		case lexer.AMPERSAND, lexer.REF_MUT:
			c.checkBorrowOf(env, v)
		default:
			c.checkExpr(env, v.Expr)
		}
	case *ast.InfixExpr:
		c.checkExpr(env, v.Left)
		c.checkExpr(env, v.Right)
	case *ast.AssignExpr:
		c.checkAssign(env, v)
	case *ast.CallExpr:
		c.checkCall(env, v)
	case *ast.FieldExpr:
		c.checkPlaceUse(env, v)
	case *ast.IndexExpr:
		c.checkExpr(env, v.Target)
		for _, idx := range v.Indices {
			c.checkExpr(env, idx)
		}
	case *ast.BlockExpr:
		c.checkBlock(env, v)
	case *ast.IfExpr:
		for _, clause := range v.Clauses {
			c.checkExpr(env, clause.Condition)
			c.checkBlock(env, clause.Body)
		}
		if v.Else != nil {
			c.checkBlock(env, v.Else)
		}
	case *ast.MatchExpr:
		c.checkExpr(env, v.Subject)
		for _, arm := range v.Arms {
			c.checkBlock(env, arm.Body)
		}
	case *ast.FunctionLiteral:
		inner := NewEnv()
		for _, p := range v.Params {
			inner.Define(p.Name.Name, false, true, p.Span())
		}
		c.checkBlock(inner, v.Body)
	case *ast.StructLiteral:
		for _, f := range v.Fields {
			c.checkExpr(env, f.Value)
		}
	case *ast.ArrayLiteral:
		for _, el := range v.Elements {
			c.checkExpr(env, el)
		}
	}
}

// useIdent consumes a bare identifier as a by-value use: moves it if its
// type is not Copy-like, flags use-after-move/use-while-borrowed. A whole-
// value use after one or more of its fields were individually moved out
// (via checkLetValue's field moves) is still an error even once every
// declared field has been moved — spec's partial-move scenario (`let x =
// p.a; let y = p.b; let z = p;` errors on the last line even though both
// fields are individually gone) — so this does not consult get_move_state's
// FullyMoved classification to permit the use.
func (c *Checker) useIdent(env *Env, id *ast.Ident) {
	ps, ok := env.Lookup(id.Name)
	if !ok {
		return // not a tracked local (global/const/function name)
	}
	if ps.State == Moved {
		c.report(errUseAfterMove(id.Name, ps.MoveSpan, id.Span()))
		return
	}
	if ps.State == Dropped {
		c.report(errUseOfDropped(id.Name, ps.MoveSpan, id.Span()))
		return
	}
	if field, ok := firstMovedField(ps.MovedFields); ok {
		if c.moveStateOf(ps) == FullyMoved {
			// Every declared field has been individually moved out: there
			// is nothing left of the value, so report it the same way a
			// whole-value move would be, rather than naming one field.
			c.report(errUseAfterMove(id.Name, ps.MoveSpan, id.Span()))
			return
		}
		c.report(errPartialMoveUse(id.Name, field, ps.MoveSpan, id.Span()))
		return
	}
	if !ps.IsInitialized {
		c.report(errUninitializedUse(id.Name, id.Span()))
		return
	}
	env.MarkUsed(id.Name)
}

// firstMovedField returns one moved field name (the lexicographically
// first, for deterministic diagnostics) from a MovedFields set, or ok=false
// if none are moved.
func firstMovedField(moved map[string]bool) (string, bool) {
	best := ""
	found := false
	for f, isMoved := range moved {
		if !isMoved {
			continue
		}
		if !found || f < best {
			best = f
			found = true
		}
	}
	return best, found
}

// checkLetValue checks a `let` statement's initializer. A direct field
// access (`let x = p.a;`) moves the field out of its base place; anything
// else is checked as a normal (non-moving, for field reads) expression.
func (c *Checker) checkLetValue(env *Env, value ast.Expr) {
	if fe, ok := value.(*ast.FieldExpr); ok {
		if place, ok := exprToPlace(fe); ok {
			if _, direct := place.TopFieldName(); direct {
				c.moveFieldAccess(env, fe, place)
				return
			}
		}
	}
	c.checkExpr(env, value)
}

// moveFieldAccess moves place (a direct `base.field` access) out of its
// owning place, recording it in MovedFields so a later whole-value use of
// base is rejected (useIdent) and a later read of the same field is
// rejected (checkPlaceUse), per spec's partial-move semantics.
func (c *Checker) moveFieldAccess(env *Env, fe *ast.FieldExpr, place Place) {
	field, _ := place.TopFieldName()
	ps, found := env.Lookup(place.Base)
	if !found {
		c.checkExpr(env, fe.Target)
		return
	}
	if ps.State == Moved {
		c.report(errUseAfterMove(place.Base, ps.MoveSpan, fe.Span()))
		return
	}
	if ps.IsFieldMoved(field) {
		c.report(errPartialMoveUse(place.Base, field, ps.MoveSpan, fe.Span()))
		return
	}
	if b := ps.ConflictingBorrow(Shared); b != nil {
		c.report(errMoveWhileBorrowed(place.Base, b.CreateSpan, fe.Span()))
		return
	}
	ps.MovedFields[field] = true
	ps.MoveSpan = fe.Span()
	env.MarkUsed(place.Base)
}

// checkPlaceUse handles a.b style field reads: uses the base place without
// moving it, flagging B006 if the specific field was already moved.
func (c *Checker) checkPlaceUse(env *Env, fe *ast.FieldExpr) {
	place, ok := exprToPlace(fe)
	if !ok {
		c.checkExpr(env, fe.Target)
		return
	}
	ps, found := env.Lookup(place.Base)
	if !found {
		c.checkExpr(env, fe.Target)
		return
	}
	if ps.State == Moved {
		c.report(errUseAfterMove(place.Base, ps.MoveSpan, fe.Span()))
		return
	}
	if field, direct := place.TopFieldName(); direct && ps.IsFieldMoved(field) {
		c.report(errPartialMoveUse(place.Base, field, ps.MoveSpan, fe.Span()))
		return
	}
	env.MarkUsed(place.Base)
}

// moveStateOf reports the registry-backed get_move_state classification for
// a tracked place, consulting its declared field list (when its TypeName is
// known) to decide FullyMoved vs PartiallyMoved once every field has been
// individually moved out. Used by useIdent to choose between a
// use-after-move and a partial-move-use diagnostic.
func (c *Checker) moveStateOf(ps *PlaceState) MoveState {
	return ps.MoveState(c.declaredFields(ps.TypeName))
}

// checkBorrowOf validates `&expr` / `&mut expr`: rejects a second mutable
// borrow (B009) or a conflicting shared/exclusive borrow (B005), and
// records the new borrow against the place's owner.
func (c *Checker) checkBorrowOf(env *Env, pe *ast.PrefixExpr) {
	place, ok := exprToPlace(pe.Expr)
	if !ok {
		c.checkExpr(env, pe.Expr)
		return
	}
	ps, found := env.Lookup(place.Base)
	if !found {
		return
	}
	kind := Shared
	if pe.Op == lexer.REF_MUT {
		kind = Exclusive
		if !ps.IsMutable {
			c.report(errAssignImmutable(place.String(), pe.Span()))
			return
		}
	}
	if existing := ps.ConflictingBorrow(kind); existing != nil {
		if kind == Exclusive && existing.Kind == Exclusive {
			c.report(errDoubleMutableBorrow(place.String(), existing.CreateSpan, pe.Span()))
		} else {
			c.report(errConflictingBorrows(place.String(), existing.CreateSpan, pe.Span()))
		}
		return
	}
	env.CreateBorrow(place.Base, place, kind, pe.Span())
}

// checkAssign handles `target = value`: the target must be mutable and not
// currently borrowed; the value is checked as a normal use/move.
func (c *Checker) checkAssign(env *Env, ae *ast.AssignExpr) {
	c.checkExpr(env, ae.Value)
	place, ok := exprToPlace(ae.Target)
	if !ok {
		c.checkExpr(env, ae.Target)
		return
	}
	ps, found := env.Lookup(place.Base)
	if !found {
		return
	}
	if !ps.IsMutable && len(place.Projections) == 0 {
		c.report(errAssignImmutable(place.String(), ae.Span()))
		return
	}
	if b := ps.ConflictingBorrow(Exclusive); b != nil {
		c.report(errMutateWhileBorrowed(place.String(), b.CreateSpan, ae.Span()))
		return
	}
	if len(place.Projections) == 0 {
		ps.State = Owned
		ps.IsInitialized = true
		ps.MovedFields = make(map[string]bool)
	}
}

// checkCall checks the callee and each argument; an argument that is a bare
// place expression passed by value is treated as a move of that place
//, unless its declared
// parameter type is a reference (approximated here: references appear in
// source as an explicit `&`/`&mut` prefix on the argument expression, which
// checkExpr already routes to checkBorrowOf instead of a move).
func (c *Checker) checkCall(env *Env, ce *ast.CallExpr) {
	c.checkExpr(env, ce.Callee)
	for _, arg := range ce.Args {
		c.checkArgMove(env, arg)
	}
}

func (c *Checker) checkArgMove(env *Env, arg ast.Expr) {
	switch v := arg.(type) {
	case *ast.PrefixExpr:
		if isRefOp(v.Op) {
			c.checkBorrowOf(env, v)
			return
		}
	case *ast.Ident:
		c.moveIdent(env, v)
		return
	}
	c.checkExpr(env, arg)
}

// moveIdent moves a bare identifier passed by value: flags any of the B001-
// B004 families and otherwise transitions the place to Moved.
func (c *Checker) moveIdent(env *Env, id *ast.Ident) {
	ps, ok := env.Lookup(id.Name)
	if !ok {
		return
	}
	if ps.State == Moved {
		c.report(errUseAfterMove(id.Name, ps.MoveSpan, id.Span()))
		return
	}
	if b := ps.ConflictingBorrow(Shared); b != nil {
		c.report(errMoveWhileBorrowed(id.Name, b.CreateSpan, id.Span()))
		return
	}
	env.MarkUsed(id.Name)
	ps.State = Moved
	ps.MoveSpan = id.Span()
}
