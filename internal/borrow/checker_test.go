package borrow

import (
	"testing"

	"github.com/tml-lang/tmlc/internal/ast"
	"github.com/tml-lang/tmlc/internal/lexer"
	"github.com/tml-lang/tmlc/internal/registry"
)

func fn(name string, params []*ast.Param, body *ast.BlockExpr) *ast.FnDecl {
	return ast.NewFnDecl(false, false, ast.NewIdent(name, lexer.Span{}), nil, params, nil, nil, nil, body, lexer.Span{})
}

func checkFn(t *testing.T, f *ast.FnDecl) []Error {
	t.Helper()
	file := &ast.File{Decls: []ast.Decl{f}}
	c := NewChecker(registry.New())
	c.CheckModule(file)
	return c.Errors()
}

// fn f(x: string) { let y = x; consume(x); let z = x; }
// the use of `x` after `consume(x)` is a use-after-move.
func TestChecker_UseAfterMove(t *testing.T) {
	xParam := ast.NewParam(ast.NewIdent("x", lexer.Span{}), ast.NewNamedType(ast.NewIdent("string", lexer.Span{}), lexer.Span{}), lexer.Span{})
	letY := &ast.LetStmt{Name: ast.NewIdent("y", lexer.Span{}), Value: ast.NewIdent("x", lexer.Span{})}
	letY.SetSpan(lexer.Span{})
	letZ := &ast.LetStmt{Name: ast.NewIdent("z", lexer.Span{}), Value: ast.NewIdent("x", lexer.Span{})}
	letZ.SetSpan(lexer.Span{})

	// A move happens only through a call argument or an explicit move; a
	// bare `let y = x;` in this checker is a read (useIdent), so to exercise
	// a genuine move we pass x as a call argument first.
	callMove := &ast.ExprStmt{Expr: ast.NewCallExpr(ast.NewIdent("consume", lexer.Span{}), []ast.Expr{ast.NewIdent("x", lexer.Span{})}, lexer.Span{})}
	callMove.SetSpan(lexer.Span{})

	body := &ast.BlockExpr{Stmts: []ast.Stmt{letY, callMove, letZ}}
	errs := checkFn(t, fn("f", []*ast.Param{xParam}, body))

	var found bool
	for _, e := range errs {
		if e.Code == ErrUseAfterMove {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a use-after-move error, got %v", errs)
	}
}

// fn f() { let mut x = 1; let r = &x; x = 2; } -- mutating `x` while a
// shared borrow `r` is still live should be flagged.
func TestChecker_MutateWhileBorrowed(t *testing.T) {
	letX := &ast.LetStmt{Mutable: true, Name: ast.NewIdent("x", lexer.Span{}), Value: ast.NewIntegerLit("1", lexer.Span{})}
	letX.SetSpan(lexer.Span{})

	borrowExpr := ast.NewPrefixExpr(lexer.AMPERSAND, ast.NewIdent("x", lexer.Span{}), lexer.Span{})
	letR := &ast.LetStmt{Name: ast.NewIdent("r", lexer.Span{}), Value: borrowExpr}
	letR.SetSpan(lexer.Span{})

	assign := ast.NewAssignExpr(ast.NewIdent("x", lexer.Span{}), ast.NewIntegerLit("2", lexer.Span{}), lexer.Span{})
	assignStmt := &ast.ExprStmt{Expr: assign}
	assignStmt.SetSpan(lexer.Span{})

	body := &ast.BlockExpr{Stmts: []ast.Stmt{letX, letR, assignStmt}}
	errs := checkFn(t, fn("f", nil, body))

	var found bool
	for _, e := range errs {
		if e.Code == ErrMutateWhileBorrowed {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a mutate-while-borrowed error, got %v", errs)
	}
}

// fn f() { let x = 1; x = 2; } -- assigning to an immutable binding.
func TestChecker_AssignImmutable(t *testing.T) {
	letX := &ast.LetStmt{Mutable: false, Name: ast.NewIdent("x", lexer.Span{}), Value: ast.NewIntegerLit("1", lexer.Span{})}
	letX.SetSpan(lexer.Span{})

	assign := ast.NewAssignExpr(ast.NewIdent("x", lexer.Span{}), ast.NewIntegerLit("2", lexer.Span{}), lexer.Span{})
	assignStmt := &ast.ExprStmt{Expr: assign}
	assignStmt.SetSpan(lexer.Span{})

	body := &ast.BlockExpr{Stmts: []ast.Stmt{letX, assignStmt}}
	errs := checkFn(t, fn("f", nil, body))

	if len(errs) != 1 || errs[0].Code != ErrAssignImmutable {
		t.Errorf("expected exactly one assign-immutable error, got %v", errs)
	}
}

// fn f() { let mut x = 1; let a = &mut x; let b = &mut x; } -- two
// simultaneous mutable borrows of the same place.
func TestChecker_DoubleMutableBorrow(t *testing.T) {
	letX := &ast.LetStmt{Mutable: true, Name: ast.NewIdent("x", lexer.Span{}), Value: ast.NewIntegerLit("1", lexer.Span{})}
	letX.SetSpan(lexer.Span{})

	borrowA := ast.NewPrefixExpr(lexer.REF_MUT, ast.NewIdent("x", lexer.Span{}), lexer.Span{})
	letA := &ast.LetStmt{Name: ast.NewIdent("a", lexer.Span{}), Value: borrowA}
	letA.SetSpan(lexer.Span{})

	borrowB := ast.NewPrefixExpr(lexer.REF_MUT, ast.NewIdent("x", lexer.Span{}), lexer.Span{})
	letB := &ast.LetStmt{Name: ast.NewIdent("b", lexer.Span{}), Value: borrowB}
	letB.SetSpan(lexer.Span{})

	body := &ast.BlockExpr{Stmts: []ast.Stmt{letX, letA, letB}}
	errs := checkFn(t, fn("f", nil, body))

	var found bool
	for _, e := range errs {
		if e.Code == ErrDoubleMutableBorrow || e.Code == ErrConflictingBorrows {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a double-mutable-borrow error, got %v", errs)
	}
}

// fn f(x: string) -> &string { return &x; } -- returning a reference to a
// local/parameter should be rejected by escape analysis.
func TestChecker_ReturnsLocalRef(t *testing.T) {
	xParam := ast.NewParam(ast.NewIdent("x", lexer.Span{}), ast.NewNamedType(ast.NewIdent("string", lexer.Span{}), lexer.Span{}), lexer.Span{})
	retExpr := ast.NewPrefixExpr(lexer.AMPERSAND, ast.NewIdent("x", lexer.Span{}), lexer.Span{})
	retStmt := &ast.ReturnStmt{Value: retExpr}
	retStmt.SetSpan(lexer.Span{})

	body := &ast.BlockExpr{Stmts: []ast.Stmt{retStmt}}
	errs := checkFn(t, fn("f", []*ast.Param{xParam}, body))

	if len(errs) != 1 || errs[0].Code != ErrReturnsLocalRef {
		t.Errorf("expected exactly one returns-local-ref error, got %v", errs)
	}
}

// fn f(p: Point) { let x = p.a; let y = p.b; let z = p; } -- even once
// every declared field of p has been individually moved out, a later
// whole-value use of p is still a use-after-move: nothing is left of it.
func TestChecker_PartialMoveThenWholeUse(t *testing.T) {
	reg := registry.New()
	mod := reg.Declare("test")
	mod.Structs["Point"] = &registry.StructDef{
		Name: "Point",
		Fields: []registry.StructFieldDef{
			{Name: "a"},
			{Name: "b"},
		},
	}

	pParam := ast.NewParam(ast.NewIdent("p", lexer.Span{}), ast.NewNamedType(ast.NewIdent("Point", lexer.Span{}), lexer.Span{}), lexer.Span{})

	letX := &ast.LetStmt{Name: ast.NewIdent("x", lexer.Span{}), Value: ast.NewFieldExpr(ast.NewIdent("p", lexer.Span{}), ast.NewIdent("a", lexer.Span{}), lexer.Span{})}
	letX.SetSpan(lexer.Span{})
	letY := &ast.LetStmt{Name: ast.NewIdent("y", lexer.Span{}), Value: ast.NewFieldExpr(ast.NewIdent("p", lexer.Span{}), ast.NewIdent("b", lexer.Span{}), lexer.Span{})}
	letY.SetSpan(lexer.Span{})
	letZ := &ast.LetStmt{Name: ast.NewIdent("z", lexer.Span{}), Value: ast.NewIdent("p", lexer.Span{})}
	letZ.SetSpan(lexer.Span{})

	body := &ast.BlockExpr{Stmts: []ast.Stmt{letX, letY, letZ}}
	file := &ast.File{Decls: []ast.Decl{fn("f", []*ast.Param{pParam}, body)}}
	c := NewChecker(reg)
	c.CheckModule(file)
	errs := c.Errors()

	var found bool
	for _, e := range errs {
		if e.Code == ErrUseAfterMove {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a use-after-move error once every field is individually moved, got %v", errs)
	}
}

// fn f(p: Point) { let x = p.a; let y = p.a; } -- moving the same field
// twice is a partial-move-use error, not a whole-value use-after-move.
func TestChecker_DoubleFieldMove(t *testing.T) {
	reg := registry.New()
	mod := reg.Declare("test")
	mod.Structs["Point"] = &registry.StructDef{
		Name: "Point",
		Fields: []registry.StructFieldDef{
			{Name: "a"},
			{Name: "b"},
		},
	}

	pParam := ast.NewParam(ast.NewIdent("p", lexer.Span{}), ast.NewNamedType(ast.NewIdent("Point", lexer.Span{}), lexer.Span{}), lexer.Span{})

	letX := &ast.LetStmt{Name: ast.NewIdent("x", lexer.Span{}), Value: ast.NewFieldExpr(ast.NewIdent("p", lexer.Span{}), ast.NewIdent("a", lexer.Span{}), lexer.Span{})}
	letX.SetSpan(lexer.Span{})
	letY := &ast.LetStmt{Name: ast.NewIdent("y", lexer.Span{}), Value: ast.NewFieldExpr(ast.NewIdent("p", lexer.Span{}), ast.NewIdent("a", lexer.Span{}), lexer.Span{})}
	letY.SetSpan(lexer.Span{})

	body := &ast.BlockExpr{Stmts: []ast.Stmt{letX, letY}}
	file := &ast.File{Decls: []ast.Decl{fn("f", []*ast.Param{pParam}, body)}}
	c := NewChecker(reg)
	c.CheckModule(file)
	errs := c.Errors()

	if len(errs) != 1 || errs[0].Code != ErrPartialMoveUse {
		t.Errorf("expected exactly one partial-move-use error, got %v", errs)
	}
}

// fn f() { let mut x = 1; let r = &x; } -- a plain, well-formed borrow
// should never be flagged.
func TestChecker_CleanBorrow(t *testing.T) {
	letX := &ast.LetStmt{Mutable: true, Name: ast.NewIdent("x", lexer.Span{}), Value: ast.NewIntegerLit("1", lexer.Span{})}
	letX.SetSpan(lexer.Span{})

	borrowExpr := ast.NewPrefixExpr(lexer.AMPERSAND, ast.NewIdent("x", lexer.Span{}), lexer.Span{})
	letR := &ast.LetStmt{Name: ast.NewIdent("r", lexer.Span{}), Value: borrowExpr}
	letR.SetSpan(lexer.Span{})

	body := &ast.BlockExpr{Stmts: []ast.Stmt{letX, letR}}
	errs := checkFn(t, fn("f", nil, body))

	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}
