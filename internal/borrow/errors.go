package borrow

import (
	"fmt"

	"github.com/tml-lang/tmlc/internal/diag"
	"github.com/tml-lang/tmlc/internal/lexer"
)

// ErrorCode enumerates the stable B001-B013 borrow diagnostics plus B099
// for anything that does not fit the named cases.
type ErrorCode string

const (
	ErrUseAfterMove        ErrorCode = "B001"
	ErrUseWhileBorrowed    ErrorCode = "B002"
	ErrMoveWhileBorrowed   ErrorCode = "B003"
	ErrMutateWhileBorrowed ErrorCode = "B004"
	ErrConflictingBorrows  ErrorCode = "B005"
	ErrPartialMoveUse      ErrorCode = "B006"
	ErrReturnsLocalRef     ErrorCode = "B007"
	ErrBorrowOutlivesOwner ErrorCode = "B008"
	ErrDoubleMutableBorrow ErrorCode = "B009"
	ErrAssignImmutable     ErrorCode = "B010"
	ErrMoveBehindRef       ErrorCode = "B011"
	ErrUseOfDropped        ErrorCode = "B012"
	ErrUninitializedUse    ErrorCode = "B013"
	ErrOther               ErrorCode = "B099"
)

func (c ErrorCode) diagCode() diag.Code { return diag.Code(c) }

// Suggestion pairs a human-readable fix description with an optional code
// snippet.
type Suggestion struct {
	Message string
	Fix     string
}

// Error is one borrow-checker diagnostic, convertible to diag.Diagnostic
// for the shared formatter.
type Error struct {
	Code          ErrorCode
	Message       string
	Span          lexer.Span
	Notes         []string
	RelatedSpan   lexer.Span
	RelatedMsg    string
	Suggestions   []Suggestion
}

func toDiagSpan(s lexer.Span) diag.Span {
	return diag.Span{Filename: s.Filename, Line: s.Line, Column: s.Column, Start: s.Start, End: s.End}
}

// ToDiagnostic converts a borrow Error into the shared diag.Diagnostic
// shape used by every other compiler stage's formatter.
func (e Error) ToDiagnostic() diag.Diagnostic {
	d := diag.Diagnostic{
		Stage:    diag.StageBorrow,
		Severity: diag.SeverityError,
		Code:     e.Code.diagCode(),
		Message:  e.Message,
		Span:     toDiagSpan(e.Span),
		Notes:    e.Notes,
	}
	d = d.WithPrimarySpan(toDiagSpan(e.Span), "")
	if e.RelatedSpan.Line > 0 {
		d = d.WithSecondarySpan(toDiagSpan(e.RelatedSpan), e.RelatedMsg)
	}
	if len(e.Suggestions) > 0 {
		d.Suggestion = e.Suggestions[0].Message
		if e.Suggestions[0].Fix != "" {
			d.Help = e.Suggestions[0].Fix
		}
	}
	return d
}

func errUseAfterMove(place string, moveSpan, useSpan lexer.Span) Error {
	return Error{
		Code:        ErrUseAfterMove,
		Message:     fmt.Sprintf("use of moved value `%s`", place),
		Span:        useSpan,
		RelatedSpan: moveSpan,
		RelatedMsg:  fmt.Sprintf("`%s` moved here", place),
		Suggestions: []Suggestion{{Message: fmt.Sprintf("clone `%s` before moving it, or borrow instead of moving", place)}},
	}
}

func errUseWhileBorrowed(place string, borrowSpan, useSpan lexer.Span) Error {
	return Error{
		Code:        ErrUseWhileBorrowed,
		Message:     fmt.Sprintf("cannot use `%s` while it is mutably borrowed", place),
		Span:        useSpan,
		RelatedSpan: borrowSpan,
		RelatedMsg:  "mutable borrow occurs here",
	}
}

func errMoveWhileBorrowed(place string, borrowSpan, moveSpan lexer.Span) Error {
	return Error{
		Code:        ErrMoveWhileBorrowed,
		Message:     fmt.Sprintf("cannot move `%s` because it is borrowed", place),
		Span:        moveSpan,
		RelatedSpan: borrowSpan,
		RelatedMsg:  "borrow occurs here",
	}
}

func errMutateWhileBorrowed(place string, borrowSpan, useSpan lexer.Span) Error {
	return Error{
		Code:        ErrMutateWhileBorrowed,
		Message:     fmt.Sprintf("cannot mutate `%s` while it is borrowed", place),
		Span:        useSpan,
		RelatedSpan: borrowSpan,
		RelatedMsg:  "borrow occurs here",
	}
}

func errConflictingBorrows(place string, firstSpan, secondSpan lexer.Span) Error {
	return Error{
		Code:        ErrConflictingBorrows,
		Message:     fmt.Sprintf("cannot borrow `%s` here because of a conflicting borrow", place),
		Span:        secondSpan,
		RelatedSpan: firstSpan,
		RelatedMsg:  "first borrow occurs here",
	}
}

func errPartialMoveUse(place, field string, moveSpan, useSpan lexer.Span) Error {
	return Error{
		Code:        ErrPartialMoveUse,
		Message:     fmt.Sprintf("use of `%s` after partial move of field `%s`", place, field),
		Span:        useSpan,
		RelatedSpan: moveSpan,
		RelatedMsg:  fmt.Sprintf("`%s.%s` moved here", place, field),
	}
}

func errReturnsLocalRef(place string, span lexer.Span) Error {
	return Error{
		Code:    ErrReturnsLocalRef,
		Message: fmt.Sprintf("cannot return a reference to local variable `%s`", place),
		Span:    span,
		Suggestions: []Suggestion{
			{Message: "return an owned value instead of a reference to a local"},
		},
	}
}

func errBorrowOutlivesOwner(place string, borrowSpan, ownerDropSpan lexer.Span) Error {
	return Error{
		Code:        ErrBorrowOutlivesOwner,
		Message:     fmt.Sprintf("borrow of `%s` outlives the owner's scope", place),
		Span:        borrowSpan,
		RelatedSpan: ownerDropSpan,
		RelatedMsg:  fmt.Sprintf("`%s` dropped here", place),
	}
}

func errDoubleMutableBorrow(place string, firstSpan, secondSpan lexer.Span) Error {
	return Error{
		Code:        ErrDoubleMutableBorrow,
		Message:     fmt.Sprintf("cannot mutably borrow `%s` more than once at a time", place),
		Span:        secondSpan,
		RelatedSpan: firstSpan,
		RelatedMsg:  "first mutable borrow occurs here",
	}
}

func errAssignImmutable(place string, span lexer.Span) Error {
	return Error{
		Code:        ErrAssignImmutable,
		Message:     fmt.Sprintf("cannot assign to `%s`: not declared `mut`", place),
		Span:        span,
		Suggestions: []Suggestion{{Message: fmt.Sprintf("declare `%s` with `let mut`", place)}},
	}
}

func errMoveBehindRef(place string, span lexer.Span) Error {
	return Error{
		Code:    ErrMoveBehindRef,
		Message: fmt.Sprintf("cannot move `%s` out of a reference", place),
		Span:    span,
		Suggestions: []Suggestion{
			{Message: "use `.to_owned()` / `.duplicate()` to copy the value instead of moving it"},
		},
	}
}

func errUseOfDropped(place string, dropSpan, useSpan lexer.Span) Error {
	return Error{
		Code:        ErrUseOfDropped,
		Message:     fmt.Sprintf("use of `%s` after it was dropped", place),
		Span:        useSpan,
		RelatedSpan: dropSpan,
		RelatedMsg:  fmt.Sprintf("`%s` dropped here", place),
	}
}

func errUninitializedUse(place string, span lexer.Span) Error {
	return Error{
		Code:    ErrUninitializedUse,
		Message: fmt.Sprintf("use of possibly-uninitialized variable `%s`", place),
		Span:    span,
	}
}

func errOther(msg string, span lexer.Span) Error {
	return Error{Code: ErrOther, Message: msg, Span: span}
}
