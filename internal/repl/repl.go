// Package repl implements an interactive, liner-backed line editor for
// exploring tmlc's front end: each line is parsed, type-checked, and
// borrow-checked in isolation, with the inferred type or diagnostics
// printed back. There is no evaluator — TML compiles to native code via
// LLVM, it has no interpreter — so the REPL is a front-end sandbox, grounded
// on sunholo-data-ailang's internal/repl/repl.go loop shape.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/tml-lang/tmlc/internal/ast"
	"github.com/tml-lang/tmlc/internal/borrow"
	"github.com/tml-lang/tmlc/internal/parser"
	"github.com/tml-lang/tmlc/internal/registry"
	"github.com/tml-lang/tmlc/internal/types"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// REPL is a stateless-per-line front-end sandbox: each submitted line is
// wrapped in `fn repl_line() { <line> }` and run through the full
// parse/check/borrow-check pipeline.
type REPL struct {
	history []string
}

func New() *REPL { return &REPL{} }

func historyPath() string { return filepath.Join(os.TempDir(), ".tmlc_history") }

// Start runs the interactive loop, reading from a liner-backed line editor
// and writing results to out.
func (r *REPL) Start(out io.Writer) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(true)

	if f, err := os.Open(historyPath()); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	fmt.Fprintf(out, "%s\n", bold("tmlc repl"))
	fmt.Fprintln(out, dim("Type :help for help, :quit to exit"))
	fmt.Fprintln(out)

	line.SetCompleter(func(in string) (c []string) {
		if strings.HasPrefix(in, ":") {
			for _, cmd := range []string{":help", ":quit", ":history"} {
				if strings.HasPrefix(cmd, in) {
					c = append(c, cmd)
				}
			}
		}
		return
	})

	for {
		input, err := line.Prompt("tml> ")
		if err == io.EOF {
			fmt.Fprintln(out, green("goodbye"))
			break
		}
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("error"), err)
			continue
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		r.history = append(r.history, input)

		if strings.HasPrefix(input, ":") {
			if input == ":quit" || input == ":q" || input == ":exit" {
				fmt.Fprintln(out, green("goodbye"))
				break
			}
			r.handleCommand(input, out)
			continue
		}
		r.evalLine(input, out)
	}

	if f, err := os.Create(historyPath()); err == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}

func (r *REPL) handleCommand(cmd string, out io.Writer) {
	switch cmd {
	case ":help":
		fmt.Fprintln(out, "  :help     show this message")
		fmt.Fprintln(out, "  :history  show submitted lines")
		fmt.Fprintln(out, "  :quit     exit the repl")
	case ":history":
		for i, h := range r.history {
			fmt.Fprintf(out, "%3d  %s\n", i+1, h)
		}
	default:
		fmt.Fprintf(out, "%s: unknown command %q\n", red("error"), cmd)
	}
}

// evalLine wraps input in a throwaway function body so standalone
// expressions and statements both parse, then runs type checking and
// borrow checking over it.
func (r *REPL) evalLine(input string, out io.Writer) {
	src := "fn __repl_line() {\n" + input + "\n}\n"
	p := parser.New(src, parser.WithFilename("<repl>"))
	file := p.ParseFile()

	if len(p.Errors()) > 0 {
		for _, e := range p.Errors() {
			fmt.Fprintf(out, "%s: %s\n", red("parse error"), e.Message)
		}
		return
	}

	checker := types.NewChecker()
	checker.Check(file)
	if len(checker.Errors) > 0 {
		for _, e := range checker.Errors {
			fmt.Fprintf(out, "%s: %s\n", red("type error"), e.Message)
		}
		return
	}

	bc := borrow.NewChecker(registry.New())
	bc.CheckModule(file)
	if errs := bc.Errors(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(out, "%s: %s\n", red(string(e.Code)), e.Message)
		}
		return
	}

	if fn, ok := lastFnDecl(file); ok {
		fmt.Fprintf(out, "%s\n", green("ok: "+fn.Name.Name+" checks"))
	}
}

func lastFnDecl(file *ast.File) (*ast.FnDecl, bool) {
	for i := len(file.Decls) - 1; i >= 0; i-- {
		if fn, ok := file.Decls[i].(*ast.FnDecl); ok {
			return fn, true
		}
	}
	return nil, false
}
