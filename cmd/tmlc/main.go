// Command tmlc is the driver CLI for the TML compiler: a cobra.Command
// tree wrapping the parse/check/borrow-check/monomorphize/emit pipeline
// grounded on the driver's original compile-to-temp
// driver logic but restructured around cobra/pflag instead of the
// stdlib flag package, with config/telemetry wired in.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tml-lang/tmlc/internal/ast"
	"github.com/tml-lang/tmlc/internal/borrow"
	"github.com/tml-lang/tmlc/internal/codegen/mir2llvm"
	"github.com/tml-lang/tmlc/internal/config"
	"github.com/tml-lang/tmlc/internal/diag"
	"github.com/tml-lang/tmlc/internal/lsp"
	"github.com/tml-lang/tmlc/internal/mir"
	"github.com/tml-lang/tmlc/internal/parser"
	"github.com/tml-lang/tmlc/internal/registry"
	"github.com/tml-lang/tmlc/internal/repl"
	"github.com/tml-lang/tmlc/internal/telemetry"
	"github.com/tml-lang/tmlc/internal/typeenv"
	"github.com/tml-lang/tmlc/internal/types"
)

var (
	cfg               config.Config
	flagOptLevel      string
	flagDebugInfo     bool
	flagPIC           bool
	flagTarget        string
	flagSysroot       string
	flagLTO           bool
	flagFuseLD        string
	flagVerbose       bool
	flagWatch         bool
	flagJobs          int
)

var formatter = diag.NewFormatter()

func main() {
	root := &cobra.Command{
		Use:   "tmlc",
		Short: "TML compiler driver",
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flagOptLevel, "opt-level", "O", "", "optimization level (0-3)")
	pf.BoolVarP(&flagDebugInfo, "debug-info", "g", false, "emit debug info")
	pf.BoolVar(&flagPIC, "fPIC", false, "emit position-independent code")
	pf.StringVar(&flagTarget, "target", "", "target triple")
	pf.StringVar(&flagSysroot, "sysroot", "", "sysroot for the target toolchain")
	pf.BoolVar(&flagLTO, "flto", false, "enable link-time optimization")
	pf.StringVar(&flagFuseLD, "fuse-ld", "", "linker to use (e.g. lld)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "verbose driver output")
	pf.IntVarP(&flagJobs, "jobs", "j", 1, "number of compilation units to build concurrently")

	root.AddCommand(
		newBuildCmd(),
		newCheckCmd(),
		newEmitLLVMCmd(),
		newReplCmd(),
		newObjdumpCmd(),
		newLSPCmd(),
		newVersionCmd(),
	)

	cobra.OnInitialize(func() {
		wd, _ := os.Getwd()
		loaded, err := config.Load(wd)
		if err == nil {
			cfg = loaded
		} else {
			cfg = config.Default()
		}
		if flagOptLevel == "" {
			flagOptLevel = cfg.OptimizationLevel
		}
		if flagTarget == "" {
			flagTarget = cfg.TargetTriple
		}
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print compiler version",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := os.Getenv("TMLC_VERSION")
			if v == "" {
				v = "dev"
			}
			fmt.Printf("tmlc version %s\n", v)
			return nil
		},
	}
}

func newLSPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "run the language server",
		RunE: func(cmd *cobra.Command, args []string) error {
			server := lsp.NewServer()
			return server.Run(context.Background())
		},
	}
}

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "interactive front-end sandbox (parse/check/borrow-check, no codegen)",
		RunE: func(cmd *cobra.Command, args []string) error {
			repl.New().Start(os.Stdout)
			return nil
		},
	}
}

func newObjdumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "objdump <file.o>",
		Short: "disassemble an object file produced by tmlc build (teaching aid, not part of the linker contract)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return disassembleObject(args[0])
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <files...>",
		Short: "type-check and borrow-check without codegen",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConcurrent(args, func(filename string) error {
				unit := telemetry.NewUnit(filename)
				_, _, _, err := checkFile(filename, unit)
				return err
			})
		},
	}
}

func newEmitLLVMCmd() *cobra.Command {
	var out string
	c := &cobra.Command{
		Use:   "emit-llvm <file>",
		Short: "emit LLVM textual IR for a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			unit := telemetry.NewUnit(args[0])
			ir, err := compileToLLVMIR(args[0], unit)
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Print(ir)
				return nil
			}
			return os.WriteFile(out, []byte(ir), 0o644)
		},
	}
	c.Flags().StringVarP(&out, "output", "o", "", "output .ll path (default: stdout)")
	return c
}

func newBuildCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "build <files...>",
		Short: "compile TML source to a native binary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run := func() error {
				return runConcurrent(args, func(filename string) error {
					unit := telemetry.NewUnit(filename)
					return buildFile(filename, unit)
				})
			}
			if flagWatch {
				return watchAndRun(args, run)
			}
			return run()
		},
	}
	c.Flags().BoolVar(&flagWatch, "watch", false, "recompile on source change")
	return c
}

// runConcurrent runs fn over files using a bounded errgroup sized by -j
// each unit owns independent checker/emitter state.
func runConcurrent(files []string, fn func(filename string) error) error {
	g := new(errgroup.Group)
	g.SetLimit(maxInt(flagJobs, 1))
	for _, f := range files {
		f := f
		g.Go(func() error { return fn(f) })
	}
	return g.Wait()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func watchAndRun(files []string, run func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	dirs := make(map[string]bool)
	for _, f := range files {
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, ".tml") {
				continue
			}
			fmt.Fprintf(os.Stderr, "[watch] %s changed, rebuilding\n", event.Name)
			if err := run(); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stderr, "watch error:", err)
		}
	}
}

func formatDiagnostic(d diag.Diagnostic) {
	if len(d.LabeledSpans) > 0 && !d.Span.IsValid() {
		for _, ls := range d.LabeledSpans {
			if ls.Style == "primary" {
				d.Span = ls.Span
				break
			}
		}
		if !d.Span.IsValid() {
			d.Span = d.LabeledSpans[0].Span
		}
	}
	formatter.Format(d)
}

// checkFile parses, type-checks, and borrow-checks filename, returning the
// parsed file and checker on success.
func checkFile(filename string, unit *telemetry.Unit) (*ast.File, *types.Checker, *registry.Registry, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading %s: %w", filename, err)
	}

	var file *ast.File
	var p *parser.Parser
	if err := unit.Time(telemetry.PhaseParse, func() error {
		p = parser.New(string(src), parser.WithFilename(filename))
		file = p.ParseFile()
		return nil
	}); err != nil {
		return nil, nil, nil, err
	}
	if len(p.Errors()) > 0 {
		for _, perr := range p.Errors() {
			span := diag.Span{Filename: perr.Span.Filename, Line: perr.Span.Line, Column: perr.Span.Column, Start: perr.Span.Start, End: perr.Span.End}
			unit.Error("PARSE_ERROR", perr.Message)
			d := diag.Diagnostic{Stage: diag.StageParser, Severity: perr.Severity, Code: diag.Code("PARSE_ERROR"), Message: perr.Message, Span: span}
			if span.IsValid() {
				d = d.WithPrimarySpan(span, "")
			}
			formatDiagnostic(d)
		}
		return nil, nil, nil, fmt.Errorf("parse failed for %s", filename)
	}

	checker := types.NewChecker()
	absFilename, err := filepath.Abs(filename)
	if err != nil {
		absFilename = filename
	}
	if err := unit.Time(telemetry.PhaseCheck, func() error {
		checker.CheckWithFilename(file, absFilename)
		return nil
	}); err != nil {
		return nil, nil, nil, err
	}
	if len(checker.Errors) > 0 {
		for _, e := range checker.Errors {
			unit.Error(string(e.Code), e.Message)
			formatDiagnostic(e)
		}
		return nil, nil, nil, fmt.Errorf("type check failed for %s", filename)
	}

	reg := registry.New()
	mod := reg.Declare(absFilename)
	registry.PopulateFromChecker(mod, checker)

	var borrowErrs []borrow.Error
	if err := unit.Time(telemetry.PhaseBorrow, func() error {
		bc := borrow.NewChecker(reg)
		bc.CheckModule(file)
		borrowErrs = bc.Errors()
		return nil
	}); err != nil {
		return nil, nil, nil, err
	}
	if len(borrowErrs) > 0 {
		for _, e := range borrowErrs {
			unit.Error(string(e.Code), e.Message)
			formatDiagnostic(e.ToDiagnostic())
		}
		return nil, nil, nil, fmt.Errorf("borrow check failed for %s", filename)
	}

	return file, checker, reg, nil
}

// compileToLLVMIR runs the full pipeline through MIR lowering,
// monomorphization, and LLVM emission, returning the textual IR.
func compileToLLVMIR(filename string, unit *telemetry.Unit) (string, error) {
	file, checker, reg, err := checkFile(filename, unit)
	if err != nil {
		return "", err
	}

	var llvmIR string
	err = unit.Time(telemetry.PhaseMono, func() error {
		typeInfo := make(map[ast.Node]types.Type, len(checker.ExprTypes))
		for expr, t := range checker.ExprTypes {
			typeInfo[expr] = t
		}
		lowerer := mir.NewLowerer(typeInfo, nil)
		mirModule, err := lowerer.LowerModule(file)
		if err != nil {
			return fmt.Errorf("MIR lowering: %w", err)
		}
		monomorphizer := mir.NewMonomorphizer(mirModule)
		if err := monomorphizer.Monomorphize(); err != nil {
			return fmt.Errorf("monomorphization: %w", err)
		}

		return unit.Time(telemetry.PhaseEmit, func() error {
			gen := mir2llvm.NewGenerator()
			gen.SetTypeEnv(typeenv.New(reg))
			ir, err := gen.Generate(mirModule)
			if len(gen.Errors) > 0 {
				for _, d := range gen.Errors {
					formatDiagnostic(d)
				}
				return fmt.Errorf("codegen failed with %d error(s)", len(gen.Errors))
			}
			if err != nil {
				return fmt.Errorf("codegen: %w", err)
			}
			llvmIR = ir
			return nil
		})
	})
	return llvmIR, err
}

func findTool(name string) (string, error) {
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}
	brewPrefix := os.Getenv("HOMEBREW_PREFIX")
	prefixes := []string{"/opt/homebrew", "/usr/local"}
	if brewPrefix != "" {
		prefixes = append([]string{brewPrefix}, prefixes...)
	}
	for _, prefix := range prefixes {
		p := filepath.Join(prefix, "opt/llvm/bin", name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s not found in PATH or common installation locations", name)
}

func buildFile(filename string, unit *telemetry.Unit) error {
	ir, err := compileToLLVMIR(filename, unit)
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp("", "tmlc_*.ll")
	if err != nil {
		return fmt.Errorf("creating temp IR file: %w", err)
	}
	defer os.Remove(tmpFile.Name())
	if _, err := tmpFile.WriteString(ir); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing IR: %w", err)
	}
	tmpFile.Close()

	llcPath, err := findTool("llc")
	if err != nil {
		return fmt.Errorf("%w (install with: brew install llvm, or ensure llc is in PATH)", err)
	}

	triple := flagTarget
	if triple == "" {
		triple = cfg.TargetTriple
	}
	objFile := tmpFile.Name() + ".o"
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	llcArgs := []string{"-filetype=obj", "-mtriple=" + triple, "-o", objFile, tmpFile.Name()}
	if flagVerbose {
		fmt.Fprintf(os.Stderr, "[tmlc] %s %s\n", llcPath, strings.Join(llcArgs, " "))
	}
	cmd := exec.CommandContext(ctx, llcPath, llcArgs...)
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("llc failed: %w", err)
	}
	defer os.Remove(objFile)

	base := filepath.Base(filename)
	outName := strings.TrimSuffix(base, filepath.Ext(base))

	linkArgs := []string{"-o", outName, objFile, "-lgc", "-pthread"}
	if flagFuseLD != "" {
		linkArgs = append(linkArgs, "-fuse-ld="+flagFuseLD)
	}
	if flagLTO {
		linkArgs = append(linkArgs, "-flto")
	}
	if flagSysroot != "" {
		linkArgs = append(linkArgs, "--sysroot="+flagSysroot)
	}
	if flagVerbose {
		fmt.Fprintf(os.Stderr, "[tmlc] clang %s\n", strings.Join(linkArgs, " "))
	}
	linkCmd := exec.CommandContext(ctx, "clang", linkArgs...)
	linkCmd.Stdout, linkCmd.Stderr = os.Stdout, os.Stderr
	if err := linkCmd.Run(); err != nil {
		return fmt.Errorf("linking failed: %w (note: requires clang and Boehm GC installed)", err)
	}

	fmt.Printf("built %s\n", outName)
	return nil
}
