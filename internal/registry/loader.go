package registry

// Loader walks a source tree and populates a Registry. It is the only
// piece of the type-checking pipeline that touches the filesystem,
// grounded on sunholo-data-ailang's internal/module.Resolver: a module
// path like "collections::list" maps to "<root>/collections/list.tml".
// Every imported module path is resolved against the project root; a
// path is not resolved relative to the importing module.
import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tml-lang/tmlc/internal/ast"
	"github.com/tml-lang/tmlc/internal/diag"
	"github.com/tml-lang/tmlc/internal/parser"
)

const fileExt = ".tml"

// Loader resolves module paths to files under root and parses them into
// the Registry's pass-1 declaration tables.
type Loader struct {
	root      string
	reg       *Registry
	files     map[string]*ast.File // module path -> parsed file
	loading map[string]bool // cycle guard, MODULE_CYCLIC_IMPORT
	order     []string
	Diags     []diag.Diagnostic
}

func NewLoader(root string) *Loader {
	return &Loader{
		root:    root,
		reg:     New(),
		files:   make(map[string]*ast.File),
		loading: make(map[string]bool),
	}
}

// Registry returns the registry populated so far.
func (l *Loader) Registry() *Registry { return l.reg }

// Files returns every parsed file, keyed by module path; use Order for
// the load order.
func (l *Loader) Files() map[string]*ast.File { return l.files }

// Order returns module paths in first-load order, for deterministic
// pass-2 checking.
func (l *Loader) Order() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// pathToFile converts a "a::b::c" module path to "<root>/a/b/c.tml".
func (l *Loader) pathToFile(modPath string) string {
	parts := strings.Split(modPath, "::")
	segs := append([]string{l.root}, parts...)
	return filepath.Join(segs...) + fileExt
}

// LoadEntry loads the entry module (e.g. "main") and everything it
// transitively imports via `use` declarations.
func (l *Loader) LoadEntry(modPath string) error {
	return l.load(modPath)
}

func (l *Loader) load(modPath string) error {
	if l.loading[modPath] {
		l.Diags = append(l.Diags, diag.Diagnostic{
			Stage:    diag.StageModule,
			Severity: diag.SeverityError,
			Code:     diag.CodeModuleCyclic,
			Message:  fmt.Sprintf("cyclic import involving module `%s`", modPath),
		})
		return fmt.Errorf("cyclic import: %s", modPath)
	}
	if _, ok := l.files[modPath]; ok {
		return nil
	}
	l.loading[modPath] = true
	defer delete(l.loading, modPath)

	path := l.pathToFile(modPath)
	src, err := os.ReadFile(path)
	if err != nil {
		l.Diags = append(l.Diags, diag.Diagnostic{
			Stage:    diag.StageModule,
			Severity: diag.SeverityError,
			Code:     diag.CodeModuleNotFound,
			Message:  fmt.Sprintf("module `%s` not found: expected file %s", modPath, path),
		})
		return err
	}

	p := parser.New(string(src), parser.WithFilename(path))
	file := p.ParseFile()
	for _, pe := range p.Errors() {
		l.Diags = append(l.Diags, diag.Diagnostic{
			Stage:    diag.StageParser,
			Severity: pe.Severity,
			Message:  pe.Message,
			Span: diag.Span{
				Filename: pe.Span.Filename,
				Line:     pe.Span.Line,
				Column:   pe.Span.Column,
				Start:    pe.Span.Start,
				End:      pe.Span.End,
			},
		})
	}

	l.files[modPath] = file
	l.order = append(l.order, modPath)
	mod := l.reg.Declare(modPath)
	l.collectImports(mod, file)

	for _, imp := range mod.Imports {
		importedModule, _ := splitQualified(imp.QualifiedPath)
		if importedModule == "" {
			continue
		}
		if err := l.load(importedModule); err != nil {
			// Keep going: a missing import is reported, but sibling
			// imports of the same file should still be attempted so
			// every MODULE_NOT_FOUND/MODULE_CYCLIC_IMPORT in a module
			// surfaces in one pass.
			continue
		}
	}
	return nil
}

// collectImports records each `use` declaration's short name and fully
// qualified "module::symbol" path.
func (l *Loader) collectImports(mod *Module, file *ast.File) {
	for _, use := range file.Uses {
		if len(use.Path) == 0 {
			continue
		}
		segs := make([]string, len(use.Path))
		for i, id := range use.Path {
			segs[i] = id.Name
		}
		short := segs[len(segs)-1]
		if use.Alias != nil {
			short = use.Alias.Name
		}
		qualified := strings.Join(segs[:len(segs)-1], "::")
		if qualified != "" {
			qualified += "::" + segs[len(segs)-1]
		} else {
			qualified = segs[len(segs)-1]
		}
		mod.Imports = append(mod.Imports, Import{ShortName: short, QualifiedPath: qualified})
	}
}
