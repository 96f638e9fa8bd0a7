package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func writeModule(t *testing.T, root, modPath, src string) {
	t.Helper()
	parts := splitModPath(modPath)
	dir := filepath.Join(append([]string{root}, parts[:len(parts)-1]...)...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	file := filepath.Join(dir, parts[len(parts)-1]+fileExt)
	if err := os.WriteFile(file, []byte(src), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func splitModPath(modPath string) []string {
	var parts []string
	start := 0
	for i := 0; i+1 < len(modPath); i++ {
		if modPath[i] == ':' && modPath[i+1] == ':' {
			parts = append(parts, modPath[start:i])
			start = i + 2
			i++
		}
	}
	parts = append(parts, modPath[start:])
	return parts
}

func TestLoader_LoadsEntryAndImports(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "collections::list", "struct List { }\n")
	writeModule(t, root, "main", "use collections::list::List;\nfn main() { }\n")

	l := NewLoader(root)
	if err := l.LoadEntry("main"); err != nil {
		t.Fatalf("LoadEntry: %v", err)
	}
	if len(l.Diags) != 0 {
		t.Fatalf("expected no diagnostics, got %+v", l.Diags)
	}

	order := l.Order()
	if len(order) != 2 || order[0] != "main" || order[1] != "collections::list" {
		t.Fatalf("expected load order [main, collections::list], got %v", order)
	}

	mod, ok := l.Registry().Lookup("main")
	if !ok {
		t.Fatalf("expected main module registered")
	}
	if len(mod.Imports) != 1 || mod.Imports[0].ShortName != "List" {
		t.Fatalf("expected main to import List, got %+v", mod.Imports)
	}
}

func TestLoader_MissingModuleReportsDiagnostic(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "main", "use collections::list::List;\nfn main() { }\n")

	l := NewLoader(root)
	_ = l.LoadEntry("main")

	if len(l.Diags) != 1 || l.Diags[0].Code != "MODULE_NOT_FOUND" {
		t.Fatalf("expected one MODULE_NOT_FOUND diagnostic, got %+v", l.Diags)
	}
}

func TestLoader_CyclicImportReportsDiagnosticAndDoesNotHang(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "a", "use b::thing;\nfn thing() { }\n")
	writeModule(t, root, "b", "use a::thing;\nfn thing() { }\n")

	l := NewLoader(root)
	_ = l.LoadEntry("a")

	found := false
	for _, d := range l.Diags {
		if d.Code == "MODULE_CYCLIC_IMPORT" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a MODULE_CYCLIC_IMPORT diagnostic, got %+v", l.Diags)
	}
}
