package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveBuildsConventionalPaths(t *testing.T) {
	root := t.TempDir()
	ws, err := Resolve(root)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got, want := ws.TemplatesPath, filepath.Join(root, "data", "email-templates.json"); got != want {
		t.Fatalf("templates path = %q, want %q", got, want)
	}
	if got, want := ws.LedgerDBPath, filepath.Join(root, "state", "ledger.sqlite"); got != want {
		t.Fatalf("ledger path = %q, want %q", got, want)
	}
	if err := ws.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	for _, dir := range []string{ws.DataDir, ws.SignalsDir, ws.StateDir, filepath.Join(ws.KnowledgeDir, "pricing")} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}

func TestResolveRejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Resolve(file); err == nil {
		t.Fatal("expected error for non-directory root")
	}
	if _, err := Resolve("  "); err == nil {
		t.Fatal("expected error for empty root")
	}
}

func TestResolvePath(t *testing.T) {
	root := t.TempDir()
	ws, err := Resolve(root)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ws.ResolvePath("data/custom.json")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(root, "data", "custom.json"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	abs := filepath.Join(root, "elsewhere.json")
	if got, _ := ws.ResolvePath(abs); got != abs {
		t.Fatalf("absolute path changed: %q", got)
	}
	if got, _ := ws.ResolveOr("", "fallback"); got != "fallback" {
		t.Fatalf("ResolveOr fallback = %q", got)
	}
}
