package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHasSourceExt(t *testing.T) {
	cases := map[string]bool{
		"foo.semant": true,
		"foo.sm":     true,
		"foo.txt":    false,
		"foo":        false,
	}
	for path, want := range cases {
		if got := HasSourceExt(path); got != want {
			t.Errorf("HasSourceExt(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.Queries) != 0 {
		t.Fatalf("expected no queries, got %v", s.Queries)
	}
}

func TestLoadPresets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".semant.yaml")
	src := "queries:\n  errors:\n    facts: [unresolvedTrait, unresolvedName]\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	preset, ok := s.Preset("errors")
	if !ok {
		t.Fatalf("expected preset %q", "errors")
	}
	if len(preset.FactNames) != 2 || preset.FactNames[0] != "unresolvedTrait" {
		t.Errorf("unexpected facts: %v", preset.FactNames)
	}
	if _, ok := s.Preset("missing"); ok {
		t.Errorf("expected no preset for %q", "missing")
	}
}
