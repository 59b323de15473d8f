package ignorespec

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAlwaysExcludesRalphAndGitDirs(t *testing.T) {
	root := t.TempDir()
	m, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if !m.Match(".ralph/state.json") {
		t.Fatalf("expected .ralph/ to be excluded by default")
	}
	if !m.Match(".git/HEAD") {
		t.Fatalf("expected .git/ to be excluded by default")
	}
}

func TestLoadReadsCustomPatterns(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, IgnoreFileName), []byte("# comment\nnode_modules/**\n\n*.log\n"), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if !m.Match("node_modules/pkg/index.js") {
		t.Fatalf("expected node_modules pattern to match")
	}
	if !m.Match("build.log") {
		t.Fatalf("expected *.log pattern to match")
	}
	if m.Match("src/main.go") {
		t.Fatalf("expected unrelated path to not match")
	}
}

func TestLoadMissingIgnoreFileIsNotAnError(t *testing.T) {
	root := t.TempDir()
	m, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if m.Match("src/main.go") {
		t.Fatalf("expected ordinary path to not match")
	}
}
