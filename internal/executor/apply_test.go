package executor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/forgelight/foreman/internal/extract"
	"github.com/forgelight/foreman/internal/prompt"
	"github.com/forgelight/foreman/internal/result"
)

func newApplyExecutor(t *testing.T) (*Executor, string) {
	t.Helper()
	dir := t.TempDir()
	builder := prompt.NewBuilder(prompt.NewCache(""), dir)
	return New(&scriptedCompleter{responses: []string{""}}, builder, dir), dir
}

func TestApplyCreatesNestedFile(t *testing.T) {
	e, dir := newApplyExecutor(t)

	applied := e.applyChanges([]extract.FileChange{
		{Path: "internal/api/handler.go", Action: result.ChangeCreate, Content: "package api\n"},
	})

	data, err := os.ReadFile(filepath.Join(dir, "internal", "api", "handler.go"))
	if err != nil {
		t.Fatalf("file not written: %v", err)
	}
	if string(data) != "package api\n" {
		t.Errorf("content = %q", data)
	}
	if len(applied) != 1 || applied[0].LinesAdded != 1 {
		t.Errorf("applied = %+v", applied)
	}
}

func TestApplyModifyCountsRemovedLines(t *testing.T) {
	e, dir := newApplyExecutor(t)
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	applied := e.applyChanges([]extract.FileChange{
		{Path: "main.go", Action: result.ChangeModify, Content: "a\n"},
	})

	if len(applied) != 1 {
		t.Fatalf("applied = %d changes", len(applied))
	}
	if applied[0].LinesRemoved != 2 {
		t.Errorf("LinesRemoved = %d, want 2", applied[0].LinesRemoved)
	}
}

func TestApplyDeleteIsLoggedSkip(t *testing.T) {
	e, dir := newApplyExecutor(t)
	path := filepath.Join(dir, "old.go")
	if err := os.WriteFile(path, []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	applied := e.applyChanges([]extract.FileChange{
		{Path: "old.go", Action: result.ChangeDelete},
	})

	// The file survives; the change is still recorded.
	if _, err := os.Stat(path); err != nil {
		t.Errorf("delete must not remove the file: %v", err)
	}
	if len(applied) != 1 || applied[0].Action != result.ChangeDelete {
		t.Errorf("applied = %+v", applied)
	}
}

func TestApplyRejectsEscapingPaths(t *testing.T) {
	e, dir := newApplyExecutor(t)

	applied := e.applyChanges([]extract.FileChange{
		{Path: "../outside.go", Action: result.ChangeCreate, Content: "x"},
		{Path: "/etc/passwd", Action: result.ChangeCreate, Content: "x"},
	})

	if len(applied) != 0 {
		t.Errorf("escaping paths should be skipped, got %+v", applied)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "outside.go")); err == nil {
		t.Error("file escaped the work directory")
	}
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"a\n", 1},
		{"a\nb", 2},
		{"a\nb\n", 2},
	}
	for _, tt := range tests {
		if got := countLines(tt.in); got != tt.want {
			t.Errorf("countLines(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
