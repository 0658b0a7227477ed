package repo

import (
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

type mockGit struct {
	calls   []gitCall
	results []mockResult
	idx     int
}

type gitCall struct {
	Dir  string
	Args []string
}

type mockResult struct {
	Output string
	Err    error
}

func (m *mockGit) Run(dir string, args ...string) (string, error) {
	m.calls = append(m.calls, gitCall{Dir: dir, Args: args})
	if m.idx >= len(m.results) {
		return "", nil
	}
	r := m.results[m.idx]
	m.idx++
	return r.Output, r.Err
}

func TestDescribe(t *testing.T) {
	git := &mockGit{
		results: []mockResult{
			{Output: "/repo"},                    // rev-parse --show-toplevel
			{Output: "abc123def"},                // rev-parse HEAD
			{Output: "main"},                     // rev-parse --abbrev-ref HEAD
			{Output: " M internal/diff/diff.go"}, // status --porcelain
		},
	}

	meta, err := Describe(git, "/repo/sub")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if meta.Path != "/repo" {
		t.Errorf("expected path /repo, got %q", meta.Path)
	}
	if meta.Commit != "abc123def" {
		t.Errorf("expected commit abc123def, got %q", meta.Commit)
	}
	if meta.Branch != "main" {
		t.Errorf("expected branch main, got %q", meta.Branch)
	}
	if !meta.Dirty {
		t.Error("expected dirty worktree")
	}
}

func TestDescribe_NotARepo(t *testing.T) {
	git := &mockGit{
		results: []mockResult{
			{Err: fmt.Errorf("fatal: not a git repository")},
		},
	}

	if _, err := Describe(git, "/tmp"); err == nil {
		t.Fatal("expected error outside a repository")
	}
}

func TestIndexer_List(t *testing.T) {
	fsys := afero.NewMemMapFs()
	files := map[string]string{
		"/repo/main.go":                  "package main",
		"/repo/internal/app/app.go":      "package app",
		"/repo/node_modules/x/index.js":  "module.exports = {}",
		"/repo/.git/HEAD":                "ref: refs/heads/main",
		"/repo/dist/bundle.min.js":       "!function(){}",
		"/repo/vendor/lib/lib.go":        "package lib",
		"/repo/docs/notes.md":            "# notes",
	}
	for p, content := range files {
		if err := afero.WriteFile(fsys, p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	ix := NewIndexerFs(fsys, []string{".git/", "node_modules/", "vendor/", "dist/", "*.min.js"})
	got, err := ix.List("/repo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]bool{
		"main.go":             true,
		"internal/app/app.go": true,
		"docs/notes.md":       true,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d files, got %d: %v", len(want), len(got), got)
	}
	for _, f := range got {
		if !want[f] {
			t.Errorf("unexpected file indexed: %s", f)
		}
	}
}

func TestIndexer_SkipsLargeFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	big := strings.Repeat("x", maxIndexedFileSize+1)
	if err := afero.WriteFile(fsys, "/repo/big.go", []byte(big), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fsys, "/repo/small.go", []byte("package main"), 0o644); err != nil {
		t.Fatal(err)
	}

	ix := NewIndexerFs(fsys, nil)
	got, err := ix.List("/repo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != "small.go" {
		t.Errorf("expected only small.go, got %v", got)
	}
}

func TestWorktreeCreate(t *testing.T) {
	git := &mockGit{}

	mgr := NewWorktreeManager(git, "/repo")
	wt, err := mgr.Create("01J5ABCDEF")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if wt.Path != "/repo/.changegate-worktrees/01j5abcdef" {
		t.Errorf("unexpected worktree path %q", wt.Path)
	}
	if wt.Branch != "changegate/run-01j5abcdef" {
		t.Errorf("unexpected branch %q", wt.Branch)
	}

	if len(git.calls) != 1 {
		t.Fatalf("expected 1 git call, got %d", len(git.calls))
	}
	assertArgs(t, git.calls[0].Args, "worktree", "add", wt.Path, "-b", wt.Branch, "HEAD")
}

func TestWorktreeCreate_BranchExists(t *testing.T) {
	git := &mockGit{
		results: []mockResult{
			{Err: fmt.Errorf("branch already exists")},
			{Output: ""},
		},
	}

	mgr := NewWorktreeManager(git, "/repo")
	if _, err := mgr.Create("01J5ABCDEF"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(git.calls) != 2 {
		t.Fatalf("expected retry without -b, got %d calls", len(git.calls))
	}
}

func TestWorktreeRemove(t *testing.T) {
	git := &mockGit{
		results: []mockResult{
			{Output: "changegate/run-01j5abcdef"}, // rev-parse --abbrev-ref HEAD
			{Output: ""},                          // worktree remove
			{Output: ""},                          // branch -D
		},
	}

	mgr := NewWorktreeManager(git, "/repo")
	if err := mgr.Remove("01J5ABCDEF"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(git.calls) != 3 {
		t.Fatalf("expected 3 git calls, got %d", len(git.calls))
	}
	assertArgs(t, git.calls[1].Args, "worktree", "remove", "--force", mgr.Path("01J5ABCDEF"))
	assertArgs(t, git.calls[2].Args, "branch", "-D", "changegate/run-01j5abcdef")
}

func TestWorktreeRemove_ProtectsMain(t *testing.T) {
	git := &mockGit{
		results: []mockResult{
			{Output: "main"},
			{Output: ""},
		},
	}

	mgr := NewWorktreeManager(git, "/repo")
	if err := mgr.Remove("01J5ABCDEF"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(git.calls) != 2 {
		t.Fatalf("expected no branch deletion for main, got %d calls", len(git.calls))
	}
}

func assertArgs(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected args %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
