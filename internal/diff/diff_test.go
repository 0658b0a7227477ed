package diff

import (
	"strings"
	"testing"
)

const simpleDiff = `--- a/main.go
+++ b/main.go
@@ -1,3 +1,4 @@
 package main
+
+// entry point
 func main() {
`

func TestParse_Structure(t *testing.T) {
	ps, err := Parse(simpleDiff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ps.Files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(ps.Files))
	}
	f := ps.Files[0]
	if f.SourcePath() != "main.go" || f.TargetPath() != "main.go" {
		t.Errorf("wrong paths: %q, %q", f.SourcePath(), f.TargetPath())
	}
	if len(f.Hunks) != 1 {
		t.Fatalf("expected 1 hunk, got %d", len(f.Hunks))
	}
	h := f.Hunks[0]
	if h.OldStart != 1 || h.OldCount != 3 || h.NewStart != 1 || h.NewCount != 4 {
		t.Errorf("wrong header: %+v", h)
	}
	if len(h.Lines) != 4 {
		t.Errorf("expected 4 body lines, got %d", len(h.Lines))
	}
}

func TestParse_MultiFileWithPreamble(t *testing.T) {
	text := `diff --git a/foo.go b/foo.go
index 123..456 100644
--- a/foo.go
+++ b/foo.go
@@ -1,1 +1,1 @@
-old
+new
diff --git a/bar.go b/bar.go
--- a/bar.go
+++ b/bar.go
@@ -2,1 +2,2 @@
 keep
+added
`
	ps, err := Parse(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ps.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(ps.Files))
	}
	if len(ps.Files[0].Preamble) != 2 {
		t.Errorf("expected 2 preamble lines, got %v", ps.Files[0].Preamble)
	}
	if ps.Files[1].Path() != "bar.go" {
		t.Errorf("wrong second path %q", ps.Files[1].Path())
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "   \n", "empty diff"},
		{"no headers", "just some text\n", "no file headers"},
		{"missing target", "--- a/x.go\n@@ -1 +1 @@\n", "not followed by +++"},
		{"no hunks", "--- a/x.go\n+++ b/x.go\n", "has no hunks"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.in)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestParse_RemovedLineResemblingFileHeader(t *testing.T) {
	text := `--- a/notes.md
+++ b/notes.md
@@ -1,2 +1,1 @@
--- note
 kept
`
	ps, err := Parse(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := ps.Files[0]
	if len(f.Hunks) != 1 || len(f.Hunks[0].Lines) != 2 {
		t.Fatalf("unexpected structure: %+v", f.Hunks)
	}
	l := f.Hunks[0].Lines[0]
	if l.Kind != Removed || l.Content() != "-- note" {
		t.Errorf("expected removed line %q, got kind %d content %q", "-- note", l.Kind, l.Content())
	}
}

func TestRender_RoundTrip(t *testing.T) {
	ps, err := Parse(simpleDiff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ps.Render(); got != simpleDiff {
		t.Errorf("round trip mismatch:\n%q\nwant\n%q", got, simpleDiff)
	}
}

func TestFilePatch_Deletion(t *testing.T) {
	text := `--- a/old.go
+++ /dev/null
@@ -1,2 +0,0 @@
-package old
-var x = 1
`
	ps, err := Parse(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := ps.Files[0]
	if !f.IsDeletion() {
		t.Error("expected deletion")
	}
	if f.Path() != "old.go" {
		t.Errorf("deletion path must be the source side, got %q", f.Path())
	}
}

func TestHeaderPathOnly_DropsTabSuffix(t *testing.T) {
	ps, err := Parse("--- a/main.go\t2024-01-01 00:00:00\n+++ b/main.go\t2024-01-02 00:00:00\n@@ -1,1 +1,1 @@\n-a\n+b\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ps.Files[0].Path(); got != "main.go" {
		t.Errorf("expected main.go, got %q", got)
	}
}

func TestLine_Content(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"+added line", "added line"},
		{"-removed", "removed"},
		{" context", "context"},
		{"", ""},
		{`\ No newline at end of file`, `\ No newline at end of file`},
	}
	for _, tc := range cases {
		if got := classify(tc.raw).Content(); got != tc.want {
			t.Errorf("Content(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestExtract(t *testing.T) {
	fenced := "Here is the patch:\n```diff\n--- a/x.go\n+++ b/x.go\n@@ -1,1 +1,1 @@\n-a\n+b\n```\nDone."
	got := Extract(fenced)
	if !strings.HasPrefix(got, "--- a/x.go") || strings.Contains(got, "```") {
		t.Errorf("fenced extraction failed: %q", got)
	}

	bare := "--- a/x.go\n+++ b/x.go\n@@ -1,1 +1,1 @@\n-a\n+b"
	if got := Extract(bare); got != bare {
		t.Errorf("bare diff must pass through, got %q", got)
	}

	chatty := "Sure, here you go.\n--- a/x.go\n+++ b/x.go\n@@ -1,1 +1,1 @@\n-a\n+b"
	got = Extract(chatty)
	if !strings.HasPrefix(got, "--- a/x.go") {
		t.Errorf("expected leading prose stripped, got %q", got)
	}

	if got := Extract("no diff here at all"); got != "no diff here at all" {
		t.Errorf("non-diff input must return trimmed text, got %q", got)
	}
}
