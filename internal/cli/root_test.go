package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	SetVersion("test-version")
	out, err := executeCommand("version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "test-version") {
		t.Errorf("expected version output to contain 'test-version', got: %s", out)
	}
}

func TestRootHelp(t *testing.T) {
	out, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedSubcommands := []string{
		"run", "runs", "validate", "check", "sandbox",
		"audit", "config", "db", "version",
	}
	for _, sub := range expectedSubcommands {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing subcommand %q", sub)
		}
	}
}

func TestSubcommandHelp(t *testing.T) {
	groups := map[string][]string{
		"runs":    {"list", "show"},
		"sandbox": {"create", "list", "cleanup"},
		"audit":   {"trace", "stats"},
		"config":  {"show", "validate"},
		"db":      {"migrate", "reset"},
	}
	for group, subs := range groups {
		for _, sub := range subs {
			out, err := executeCommand(group, sub, "--help")
			if err != nil {
				t.Errorf("%s %s --help failed: %v", group, sub, err)
			}
			if out == "" {
				t.Errorf("%s %s --help produced no output", group, sub)
			}
		}
	}
}

func TestRunCommand_RequiresFlags(t *testing.T) {
	_, err := executeCommand("run")
	if err == nil || !strings.Contains(err.Error(), "--repo and --task are required") {
		t.Errorf("expected missing-flag error, got %v", err)
	}
}

func TestRunCommand_RejectsBadType(t *testing.T) {
	_, err := executeCommand("run", "--repo", ".", "--task", "x", "--type", "deploy")
	if err == nil || !strings.Contains(err.Error(), "invalid --type") {
		t.Errorf("expected type error, got %v", err)
	}
	runType = "refactor"
}

func TestValidateCommand_ValidDiff(t *testing.T) {
	diffText := "--- a/main.go\n+++ b/main.go\n@@ -1,2 +1,3 @@\n package main\n+// note\n func main() {}\n"
	path := filepath.Join(t.TempDir(), "change.diff")
	if err := os.WriteFile(path, []byte(diffText), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := executeCommand("validate", path)
	if err != nil {
		t.Fatalf("unexpected error: %v (output: %s)", err, out)
	}
	if !strings.Contains(out, "Diff is valid.") {
		t.Errorf("expected valid verdict, got: %s", out)
	}
}

func TestValidateCommand_SecretRejected(t *testing.T) {
	diffText := "--- a/cfg.go\n+++ b/cfg.go\n@@ -1,1 +1,2 @@\n package cfg\n+var password = \"hunter2\"\n"
	path := filepath.Join(t.TempDir(), "secret.diff")
	if err := os.WriteFile(path, []byte(diffText), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := executeCommand("validate", path)
	if err == nil {
		t.Fatalf("expected validation failure, got output: %s", out)
	}
	if !strings.Contains(out, "potential secret") {
		t.Errorf("expected secret error in output, got: %s", out)
	}
}

func TestRenderDiff(t *testing.T) {
	out := renderDiff("--- a/x\n+++ b/x\n@@ -1 +1 @@\n-old\n+new")
	for _, want := range []string{"old", "new", "@@"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered diff missing %q", want)
		}
	}
}
