package checks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"github.com/lucasnoah/changegate/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testExecutor(outputs map[string]scriptedOutput, cfgs map[string]config.Check) (*Executor, *scriptedRunner) {
	fake := &scriptedRunner{outputs: outputs}
	return NewExecutor(NewRunner(fake), cfgs), fake
}

func TestNewExecutor_FollowsRunOrder(t *testing.T) {
	e, _ := testExecutor(nil, map[string]config.Check{
		"tests": {Command: "go test ./...", Parser: "gotest", Timeout: "5m"},
		"lint":  {Command: "go vet ./...", Parser: "govet", Timeout: "2m"},
	})
	if len(e.configs) != 2 {
		t.Fatalf("expected 2 configs, got %d", len(e.configs))
	}
	if e.configs[0].Name != "lint" || e.configs[1].Name != "tests" {
		t.Errorf("wrong order: %s, %s", e.configs[0].Name, e.configs[1].Name)
	}
}

func TestRunSequential_AllPass(t *testing.T) {
	e, fake := testExecutor(map[string]scriptedOutput{
		"go vet ./...":  {exitCode: 0},
		"go test ./...": {stdout: "ok\n", exitCode: 0},
	}, map[string]config.Check{
		"lint":  {Command: "go vet ./...", Parser: "govet"},
		"tests": {Command: "go test ./...", Parser: "gotest"},
	})

	results := e.RunSequential(context.Background(), ".")
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results["lint"].Passed || !results["tests"].Passed {
		t.Errorf("expected all checks to pass: %+v", results)
	}
	if len(fake.calls) != 2 {
		t.Errorf("expected 2 commands, got %v", fake.calls)
	}
}

func TestRunSequential_StopsAfterCriticalFailure(t *testing.T) {
	e, fake := testExecutor(map[string]scriptedOutput{
		"go vet ./...":  {err: errors.New("exec: sh missing")},
		"go test ./...": {exitCode: 0},
	}, map[string]config.Check{
		"lint":  {Command: "go vet ./...", Parser: "govet"},
		"tests": {Command: "go test ./...", Parser: "gotest"},
	})

	results := e.RunSequential(context.Background(), ".")
	if len(results) != 1 {
		t.Fatalf("expected early stop after 1 result, got %d", len(results))
	}
	lint := results["lint"]
	if lint.Passed || !lint.CriticalFailure {
		t.Errorf("expected synthetic critical failure, got %+v", lint)
	}
	if !strings.Contains(lint.Output, "sh missing") {
		t.Errorf("expected cause in output, got %q", lint.Output)
	}
	if len(fake.calls) != 1 {
		t.Errorf("tests must not run after a critical lint failure, calls: %v", fake.calls)
	}
}

func TestRunParallel_CollectsAllResults(t *testing.T) {
	e, fake := testExecutor(map[string]scriptedOutput{
		"go vet ./...":  {exitCode: 0},
		"gofmt -l .":    {stdout: "main.go\n", exitCode: 0},
		"go test ./...": {stdout: "--- FAIL: TestX (0.0s)\nFAIL\n", exitCode: 1},
	}, map[string]config.Check{
		"lint":   {Command: "go vet ./...", Parser: "govet"},
		"format": {Command: "gofmt -l .", Parser: "gofmt"},
		"tests":  {Command: "go test ./...", Parser: "gotest"},
	})

	results := e.RunParallel(context.Background(), ".")
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results["lint"].Passed {
		t.Error("lint should pass")
	}
	if results["format"].Passed || results["format"].WarningCount != 1 {
		t.Errorf("format should fail with 1 warning: %+v", results["format"])
	}
	if results["tests"].Passed {
		t.Error("tests should fail")
	}
	if len(fake.calls) != 3 {
		t.Errorf("expected 3 commands, got %v", fake.calls)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(map[string]CheckResult{
		"lint":  {Passed: true, DurationMs: 100},
		"tests": {Passed: false, ErrorCount: 2, WarningCount: 1, DurationMs: 900},
	})
	if s.TotalChecks != 2 || s.Passed != 1 || s.Failed != 1 {
		t.Errorf("wrong counts: %+v", s)
	}
	if s.TotalErrors != 2 || s.TotalWarnings != 1 || s.TotalDurationMs != 1000 {
		t.Errorf("wrong totals: %+v", s)
	}
	if s.AllPassed {
		t.Error("AllPassed must be false with a failed check")
	}

	empty := Summarize(nil)
	if !empty.AllPassed {
		t.Error("empty result set counts as all passed")
	}
}

func TestFormat(t *testing.T) {
	out := Format(map[string]CheckResult{
		"tests": {Passed: false, ErrorCount: 2, WarningCount: 1},
		"lint":  {Passed: true},
	}, RunOrder)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", out)
	}
	if lines[0] != "- lint: PASSED" {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if lines[1] != "- tests: FAILED (2 errors, 1 warnings)" {
		t.Errorf("unexpected second line %q", lines[1])
	}
}
