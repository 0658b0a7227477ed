package checks

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandRunner abstracts command execution so checks can run against a local
// working copy, inside a sandbox, or against a fake in tests.
type CommandRunner interface {
	Run(ctx context.Context, dir string, command string) (stdout string, stderr string, exitCode int, err error)
}

// ExecRunner implements CommandRunner by shelling out locally.
type ExecRunner struct{}

func (e *ExecRunner) Run(ctx context.Context, dir string, command string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return stdoutBuf.String(), stderrBuf.String(), -1, fmt.Errorf("exec: %w", err)
		}
	}
	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}

// CheckConfig holds what the runner needs to execute one named check.
type CheckConfig struct {
	Name    string
	Command string
	Parser  string
	Timeout time.Duration
}

// Runner executes checks and parses their output into CheckResults.
type Runner struct {
	cmd     CommandRunner
	parsers map[string]Parser
}

// NewRunner creates a Runner with the given command runner.
func NewRunner(cmd CommandRunner) *Runner {
	r := &Runner{
		cmd:     cmd,
		parsers: make(map[string]Parser),
	}
	r.parsers["gotest"] = &GoTestParser{}
	r.parsers["gofmt"] = &GofmtParser{}
	r.parsers["govet"] = &GoVetParser{}
	r.parsers["staticcheck"] = &StaticcheckParser{}
	r.parsers["gosec"] = &GosecParser{}
	r.parsers["generic"] = &GenericParser{}
	return r
}

// Run executes a single check in the given directory. A timeout yields a
// failed, critical result carrying a timeout diagnostic rather than an error;
// errors are reserved for execution machinery failures.
func (r *Runner) Run(ctx context.Context, dir string, cfg CheckConfig) (*CheckResult, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, exitCode, err := r.cmd.Run(runCtx, dir, cfg.Command)
	durationMs := int(time.Since(start).Milliseconds())

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return &CheckResult{
				CheckName:       cfg.Name,
				Passed:          false,
				Output:          fmt.Sprintf("timeout after %s", timeout),
				ErrorCount:      1,
				DurationMs:      durationMs,
				CriticalFailure: true,
			}, nil
		}
		return nil, fmt.Errorf("run check %q: %w", cfg.Name, err)
	}

	parser, ok := r.parsers[cfg.Parser]
	if !ok {
		parser = r.parsers["generic"]
	}
	parsed := parser.Parse(stdout, stderr, exitCode)

	return &CheckResult{
		CheckName:       cfg.Name,
		Passed:          exitCode == 0 && parsed.Passed,
		Output:          parsed.Output,
		ErrorCount:      parsed.Errors,
		WarningCount:    parsed.Warnings,
		Findings:        parsed.Findings,
		DurationMs:      durationMs,
		CriticalFailure: parsed.Critical,
	}, nil
}
