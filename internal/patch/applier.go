package patch

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/lucasnoah/changegate/internal/diff"
	"github.com/lucasnoah/changegate/internal/repo"
)

// Outcome reports one patch application attempt. A clean git-apply failure
// is a domain result, not an infrastructure error: it comes back with
// Success=false and the git diagnostic in Error.
type Outcome struct {
	Success       bool     `json:"success"`
	SandboxID     string   `json:"sandbox_id,omitempty"`
	Error         string   `json:"error,omitempty"`
	FilesModified []string `json:"files_modified,omitempty"`
}

// Applier applies a unified diff to a working copy and can revert it.
type Applier interface {
	Apply(ctx context.Context, diffText string) (*Outcome, error)
	Revert(ctx context.Context) error
}

// LocalApplier applies patches to a local checkout with git apply.
type LocalApplier struct {
	git       repo.GitRunner
	validator *diff.Validator
	workdir   string
}

// NewLocalApplier creates an applier for the given working directory. The
// validator re-checks the diff before anything touches the tree.
func NewLocalApplier(git repo.GitRunner, validator *diff.Validator, workdir string) *LocalApplier {
	return &LocalApplier{git: git, validator: validator, workdir: workdir}
}

// Apply validates the diff, dry-runs it with git apply --check, then applies
// it for real.
func (a *LocalApplier) Apply(ctx context.Context, diffText string) (*Outcome, error) {
	report := a.validator.Validate(diffText)
	if !report.Valid {
		return &Outcome{
			Success: false,
			Error:   fmt.Sprintf("validation failed: %s", strings.Join(report.Errors, "; ")),
		}, nil
	}

	tmp, err := writePatchFile(diffText)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp)

	if out, err := a.git.Run(a.workdir, "apply", "--check", tmp); err != nil {
		return &Outcome{Success: false, Error: gitDiagnostic("patch does not apply", out, err)}, nil
	}
	if out, err := a.git.Run(a.workdir, "apply", tmp); err != nil {
		return &Outcome{Success: false, Error: gitDiagnostic("apply failed", out, err)}, nil
	}

	return &Outcome{Success: true, FilesModified: report.FilesAffected}, nil
}

// Revert discards all uncommitted changes in the working copy.
func (a *LocalApplier) Revert(ctx context.Context) error {
	if _, err := a.git.Run(a.workdir, "checkout", "."); err != nil {
		return fmt.Errorf("revert: %w", err)
	}
	return nil
}

// ContainerExec is the slice of sandbox behavior the applier needs.
type ContainerExec interface {
	CopyTo(ctx context.Context, id, localPath, containerPath string) error
	Exec(ctx context.Context, id string, cmd ...string) (string, error)
}

// SandboxApplier applies patches inside an isolated container so a bad
// patch can never touch the host checkout.
type SandboxApplier struct {
	exec      ContainerExec
	validator *diff.Validator
	sandboxID string
	workdir   string
}

// NewSandboxApplier creates an applier targeting an already-running sandbox.
func NewSandboxApplier(exec ContainerExec, validator *diff.Validator, sandboxID, workdir string) *SandboxApplier {
	return &SandboxApplier{exec: exec, validator: validator, sandboxID: sandboxID, workdir: workdir}
}

func (a *SandboxApplier) Apply(ctx context.Context, diffText string) (*Outcome, error) {
	report := a.validator.Validate(diffText)
	if !report.Valid {
		return &Outcome{
			Success:   false,
			SandboxID: a.sandboxID,
			Error:     fmt.Sprintf("validation failed: %s", strings.Join(report.Errors, "; ")),
		}, nil
	}

	tmp, err := writePatchFile(diffText)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp)

	const containerPatch = "/tmp/changegate.patch"
	if err := a.exec.CopyTo(ctx, a.sandboxID, tmp, containerPatch); err != nil {
		return nil, fmt.Errorf("copy patch into sandbox: %w", err)
	}

	if out, err := a.exec.Exec(ctx, a.sandboxID, "git", "-C", a.workdir, "apply", "--check", containerPatch); err != nil {
		return &Outcome{Success: false, SandboxID: a.sandboxID, Error: gitDiagnostic("patch does not apply", out, err)}, nil
	}
	if out, err := a.exec.Exec(ctx, a.sandboxID, "git", "-C", a.workdir, "apply", containerPatch); err != nil {
		return &Outcome{Success: false, SandboxID: a.sandboxID, Error: gitDiagnostic("apply failed", out, err)}, nil
	}

	return &Outcome{Success: true, SandboxID: a.sandboxID, FilesModified: report.FilesAffected}, nil
}

func (a *SandboxApplier) Revert(ctx context.Context) error {
	if _, err := a.exec.Exec(ctx, a.sandboxID, "git", "-C", a.workdir, "checkout", "."); err != nil {
		return fmt.Errorf("revert in sandbox %s: %w", a.sandboxID, err)
	}
	return nil
}

func writePatchFile(diffText string) (string, error) {
	f, err := os.CreateTemp("", "changegate-*.patch")
	if err != nil {
		return "", fmt.Errorf("create patch file: %w", err)
	}
	if !strings.HasSuffix(diffText, "\n") {
		diffText += "\n"
	}
	if _, err := f.WriteString(diffText); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write patch file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close patch file: %w", err)
	}
	return f.Name(), nil
}

func gitDiagnostic(prefix, out string, err error) string {
	out = strings.TrimSpace(out)
	if out != "" {
		return fmt.Sprintf("%s: %s", prefix, out)
	}
	return fmt.Sprintf("%s: %v", prefix, err)
}
