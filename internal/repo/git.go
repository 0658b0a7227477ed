package repo

import (
	"fmt"
	"os/exec"
	"strings"
)

// GitRunner provides git commands. Interface for testing.
type GitRunner interface {
	Run(dir string, args ...string) (string, error)
}

// ExecGit implements GitRunner using exec.Command.
type ExecGit struct{}

func (g *ExecGit) Run(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Metadata describes the repository a run operates on.
type Metadata struct {
	Path   string `json:"path"`
	Commit string `json:"commit"`
	Branch string `json:"branch"`
	Dirty  bool   `json:"dirty"`
}

// Describe collects the repository metadata recorded at ingestion.
func Describe(git GitRunner, dir string) (*Metadata, error) {
	root, err := git.Run(dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}

	commit, err := git.Run(dir, "rev-parse", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	// Detached HEAD reports "HEAD"; keep it as-is.
	branch, err := git.Run(dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("resolve branch: %w", err)
	}

	status, err := git.Run(dir, "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}

	return &Metadata{
		Path:   root,
		Commit: commit,
		Branch: branch,
		Dirty:  status != "",
	}, nil
}
