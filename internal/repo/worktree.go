package repo

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// WorktreeManager creates disposable git worktrees so a run can apply and
// revert patches without touching the primary checkout.
type WorktreeManager struct {
	git     GitRunner
	repoDir string
	baseDir string // where worktrees are created (<repo>/.changegate-worktrees)
}

// NewWorktreeManager creates a worktree manager for a repo root.
func NewWorktreeManager(git GitRunner, repoDir string) *WorktreeManager {
	return &WorktreeManager{
		git:     git,
		repoDir: repoDir,
		baseDir: filepath.Join(repoDir, ".changegate-worktrees"),
	}
}

// Worktree holds the result of creating a worktree.
type Worktree struct {
	Path   string
	Branch string
}

// Create adds a worktree for a run, branching from the current HEAD.
func (m *WorktreeManager) Create(runID string) (*Worktree, error) {
	if runID == "" {
		return nil, fmt.Errorf("empty run id")
	}

	branch := sanitizeBranch("changegate/run-" + strings.ToLower(runID))
	path := m.Path(runID)

	_, err := m.git.Run(m.repoDir, "worktree", "add", path, "-b", branch, "HEAD")
	if err != nil {
		// If branch already exists, try without -b
		if strings.Contains(err.Error(), "already exists") {
			if _, err = m.git.Run(m.repoDir, "worktree", "add", path, branch); err != nil {
				return nil, fmt.Errorf("create worktree: %w", err)
			}
		} else {
			return nil, fmt.Errorf("create worktree: %w", err)
		}
	}

	return &Worktree{Path: path, Branch: branch}, nil
}

// Remove removes a run's worktree and deletes its branch. Force is needed
// because a reviewed patch leaves uncommitted changes behind.
func (m *WorktreeManager) Remove(runID string) error {
	if runID == "" {
		return fmt.Errorf("empty run id")
	}

	path := m.Path(runID)

	branch, _ := m.git.Run(path, "rev-parse", "--abbrev-ref", "HEAD")

	if _, err := m.git.Run(m.repoDir, "worktree", "remove", "--force", path); err != nil {
		return fmt.Errorf("remove worktree: %w", err)
	}

	if branch != "" && branch != "main" && branch != "master" && branch != "HEAD" {
		if _, err := m.git.Run(m.repoDir, "branch", "-D", branch); err != nil {
			return fmt.Errorf("delete branch %q: %w", branch, err)
		}
	}

	return nil
}

// Path returns the worktree path for a run.
func (m *WorktreeManager) Path(runID string) string {
	return filepath.Join(m.baseDir, strings.ToLower(runID))
}

var nonAlphaNum = regexp.MustCompile(`[^a-zA-Z0-9/_-]+`)

// sanitizeBranch cleans up a branch name.
func sanitizeBranch(name string) string {
	s := nonAlphaNum.ReplaceAllString(name, "-")
	s = strings.Trim(s, "-")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
