package runstore

import (
	"github.com/lucasnoah/changegate/internal/checks"
	"github.com/lucasnoah/changegate/internal/patch"
	"github.com/lucasnoah/changegate/internal/scoring"
)

// Status is the lifecycle status of a run record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Plan is the structured change plan produced before patch generation.
type Plan struct {
	Description     string          `json:"description"`
	FilesToModify   []string        `json:"files_to_modify"`
	Changes         []PlannedChange `json:"changes"`
	Rationale       string          `json:"rationale"`
	Confidence      float64         `json:"confidence"`
	EstimatedImpact string          `json:"estimated_impact"`
}

// PlannedChange is one file-level entry in a Plan.
type PlannedChange struct {
	FilePath        string   `json:"file_path"`
	ChangeType      string   `json:"change_type"`
	Description     string   `json:"description"`
	AffectedSymbols []string `json:"affected_symbols,omitempty"`
}

// Record is the persisted state of one review run. The orchestrator is its
// only writer; everything else reads.
type Record struct {
	ID       string `json:"id"`
	Task     string `json:"task"`
	TaskType string `json:"task_type"`
	RepoPath string `json:"repo_path"`

	Status Status `json:"status"`
	Stage  string `json:"stage"`

	RetryCount    int      `json:"retry_count"`
	AffectedFiles []string `json:"affected_files,omitempty"`

	Plan         *Plan                         `json:"plan,omitempty"`
	Diff         string                        `json:"diff,omitempty"`
	PatchOutcome *patch.Outcome                `json:"patch_outcome,omitempty"`
	CheckResults map[string]checks.CheckResult `json:"check_results,omitempty"`

	QualityScores *scoring.ScoreBreakdown `json:"quality_scores,omitempty"`
	Risk          *scoring.RiskBreakdown  `json:"risk,omitempty"`
	Decision      string                  `json:"decision,omitempty"`
	Reasons       []string                `json:"reasons,omitempty"`
	Explanation   string                  `json:"explanation,omitempty"`

	// Errors is append-only; once a run has accumulated errors it can
	// only terminate FAILED.
	Errors []string `json:"errors,omitempty"`

	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}
