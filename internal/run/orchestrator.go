package run

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lucasnoah/changegate/internal/audit"
	"github.com/lucasnoah/changegate/internal/checks"
	"github.com/lucasnoah/changegate/internal/config"
	"github.com/lucasnoah/changegate/internal/llm"
	"github.com/lucasnoah/changegate/internal/patch"
	"github.com/lucasnoah/changegate/internal/repo"
	"github.com/lucasnoah/changegate/internal/retrieval"
	"github.com/lucasnoah/changegate/internal/runstore"
	"github.com/lucasnoah/changegate/internal/scoring"
)

// ContextIndex is the code-retrieval collaborator. A nil index disables
// retrieval; planning then proceeds without code context.
type ContextIndex interface {
	Add(ctx context.Context, chunks []retrieval.CodeChunk) error
	Query(ctx context.Context, task string) ([]retrieval.Result, error)
}

// CheckExecutor runs the configured checks against a working copy.
type CheckExecutor interface {
	RunSequential(ctx context.Context, dir string) map[string]checks.CheckResult
	RunParallel(ctx context.Context, dir string) map[string]checks.CheckResult
}

// AuditLog records run milestones. All audit writes are best-effort; an
// audit failure never alters the pipeline's course.
type AuditLog interface {
	StartRun(runID, task, taskType, repoPath string) error
	FinishRun(runID, status, decision string, quality, risk float64) error
	LogEvent(runID, eventType string, data map[string]any) error
	LogCheck(runID, checkName string, passed bool, errorCount, warningCount, durationMs int) error
}

// Options wires the orchestrator's collaborators.
type Options struct {
	Config   *config.Config
	Store    *runstore.Store
	Audit    AuditLog
	Gen      llm.Generator
	Index    ContextIndex
	Applier  patch.Applier
	Executor CheckExecutor
	Git      repo.GitRunner
	Indexer  *repo.Indexer
	// Workdir is the working copy checks and patches run against. It may be
	// the repo itself, a worktree, or a directory mirrored into a sandbox.
	Workdir string
	Logger  *zap.Logger
}

// Orchestrator sequences one review run through the pipeline stages. It
// never returns an error to its caller: every run reaches a terminal record
// with a decision, and anything that blocks progress lands in the record's
// error list.
type Orchestrator struct {
	cfg      *config.Config
	store    *runstore.Store
	audit    AuditLog
	gen      llm.Generator
	index    ContextIndex
	applier  patch.Applier
	executor CheckExecutor
	git      repo.GitRunner
	indexer  *repo.Indexer
	workdir  string
	logger   *zap.Logger
}

// NewOrchestrator creates an Orchestrator from wired collaborators.
func NewOrchestrator(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:      opts.Config,
		store:    opts.Store,
		audit:    opts.Audit,
		gen:      opts.Gen,
		index:    opts.Index,
		applier:  opts.Applier,
		executor: opts.Executor,
		git:      opts.Git,
		indexer:  opts.Indexer,
		workdir:  opts.Workdir,
		logger:   logger,
	}
}

// runContext carries in-memory stage products that do not belong in the
// persisted record.
type runContext struct {
	retrieved []retrieval.Result
}

// Execute drives the run with the given id to a terminal record. The record
// must already exist in the store.
func (o *Orchestrator) Execute(ctx context.Context, id string) *runstore.Record {
	rec, err := o.store.Get(id)
	if err != nil {
		o.logger.Error("load run", zap.String("run_id", id), zap.Error(err))
		return &runstore.Record{
			ID:       id,
			Status:   runstore.StatusFailed,
			Decision: scoring.Reject.String(),
			Errors:   []string{fmt.Sprintf("load run: %v", err)},
		}
	}

	rec.Status = runstore.StatusRunning
	_ = o.audit.StartRun(rec.ID, rec.Task, rec.TaskType, rec.RepoPath)
	o.logEvent(rec.ID, audit.EventRunStarted, map[string]any{
		"task_type":        rec.TaskType,
		"task_description": truncate(rec.Task, 500),
	})

	rc := &runContext{}
	state := StateIngesting
	for state != stateDone {
		rec.Stage = string(state)
		o.save(rec)
		o.logger.Info("stage", zap.String("run_id", rec.ID), zap.String("stage", rec.Stage))

		switch state {
		case StateIngesting:
			state = o.ingest(ctx, rec)
		case StateRetrieving:
			state = o.retrieve(ctx, rec, rc)
		case StatePlanning:
			state = o.plan(ctx, rec, rc)
		case StateGeneratingPatch:
			state = o.generatePatch(ctx, rec, rc)
		case StateApplyingPatch:
			state = o.applyPatch(ctx, rec)
		case StateRunningChecks:
			state = o.runChecks(ctx, rec)
		case StateScoring:
			state = o.score(rec)
		case StateExplaining:
			state = o.explain(ctx, rec)
		case StateFinalizing:
			o.finalize(rec)
			state = stateDone
		default:
			rec.Errors = append(rec.Errors, fmt.Sprintf("unknown stage %q", state))
			o.finalize(rec)
			state = stateDone
		}
	}
	return rec
}

// save persists the in-memory record. Persistence failures are logged, not
// fatal; the in-memory record stays authoritative for the rest of the run.
func (o *Orchestrator) save(rec *runstore.Record) {
	err := o.store.Update(rec.ID, func(r *runstore.Record) {
		updated := r.UpdatedAt
		*r = *rec
		r.UpdatedAt = updated
	})
	if err != nil {
		o.logger.Warn("persist run", zap.String("run_id", rec.ID), zap.Error(err))
	}
}

func (o *Orchestrator) logEvent(runID, event string, data map[string]any) {
	if err := o.audit.LogEvent(runID, event, data); err != nil {
		o.logger.Warn("audit event", zap.String("run_id", runID), zap.String("event", event), zap.Error(err))
	}
}

// finalize is the terminal stage: a run with accumulated errors fails with a
// forced REJECT, anything else completes with the computed decision.
func (o *Orchestrator) finalize(rec *runstore.Record) {
	rec.Stage = string(StateFinalizing)
	rec.CompletedAt = time.Now().UTC().Format(time.RFC3339)

	if len(rec.Errors) > 0 {
		rec.Status = runstore.StatusFailed
		rec.Decision = scoring.Reject.String()
	} else {
		rec.Status = runstore.StatusCompleted
	}
	o.save(rec)

	quality, risk := 0.0, 0.0
	if rec.QualityScores != nil {
		quality = rec.QualityScores.Quality
	}
	if rec.Risk != nil {
		risk = rec.Risk.Score
	}
	_ = o.audit.FinishRun(rec.ID, string(rec.Status), rec.Decision, quality, risk)
	o.logEvent(rec.ID, audit.EventRunCompleted, map[string]any{
		"status":         string(rec.Status),
		"decision":       rec.Decision,
		"quality_score":  quality,
		"risk_score":     risk,
		"errors":         rec.Errors,
		"files_affected": rec.AffectedFiles,
	})
	o.logger.Info("run finished",
		zap.String("run_id", rec.ID),
		zap.String("status", string(rec.Status)),
		zap.String("decision", rec.Decision),
		zap.Float64("quality", quality),
		zap.Float64("risk", risk),
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
