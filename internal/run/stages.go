package run

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/lucasnoah/changegate/internal/audit"
	"github.com/lucasnoah/changegate/internal/checks"
	"github.com/lucasnoah/changegate/internal/diff"
	"github.com/lucasnoah/changegate/internal/llm"
	"github.com/lucasnoah/changegate/internal/prompt"
	"github.com/lucasnoah/changegate/internal/repo"
	"github.com/lucasnoah/changegate/internal/retrieval"
	"github.com/lucasnoah/changegate/internal/runstore"
	"github.com/lucasnoah/changegate/internal/scoring"
)

const stageTemperature = 0.1

// next routes to the following stage unless the run has accumulated errors,
// which short-circuits to FINALIZING.
func next(rec *runstore.Record, s State) State {
	if len(rec.Errors) > 0 {
		return StateFinalizing
	}
	return s
}

// ingest verifies the repository, captures git metadata, and feeds the file
// index into the retrieval collaborator.
func (o *Orchestrator) ingest(ctx context.Context, rec *runstore.Record) State {
	if _, err := os.Stat(rec.RepoPath); err != nil {
		rec.Errors = append(rec.Errors, fmt.Sprintf("repository path does not exist: %s", rec.RepoPath))
		return StateFinalizing
	}

	// Git metadata is best-effort; plain directories are reviewable too.
	commit := ""
	if meta, err := repo.Describe(o.git, rec.RepoPath); err == nil {
		commit = meta.Commit
	}

	files, err := o.indexer.List(rec.RepoPath)
	if err != nil {
		rec.Errors = append(rec.Errors, fmt.Sprintf("index repository: %v", err))
		return StateFinalizing
	}

	if o.index != nil {
		chunker := retrieval.NewChunker()
		var chunks []retrieval.CodeChunk
		for _, f := range files {
			content, err := o.indexer.ReadFile(rec.RepoPath, f)
			if err != nil {
				continue
			}
			chunks = append(chunks, chunker.Chunk(f, content)...)
		}
		if err := o.index.Add(ctx, chunks); err != nil {
			rec.Errors = append(rec.Errors, fmt.Sprintf("build retrieval index: %v", err))
			return StateFinalizing
		}
	}

	o.logEvent(rec.ID, audit.EventRepoIngested, map[string]any{
		"file_count": len(files),
		"commit_sha": commit,
	})
	return StateRetrieving
}

// retrieve ranks code context for the task. The affected-file set starts as
// the retrieved files; planning replaces it with the plan's own list.
func (o *Orchestrator) retrieve(ctx context.Context, rec *runstore.Record, rc *runContext) State {
	if o.index == nil {
		o.logger.Info("retrieval disabled", zap.String("run_id", rec.ID))
		return StatePlanning
	}

	results, err := o.index.Query(ctx, rec.Task)
	if err != nil {
		rec.Errors = append(rec.Errors, fmt.Sprintf("failed to retrieve context: %v", err))
		return StateFinalizing
	}
	rc.retrieved = results

	seen := make(map[string]bool)
	var affected []string
	for _, r := range results {
		if seen[r.Chunk.File] {
			continue
		}
		seen[r.Chunk.File] = true
		affected = append(affected, r.Chunk.File)
		if len(affected) >= o.cfg.Review.MaxFilesPerRun {
			break
		}
	}
	rec.AffectedFiles = affected

	var simSum float64
	for _, r := range results {
		simSum += float64(r.Similarity)
	}
	avgSim := 0.0
	if len(results) > 0 {
		avgSim = simSum / float64(len(results))
	}
	o.logEvent(rec.ID, audit.EventContextRetrieved, map[string]any{
		"chunk_count":    len(results),
		"avg_similarity": avgSim,
	})
	return next(rec, StatePlanning)
}

// plan asks the generator for a structured change plan and parses it.
func (o *Orchestrator) plan(ctx context.Context, rec *runstore.Record, rc *runContext) State {
	rendered, err := o.renderPrompt("plan.md", rec.RepoPath, prompt.Vars{
		"task":           rec.Task,
		"task_type":      rec.TaskType,
		"context":        formatContext(rc.retrieved),
		"affected_files": formatFileList(rec.AffectedFiles),
	})
	if err != nil {
		rec.Errors = append(rec.Errors, fmt.Sprintf("render plan prompt: %v", err))
		return StateFinalizing
	}

	resp, err := o.gen.Generate(ctx, llm.Request{
		System:      prompt.PlanSystem,
		User:        rendered,
		Temperature: stageTemperature,
	})
	if err != nil {
		rec.Errors = append(rec.Errors, fmt.Sprintf("failed to generate plan: %v", err))
		return StateFinalizing
	}
	if strings.TrimSpace(resp.Content) == "" {
		rec.Errors = append(rec.Errors, "llm returned empty plan response")
		return StateFinalizing
	}

	var plan runstore.Plan
	if err := json.Unmarshal([]byte(stripFences(resp.Content)), &plan); err != nil {
		rec.Errors = append(rec.Errors, fmt.Sprintf("failed to parse plan: %v", err))
		return StateFinalizing
	}

	if n := len(plan.FilesToModify); n > o.cfg.Review.MaxFilesPerRun {
		rec.Errors = append(rec.Errors, fmt.Sprintf("plan affects too many files: %d > %d", n, o.cfg.Review.MaxFilesPerRun))
		return StateFinalizing
	}

	rec.Plan = &plan
	rec.AffectedFiles = plan.FilesToModify

	o.logEvent(rec.ID, audit.EventPlanGenerated, map[string]any{
		"plan_summary": truncate(plan.Description, 500),
		"confidence":   plan.Confidence,
	})
	return next(rec, StateGeneratingPatch)
}

// generatePatch produces one unified diff per planned change and
// concatenates them.
func (o *Orchestrator) generatePatch(ctx context.Context, rec *runstore.Record, rc *runContext) State {
	if rec.Plan == nil || len(rec.Plan.Changes) == 0 {
		rec.Errors = append(rec.Errors, "plan has no changes to generate")
		return StateFinalizing
	}

	var diffs []string
	for _, change := range rec.Plan.Changes {
		content, err := o.indexer.ReadFile(rec.RepoPath, change.FilePath)
		if err != nil {
			rec.Errors = append(rec.Errors, fmt.Sprintf("read %s: %v", change.FilePath, err))
			continue
		}

		rendered, err := o.renderPrompt("diff.md", rec.RepoPath, prompt.Vars{
			"file_path":       change.FilePath,
			"current_content": content,
			"description":     change.Description,
			"context":         formatFileContext(rc.retrieved, change.FilePath),
		})
		if err != nil {
			rec.Errors = append(rec.Errors, fmt.Sprintf("render diff prompt: %v", err))
			continue
		}

		resp, err := o.gen.Generate(ctx, llm.Request{
			System:      prompt.DiffSystem,
			User:        rendered,
			Temperature: stageTemperature,
		})
		if err != nil {
			rec.Errors = append(rec.Errors, fmt.Sprintf("failed to generate diff for %s: %v", change.FilePath, err))
			continue
		}

		if d := diff.Extract(resp.Content); strings.TrimSpace(d) != "" {
			diffs = append(diffs, d)
		}
	}

	if len(diffs) == 0 {
		rec.Errors = append(rec.Errors, "no diffs generated")
		return StateFinalizing
	}

	combined := strings.Join(diffs, "\n\n")
	added, removed := countChanged(combined)
	if total := added + removed; total > o.cfg.Review.MaxDiffLines {
		rec.Errors = append(rec.Errors, fmt.Sprintf("generated diff too large: %d lines > %d", total, o.cfg.Review.MaxDiffLines))
		return StateFinalizing
	}
	rec.Diff = combined

	o.logEvent(rec.ID, audit.EventPatchGenerated, map[string]any{
		"files_affected": rec.AffectedFiles,
		"lines_added":    added,
		"lines_removed":  removed,
	})
	return next(rec, StateApplyingPatch)
}

// applyPatch validates and applies the generated diff. A failed apply closes
// the single backward edge of the pipeline: regenerate the diff, bounded by
// the retry budget.
func (o *Orchestrator) applyPatch(ctx context.Context, rec *runstore.Record) State {
	outcome, err := o.applier.Apply(ctx, rec.Diff)
	if err != nil {
		rec.Errors = append(rec.Errors, fmt.Sprintf("apply patch: %v", err))
		return StateFinalizing
	}
	rec.PatchOutcome = outcome

	if !outcome.Success {
		if rec.RetryCount < o.cfg.Review.MaxRetries {
			rec.RetryCount++
			o.logger.Info("patch apply failed, regenerating",
				zap.String("run_id", rec.ID),
				zap.Int("retry", rec.RetryCount),
				zap.String("reason", outcome.Error),
			)
			rec.Diff = ""
			return StateGeneratingPatch
		}
		rec.Errors = append(rec.Errors, fmt.Sprintf("failed to apply patch: %s", outcome.Error))
		return StateFinalizing
	}

	o.logEvent(rec.ID, audit.EventPatchApplied, map[string]any{
		"files_modified": outcome.FilesModified,
		"sandbox_id":     outcome.SandboxID,
	})
	return next(rec, StateRunningChecks)
}

// runChecks executes the configured checks against the working copy.
func (o *Orchestrator) runChecks(ctx context.Context, rec *runstore.Record) State {
	var results map[string]checks.CheckResult
	if o.cfg.Review.ParallelChecks {
		results = o.executor.RunParallel(ctx, o.workdir)
	} else {
		results = o.executor.RunSequential(ctx, o.workdir)
	}
	rec.CheckResults = results

	for _, name := range checks.RunOrder {
		r, ok := results[name]
		if !ok {
			continue
		}
		_ = o.audit.LogCheck(rec.ID, name, r.Passed, r.ErrorCount, r.WarningCount, r.DurationMs)
		o.logEvent(rec.ID, audit.EventCheckExecuted, map[string]any{
			"check_name":  name,
			"passed":      r.Passed,
			"error_count": r.ErrorCount,
		})
	}
	return next(rec, StateScoring)
}

// score computes quality, risk, and the decision. Gate failures are
// appended to the run's errors after the decision is recorded, so a gated
// run terminates FAILED with decision REJECT.
func (o *Orchestrator) score(rec *runstore.Record) State {
	engine := scoring.NewEngine(o.cfg.Scoring.Weights)
	analyzer := scoring.NewAnalyzer(o.cfg.Policy.SensitivePaths)

	quality := engine.Compute(rec.CheckResults)
	risk := analyzer.Compute(rec.Diff, rec.AffectedFiles)
	gates := scoring.GateFailures(rec.CheckResults, rec.AffectedFiles, o.cfg.Review.MaxFilesPerRun)
	verdict := scoring.Decide(quality.Quality, risk.Score, gates, o.cfg.Scoring)

	rec.QualityScores = &quality
	rec.Risk = &risk
	rec.Decision = verdict.Decision.String()
	rec.Reasons = verdict.Reasons
	rec.Errors = append(rec.Errors, gates...)

	o.logEvent(rec.ID, audit.EventDecisionMade, map[string]any{
		"decision":      rec.Decision,
		"quality_score": quality.Quality,
		"risk_score":    risk.Score,
	})
	return next(rec, StateExplaining)
}

// explain generates the human-readable summary. This boundary degrades
// instead of failing: a generation error becomes the explanation text.
func (o *Orchestrator) explain(ctx context.Context, rec *runstore.Record) State {
	if rec.Diff == "" {
		rec.Explanation = "No changes were made."
		return StateFinalizing
	}

	quality, risk := 0.0, 0.0
	if rec.QualityScores != nil {
		quality = rec.QualityScores.Quality
	}
	if rec.Risk != nil {
		risk = rec.Risk.Score
	}

	checkSummary := checks.Format(rec.CheckResults, checks.RunOrder)
	if checkSummary == "" {
		checkSummary = "No validation results available."
	}

	rendered, err := o.renderPrompt("explain.md", rec.RepoPath, prompt.Vars{
		"task":          rec.Task,
		"decision":      rec.Decision,
		"quality_score": fmt.Sprintf("%.2f", quality),
		"risk_score":    fmt.Sprintf("%.3f", risk),
		"diff":          rec.Diff,
		"check_summary": checkSummary,
	})
	if err != nil {
		rec.Explanation = fmt.Sprintf("Failed to generate explanation: %v", err)
		return StateFinalizing
	}

	resp, err := o.gen.Generate(ctx, llm.Request{
		System:      prompt.ExplainSystem,
		User:        rendered,
		Temperature: stageTemperature,
	})
	if err != nil {
		rec.Explanation = fmt.Sprintf("Failed to generate explanation: %v", err)
		return StateFinalizing
	}
	rec.Explanation = resp.Content
	return StateFinalizing
}

func (o *Orchestrator) renderPrompt(name, repoPath string, vars prompt.Vars) (string, error) {
	tmpl, err := prompt.LoadTemplate(path.Join(".changegate", "templates", name), repoPath)
	if err != nil {
		return "", err
	}
	return prompt.Render(tmpl, vars)
}

// formatContext renders retrieved chunks for the planning prompt.
func formatContext(results []retrieval.Result) string {
	if len(results) == 0 {
		return "No relevant code context found. Analyze the repository structure."
	}
	limit := len(results)
	if limit > 10 {
		limit = 10
	}
	var parts []string
	for _, r := range results[:limit] {
		symbol := r.Chunk.Symbol
		if symbol == "" {
			symbol = "module"
		}
		parts = append(parts, fmt.Sprintf("File: %s\nSymbol: %s\nLines: %d-%d\n```\n%s\n```",
			r.Chunk.File, symbol, r.Chunk.StartLine, r.Chunk.EndLine, r.Chunk.Content))
	}
	return strings.Join(parts, "\n---\n")
}

// formatFileContext summarizes the retrieved symbols of one file for the
// diff prompt.
func formatFileContext(results []retrieval.Result, file string) string {
	var parts []string
	for _, r := range results {
		if r.Chunk.File != file || r.Chunk.Symbol == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("Symbol %s (lines %d-%d)", r.Chunk.Symbol, r.Chunk.StartLine, r.Chunk.EndLine))
		if len(parts) == 5 {
			break
		}
	}
	if len(parts) == 0 {
		return "No additional context available."
	}
	return strings.Join(parts, "\n")
}

func formatFileList(files []string) string {
	if len(files) == 0 {
		return "All relevant files"
	}
	return strings.Join(files, ", ")
}

// stripFences removes a surrounding ```json / ``` fence from a generated
// response.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[3:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// countChanged counts added and removed body lines, excluding file headers.
func countChanged(diffText string) (added, removed int) {
	for _, line := range strings.Split(diffText, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return added, removed
}
