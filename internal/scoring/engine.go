package scoring

import (
	"math"

	"github.com/lucasnoah/changegate/internal/checks"
	"github.com/lucasnoah/changegate/internal/config"
)

// ScoreBreakdown holds the per-category sub-scores and the combined quality
// score, all in [0,100].
type ScoreBreakdown struct {
	Test      float64 `json:"test_score"`
	Lint      float64 `json:"lint_score"`
	Typecheck float64 `json:"typecheck_score"`
	Security  float64 `json:"security_score"`
	Quality   float64 `json:"quality_score"`
}

// Engine converts check results into a quality score. It is a pure function
// of its inputs: absent checks score as fully passing, so missing data never
// penalizes.
type Engine struct {
	weights config.Weights
}

// NewEngine creates an Engine with the given category weights.
func NewEngine(weights config.Weights) *Engine {
	return &Engine{weights: weights}
}

// Compute scores a name-keyed check-result map. The format check carries no
// weight of its own; a failing format check instead deducts from the lint
// sub-score.
func (e *Engine) Compute(results map[string]checks.CheckResult) ScoreBreakdown {
	b := ScoreBreakdown{Test: 100, Lint: 100, Typecheck: 100, Security: 100}

	if r, ok := results["tests"]; ok && !r.Passed {
		b.Test = 0
	}

	if r, ok := results["lint"]; ok {
		errPenalty := math.Min(float64(r.ErrorCount)*5, 50)
		warnPenalty := math.Min(float64(r.WarningCount)*2, 20)
		b.Lint = math.Max(100-errPenalty-warnPenalty, 0)
	}
	if r, ok := results["format"]; ok && !r.Passed {
		b.Lint = math.Max(b.Lint-10, 0)
	}

	if r, ok := results["typecheck"]; ok {
		errPenalty := math.Min(float64(r.ErrorCount)*10, 60)
		warnPenalty := math.Min(float64(r.WarningCount)*2, 20)
		b.Typecheck = math.Max(100-errPenalty-warnPenalty, 0)
	}

	if r, ok := results["security"]; ok {
		penalty := float64(r.ErrorCount) * 40
		for _, f := range r.Findings {
			if f.Severity == "error" {
				penalty += 20
			}
		}
		penalty += float64(r.WarningCount) * 5
		b.Security = math.Max(100-penalty, 0)
	}

	quality := b.Test*e.weights.Tests +
		b.Lint*e.weights.Lint +
		b.Typecheck*e.weights.Typecheck +
		b.Security*e.weights.Security
	b.Quality = round2(quality)

	return b
}

// GateFailures returns the hard-gate violations that force rejection
// regardless of computed scores.
func GateFailures(results map[string]checks.CheckResult, affectedFiles []string, maxFiles int) []string {
	var failures []string

	if r, ok := results["tests"]; ok && !r.Passed {
		failures = append(failures, "tests failed")
	}
	if r, ok := results["security"]; ok && r.CriticalFailure {
		failures = append(failures, "critical security issue detected")
	}
	if maxFiles > 0 && len(affectedFiles) > maxFiles {
		failures = append(failures, fmtTooManyFiles(len(affectedFiles), maxFiles))
	}

	return failures
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
