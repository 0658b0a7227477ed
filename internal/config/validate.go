package config

import (
	"fmt"
	"math"
	"regexp"
	"time"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// recognizedParsers is the set of valid parser names for checks.
var recognizedParsers = map[string]bool{
	"gotest":      true,
	"gofmt":       true,
	"govet":       true,
	"staticcheck": true,
	"gosec":       true,
	"generic":     true,
}

// scoredChecks are the check names the scoring engine understands.
var scoredChecks = map[string]bool{
	"tests":     true,
	"lint":      true,
	"format":    true,
	"typecheck": true,
	"security":  true,
}

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.Review.MaxDiffLines <= 0 {
		errs = append(errs, ValidationError{Field: "review.max_diff_lines", Message: "must be positive"})
	}
	if cfg.Review.MaxFilesPerRun <= 0 {
		errs = append(errs, ValidationError{Field: "review.max_files_per_run", Message: "must be positive"})
	}
	if cfg.Review.MaxRetries < 0 {
		errs = append(errs, ValidationError{Field: "review.max_retries", Message: "must not be negative"})
	}

	s := cfg.Scoring
	if s.QualityReview > s.QualityApprove {
		errs = append(errs, ValidationError{
			Field:   "scoring.quality_review",
			Message: fmt.Sprintf("review threshold %.1f exceeds approve threshold %.1f", s.QualityReview, s.QualityApprove),
		})
	}
	if s.RiskReview > s.RiskReject {
		errs = append(errs, ValidationError{
			Field:   "scoring.risk_review",
			Message: fmt.Sprintf("review threshold %.2f exceeds reject threshold %.2f", s.RiskReview, s.RiskReject),
		})
	}
	if s.RiskReject > 1.0 || s.RiskReview < 0 {
		errs = append(errs, ValidationError{Field: "scoring.risk_reject", Message: "risk thresholds must be within [0,1]"})
	}

	weightSum := s.Weights.Tests + s.Weights.Lint + s.Weights.Typecheck + s.Weights.Security
	if math.Abs(weightSum-1.0) > 0.001 {
		errs = append(errs, ValidationError{
			Field:   "scoring.weights",
			Message: fmt.Sprintf("weights sum to %.3f, want 1.0", weightSum),
		})
	}

	for name, chk := range cfg.Checks {
		field := fmt.Sprintf("checks.%s", name)
		if !scoredChecks[name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("unknown check name %q (want one of tests, lint, format, typecheck, security)", name),
			})
		}
		if chk.Command == "" {
			errs = append(errs, ValidationError{Field: field + ".command", Message: "is required"})
		}
		if chk.Parser != "" && !recognizedParsers[chk.Parser] {
			errs = append(errs, ValidationError{
				Field:   field + ".parser",
				Message: fmt.Sprintf("unknown parser %q", chk.Parser),
			})
		}
		if chk.Timeout != "" {
			if _, err := time.ParseDuration(chk.Timeout); err != nil {
				errs = append(errs, ValidationError{
					Field:   field + ".timeout",
					Message: fmt.Sprintf("invalid duration %q", chk.Timeout),
				})
			}
		}
	}

	for i, pat := range cfg.Policy.SecretLiterals {
		if _, err := regexp.Compile(pat); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("policy.secret_literals[%d]", i),
				Message: fmt.Sprintf("invalid regexp: %v", err),
			})
		}
	}

	return errs
}
