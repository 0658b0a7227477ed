package diff

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lucasnoah/changegate/internal/config"
)

// ValidationReport is the immutable outcome of validating a diff.
type ValidationReport struct {
	Valid         bool     `json:"valid"`
	Errors        []string `json:"errors,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	Hunks         int      `json:"hunks"`
	FilesAffected []string `json:"files_affected,omitempty"`
	LinesAdded    int      `json:"lines_added"`
	LinesRemoved  int      `json:"lines_removed"`
}

// Validator enforces content, size, and path policy on unified diffs. Policy
// lists come from configuration so behavior can be pinned independent of
// tuning.
type Validator struct {
	forbidden      []string
	secretKeywords []string
	secretLiterals []*regexp.Regexp
	maxDiffLines   int
	maxFiles       int
}

// NewValidator builds a Validator from policy configuration. It returns an
// error if any secret literal pattern fails to compile.
func NewValidator(pol config.Policy, maxDiffLines, maxFiles int) (*Validator, error) {
	v := &Validator{
		forbidden:      pol.ForbiddenPatterns,
		secretKeywords: pol.SecretKeywords,
		maxDiffLines:   maxDiffLines,
		maxFiles:       maxFiles,
	}
	for _, pat := range pol.SecretLiterals {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("compile secret pattern %q: %w", pat, err)
		}
		v.secretLiterals = append(v.secretLiterals, re)
	}
	return v, nil
}

// Validate parses and polices diffText, returning a report. The input is
// cleaned (hunk normalization) before anything is counted, so reported line
// totals always match what Normalize would emit.
func (v *Validator) Validate(diffText string) *ValidationReport {
	ps, err := Parse(diffText)
	if err != nil {
		return &ValidationReport{
			Valid:  false,
			Errors: []string{fmt.Sprintf("invalid diff format: %v", err)},
		}
	}
	ps.Clean()

	rep := &ValidationReport{}

	for fi := range ps.Files {
		f := &ps.Files[fi]
		path := f.Path()
		rep.FilesAffected = append(rep.FilesAffected, path)

		for _, pattern := range v.forbidden {
			if strings.Contains(path, pattern) {
				rep.Errors = append(rep.Errors, fmt.Sprintf("forbidden path pattern %q in %s", pattern, path))
			}
		}

		if f.IsDeletion() {
			rep.Errors = append(rep.Errors, fmt.Sprintf("file deletion not allowed: %s", f.SourcePath()))
		}

		for hi := range f.Hunks {
			h := &f.Hunks[hi]
			rep.Hunks++
			for _, l := range h.Lines {
				switch l.Kind {
				case Added:
					rep.LinesAdded++
					if v.containsSecret(l.Content()) {
						rep.Errors = append(rep.Errors, fmt.Sprintf("potential secret in added line: %s:%d", path, h.NewStart))
					}
				case Removed:
					rep.LinesRemoved++
				}
			}
		}
	}

	total := rep.LinesAdded + rep.LinesRemoved
	if total > v.maxDiffLines {
		rep.Errors = append(rep.Errors, fmt.Sprintf("diff too large: %d lines (max %d)", total, v.maxDiffLines))
	}
	if len(rep.FilesAffected) > v.maxFiles {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("many files affected: %d", len(rep.FilesAffected)))
	}

	rep.Valid = len(rep.Errors) == 0
	return rep
}

// containsSecret applies the secret-detection heuristic to a single added
// line: a policy keyword combined with an assignment, or any high-confidence
// literal pattern.
func (v *Validator) containsSecret(line string) bool {
	lower := strings.ToLower(line)
	if strings.Contains(line, "=") {
		for _, kw := range v.secretKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	for _, re := range v.secretLiterals {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
