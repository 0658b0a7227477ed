package checks

import "fmt"

// Finding is a single located issue reported by a check.
type Finding struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column,omitempty"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	RuleID   string `json:"rule_id,omitempty"`
}

// CheckResult holds the structured outcome of one named check. It is created
// once per execution and never mutated afterwards; re-running a check
// produces a fresh value.
type CheckResult struct {
	CheckName       string    `json:"check_name"`
	Passed          bool      `json:"passed"`
	Output          string    `json:"output,omitempty"`
	ErrorCount      int       `json:"error_count"`
	WarningCount    int       `json:"warning_count"`
	Findings        []Finding `json:"findings,omitempty"`
	DurationMs      int       `json:"duration_ms"`
	CriticalFailure bool      `json:"critical_failure,omitempty"`
}

// Summary aggregates a name-keyed result map for display and audit payloads.
type Summary struct {
	TotalChecks     int  `json:"total_checks"`
	Passed          int  `json:"passed"`
	Failed          int  `json:"failed"`
	TotalErrors     int  `json:"total_errors"`
	TotalWarnings   int  `json:"total_warnings"`
	TotalDurationMs int  `json:"total_duration_ms"`
	HasCritical     bool `json:"has_critical_failure"`
	AllPassed       bool `json:"all_passed"`
}

// Summarize computes aggregate totals over a result map.
func Summarize(results map[string]CheckResult) Summary {
	s := Summary{TotalChecks: len(results)}
	for _, r := range results {
		if r.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
		s.TotalErrors += r.ErrorCount
		s.TotalWarnings += r.WarningCount
		s.TotalDurationMs += r.DurationMs
		if r.CriticalFailure {
			s.HasCritical = true
		}
	}
	s.AllPassed = s.Failed == 0 && !s.HasCritical
	return s
}

// Format renders a one-line-per-check human summary.
func Format(results map[string]CheckResult, order []string) string {
	out := ""
	for _, name := range order {
		r, ok := results[name]
		if !ok {
			continue
		}
		status := "PASSED"
		if !r.Passed {
			status = fmt.Sprintf("FAILED (%d errors, %d warnings)", r.ErrorCount, r.WarningCount)
		}
		out += fmt.Sprintf("- %s: %s\n", name, status)
	}
	return out
}
