package checks

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GosecParser parses `gosec -fmt=json` output. HIGH-severity issues count as
// errors and mark the result critical; MEDIUM and LOW count as warnings.
type GosecParser struct{}

type gosecReport struct {
	Issues []gosecIssue `json:"Issues"`
	Stats  struct {
		Found int `json:"found"`
	} `json:"Stats"`
}

type gosecIssue struct {
	Severity   string `json:"severity"`
	Confidence string `json:"confidence"`
	RuleID     string `json:"rule_id"`
	Details    string `json:"details"`
	File       string `json:"file"`
	Line       string `json:"line"`
	Column     string `json:"column"`
}

func (p *GosecParser) Parse(stdout string, stderr string, exitCode int) ParseResult {
	var report gosecReport
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		// gosec exits non-zero both for findings and for hard failures; with
		// unparseable output we only know which from the exit code.
		if exitCode == 0 {
			return ParseResult{Passed: true, Output: stdout}
		}
		return ParseResult{
			Passed: false,
			Errors: 1,
			Output: fmt.Sprintf("unparseable gosec output (exit %d)\n%s", exitCode, tail(stderr)),
		}
	}

	res := ParseResult{Passed: true, Output: tail(stdout)}
	for _, issue := range report.Issues {
		severity := "warning"
		if strings.EqualFold(issue.Severity, "HIGH") {
			severity = "error"
			res.Errors++
			res.Critical = true
		} else {
			res.Warnings++
		}
		res.Findings = append(res.Findings, Finding{
			File:     issue.File,
			Line:     atoiDefault(firstField(issue.Line)),
			Column:   atoiDefault(firstField(issue.Column)),
			Severity: severity,
			Message:  issue.Details,
			RuleID:   issue.RuleID,
		})
	}
	if len(report.Issues) > 0 {
		res.Passed = false
	}
	return res
}

// firstField handles gosec's "12-14" line-range form.
func firstField(s string) string {
	if idx := strings.IndexByte(s, '-'); idx >= 0 {
		return s[:idx]
	}
	return s
}
