package checks

import (
	"fmt"
	"regexp"
	"strings"
)

// GoTestParser parses plain `go test ./...` output.
type GoTestParser struct{}

var (
	testFailRe  = regexp.MustCompile(`^\s*--- FAIL: (\S+)`)
	testFileRe  = regexp.MustCompile(`^\s+(\S+\.go):(\d+): (.*)$`)
	pkgFailRe   = regexp.MustCompile(`^FAIL\s+(\S+)`)
	buildFailRe = regexp.MustCompile(`^(\S+\.go):(\d+):(\d+): (.*)$`)
)

func (p *GoTestParser) Parse(stdout string, stderr string, exitCode int) ParseResult {
	res := ParseResult{Passed: exitCode == 0, Output: tail(stdout + stderr)}

	var current string
	for _, line := range strings.Split(stdout, "\n") {
		if m := testFailRe.FindStringSubmatch(line); m != nil {
			current = m[1]
			res.Errors++
			res.Findings = append(res.Findings, Finding{
				Severity: "error",
				Message:  fmt.Sprintf("test failed: %s", m[1]),
				RuleID:   "go-test",
			})
			continue
		}
		if current != "" {
			if m := testFileRe.FindStringSubmatch(line); m != nil {
				last := &res.Findings[len(res.Findings)-1]
				last.File = m[1]
				last.Line = atoiDefault(m[2])
				last.Message = fmt.Sprintf("test failed: %s: %s", current, m[3])
				current = ""
			}
		}
	}

	// Build failures land on stderr with file:line:col positions.
	for _, line := range strings.Split(stderr, "\n") {
		if m := buildFailRe.FindStringSubmatch(line); m != nil {
			res.Errors++
			res.Findings = append(res.Findings, Finding{
				File:     m[1],
				Line:     atoiDefault(m[2]),
				Column:   atoiDefault(m[3]),
				Severity: "error",
				Message:  m[4],
				RuleID:   "go-build",
			})
		}
	}

	if exitCode != 0 && res.Errors == 0 {
		// Failure with no parseable findings (e.g. panicked package).
		res.Errors = 1
		for _, line := range strings.Split(stdout, "\n") {
			if pkgFailRe.MatchString(line) {
				res.Findings = append(res.Findings, Finding{
					Severity: "error",
					Message:  strings.TrimSpace(line),
					RuleID:   "go-test",
				})
			}
		}
	}

	return res
}

func tail(s string) string {
	if len(s) > maxOutputLen {
		return "…(truncated)\n" + s[len(s)-maxOutputLen:]
	}
	return s
}
