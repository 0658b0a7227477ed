package checks

import (
	"regexp"
	"strconv"
	"strings"
)

// positionRe matches the file:line:col: message form shared by go vet,
// staticcheck, and most Go analyzers.
var positionRe = regexp.MustCompile(`^(.+\.go):(\d+):(?:(\d+):)?\s*(.+)$`)

// GoVetParser parses `go vet ./...` output (one finding per positioned line
// on stderr).
type GoVetParser struct{}

func (p *GoVetParser) Parse(stdout string, stderr string, exitCode int) ParseResult {
	res := ParseResult{Passed: exitCode == 0, Output: tail(stderr)}
	for _, line := range strings.Split(stderr, "\n") {
		if m := positionRe.FindStringSubmatch(line); m != nil {
			res.Errors++
			res.Findings = append(res.Findings, Finding{
				File:     m[1],
				Line:     atoiDefault(m[2]),
				Column:   atoiDefault(m[3]),
				Severity: "error",
				Message:  m[4],
				RuleID:   "go-vet",
			})
		}
	}
	if exitCode != 0 && res.Errors == 0 {
		res.Errors = 1
	}
	return res
}

// StaticcheckParser parses staticcheck's default text output. Findings whose
// code is purely stylistic (ST* and S1* simplifications) count as warnings;
// everything else counts as an error.
type StaticcheckParser struct{}

var staticcheckCodeRe = regexp.MustCompile(`\((S[AT]?\d+|U\d+)\)\s*$`)

func (p *StaticcheckParser) Parse(stdout string, stderr string, exitCode int) ParseResult {
	res := ParseResult{Passed: exitCode == 0, Output: tail(stdout)}
	for _, line := range strings.Split(stdout, "\n") {
		m := positionRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		code := ""
		if cm := staticcheckCodeRe.FindStringSubmatch(line); cm != nil {
			code = cm[1]
		}
		severity := "error"
		if strings.HasPrefix(code, "ST") || strings.HasPrefix(code, "S1") {
			severity = "warning"
		}
		if severity == "error" {
			res.Errors++
		} else {
			res.Warnings++
		}
		res.Findings = append(res.Findings, Finding{
			File:     m[1],
			Line:     atoiDefault(m[2]),
			Column:   atoiDefault(m[3]),
			Severity: severity,
			Message:  m[4],
			RuleID:   code,
		})
	}
	if exitCode != 0 && res.Errors == 0 && res.Warnings == 0 {
		res.Errors = 1
	}
	return res
}

// GofmtParser parses `gofmt -l` output: each listed file needs reformatting.
type GofmtParser struct{}

func (p *GofmtParser) Parse(stdout string, stderr string, exitCode int) ParseResult {
	res := ParseResult{Passed: exitCode == 0, Output: stdout}
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		if line == "" {
			continue
		}
		res.Warnings++
		res.Findings = append(res.Findings, Finding{
			File:     line,
			Severity: "warning",
			Message:  "file is not gofmt-formatted",
			RuleID:   "gofmt",
		})
	}
	if res.Warnings > 0 {
		res.Passed = false
	}
	return res
}

func atoiDefault(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
