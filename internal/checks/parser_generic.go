package checks

import "fmt"

// GenericParser is the fallback parser that captures exit code and raw output.
type GenericParser struct{}

// maxOutputLen caps how much stdout/stderr the generic parser retains.
const maxOutputLen = 8000

func (p *GenericParser) Parse(stdout string, stderr string, exitCode int) ParseResult {
	passed := exitCode == 0

	combined := stdout
	if stderr != "" {
		if combined != "" {
			combined += "\n"
		}
		combined += stderr
	}
	// Keep the tail of oversized output.
	if len(combined) > maxOutputLen {
		combined = "…(truncated)\n" + combined[len(combined)-maxOutputLen:]
	}

	res := ParseResult{Passed: passed, Output: combined}
	if !passed {
		res.Errors = 1
		res.Output = fmt.Sprintf("exit code %d\n%s", exitCode, combined)
	}
	return res
}
