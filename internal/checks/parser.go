package checks

// ParseResult holds the normalized output from a parser.
type ParseResult struct {
	Passed   bool
	Errors   int
	Warnings int
	Findings []Finding
	Output   string
	Critical bool
}

// Parser converts raw command output into a structured ParseResult.
type Parser interface {
	Parse(stdout string, stderr string, exitCode int) ParseResult
}
