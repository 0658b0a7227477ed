package scoring

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// RiskFactor is one weighted contributor to the combined risk score.
type RiskFactor struct {
	Name         string   `json:"name"`
	Weight       float64  `json:"weight"`
	Value        float64  `json:"value"`
	Contribution float64  `json:"contribution"`
	Flags        []string `json:"flags,omitempty"`
}

// RiskBreakdown is the analyzer's full output: the combined score in [0,1]
// plus each factor and the human-readable flags they emitted. Flags feed
// audit and explanation output, never decision logic.
type RiskBreakdown struct {
	Score   float64      `json:"risk_score"`
	Factors []RiskFactor `json:"factors"`
	Flags   []string     `json:"flags,omitempty"`
}

// Factor weights. They sum to 1.0 so the combined score stays in [0,1].
const (
	weightDiffSize     = 0.15
	weightSensitive    = 0.25
	weightTestCoverage = 0.20
	weightComplexity   = 0.10
	weightDependency   = 0.15
	weightNewCode      = 0.15
)

// sensitiveKeywords flag any path mentioning security-adjacent concerns.
var sensitiveKeywords = []string{
	"auth", "login", "password", "secret", "key", "token",
	"credential", "payment", "billing", "config",
}

// dependencyManifests maps manifest/lockfile basenames to their risk value.
// Lockfiles score higher: they change resolved versions across the whole
// tree.
var dependencyManifests = map[string]float64{
	"go.mod":            0.8,
	"go.sum":            0.9,
	"package.json":      0.8,
	"package-lock.json": 0.9,
	"yarn.lock":         0.9,
	"pnpm-lock.yaml":    0.9,
	"requirements.txt":  0.8,
	"pyproject.toml":    0.8,
	"poetry.lock":       0.9,
	"Pipfile":           0.8,
	"Pipfile.lock":      0.9,
	"Cargo.toml":        0.8,
	"Cargo.lock":        0.9,
	"Gemfile":           0.8,
	"Gemfile.lock":      0.9,
}

// controlKeywordRe approximates control-flow density across common
// languages. Word boundaries keep identifiers like "retry" from counting.
var controlKeywordRe = regexp.MustCompile(`\b(if|else|for|while|switch|case|try|except|catch)\b`)

// sourceExtensions identify code files for the coverage factor.
var sourceExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".tsx": true,
	".jsx": true, ".java": true, ".rb": true, ".rs": true, ".c": true,
	".cc": true, ".cpp": true, ".h": true, ".cs": true, ".kt": true,
}

// Analyzer computes diff- and metadata-derived risk. Pure: identical inputs
// always produce identical output.
type Analyzer struct {
	sensitivePaths []string
}

// NewAnalyzer creates an Analyzer with the configured sensitive-path list.
func NewAnalyzer(sensitivePaths []string) *Analyzer {
	return &Analyzer{sensitivePaths: sensitivePaths}
}

// Compute analyzes the diff text and affected-file list, returning the
// weighted combination of all six risk factors.
func (a *Analyzer) Compute(diffText string, affectedFiles []string) RiskBreakdown {
	factors := []RiskFactor{
		analyzeDiffSize(diffText),
		a.analyzeSensitivePaths(affectedFiles),
		analyzeTestCoverage(affectedFiles),
		analyzeComplexity(diffText),
		analyzeDependencies(affectedFiles),
		analyzeNewCodeRatio(diffText),
	}

	b := RiskBreakdown{Factors: factors}
	combined := 0.0
	for _, f := range factors {
		combined += f.Contribution
		b.Flags = append(b.Flags, f.Flags...)
	}
	b.Score = round3(combined)
	return b
}

func analyzeDiffSize(diffText string) RiskFactor {
	added, removed := countChangedLines(diffText)
	total := added + removed

	f := RiskFactor{Name: "diff_size", Weight: weightDiffSize}
	switch {
	case total > 500:
		f.Value = 1.0
		f.Flags = append(f.Flags, fmt.Sprintf("very large diff (%d lines)", total))
	case total > 200:
		f.Value = 0.7
		f.Flags = append(f.Flags, fmt.Sprintf("large diff (%d lines)", total))
	case total > 100:
		f.Value = 0.3
	case total > 50:
		f.Value = 0.2
	}
	f.Contribution = f.Value * f.Weight
	return f
}

func (a *Analyzer) analyzeSensitivePaths(affectedFiles []string) RiskFactor {
	f := RiskFactor{Name: "sensitive_paths", Weight: weightSensitive}

	for _, file := range affectedFiles {
		lower := strings.ToLower(file)

		for _, sensitive := range a.sensitivePaths {
			if strings.Contains(lower, strings.ToLower(strings.TrimSuffix(sensitive, "/"))) {
				f.Flags = append(f.Flags, fmt.Sprintf("sensitive path: %s", file))
				f.Value = maxf(f.Value, 0.9)
			}
		}
		for _, kw := range sensitiveKeywords {
			if strings.Contains(lower, kw) {
				f.Flags = append(f.Flags, fmt.Sprintf("sensitive keyword in path: %s", file))
				f.Value = maxf(f.Value, 0.6)
				break
			}
		}
	}

	f.Contribution = f.Value * f.Weight
	return f
}

func analyzeTestCoverage(affectedFiles []string) RiskFactor {
	f := RiskFactor{Name: "test_coverage", Weight: weightTestCoverage}

	var sourceChanged, testChanged bool
	for _, file := range affectedFiles {
		if isTestPath(file) {
			testChanged = true
		} else if sourceExtensions[path.Ext(file)] {
			sourceChanged = true
		}
	}

	if sourceChanged && !testChanged {
		f.Value = 0.5
		f.Flags = append(f.Flags, "source changes without test updates")
	}

	f.Contribution = f.Value * f.Weight
	return f
}

func analyzeComplexity(diffText string) RiskFactor {
	count := len(controlKeywordRe.FindAllString(diffText, -1))

	f := RiskFactor{Name: "complexity", Weight: weightComplexity}
	switch {
	case count > 30:
		f.Value = 1.0
		f.Flags = append(f.Flags, fmt.Sprintf("very high complexity (%d control structures)", count))
	case count > 20:
		f.Value = 0.7
		f.Flags = append(f.Flags, fmt.Sprintf("high complexity (%d control structures)", count))
	case count > 10:
		f.Value = 0.4
	case count > 5:
		f.Value = 0.2
	}
	f.Contribution = f.Value * f.Weight
	return f
}

func analyzeDependencies(affectedFiles []string) RiskFactor {
	f := RiskFactor{Name: "dependency", Weight: weightDependency}

	for _, file := range affectedFiles {
		if risk, ok := dependencyManifests[path.Base(file)]; ok {
			f.Flags = append(f.Flags, fmt.Sprintf("dependency file changed: %s", path.Base(file)))
			f.Value = maxf(f.Value, risk)
		}
	}

	f.Contribution = f.Value * f.Weight
	return f
}

func analyzeNewCodeRatio(diffText string) RiskFactor {
	added, removed := countChangedLines(diffText)
	f := RiskFactor{Name: "new_code_ratio", Weight: weightNewCode}

	total := added + removed
	if total > 0 && float64(added)/float64(total) > 0.8 {
		f.Value = 0.5
		f.Flags = append(f.Flags, "mostly new code (low refactor ratio)")
	}

	f.Contribution = f.Value * f.Weight
	return f
}

// countChangedLines counts added and removed body lines in raw diff text,
// excluding file headers.
func countChangedLines(diffText string) (added, removed int) {
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

// isTestPath reports whether a path names a test file in any of the common
// conventions.
func isTestPath(p string) bool {
	base := path.Base(p)
	if strings.HasPrefix(base, "test_") || strings.Contains(base, "_test.") {
		return true
	}
	if strings.Contains(base, ".test.") || strings.Contains(base, ".spec.") {
		return true
	}
	for _, seg := range strings.Split(path.Dir(p), "/") {
		if seg == "tests" || seg == "test" || seg == "__tests__" {
			return true
		}
	}
	return false
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func fmtTooManyFiles(n, max int) string {
	return fmt.Sprintf("too many files affected: %d > %d", n, max)
}
