package config

// Config is the top-level configuration structure parsed from changegate YAML.
type Config struct {
	Review    Review           `yaml:"review"`
	Policy    Policy           `yaml:"policy"`
	Scoring   Scoring          `yaml:"scoring"`
	Checks    map[string]Check `yaml:"checks"`
	LLM       LLM              `yaml:"llm"`
	Retrieval Retrieval        `yaml:"retrieval"`
	Sandbox   Sandbox          `yaml:"sandbox"`
	Database  Database         `yaml:"database"`
}

// Review holds run-level limits for the review pipeline.
type Review struct {
	MaxDiffLines   int    `yaml:"max_diff_lines"`
	MaxFilesPerRun int    `yaml:"max_files_per_run"`
	MaxRetries     int    `yaml:"max_retries"`
	CheckTimeout   string `yaml:"check_timeout"`
	ParallelChecks bool   `yaml:"parallel_checks"`
}

// Policy holds the path and content policy lists applied to generated diffs.
// These are data, not code, so deployments can tune them and tests can pin
// them without touching the validator.
type Policy struct {
	ForbiddenPatterns []string `yaml:"forbidden_patterns"`
	SensitivePaths    []string `yaml:"sensitive_paths"`
	SecretKeywords    []string `yaml:"secret_keywords"`
	SecretLiterals    []string `yaml:"secret_literals"`
	IgnorePatterns    []string `yaml:"ignore_patterns"`
}

// Scoring holds decision thresholds and quality-score weights.
type Scoring struct {
	QualityApprove float64 `yaml:"quality_approve"`
	QualityReview  float64 `yaml:"quality_review"`
	RiskReview     float64 `yaml:"risk_review"`
	RiskReject     float64 `yaml:"risk_reject"`
	Weights        Weights `yaml:"weights"`
}

// Weights are the per-category quality weights. They must sum to 1.0; the
// format check has no weight of its own and instead adjusts the lint score.
type Weights struct {
	Tests     float64 `yaml:"tests"`
	Lint      float64 `yaml:"lint"`
	Typecheck float64 `yaml:"typecheck"`
	Security  float64 `yaml:"security"`
}

// Check defines a named deterministic check executed against a working copy.
type Check struct {
	Command string `yaml:"command"`
	Parser  string `yaml:"parser"`
	Timeout string `yaml:"timeout"`
}

// LLM configures the text-generation collaborator.
type LLM struct {
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     string  `yaml:"timeout"`
}

// Retrieval configures the code-context collaborator.
type Retrieval struct {
	EmbeddingModel string  `yaml:"embedding_model"`
	TopK           int     `yaml:"top_k"`
	MinSimilarity  float64 `yaml:"min_similarity"`
}

// Sandbox configures the isolated execution environment.
type Sandbox struct {
	Image           string `yaml:"image"`
	MemoryLimit     string `yaml:"memory_limit"`
	CPULimit        string `yaml:"cpu_limit"`
	Workdir         string `yaml:"workdir"`
	NetworkDisabled bool   `yaml:"network_disabled"`
	Timeout         string `yaml:"timeout"`
}

// Database selects the audit-log backend. An empty DSN uses SQLite at
// ~/.changegate/changegate.db; a postgres:// DSN uses Postgres via pgx.
type Database struct {
	DSN string `yaml:"dsn"`
}
