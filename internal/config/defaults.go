package config

// Default returns the built-in configuration. Loaded config files are merged
// over this, so a partial file only overrides what it sets.
func Default() *Config {
	return &Config{
		Review: Review{
			MaxDiffLines:   500,
			MaxFilesPerRun: 10,
			MaxRetries:     2,
			CheckTimeout:   "2m",
		},
		Policy: Policy{
			ForbiddenPatterns: []string{
				".git/",
				".env",
				"credentials",
				"secrets",
				"id_rsa",
				".ssh/",
			},
			SensitivePaths: []string{
				"deploy/",
				"infra/",
				"terraform/",
				"migrations/",
				".github/workflows/",
			},
			SecretKeywords: []string{
				"api_key",
				"apikey",
				"secret_key",
				"secretkey",
				"password",
				"passwd",
				"token",
				"bearer",
				"credential",
				"secret",
			},
			SecretLiterals: []string{
				`sk-[a-zA-Z0-9]{20,}`,
				`AKIA[0-9A-Z]{16}`,
				`ghp_[a-zA-Z0-9]{36}`,
				`xox[bporas]-[a-zA-Z0-9-]{10,}`,
				`[a-zA-Z0-9]{32,}`,
			},
			IgnorePatterns: []string{
				".git/",
				"node_modules/",
				"vendor/",
				"dist/",
				"build/",
				".venv/",
				"__pycache__/",
				"*.min.js",
				"*.lock",
			},
		},
		Scoring: Scoring{
			QualityApprove: 80.0,
			QualityReview:  60.0,
			RiskReview:     0.3,
			RiskReject:     0.7,
			Weights: Weights{
				Tests:     0.40,
				Lint:      0.20,
				Typecheck: 0.25,
				Security:  0.15,
			},
		},
		Checks: map[string]Check{
			"tests":     {Command: "go test ./...", Parser: "gotest", Timeout: "5m"},
			"lint":      {Command: "staticcheck ./...", Parser: "staticcheck"},
			"format":    {Command: "gofmt -l .", Parser: "gofmt"},
			"typecheck": {Command: "go vet ./...", Parser: "govet"},
			"security":  {Command: "gosec -fmt=json ./...", Parser: "gosec"},
		},
		LLM: LLM{
			Model:       "gpt-4o-mini",
			BaseURL:     "https://api.openai.com/v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0.0,
			MaxTokens:   4096,
			Timeout:     "2m",
		},
		Retrieval: Retrieval{
			EmbeddingModel: "text-embedding-3-small",
			TopK:           20,
			MinSimilarity:  0.1,
		},
		Sandbox: Sandbox{
			Image:           "changegate-sandbox:latest",
			MemoryLimit:     "2g",
			CPULimit:        "2",
			Workdir:         "/workspace/repo",
			NetworkDisabled: true,
			Timeout:         "5m",
		},
	}
}
