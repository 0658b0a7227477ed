package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads a changegate configuration from the given YAML file path and
// merges it over the built-in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// LoadDefault searches standard locations and loads the first config found,
// falling back to the built-in defaults when none exists.
// Search order: ./changegate.yaml, ~/.changegate/config.yaml
func LoadDefault() (*Config, error) {
	candidates := []string{"changegate.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".changegate", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := Default()
	applyDefaults(cfg)
	return cfg, nil
}

// HomeDir returns ~/.changegate, creating it if needed.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(home, ".changegate")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}
	return dir, nil
}

// applyDefaults fills per-check timeouts from the review-level default.
func applyDefaults(cfg *Config) {
	for name, chk := range cfg.Checks {
		if chk.Timeout == "" {
			chk.Timeout = cfg.Review.CheckTimeout
			cfg.Checks[name] = chk
		}
	}
}
