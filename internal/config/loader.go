package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration in layers. Later layers override earlier ones:
//  1. Built-in defaults
//  2. User config (~/.foreman/config.yaml) - optional
//  3. Project config (.foreman/config.yaml relative to dir) - optional
//  4. Environment variables (FOREMAN_*)
//
// dir is the project directory to look for the project config in.
func Load(dir string) (*Config, error) {
	cfg := DefaultConfig()

	if home, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(home, ForemanDir, ConfigFileName)
		if _, err := os.Stat(userPath); err == nil {
			if err := mergeFromFile(cfg, userPath); err != nil {
				slog.Warn("failed to load user config", "path", userPath, "error", err)
			}
		}
	}

	projectPath := filepath.Join(dir, ForemanDir, ConfigFileName)
	if _, err := os.Stat(projectPath); err == nil {
		if err := mergeFromFile(cfg, projectPath); err != nil {
			return nil, err // Project config errors are fatal
		}
	}

	ApplyEnvVars(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile loads a single config file over the built-in defaults,
// bypassing the user/project layering. Env vars still apply.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := mergeFromFile(cfg, path); err != nil {
		return nil, err
	}
	ApplyEnvVars(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// mergeFromFile unmarshals a YAML file over cfg. Fields absent from the
// file keep their current values.
func mergeFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnvVars overrides config fields from FOREMAN_* environment variables.
func ApplyEnvVars(cfg *Config) {
	if v := os.Getenv("FOREMAN_PROVIDER"); v != "" {
		cfg.Model.Provider = v
	}
	if v := os.Getenv("FOREMAN_MODEL"); v != "" {
		cfg.Model.Name = v
	}
	if v := os.Getenv("FOREMAN_BASE_URL"); v != "" {
		cfg.Model.BaseURL = v
	}
	if v := os.Getenv("FOREMAN_API_KEY_ENV"); v != "" {
		cfg.Model.APIKeyEnv = v
	}
	if v := os.Getenv("FOREMAN_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Model.MaxTokens = n
		}
	}
	if v := os.Getenv("FOREMAN_AUTO_APPROVE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Workflow.AutoApprove = b
		}
	}
	if v := os.Getenv("FOREMAN_AUTO_COMMIT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Workflow.AutoCommit = b
		}
	}
	if v := os.Getenv("FOREMAN_MAX_HEALING_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workflow.MaxHealingAttempts = n
		}
	}
	if v := os.Getenv("FOREMAN_PROMPT_DIR"); v != "" {
		cfg.Workflow.PromptDir = v
	}
	if v := os.Getenv("FOREMAN_TEST_COMMAND"); v != "" {
		cfg.Validation.TestCommand = v
	}
	if v := os.Getenv("FOREMAN_TYPECHECK_COMMAND"); v != "" {
		cfg.Validation.TypecheckCommand = v
	}
	if v := os.Getenv("FOREMAN_LINT_COMMAND"); v != "" {
		cfg.Validation.LintCommand = v
	}
	if v := os.Getenv("FOREMAN_VALIDATION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Validation.Timeout = d
		}
	}
}
