// Package config provides configuration management for foreman.
package config

import (
	"fmt"
	"time"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
	// ForemanDir is the foreman configuration directory.
	ForemanDir = ".foreman"
)

// ModelConfig selects the language model endpoint used for all stages.
type ModelConfig struct {
	// Provider is the endpoint flavor: anthropic, openai, or ollama.
	Provider string `yaml:"provider"`

	// Name is the model identifier sent to the provider.
	Name string `yaml:"name"`

	// BaseURL overrides the provider's default endpoint URL.
	BaseURL string `yaml:"base_url,omitempty"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env,omitempty"`

	// MaxTokens caps the completion length per request.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature is passed through when set.
	Temperature *float64 `yaml:"temperature,omitempty"`
}

// WorkflowConfig controls the run loop.
type WorkflowConfig struct {
	// AutoApprove skips the human gate and approves every plan.
	AutoApprove bool `yaml:"auto_approve"`

	// AutoCommit commits applied changes after a passing review.
	AutoCommit bool `yaml:"auto_commit"`

	// MaxHealingAttempts bounds the implement/validate repair loop.
	MaxHealingAttempts int `yaml:"max_healing_attempts"`

	// PromptDir overrides the embedded prompt templates.
	PromptDir string `yaml:"prompt_dir,omitempty"`
}

// ValidationConfig holds the shell commands run against applied changes.
// An empty command skips that check.
type ValidationConfig struct {
	TestCommand      string        `yaml:"test_command"`
	TypecheckCommand string        `yaml:"typecheck_command"`
	LintCommand      string        `yaml:"lint_command,omitempty"`
	Timeout          time.Duration `yaml:"timeout"`
}

// GitConfig holds commit authorship settings.
type GitConfig struct {
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Config represents the foreman configuration.
type Config struct {
	// Version is the config file version.
	Version int `yaml:"version"`

	Model      ModelConfig      `yaml:"model"`
	Workflow   WorkflowConfig   `yaml:"workflow"`
	Validation ValidationConfig `yaml:"validation"`
	Git        GitConfig        `yaml:"git"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Model: ModelConfig{
			Provider:  "anthropic",
			Name:      "claude-sonnet-4-5",
			APIKeyEnv: "ANTHROPIC_API_KEY",
			MaxTokens: 8192,
		},
		Workflow: WorkflowConfig{
			AutoApprove:        false,
			AutoCommit:         false,
			MaxHealingAttempts: 3,
		},
		Validation: ValidationConfig{
			TestCommand:      "go test ./... -json",
			TypecheckCommand: "go vet ./...",
			Timeout:          5 * time.Minute,
		},
		Git: GitConfig{
			AuthorName:  "foreman",
			AuthorEmail: "foreman@localhost",
		},
	}
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "anthropic", "openai", "ollama":
	case "":
		return fmt.Errorf("model.provider is required")
	default:
		return fmt.Errorf("unknown model.provider %q", c.Model.Provider)
	}
	if c.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}
	if c.Model.MaxTokens < 0 {
		return fmt.Errorf("model.max_tokens must not be negative")
	}
	if c.Workflow.MaxHealingAttempts < 1 {
		return fmt.Errorf("workflow.max_healing_attempts must be at least 1")
	}
	if c.Validation.Timeout < 0 {
		return fmt.Errorf("validation.timeout must not be negative")
	}
	return nil
}
