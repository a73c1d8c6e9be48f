// Package config provides configuration loading and management for
// artifactguard.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/artifactguard/validation"
)

// Config represents the complete artifactguard configuration
type Config struct {
	Engine  EngineConfig               `yaml:"engine"`
	Weights validation.SeverityWeights `yaml:"weights"`
	Rules   RulesConfig                `yaml:"rules"`
	Model   ModelConfig                `yaml:"model"`
	NATS    NATSConfig                 `yaml:"nats"`
	Metrics MetricsConfig              `yaml:"metrics"`
}

// EngineConfig bounds a validation run
type EngineConfig struct {
	// Timeout is the overall budget for one validation run
	Timeout time.Duration `yaml:"timeout"`
	// MaxRetries is the number of reattempts after a retryable failure
	MaxRetries int `yaml:"max_retries"`
	// Parallel runs analyzer families concurrently
	Parallel bool `yaml:"parallel"`
	// MaxArtifactSize caps artifact content in bytes (0 = default 50MB)
	MaxArtifactSize int `yaml:"max_artifact_size"`
}

// RulesConfig locates the rule definitions
type RulesConfig struct {
	// Dir is the directory holding rule YAML files
	Dir string `yaml:"dir"`
	// Watch reloads rules when files in Dir change
	Watch bool `yaml:"watch"`
}

// ModelConfig configures the LLM used by semantic rules
type ModelConfig struct {
	// Provider selects the API shape (e.g. "openai", "anthropic")
	Provider string `yaml:"provider"`
	// Endpoint is the completion API base URL
	Endpoint string `yaml:"endpoint"`
	// Model is the model identifier (e.g. "qwen2.5-coder:32b")
	Model string `yaml:"model"`
	// Timeout is the maximum time to wait for model responses
	Timeout time.Duration `yaml:"timeout"`
}

// NATSConfig configures validation event publishing
type NATSConfig struct {
	// URL is the NATS server URL (empty = eventing disabled)
	URL string `yaml:"url"`
	// Subject overrides the default event subject
	Subject string `yaml:"subject"`
}

// MetricsConfig configures Prometheus exposure
type MetricsConfig struct {
	// Enabled registers and serves engine collectors
	Enabled bool `yaml:"enabled"`
	// Addr is the listen address for the /metrics endpoint
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Timeout:    2 * time.Minute,
			MaxRetries: 2,
			Parallel:   true,
		},
		Weights: validation.DefaultWeights(),
		Rules: RulesConfig{
			Dir:   "rules",
			Watch: false,
		},
		Model: ModelConfig{
			Provider: "openai",
			Endpoint: "http://localhost:11434/v1",
			Model:    "qwen2.5-coder:32b",
			Timeout:  5 * time.Minute,
		},
		NATS: NATSConfig{
			URL:     "",
			Subject: "",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Engine.Timeout <= 0 {
		return fmt.Errorf("engine.timeout must be positive")
	}
	if c.Engine.MaxRetries < 0 {
		return fmt.Errorf("engine.max_retries must not be negative")
	}
	if c.Rules.Dir == "" {
		return fmt.Errorf("rules.dir is required")
	}
	if c.Model.Provider == "" {
		return fmt.Errorf("model.provider is required")
	}
	if c.Model.Endpoint == "" {
		return fmt.Errorf("model.endpoint is required")
	}
	if c.Model.Model == "" {
		return fmt.Errorf("model.model is required")
	}
	for _, w := range []struct {
		name  string
		value float64
	}{
		{"critical", c.Weights.Critical},
		{"high", c.Weights.High},
		{"medium", c.Weights.Medium},
		{"low", c.Weights.Low},
	} {
		if w.value < 0 {
			return fmt.Errorf("weights.%s must not be negative", w.name)
		}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file over the defaults
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := config.LoadFile(path); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFile overlays the YAML file at path onto the config. Only keys present
// in the document are written, so a later layer can set a value back to
// false or zero (parallel: false, max_retries: 0) and absent keys keep the
// earlier layer's value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

