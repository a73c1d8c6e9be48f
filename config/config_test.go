package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Engine.Timeout != 2*time.Minute {
		t.Errorf("expected default timeout 2m, got %s", cfg.Engine.Timeout)
	}
	if cfg.Engine.MaxRetries != 2 {
		t.Errorf("expected default max retries 2, got %d", cfg.Engine.MaxRetries)
	}
	if !cfg.Engine.Parallel {
		t.Error("expected parallel validation by default")
	}
	if cfg.Weights.Critical != 100 {
		t.Errorf("expected critical weight 100, got %f", cfg.Weights.Critical)
	}
	if cfg.Model.Provider != "openai" {
		t.Errorf("expected default provider openai, got %s", cfg.Model.Provider)
	}
	if cfg.Model.Endpoint != "http://localhost:11434/v1" {
		t.Errorf("expected default endpoint http://localhost:11434/v1, got %s", cfg.Model.Endpoint)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero timeout",
			modify:  func(c *Config) { c.Engine.Timeout = 0 },
			wantErr: true,
		},
		{
			name:    "negative retries",
			modify:  func(c *Config) { c.Engine.MaxRetries = -1 },
			wantErr: true,
		},
		{
			name:    "missing rules dir",
			modify:  func(c *Config) { c.Rules.Dir = "" },
			wantErr: true,
		},
		{
			name:    "missing model endpoint",
			modify:  func(c *Config) { c.Model.Endpoint = "" },
			wantErr: true,
		},
		{
			name:    "missing model name",
			modify:  func(c *Config) { c.Model.Model = "" },
			wantErr: true,
		},
		{
			name:    "negative weight",
			modify:  func(c *Config) { c.Weights.High = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
engine:
  timeout: 30s
  max_retries: 5
rules:
  dir: "/etc/artifactguard/rules"
model:
  provider: "anthropic"
  endpoint: "http://test:1234/v1"
  model: "test-model"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Engine.Timeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %s", cfg.Engine.Timeout)
	}
	if cfg.Engine.MaxRetries != 5 {
		t.Errorf("expected max retries 5, got %d", cfg.Engine.MaxRetries)
	}
	if cfg.Rules.Dir != "/etc/artifactguard/rules" {
		t.Errorf("expected rules dir override, got %s", cfg.Rules.Dir)
	}
	if cfg.Model.Provider != "anthropic" {
		t.Errorf("expected provider anthropic, got %s", cfg.Model.Provider)
	}
	// Values absent from the file keep their defaults
	if cfg.Model.Timeout != 5*time.Minute {
		t.Errorf("expected default model timeout, got %s", cfg.Model.Timeout)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestConfigLayering(t *testing.T) {
	tmpDir := t.TempDir()

	userPath := filepath.Join(tmpDir, "user.yaml")
	userContent := `
engine:
  max_retries: 7
rules:
  dir: "user-rules"
  watch: true
model:
  model: "qwen2.5-coder:14b"
nats:
  url: "nats://localhost:4222"
`
	if err := os.WriteFile(userPath, []byte(userContent), 0644); err != nil {
		t.Fatalf("failed to write user config: %v", err)
	}

	// The project layer must be able to turn things back off and express
	// zero: parallel: false and max_retries: 0 are meaningful overrides.
	projectPath := filepath.Join(tmpDir, "project.yaml")
	projectContent := `
engine:
  parallel: false
  max_retries: 0
rules:
  watch: false
`
	if err := os.WriteFile(projectPath, []byte(projectContent), 0644); err != nil {
		t.Fatalf("failed to write project config: %v", err)
	}

	cfg := DefaultConfig()
	if err := cfg.LoadFile(userPath); err != nil {
		t.Fatalf("LoadFile(user) error = %v", err)
	}
	if err := cfg.LoadFile(projectPath); err != nil {
		t.Fatalf("LoadFile(project) error = %v", err)
	}

	if cfg.Engine.Parallel {
		t.Error("expected project layer to disable parallel")
	}
	if cfg.Engine.MaxRetries != 0 {
		t.Errorf("expected project layer to set max_retries 0, got %d", cfg.Engine.MaxRetries)
	}
	if cfg.Rules.Watch {
		t.Error("expected project layer to disable watch")
	}
	if cfg.Rules.Dir != "user-rules" {
		t.Errorf("expected rules dir from user layer, got %s", cfg.Rules.Dir)
	}
	if cfg.Model.Model != "qwen2.5-coder:14b" {
		t.Errorf("expected model from user layer, got %s", cfg.Model.Model)
	}
	if cfg.Model.Endpoint != "http://localhost:11434/v1" {
		t.Errorf("expected endpoint to keep default, got %s", cfg.Model.Endpoint)
	}
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected NATS URL from user layer, got %s", cfg.NATS.URL)
	}
	if cfg.Engine.Timeout != 2*time.Minute {
		t.Errorf("expected timeout to keep default, got %s", cfg.Engine.Timeout)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("ARTIFACTGUARD_MODEL_ENDPOINT", "http://env:9999/v1")
	t.Setenv("ARTIFACTGUARD_TIMEOUT", "45s")
	t.Setenv("ARTIFACTGUARD_MAX_RETRIES", "not-a-number")

	cfg := DefaultConfig()
	applyEnv(cfg)

	if cfg.Model.Endpoint != "http://env:9999/v1" {
		t.Errorf("expected endpoint from env, got %s", cfg.Model.Endpoint)
	}
	if cfg.Engine.Timeout != 45*time.Second {
		t.Errorf("expected timeout from env, got %s", cfg.Engine.Timeout)
	}
	if cfg.Engine.MaxRetries != 2 {
		t.Errorf("expected unparseable retries to keep default, got %d", cfg.Engine.MaxRetries)
	}
}
