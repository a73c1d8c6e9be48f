package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/artifactguard/config"
	"github.com/c360studio/artifactguard/report"
	"github.com/c360studio/artifactguard/rule"
	"github.com/c360studio/artifactguard/validation"
)

func TestInferArtifactType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"main.go", "go"},
		{"src/app.ts", "typescript"},
		{"deploy/variables.tf", "terraform"},
		{"Dockerfile", "dockerfile"},
		{"dockerfile.prod", "dockerfile"},
		{"config.YAML", "yaml"},
		{"README.md", "markdown"},
		{"mystery.bin", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, inferArtifactType(tt.path))
		})
	}
}

func validateTestConfig(t *testing.T) *config.Config {
	t.Helper()

	rulesDir := t.TempDir()
	ruleDoc := `rules:
  - id: no-test-secrets
    name: No test secrets
    version: 1.0.0
    type: security
    severity: critical
    enabled: true
    config:
      patterns:
        - name: secret-marker
          regex: 'SECRETKEY[0-9]+'
      applicable_types:
        - "*"
`
	require.NoError(t, os.WriteFile(filepath.Join(rulesDir, "rules.yaml"), []byte(ruleDoc), 0644))

	cfg := config.DefaultConfig()
	cfg.Rules.Dir = rulesDir
	cfg.Engine.Parallel = false
	return cfg
}

func writeArtifact(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunValidateFailureReturnsExitError(t *testing.T) {
	// A failed validation must come back as an error value, not a direct
	// process exit, so deferred cleanup in runValidate still runs.
	cfg := validateTestConfig(t)
	path := writeArtifact(t, "app.go", "package main\n\nvar key = \"SECRETKEY123\"\n")

	err := runValidate(context.Background(), cfg, path, "go", true)
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
}

func TestRunValidateCleanArtifactSucceeds(t *testing.T) {
	cfg := validateTestConfig(t)
	path := writeArtifact(t, "app.go", "package main\n")

	err := runValidate(context.Background(), cfg, path, "go", true)
	assert.NoError(t, err)
}

func TestExitErrorUnwrapsThroughWrapping(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), &ExitError{Code: 2})

	var exitErr *ExitError
	require.ErrorAs(t, wrapped, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestRenderDocument(t *testing.T) {
	doc := &report.Document{
		ComplianceScore: 75.0,
		Issues: []report.Issue{
			{Severity: validation.SeverityCritical, Type: report.IssueRulesEngine,
				Description: "hardcoded secret", Location: "main.go:3:7", Remediation: "move to env"},
		},
		Recommendations: []string{"Address all critical issues before deployment."},
		Summary:         "Rules engine completed: 1 of 2 checks passed, compliance score 75.00.",
	}

	out := renderDocument("main.go", doc)
	assert.Contains(t, out, "main.go")
	assert.Contains(t, out, "75.00/100")
	assert.Contains(t, out, "hardcoded secret")
	assert.Contains(t, out, "main.go:3:7")
	assert.Contains(t, out, "move to env")
	assert.Contains(t, out, "critical issues before deployment")
}

func TestRenderRules(t *testing.T) {
	rules := []rule.Definition{
		{ID: "no-secrets", Name: "No secrets", Description: "Reject hardcoded credentials",
			Type: rule.TypeSecurity, Severity: validation.SeverityCritical, Enabled: true},
		{ID: "style-check", Name: "Style check",
			Type: rule.TypeStatic, Severity: validation.SeverityLow, Enabled: false},
	}

	out := renderRules(rules)
	assert.Contains(t, out, "no-secrets")
	assert.Contains(t, out, "Reject hardcoded credentials")
	assert.Contains(t, out, "enabled")
	assert.Contains(t, out, "style-check")
	assert.Contains(t, out, "disabled")
}
