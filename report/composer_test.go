package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/artifactguard/validation"
)

func completedRun(results []validation.Result) validation.RunStatus {
	return validation.RunStatus{
		ExecutionStatus: validation.StatusCompleted,
		ExecutionTime:   120 * time.Millisecond,
		Report:          validation.NewReport("artifact-1", results, validation.DefaultWeights(), 120*time.Millisecond),
	}
}

func TestCompose_UsesEngineScoreVerbatim(t *testing.T) {
	run := completedRun([]validation.Result{
		{RuleID: "r1", RuleName: "r1", Passed: true, Severity: validation.SeverityHigh},
		{RuleID: "r2", RuleName: "r2", Passed: false, Severity: validation.SeverityMedium, Message: "tab indentation"},
	})

	doc := Compose(Input{ArtifactID: "artifact-1", ArtifactType: "go", Run: run})

	assert.Equal(t, run.Report.OverallScore, doc.ComplianceScore)
	require.Len(t, doc.Issues, 1, "passing results do not become issues")
	assert.Equal(t, IssueRulesEngine, doc.Issues[0].Type)
	assert.Equal(t, "r2", doc.Issues[0].RuleID)
	assert.NotEmpty(t, doc.Issues[0].ID)
}

func TestCompose_CriticalSecretFallbackScore(t *testing.T) {
	// No engine report: one critical finding from the static scanner must
	// land at 75 under the fallback penalty scale and below any pass bar.
	doc := Compose(Input{
		ArtifactID:   "artifact-1",
		ArtifactType: "go",
		Run:          validation.RunStatus{ExecutionStatus: validation.StatusFailed},
		StaticIssues: []SourceIssue{
			{Severity: "error", Description: "hardcoded AWS secret key", Location: "main.go:12:5"},
		},
	})

	assert.Equal(t, 75.0, doc.ComplianceScore)
	assert.LessOrEqual(t, doc.ComplianceScore, 75.0)
	require.Len(t, doc.Issues, 1)
	assert.Equal(t, validation.SeverityCritical, doc.Issues[0].Severity)
}

func TestCompose_FallbackScoreFloorsAtZero(t *testing.T) {
	issues := make([]SourceIssue, 5)
	for i := range issues {
		issues[i] = SourceIssue{Severity: "error", Description: "secret"}
	}

	doc := Compose(Input{
		ArtifactID:   "artifact-1",
		ArtifactType: "go",
		Run:          validation.RunStatus{ExecutionStatus: validation.StatusFailed},
		StaticIssues: issues,
	})
	assert.Equal(t, 0.0, doc.ComplianceScore)
}

func TestCompose_MergesAllThreeSources(t *testing.T) {
	run := completedRun([]validation.Result{
		{RuleID: "sec-1", RuleName: "no secrets", Passed: false, Severity: validation.SeverityCritical, Message: "secret found"},
	})

	doc := Compose(Input{
		ArtifactID:     "artifact-1",
		ArtifactType:   "go",
		Run:            run,
		StaticIssues:   []SourceIssue{{Severity: "warning", Description: "unused variable"}},
		SemanticIssues: []SourceIssue{{Severity: "info", Description: "unclear naming"}},
	})

	require.Len(t, doc.Issues, 3)
	assert.Equal(t, IssueRulesEngine, doc.Issues[0].Type)
	assert.Equal(t, IssueStatic, doc.Issues[1].Type)
	assert.Equal(t, IssueSemantic, doc.Issues[2].Type)
	assert.Equal(t, validation.SeverityHigh, doc.Issues[1].Severity)
	assert.Equal(t, validation.SeverityMedium, doc.Issues[2].Severity)
}

func TestNormalizeSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want validation.Severity
	}{
		{"error", validation.SeverityCritical},
		{"critical", validation.SeverityCritical},
		{"warning", validation.SeverityHigh},
		{"HIGH", validation.SeverityHigh},
		{"info", validation.SeverityMedium},
		{"medium", validation.SeverityMedium},
		{"minor", validation.SeverityLow},
		{"low", validation.SeverityLow},
		{"", validation.SeverityLow},
		{"bananas", validation.SeverityLow},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSeverity(tt.in))
		})
	}
}

func TestCompose_RecommendationsForCleanArtifact(t *testing.T) {
	doc := Compose(Input{
		ArtifactID:   "artifact-1",
		ArtifactType: "dockerfile",
		Run:          completedRun([]validation.Result{{RuleID: "r1", Passed: true, Severity: validation.SeverityLow}}),
	})

	require.Len(t, doc.Recommendations, 1)
	assert.Contains(t, doc.Recommendations[0], "meets current compliance standards")
}

func TestCompose_RecommendationsForFindings(t *testing.T) {
	run := completedRun([]validation.Result{
		{RuleID: "sec-1", RuleName: "no secrets", Passed: false, Severity: validation.SeverityCritical, Message: "secret found"},
		{RuleID: "lint-1", RuleName: "lint", Passed: false, Severity: validation.SeverityHigh, Message: "bad import"},
	})

	doc := Compose(Input{
		ArtifactID:   "artifact-1",
		ArtifactType: "dockerfile",
		Run:          run,
		StaticIssues: []SourceIssue{{Severity: "warning", Description: "latest tag"}},
	})

	joined := ""
	for _, rec := range doc.Recommendations {
		joined += rec + "\n"
	}
	assert.Contains(t, joined, "critical issues before deployment")
	assert.Contains(t, joined, "high-severity findings")
	assert.Contains(t, joined, "rules engine")
	assert.Contains(t, joined, "static analysis")
	assert.Contains(t, joined, "Dockerfile")
	assert.NotContains(t, joined, "meets current compliance standards")
}

func TestCompose_SourceReferences(t *testing.T) {
	run := completedRun([]validation.Result{
		{RuleID: "sec-1", RuleName: "no secrets", Passed: false, Severity: validation.SeverityHigh,
			Message: "secret", Location: &validation.Location{File: "main.go", Line: 3, Column: 7}},
		{RuleID: "sec-1", RuleName: "no secrets", Passed: false, Severity: validation.SeverityHigh,
			Message: "another secret", Location: &validation.Location{File: "main.go", Line: 3, Column: 7}},
	})

	doc := Compose(Input{ArtifactID: "artifact-1", ArtifactType: "go", Run: run})

	assert.Equal(t, []string{"main.go:3:7", "rule:sec-1"}, doc.SourceReferences)
}

func TestCompose_SummaryStatesEngineStatus(t *testing.T) {
	t.Run("completed", func(t *testing.T) {
		run := completedRun([]validation.Result{
			{RuleID: "r1", Passed: true, Severity: validation.SeverityLow},
			{RuleID: "r2", Passed: false, Severity: validation.SeverityLow, Message: "nit"},
		})
		doc := Compose(Input{ArtifactID: "a", ArtifactType: "go", Run: run})
		assert.Contains(t, doc.Summary, "completed")
		assert.Contains(t, doc.Summary, "1 of 2 checks passed")
	})

	t.Run("skipped", func(t *testing.T) {
		doc := Compose(Input{
			ArtifactID:   "a",
			ArtifactType: "csv",
			Run:          validation.RunStatus{ExecutionStatus: validation.StatusSkipped},
		})
		assert.Contains(t, doc.Summary, "skipped")
		assert.Contains(t, doc.Summary, "No issues found")
		assert.Equal(t, 100.0, doc.ComplianceScore)
	})

	t.Run("timeout", func(t *testing.T) {
		doc := Compose(Input{
			ArtifactID:   "a",
			ArtifactType: "go",
			Run: validation.RunStatus{
				ExecutionStatus: validation.StatusTimeout,
				ExecutionTime:   2 * time.Minute,
			},
		})
		assert.Contains(t, doc.Summary, "timed out")
	})

	t.Run("failed", func(t *testing.T) {
		doc := Compose(Input{
			ArtifactID:   "a",
			ArtifactType: "go",
			Run: validation.RunStatus{
				ExecutionStatus: validation.StatusFailed,
				ErrorDetails:    &validation.ErrorDetails{Message: "store unavailable", Retries: 2},
			},
		})
		assert.Contains(t, doc.Summary, "failed")
		assert.Contains(t, doc.Summary, "store unavailable")
		assert.Contains(t, doc.Summary, "2 retries")
	})
}

func TestCompose_SummaryMentionsDegradedSiblingChecks(t *testing.T) {
	doc := Compose(Input{
		ArtifactID:          "a",
		ArtifactType:        "go",
		Run:                 completedRun([]validation.Result{{RuleID: "r1", Passed: true, Severity: validation.SeverityLow}}),
		StaticCheckStatus:   validation.StatusFailed,
		SemanticCheckStatus: validation.StatusCompleted,
	})

	assert.Contains(t, doc.Summary, "Static checks: failed")
	assert.NotContains(t, doc.Summary, "Semantic checks")
}
