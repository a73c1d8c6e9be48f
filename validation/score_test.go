package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failed(sev Severity) Result {
	return Result{RuleID: "r-" + string(sev), Passed: false, Severity: sev}
}

func passed(sev Severity) Result {
	return Result{RuleID: "r-" + string(sev), Passed: true, Severity: sev}
}

func TestScore_EmptyResultsIsCleanPass(t *testing.T) {
	score := Score(nil, DefaultWeights())
	assert.Equal(t, 100.0, score)
	assert.True(t, Passed(nil, score))
}

func TestScore_AllPassed(t *testing.T) {
	results := []Result{passed(SeverityCritical), passed(SeverityLow)}
	assert.Equal(t, 100.0, Score(results, DefaultWeights()))
}

func TestScore_WeightedDeductions(t *testing.T) {
	// maxPossible = 100 + 50 + 20 + 5 = 175, deductions = 50
	results := []Result{
		passed(SeverityCritical),
		failed(SeverityHigh),
		passed(SeverityMedium),
		passed(SeverityLow),
	}
	assert.Equal(t, 71.43, Score(results, DefaultWeights()))
}

func TestScore_AllFailedIsZero(t *testing.T) {
	results := []Result{failed(SeverityCritical), failed(SeverityLow)}
	assert.Equal(t, 0.0, Score(results, DefaultWeights()))
}

func TestScore_MonotonicUnderAddedFailures(t *testing.T) {
	results := []Result{passed(SeverityMedium), passed(SeverityMedium)}
	prev := Score(results, DefaultWeights())

	for _, sev := range []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
		results = append(results, failed(sev))
		score := Score(results, DefaultWeights())
		assert.LessOrEqual(t, score, prev, "adding a failed %s result must not raise the score", sev)
		prev = score
	}
}

func TestPassed_CriticalFailureIsAutomaticFail(t *testing.T) {
	// One critical failure among many passes: score stays high but the
	// verdict must still be fail.
	results := []Result{failed(SeverityCritical)}
	for i := 0; i < 50; i++ {
		results = append(results, passed(SeverityCritical))
	}
	score := Score(results, DefaultWeights())
	assert.Greater(t, score, 80.0)
	assert.False(t, Passed(results, score))
}

func TestPassed_ThresholdBoundary(t *testing.T) {
	tests := []struct {
		name   string
		score  float64
		expect bool
	}{
		{"well above threshold", 95, true},
		{"exactly at threshold", 80, true},
		{"just below threshold", 79.99, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, Passed([]Result{passed(SeverityLow)}, tt.score))
		})
	}
}

func TestSummarize_CountsAreConsistent(t *testing.T) {
	results := []Result{
		passed(SeverityLow),
		passed(SeverityHigh),
		failed(SeverityCritical),
		failed(SeverityHigh),
		failed(SeverityHigh),
		failed(SeverityMedium),
		failed(SeverityLow),
	}
	s := Summarize(results)

	assert.Equal(t, len(results), s.Total)
	assert.Equal(t, s.Total, s.Passed+s.Failed)
	assert.Equal(t, s.Failed, s.Critical+s.High+s.Medium+s.Low)
	assert.Equal(t, 1, s.Critical)
	assert.Equal(t, 2, s.High)
	assert.Equal(t, 1, s.Medium)
	assert.Equal(t, 1, s.Low)
}

func TestRiskLevelFor(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		expect  RiskLevel
	}{
		{"no failures", []Result{passed(SeverityCritical)}, RiskLow},
		{"any critical failure", []Result{failed(SeverityCritical)}, RiskCritical},
		{"three high failures", []Result{failed(SeverityHigh), failed(SeverityHigh), failed(SeverityHigh)}, RiskHigh},
		{"one high failure", []Result{failed(SeverityHigh)}, RiskMedium},
		{"six medium failures", []Result{
			failed(SeverityMedium), failed(SeverityMedium), failed(SeverityMedium),
			failed(SeverityMedium), failed(SeverityMedium), failed(SeverityMedium),
		}, RiskMedium},
		{"five medium failures", []Result{
			failed(SeverityMedium), failed(SeverityMedium), failed(SeverityMedium),
			failed(SeverityMedium), failed(SeverityMedium),
		}, RiskLow},
		{"low failures only", []Result{failed(SeverityLow), failed(SeverityLow)}, RiskLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, RiskLevelFor(tt.results))
		})
	}
}

func TestNewReport(t *testing.T) {
	results := []Result{passed(SeverityHigh), failed(SeverityMedium)}
	report := NewReport("artifact-1", results, DefaultWeights(), 1500*time.Millisecond)

	require.NotNil(t, report)
	assert.Equal(t, "artifact-1", report.ArtifactID)
	assert.Equal(t, 100.0, report.MaxScore)
	// maxPossible = 70, deductions = 20
	assert.Equal(t, 71.43, report.OverallScore)
	assert.False(t, report.Passed)
	assert.Equal(t, int64(1500), report.ExecutionTimeMS)
	assert.Equal(t, 2, report.Summary.Total)
	assert.False(t, report.Timestamp.IsZero())
}

func TestParseSeverity_UnknownDefaultsToLow(t *testing.T) {
	assert.Equal(t, SeverityLow, ParseSeverity("catastrophic"))
	assert.Equal(t, SeverityCritical, ParseSeverity("critical"))
}
