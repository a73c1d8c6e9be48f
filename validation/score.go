package validation

import (
	"math"
	"time"
)

// passThreshold is the minimum score required to pass, provided no critical
// rule failed.
const passThreshold = 80.0

// Score computes the severity-weighted compliance score for a result set.
// The maximum possible score is the weight sum over all results; each failed
// result deducts its weight. An empty result set scores 100: no applicable
// policy is a clean pass, not a failure.
func Score(results []Result, weights SeverityWeights) float64 {
	if len(results) == 0 {
		return 100
	}

	var maxPossible, deductions float64
	for _, r := range results {
		w := weights.Weight(r.Severity)
		maxPossible += w
		if !r.Passed {
			deductions += w
		}
	}
	if maxPossible == 0 {
		return 100
	}

	score := (maxPossible - deductions) / maxPossible * 100
	if score < 0 {
		score = 0
	}
	return math.Round(score*100) / 100
}

// Passed reports whether a result set passes validation: no critical
// failures and a score at or above the pass threshold. A critical failure is
// an automatic fail regardless of score.
func Passed(results []Result, score float64) bool {
	for _, r := range results {
		if !r.Passed && r.Severity == SeverityCritical {
			return false
		}
	}
	return score >= passThreshold
}

// Summarize counts results by outcome and failed results by severity.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Passed {
			s.Passed++
			continue
		}
		s.Failed++
		switch r.Severity {
		case SeverityCritical:
			s.Critical++
		case SeverityHigh:
			s.High++
		case SeverityMedium:
			s.Medium++
		default:
			s.Low++
		}
	}
	return s
}

// RiskLevelFor derives the qualitative risk bucket from failure counts.
func RiskLevelFor(results []Result) RiskLevel {
	var critical, high, medium int
	for _, r := range results {
		if r.Passed {
			continue
		}
		switch r.Severity {
		case SeverityCritical:
			critical++
		case SeverityHigh:
			high++
		case SeverityMedium:
			medium++
		}
	}

	switch {
	case critical > 0:
		return RiskCritical
	case high > 2:
		return RiskHigh
	case high > 0 || medium > 5:
		return RiskMedium
	default:
		return RiskLow
	}
}

// NewReport assembles a Report from a result set. It is the only constructor
// for reports; callers never build one field by field.
func NewReport(artifactID string, results []Result, weights SeverityWeights, elapsed time.Duration) *Report {
	score := Score(results, weights)
	return &Report{
		ArtifactID:      artifactID,
		OverallScore:    score,
		MaxScore:        100,
		Passed:          Passed(results, score),
		Results:         results,
		Summary:         Summarize(results),
		RiskLevel:       RiskLevelFor(results),
		ExecutionTimeMS: elapsed.Milliseconds(),
		Timestamp:       time.Now().UTC(),
	}
}
