// Package validation defines the core data model of the compliance engine:
// artifact requests, per-rule results, scored reports, and the pure scoring
// functions that turn a result set into a report.
package validation

import "time"

// Severity classifies how serious a rule violation is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity maps a string to a Severity, defaulting to low for
// unrecognized values so foreign vocabularies never break scoring.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(s)
	default:
		return SeverityLow
	}
}

// Request describes one artifact submitted for validation.
// Content is always inline; fetching artifacts is the caller's job.
type Request struct {
	ArtifactID   string            `json:"artifact_id"`
	ArtifactType string            `json:"artifact_type"`
	Content      string            `json:"content"`
	FilePath     string            `json:"file_path,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Location points at the spot in the artifact where a finding was made.
// Line and Column are 1-indexed.
type Location struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// Result is a single finding produced by an analyzer for one rule.
type Result struct {
	RuleID       string    `json:"rule_id"`
	RuleName     string    `json:"rule_name"`
	Passed       bool      `json:"passed"`
	Severity     Severity  `json:"severity"`
	Message      string    `json:"message"`
	Location     *Location `json:"source_location,omitempty"`
	SuggestedFix string    `json:"suggested_fix,omitempty"`
	Details      string    `json:"details,omitempty"`
}

// Summary counts results by outcome and failed results by severity.
type Summary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// RiskLevel is the coarse qualitative bucket derived from failure counts.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Report is the scored output of one engine invocation. It is built once by
// the scorer and never mutated afterward.
type Report struct {
	ArtifactID      string    `json:"artifact_id"`
	OverallScore    float64   `json:"overall_score"`
	MaxScore        float64   `json:"max_score"`
	Passed          bool      `json:"passed"`
	Results         []Result  `json:"results"`
	Summary         Summary   `json:"summary"`
	RiskLevel       RiskLevel `json:"risk_level"`
	ExecutionTimeMS int64     `json:"execution_time_ms"`
	Timestamp       time.Time `json:"timestamp"`
}

// SeverityWeights assigns point values used by the scorer. Each failed
// result deducts its severity's weight from the maximum possible score.
type SeverityWeights struct {
	Critical float64 `yaml:"critical" json:"critical"`
	High     float64 `yaml:"high" json:"high"`
	Medium   float64 `yaml:"medium" json:"medium"`
	Low      float64 `yaml:"low" json:"low"`
}

// DefaultWeights returns the standard scoring weights.
func DefaultWeights() SeverityWeights {
	return SeverityWeights{Critical: 100, High: 50, Medium: 20, Low: 5}
}

// Weight returns the point value for a severity.
func (w SeverityWeights) Weight(s Severity) float64 {
	switch s {
	case SeverityCritical:
		return w.Critical
	case SeverityHigh:
		return w.High
	case SeverityMedium:
		return w.Medium
	default:
		return w.Low
	}
}

// ExecutionStatus is the terminal state of a validation run.
type ExecutionStatus string

const (
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusTimeout   ExecutionStatus = "timeout"
	StatusSkipped   ExecutionStatus = "skipped"
)

// ErrorDetails carries the terminal error of a failed run.
type ErrorDetails struct {
	Message   string    `json:"message"`
	Retries   int       `json:"retries"`
	Timestamp time.Time `json:"timestamp"`
}

// RunStatus is the runner's output: either a report (completed) or a
// terminal status describing why no report was produced. A skipped run means
// no rules applied to the artifact type, which is not a failure.
type RunStatus struct {
	ExecutionStatus ExecutionStatus `json:"execution_status"`
	ExecutionTime   time.Duration   `json:"execution_time"`
	Report          *Report         `json:"report,omitempty"`
	ErrorDetails    *ErrorDetails   `json:"error_details,omitempty"`
}
