// Package report composes the final compliance document from the engine's
// validation report and the issue lists produced by sibling pipeline checks.
// Composition is pure: no I/O, no shared state between invocations.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/artifactguard/validation"
)

// IssueType identifies which pipeline stage produced an issue.
type IssueType string

const (
	IssueStatic      IssueType = "static"
	IssueSemantic    IssueType = "semantic"
	IssueRulesEngine IssueType = "rules-engine"
)

// Fallback severity weights, used only when no engine report is available.
// Coarser than the engine's scoring weights: the fallback is a straight
// penalty subtraction from 100, not a proportional model.
// timeRounding keeps durations in summary prose readable.
const timeRounding = 10 * time.Millisecond

var fallbackWeights = map[validation.Severity]float64{
	validation.SeverityCritical: 25,
	validation.SeverityHigh:     15,
	validation.SeverityMedium:   8,
	validation.SeverityLow:      3,
}

// Issue is the normalized union of findings from every source.
type Issue struct {
	ID          string              `json:"id"`
	Severity    validation.Severity `json:"severity"`
	Type        IssueType           `json:"type"`
	Description string              `json:"description"`
	Location    string              `json:"location,omitempty"`
	Remediation string              `json:"remediation,omitempty"`
	RuleID      string              `json:"ruleId,omitempty"`
	RuleName    string              `json:"ruleName,omitempty"`
}

// SourceIssue is a finding from a sibling check, arriving with whatever
// severity vocabulary that check uses.
type SourceIssue struct {
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
	Remediation string `json:"remediation,omitempty"`
}

// Input gathers everything one composition needs.
type Input struct {
	ArtifactID   string
	ArtifactType string

	// Run is the terminal status of the rules-engine run, including the
	// report when one was produced.
	Run validation.RunStatus

	StaticIssues   []SourceIssue
	SemanticIssues []SourceIssue

	StaticCheckStatus   validation.ExecutionStatus
	SemanticCheckStatus validation.ExecutionStatus
}

// Document is the composed compliance report.
type Document struct {
	ComplianceScore  float64  `json:"complianceScore"`
	Issues           []Issue  `json:"issues"`
	Recommendations  []string `json:"recommendations"`
	SourceReferences []string `json:"sourceReferences"`
	Summary          string   `json:"summary"`
}

// Compose merges all issue sources into one document. The compliance score
// comes from the engine report verbatim when one exists; otherwise it falls
// back to a penalty model over the merged issues.
func Compose(input Input) *Document {
	issues := mergeIssues(input)

	var score float64
	if input.Run.Report != nil {
		score = input.Run.Report.OverallScore
	} else {
		score = fallbackScore(issues)
	}

	return &Document{
		ComplianceScore:  score,
		Issues:           issues,
		Recommendations:  recommendations(input.ArtifactType, issues),
		SourceReferences: sourceReferences(issues),
		Summary:          summaryText(input, issues, score),
	}
}

// mergeIssues flattens the three sources into one normalized list. Order is
// stable: engine findings first, then static, then semantic.
func mergeIssues(input Input) []Issue {
	var issues []Issue

	if input.Run.Report != nil {
		for _, result := range input.Run.Report.Results {
			if result.Passed {
				continue
			}
			issues = append(issues, Issue{
				ID:          uuid.New().String(),
				Severity:    result.Severity,
				Type:        IssueRulesEngine,
				Description: result.Message,
				Location:    formatLocation(result.Location),
				Remediation: result.SuggestedFix,
				RuleID:      result.RuleID,
				RuleName:    result.RuleName,
			})
		}
	}

	for _, src := range input.StaticIssues {
		issues = append(issues, fromSource(src, IssueStatic))
	}
	for _, src := range input.SemanticIssues {
		issues = append(issues, fromSource(src, IssueSemantic))
	}

	return issues
}

func fromSource(src SourceIssue, kind IssueType) Issue {
	return Issue{
		ID:          uuid.New().String(),
		Severity:    NormalizeSeverity(src.Severity),
		Type:        kind,
		Description: src.Description,
		Location:    src.Location,
		Remediation: src.Remediation,
	}
}

// NormalizeSeverity maps the ad-hoc severity vocabularies of sibling checks
// onto the engine's scale. Unknown values land on low rather than inflating
// the penalty.
func NormalizeSeverity(s string) validation.Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "error":
		return validation.SeverityCritical
	case "high", "warning":
		return validation.SeverityHigh
	case "medium", "info":
		return validation.SeverityMedium
	default:
		return validation.SeverityLow
	}
}

// fallbackScore subtracts a flat penalty per issue from 100, floored at zero.
func fallbackScore(issues []Issue) float64 {
	score := 100.0
	for _, issue := range issues {
		score -= fallbackWeights[issue.Severity]
	}
	if score < 0 {
		return 0
	}
	return math.Round(score*100) / 100
}

func formatLocation(loc *validation.Location) string {
	if loc == nil {
		return ""
	}
	if loc.File == "" {
		return fmt.Sprintf("line %d, column %d", loc.Line, loc.Column)
	}
	return fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Column)
}

// recommendations derives next-step guidance from the merged issues. A clean
// artifact gets the single standards line and nothing else.
func recommendations(artifactType string, issues []Issue) []string {
	if len(issues) == 0 {
		return []string{"Artifact meets current compliance standards."}
	}

	counts := make(map[validation.Severity]int)
	types := make(map[IssueType]bool)
	for _, issue := range issues {
		counts[issue.Severity]++
		types[issue.Type] = true
	}

	var recs []string
	if counts[validation.SeverityCritical] > 0 {
		recs = append(recs, "Address all critical issues before deployment.")
	}
	if counts[validation.SeverityHigh] > 0 {
		recs = append(recs, "Review and resolve high-severity findings.")
	}
	if types[IssueRulesEngine] {
		recs = append(recs, "Resolve compliance rule violations flagged by the rules engine.")
	}
	if types[IssueStatic] {
		recs = append(recs, "Fix static analysis findings reported by the configured linters.")
	}
	if types[IssueSemantic] {
		recs = append(recs, "Review semantic findings for design and correctness concerns.")
	}
	recs = append(recs, artifactTypeRecommendations(artifactType)...)

	return recs
}

// artifactTypeRecommendations adds hardening guidance for artifact types with
// known deployment footguns.
func artifactTypeRecommendations(artifactType string) []string {
	switch strings.ToLower(artifactType) {
	case "dockerfile":
		return []string{"Harden the Dockerfile: pin base image digests, drop root, and minimize installed packages."}
	case "terraform":
		return []string{"Review the Terraform plan output and confirm state changes before applying."}
	case "kubernetes", "k8s":
		return []string{"Set resource limits and a restrictive securityContext on all workloads."}
	default:
		return nil
	}
}

// sourceReferences collects the distinct rules and locations behind the
// issues, so report consumers can trace each finding back.
func sourceReferences(issues []Issue) []string {
	seen := make(map[string]bool)
	var refs []string
	add := func(ref string) {
		if ref == "" || seen[ref] {
			return
		}
		seen[ref] = true
		refs = append(refs, ref)
	}

	for _, issue := range issues {
		if issue.RuleID != "" {
			add("rule:" + issue.RuleID)
		}
		if issue.Location != "" {
			add(issue.Location)
		}
	}

	sort.Strings(refs)
	return refs
}

// summaryText describes the run in prose. The engine execution status is
// always stated explicitly so a degraded validation reads differently from a
// clean pass.
func summaryText(input Input, issues []Issue, score float64) string {
	var b strings.Builder

	switch input.Run.ExecutionStatus {
	case validation.StatusCompleted:
		report := input.Run.Report
		fmt.Fprintf(&b, "Rules engine completed: %d of %d checks passed, compliance score %.2f.",
			report.Summary.Passed, report.Summary.Total, score)
	case validation.StatusSkipped:
		b.WriteString("Rules engine skipped: no applicable rules for this artifact type.")
	case validation.StatusTimeout:
		fmt.Fprintf(&b, "Rules engine timed out after %s; results are incomplete.",
			input.Run.ExecutionTime.Round(timeRounding))
	case validation.StatusFailed:
		b.WriteString("Rules engine failed")
		if input.Run.ErrorDetails != nil {
			fmt.Fprintf(&b, ": %s (after %d retries)",
				input.Run.ErrorDetails.Message, input.Run.ErrorDetails.Retries)
		}
		b.WriteString(".")
	default:
		b.WriteString("Rules engine status unknown.")
	}

	if n := len(issues); n > 0 {
		fmt.Fprintf(&b, " %d issue%s found across all checks.", n, plural(n))
	} else {
		b.WriteString(" No issues found.")
	}

	if input.StaticCheckStatus != "" && input.StaticCheckStatus != validation.StatusCompleted {
		fmt.Fprintf(&b, " Static checks: %s.", input.StaticCheckStatus)
	}
	if input.SemanticCheckStatus != "" && input.SemanticCheckStatus != validation.StatusCompleted {
		fmt.Fprintf(&b, " Semantic checks: %s.", input.SemanticCheckStatus)
	}

	return b.String()
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
