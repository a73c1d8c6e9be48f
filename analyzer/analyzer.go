// Package analyzer implements the three analyzer families that evaluate
// rules against artifacts: static (external tools and syntax checks),
// security (pattern scanning), and semantic (LLM review).
//
// Analyzers never return errors. Execution failures degrade into synthetic
// failed results so one broken tool or endpoint cannot abort a validation.
package analyzer

import (
	"context"

	"github.com/c360studio/artifactguard/rule"
	"github.com/c360studio/artifactguard/validation"
)

// Analyzer evaluates a subset of rules against one artifact.
type Analyzer interface {
	// Family returns the rule type this analyzer evaluates.
	Family() rule.Type

	// Analyze runs the given rules against the artifact. The returned slice
	// may be empty but the call never fails: per-rule execution errors are
	// reported as failed results.
	Analyze(ctx context.Context, req validation.Request, rules []rule.Definition) []validation.Result
}

// executionError builds the synthetic result emitted when a rule could not
// be evaluated. Severity is at least medium so broken tooling is never
// silently scored as a pass.
func executionError(def rule.Definition, msg string) validation.Result {
	severity := validation.SeverityMedium
	if def.Severity == validation.SeverityHigh || def.Severity == validation.SeverityCritical {
		severity = def.Severity
	}
	return validation.Result{
		RuleID:   def.ID,
		RuleName: def.Name,
		Passed:   false,
		Severity: severity,
		Message:  msg,
		Details:  "rule execution error",
	}
}

// passedResult builds the single passing result a rule emits when it found
// nothing wrong.
func passedResult(def rule.Definition, msg string) validation.Result {
	return validation.Result{
		RuleID:   def.ID,
		RuleName: def.Name,
		Passed:   true,
		Severity: def.Severity,
		Message:  msg,
	}
}
