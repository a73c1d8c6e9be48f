package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/c360studio/artifactguard/rule"
	"github.com/c360studio/artifactguard/validation"
)

// previewLimit caps how much of a matched secret appears in a finding.
// The full match never leaves the analyzer.
const previewLimit = 50

// Security scans artifact content line by line against the regex patterns
// configured on security rules.
type Security struct {
	logger *slog.Logger
}

// NewSecurity creates the security pattern analyzer.
func NewSecurity(logger *slog.Logger) *Security {
	if logger == nil {
		logger = slog.Default()
	}
	return &Security{logger: logger}
}

// Family returns the rule type this analyzer evaluates.
func (s *Security) Family() rule.Type {
	return rule.TypeSecurity
}

// Analyze evaluates every security rule against the artifact. Each pattern
// match produces one failed result with a 1-indexed location and a truncated
// preview of the match. A rule with no matches produces one passing result.
func (s *Security) Analyze(ctx context.Context, req validation.Request, rules []rule.Definition) []validation.Result {
	var results []validation.Result
	lines := strings.Split(req.Content, "\n")

	for _, def := range rules {
		if ctx.Err() != nil {
			results = append(results, executionError(def, "security scan cancelled: "+ctx.Err().Error()))
			continue
		}
		if def.Security == nil {
			results = append(results, executionError(def, "rule has no security configuration"))
			continue
		}
		results = append(results, s.scanRule(def, lines, req.FilePath)...)
	}

	return results
}

// scanRule runs one rule's patterns over the artifact lines.
func (s *Security) scanRule(def rule.Definition, lines []string, filePath string) []validation.Result {
	var findings []validation.Result

	for _, pattern := range def.Security.Patterns {
		re, err := regexp.Compile(pattern.Regex)
		if err != nil {
			// Load-time validation should have caught this; degrade anyway.
			findings = append(findings, executionError(def,
				fmt.Sprintf("pattern %s does not compile: %v", pattern.Name, err)))
			continue
		}

		severity := def.Severity
		if pattern.Severity != "" {
			severity = pattern.Severity
		}

		for lineNo, line := range lines {
			for _, loc := range re.FindAllStringIndex(line, -1) {
				findings = append(findings, validation.Result{
					RuleID:   def.ID,
					RuleName: def.Name,
					Passed:   false,
					Severity: severity,
					Message: fmt.Sprintf("pattern %s matched: %s",
						pattern.Name, truncateMatch(line[loc[0]:loc[1]])),
					Location: &validation.Location{
						File:   filePath,
						Line:   lineNo + 1,
						Column: loc[0] + 1,
					},
					Details: "security pattern match",
				})
			}
		}
	}

	if len(findings) == 0 {
		return []validation.Result{passedResult(def, "no security patterns matched")}
	}

	s.logger.Debug("Security rule matched",
		"rule", def.ID,
		"findings", len(findings))

	return findings
}

// truncateMatch shortens a matched string for safe inclusion in a finding.
func truncateMatch(match string) string {
	if len(match) <= previewLimit {
		return match
	}
	return match[:previewLimit] + "..."
}
