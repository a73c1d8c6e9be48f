package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/c360studio/artifactguard/llm"
	"github.com/c360studio/artifactguard/rule"
	"github.com/c360studio/artifactguard/validation"
)

// Completer is the subset of the LLM client the semantic analyzer needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// semanticSystemPrompt pins the response contract. The model's output is
// untrusted; anything that doesn't match the contract is an execution error.
const semanticSystemPrompt = `You are a code compliance reviewer. Respond with a single JSON object:
{"issues":[{"rule_id":"...","rule_name":"...","severity":"low|medium|high|critical","message":"...","line":1,"suggested_fix":"...","confidence":0.0}]}
Report an empty issues list when the artifact complies. Do not include any other text.`

// Semantic evaluates semantic rules by prompting an LLM with rule-supplied
// templates and parsing a strict JSON issue contract from the response.
type Semantic struct {
	completer Completer
	logger    *slog.Logger
}

// NewSemantic creates the semantic analyzer around an LLM completer.
func NewSemantic(completer Completer, logger *slog.Logger) *Semantic {
	if logger == nil {
		logger = slog.Default()
	}
	return &Semantic{completer: completer, logger: logger}
}

// Family returns the rule type this analyzer evaluates.
func (s *Semantic) Family() rule.Type {
	return rule.TypeSemantic
}

// Analyze evaluates every semantic rule against the artifact. Each rule is
// one LLM call; call or parse failures degrade to a single failed result for
// that rule.
func (s *Semantic) Analyze(ctx context.Context, req validation.Request, rules []rule.Definition) []validation.Result {
	var results []validation.Result

	for _, def := range rules {
		if ctx.Err() != nil {
			results = append(results, executionError(def, "semantic review cancelled: "+ctx.Err().Error()))
			continue
		}
		if def.Semantic == nil {
			results = append(results, executionError(def, "rule has no semantic configuration"))
			continue
		}
		results = append(results, s.reviewRule(ctx, def, req)...)
	}

	return results
}

// reviewedIssue is the per-issue shape of the LLM response contract.
type reviewedIssue struct {
	RuleID       string  `json:"rule_id"`
	RuleName     string  `json:"rule_name"`
	Severity     string  `json:"severity"`
	Message      string  `json:"message"`
	Line         int     `json:"line"`
	SuggestedFix string  `json:"suggested_fix"`
	Confidence   float64 `json:"confidence"`
}

type reviewResponse struct {
	Issues []reviewedIssue `json:"issues"`
}

// reviewRule runs one semantic rule: build the prompt, call the model, parse
// and filter the response.
func (s *Semantic) reviewRule(ctx context.Context, def rule.Definition, req validation.Request) []validation.Result {
	prompt := renderTemplate(def.Semantic.PromptTemplate, req)
	temperature := def.Semantic.Temperature

	resp, err := s.completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: semanticSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: &temperature,
		MaxTokens:   def.Semantic.MaxTokens,
	})
	if err != nil {
		return []validation.Result{executionError(def, "semantic review call failed: "+err.Error())}
	}

	parsed, err := parseReview(resp.Content)
	if err != nil {
		return []validation.Result{executionError(def, "semantic review returned invalid response: "+err.Error())}
	}

	var results []validation.Result
	dropped := 0
	for _, issue := range parsed.Issues {
		if issue.Confidence < def.Semantic.ConfidenceThreshold {
			dropped++
			continue
		}

		severity := def.Severity
		if issue.Severity != "" {
			severity = validation.ParseSeverity(issue.Severity)
		}

		result := validation.Result{
			RuleID:       def.ID,
			RuleName:     def.Name,
			Passed:       false,
			Severity:     severity,
			Message:      issue.Message,
			SuggestedFix: issue.SuggestedFix,
			Details:      fmt.Sprintf("confidence %.2f", issue.Confidence),
		}
		if issue.Line > 0 {
			result.Location = &validation.Location{File: req.FilePath, Line: issue.Line}
		}
		results = append(results, result)
	}

	if dropped > 0 {
		s.logger.Debug("Dropped low-confidence issues",
			"rule", def.ID,
			"dropped", dropped,
			"threshold", def.Semantic.ConfidenceThreshold)
	}

	if len(results) == 0 {
		return []validation.Result{passedResult(def, "semantic review found no issues")}
	}
	return results
}

// parseReview extracts and validates the JSON issue contract from a model
// response.
func parseReview(content string) (*reviewResponse, error) {
	extracted := llm.ExtractJSON(content)
	if extracted == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var parsed reviewResponse
	if err := json.Unmarshal([]byte(extracted), &parsed); err != nil {
		return nil, fmt.Errorf("decode issues: %w", err)
	}

	for i, issue := range parsed.Issues {
		if issue.Message == "" {
			return nil, fmt.Errorf("issue %d has no message", i)
		}
		if issue.Confidence < 0 || issue.Confidence > 1 {
			return nil, fmt.Errorf("issue %d has confidence %v outside [0,1]", i, issue.Confidence)
		}
	}
	return &parsed, nil
}

// renderTemplate substitutes request fields into a rule prompt template.
// Metadata is rendered as sorted key=value pairs for prompt stability.
func renderTemplate(template string, req validation.Request) string {
	metadata := make([]string, 0, len(req.Metadata))
	for k, v := range req.Metadata {
		metadata = append(metadata, k+"="+v)
	}
	sort.Strings(metadata)

	replacer := strings.NewReplacer(
		"{artifact_type}", req.ArtifactType,
		"{file_path}", req.FilePath,
		"{metadata}", strings.Join(metadata, ", "),
		"{content}", req.Content,
	)
	return replacer.Replace(template)
}
