package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/c360studio/artifactguard/rule"
	"github.com/c360studio/artifactguard/validation"
)

// defaultToolTimeout bounds one external tool invocation when the rule does
// not declare its own. Independent of the runner's outer timeout.
const defaultToolTimeout = 60 * time.Second

// Static evaluates static-analysis rules: external linter tools invoked as
// subprocesses, and in-process tree-sitter syntax checks.
type Static struct {
	logger *slog.Logger
}

// NewStatic creates the static analyzer.
func NewStatic(logger *slog.Logger) *Static {
	if logger == nil {
		logger = slog.Default()
	}
	return &Static{logger: logger}
}

// Family returns the rule type this analyzer evaluates.
func (s *Static) Family() rule.Type {
	return rule.TypeStatic
}

// Analyze evaluates every static rule against the artifact. Rules run
// sequentially; one rule's failure degrades to a failed result without
// touching its siblings.
func (s *Static) Analyze(ctx context.Context, req validation.Request, rules []rule.Definition) []validation.Result {
	var results []validation.Result

	for _, def := range rules {
		if ctx.Err() != nil {
			results = append(results, executionError(def, "static analysis cancelled: "+ctx.Err().Error()))
			continue
		}
		if def.Static == nil {
			results = append(results, executionError(def, "rule has no static configuration"))
			continue
		}

		if def.Static.SyntaxCheck {
			results = append(results, s.syntaxCheck(ctx, def, req))
			continue
		}
		results = append(results, s.runTool(ctx, def, req)...)
	}

	return results
}

// toolOutput is the machine-readable contract external tools must emit on
// stdout.
type toolOutput struct {
	Issues []toolIssue `json:"issues"`
}

type toolIssue struct {
	Message      string `json:"message"`
	Line         int    `json:"line"`
	Column       int    `json:"column"`
	Severity     string `json:"severity"`
	SuggestedFix string `json:"suggested_fix"`
}

// runTool materializes the artifact to a temp file, invokes the configured
// tool with the file path appended, and parses its JSON output. A non-zero
// exit with well-formed output is findings; a crash or malformed output is
// an execution error.
func (s *Static) runTool(ctx context.Context, def rule.Definition, req validation.Request) []validation.Result {
	args := splitCommand(def.Static.Tool)
	if len(args) == 0 {
		return []validation.Result{executionError(def, "empty tool command")}
	}

	path, cleanup, err := materialize(req)
	if err != nil {
		return []validation.Result{executionError(def, "materialize artifact: "+err.Error())}
	}
	defer cleanup()

	timeout := defaultToolTimeout
	if def.Static.Timeout != "" {
		if d, err := time.ParseDuration(def.Static.Timeout); err == nil {
			timeout = d
		}
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, args[0], append(args[1:], path)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if cmdCtx.Err() == context.DeadlineExceeded {
		return []validation.Result{executionError(def,
			fmt.Sprintf("tool %s timed out after %s", args[0], timeout))}
	}

	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); !ok {
			// Tool could not be started at all.
			return []validation.Result{executionError(def,
				fmt.Sprintf("tool %s failed to run: %v", args[0], runErr))}
		}
	}

	var out toolOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return []validation.Result{executionError(def,
			fmt.Sprintf("tool %s produced malformed output: %s", args[0], msg))}
	}

	s.logger.Debug("Static tool finished",
		"rule", def.ID,
		"tool", args[0],
		"issues", len(out.Issues),
		"duration", elapsed)

	if len(out.Issues) == 0 {
		return []validation.Result{passedResult(def, "no static issues found")}
	}

	results := make([]validation.Result, 0, len(out.Issues))
	for _, issue := range out.Issues {
		severity := def.Severity
		if issue.Severity != "" {
			severity = validation.ParseSeverity(issue.Severity)
		}
		results = append(results, validation.Result{
			RuleID:   def.ID,
			RuleName: def.Name,
			Passed:   false,
			Severity: severity,
			Message:  issue.Message,
			Location: &validation.Location{
				File:   req.FilePath,
				Line:   issue.Line,
				Column: issue.Column,
			},
			SuggestedFix: issue.SuggestedFix,
		})
	}
	return results
}

// syntaxLanguages maps artifact types to tree-sitter grammars.
func syntaxLanguage(artifactType string) *sitter.Language {
	switch artifactType {
	case "go":
		return golang.GetLanguage()
	case "javascript", "js":
		return javascript.GetLanguage()
	case "python", "py":
		return python.GetLanguage()
	default:
		return nil
	}
}

// syntaxCheck parses the artifact with tree-sitter and fails the rule when
// the parse tree contains errors. Artifact types without a grammar pass with
// a note rather than failing: absence of a parser is not a finding.
func (s *Static) syntaxCheck(ctx context.Context, def rule.Definition, req validation.Request) validation.Result {
	lang := syntaxLanguage(req.ArtifactType)
	if lang == nil {
		return passedResult(def, fmt.Sprintf("no syntax grammar for artifact type %q, check skipped", req.ArtifactType))
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, []byte(req.Content))
	if err != nil {
		return executionError(def, "syntax parse failed: "+err.Error())
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		node := firstErrorNode(root)
		result := validation.Result{
			RuleID:   def.ID,
			RuleName: def.Name,
			Passed:   false,
			Severity: def.Severity,
			Message:  fmt.Sprintf("%s artifact does not parse", req.ArtifactType),
		}
		if node != nil {
			result.Location = &validation.Location{
				File:   req.FilePath,
				Line:   int(node.StartPoint().Row) + 1,
				Column: int(node.StartPoint().Column) + 1,
			}
		}
		return result
	}

	return passedResult(def, "artifact parses cleanly")
}

// firstErrorNode walks the tree for the first ERROR node to attach a
// location to the finding.
func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node.Type() == "ERROR" || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil || !child.HasError() {
			continue
		}
		if found := firstErrorNode(child); found != nil {
			return found
		}
	}
	return nil
}

// materialize writes the artifact content to a temp file for tools that
// operate on paths. The cleanup function removes the file.
func materialize(req validation.Request) (string, func(), error) {
	dir, err := os.MkdirTemp("", "artifactguard-*")
	if err != nil {
		return "", nil, err
	}

	name := "artifact"
	if req.FilePath != "" {
		name = filepath.Base(req.FilePath)
	}
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, []byte(req.Content), 0o600); err != nil {
		os.RemoveAll(dir)
		return "", nil, err
	}
	return path, func() { os.RemoveAll(dir) }, nil
}

// splitCommand tokenizes a command string on whitespace, preserving single-
// and double-quoted tokens. No shell is involved, which keeps rule-supplied
// commands free of shell injection.
func splitCommand(cmd string) []string {
	var tokens []string
	var current strings.Builder
	inSingle := false
	inDouble := false

	for _, r := range cmd {
		switch {
		case r == '\'' && !inDouble:
			inSingle = !inSingle
		case r == '"' && !inSingle:
			inDouble = !inDouble
		case unicode.IsSpace(r) && !inSingle && !inDouble:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}
