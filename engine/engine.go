// Package engine orchestrates artifact validation: it resolves applicable
// rules, fans work out to the analyzer families, and assembles a scored
// report. The runner in this package wraps one engine invocation with a
// timeout and bounded retries.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c360studio/artifactguard/analyzer"
	"github.com/c360studio/artifactguard/metrics"
	"github.com/c360studio/artifactguard/rule"
	"github.com/c360studio/artifactguard/validation"
)

// Engine resolves rules and runs analyzers against one artifact at a time.
// All collaborators are injected; the engine owns no long-lived state.
type Engine struct {
	store     rule.Store
	analyzers map[rule.Type]analyzer.Analyzer
	weights   validation.SeverityWeights
	parallel  bool
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithWeights overrides the default severity weights.
func WithWeights(w validation.SeverityWeights) Option {
	return func(e *Engine) {
		e.weights = w
	}
}

// WithParallel runs analyzer families concurrently.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.parallel = parallel
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an engine over a rule store and a set of analyzers.
func New(store rule.Store, analyzers []analyzer.Analyzer, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		analyzers: make(map[rule.Type]analyzer.Analyzer, len(analyzers)),
		weights:   validation.DefaultWeights(),
		logger:    slog.Default(),
	}
	for _, a := range analyzers {
		e.analyzers[a.Family()] = a
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate runs every applicable rule against the artifact and returns a
// scored report. Internal failures degrade into synthetic results so a
// report is always produced; the only errors returned are non-retryable
// request rejections (invalid artifact, broken rule config) for the runner
// to classify.
func (e *Engine) Validate(ctx context.Context, req validation.Request) (*validation.Report, error) {
	start := time.Now()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	applicable, err := e.ApplicableRules(ctx, req.ArtifactType)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) && verr.Kind == KindInvalidRuleConfig {
			return nil, verr
		}
		// Store trouble degrades to a synthetic finding; "we could not
		// evaluate policy" must never look like a clean pass.
		e.logger.Error("Rule resolution failed", "artifact_id", req.ArtifactID, "error", err)
		results := []validation.Result{engineErrorResult(err)}
		return validation.NewReport(req.ArtifactID, results, e.weights, time.Since(start)), nil
	}

	if len(applicable) == 0 {
		e.logger.Info("No applicable rules for artifact type",
			"artifact_id", req.ArtifactID,
			"artifact_type", req.ArtifactType)
		return validation.NewReport(req.ArtifactID, nil, e.weights, time.Since(start)), nil
	}

	buckets := partition(applicable)
	results := e.runFamilies(ctx, req, buckets)

	report := validation.NewReport(req.ArtifactID, results, e.weights, time.Since(start))

	e.logger.Info("Validation finished",
		"artifact_id", req.ArtifactID,
		"rules", len(applicable),
		"results", len(results),
		"score", report.OverallScore,
		"passed", report.Passed)

	return report, nil
}

// ApplicableRules returns the enabled rules whose applicability lists match
// the artifact type. Broken rule configurations are rejected here, before
// any analyzer runs.
func (e *Engine) ApplicableRules(ctx context.Context, artifactType string) ([]rule.Definition, error) {
	enabled, err := e.store.EnabledRules(ctx)
	if err != nil {
		return nil, WrapError(KindTransient, "rule store unavailable", err)
	}

	var applicable []rule.Definition
	for _, def := range enabled {
		if !def.AppliesTo(artifactType) {
			continue
		}
		if err := def.Validate(); err != nil {
			return nil, WrapError(KindInvalidRuleConfig, "invalid rule configuration", err)
		}
		applicable = append(applicable, def)
	}
	return applicable, nil
}

// partition splits rules into per-family buckets.
func partition(rules []rule.Definition) map[rule.Type][]rule.Definition {
	buckets := make(map[rule.Type][]rule.Definition)
	for _, def := range rules {
		buckets[def.Type] = append(buckets[def.Type], def)
	}
	return buckets
}

// runFamilies dispatches each non-empty bucket to its analyzer, sequentially
// or in parallel. Families only meet at the final concatenation; a panic or
// missing analyzer in one family becomes a synthetic result and leaves the
// others untouched.
func (e *Engine) runFamilies(ctx context.Context, req validation.Request, buckets map[rule.Type][]rule.Definition) []validation.Result {
	// Fixed dispatch order keeps sequential runs and report output stable.
	order := []rule.Type{rule.TypeStatic, rule.TypeSecurity, rule.TypeSemantic}

	if !e.parallel {
		var results []validation.Result
		for _, family := range order {
			if len(buckets[family]) == 0 {
				continue
			}
			results = append(results, e.runFamily(ctx, family, req, buckets[family])...)
		}
		return results
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []validation.Result
	)
	for _, family := range order {
		defs := buckets[family]
		if len(defs) == 0 {
			continue
		}
		wg.Add(1)
		go func(family rule.Type, defs []rule.Definition) {
			defer wg.Done()
			familyResults := e.runFamily(ctx, family, req, defs)
			mu.Lock()
			results = append(results, familyResults...)
			mu.Unlock()
		}(family, defs)
	}
	wg.Wait()
	return results
}

// runFamily invokes one analyzer family, converting panics and missing
// analyzers into a single synthetic error result.
func (e *Engine) runFamily(ctx context.Context, family rule.Type, req validation.Request, defs []rule.Definition) (results []validation.Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Analyzer panicked",
				"family", family,
				"artifact_id", req.ArtifactID,
				"panic", r)
			e.metrics.ObserveAnalyzer(string(family), "panic")
			results = []validation.Result{familyErrorResult(family, fmt.Sprintf("analyzer panic: %v", r))}
		}
	}()

	a, ok := e.analyzers[family]
	if !ok {
		e.metrics.ObserveAnalyzer(string(family), "missing")
		return []validation.Result{familyErrorResult(family,
			fmt.Sprintf("no analyzer registered for %s rules", family))}
	}

	results = a.Analyze(ctx, req, defs)
	e.metrics.ObserveAnalyzer(string(family), "completed")
	return results
}

// validateRequest rejects unusable requests with classified errors.
func validateRequest(req validation.Request) error {
	if req.ArtifactID == "" {
		return NewError(KindInvalidArtifact, "artifact_id is required")
	}
	if req.ArtifactType == "" {
		return NewError(KindInvalidArtifact, "invalid artifact type: empty")
	}
	if req.Content == "" {
		return NewError(KindInvalidArtifact, "artifact content is empty")
	}
	return nil
}

// engineErrorResult is the synthetic finding for rule-resolution failures.
func engineErrorResult(err error) validation.Result {
	return validation.Result{
		RuleID:   "validation-engine-error",
		RuleName: "Validation engine error",
		Passed:   false,
		Severity: validation.SeverityHigh,
		Message:  "rule resolution failed: " + err.Error(),
		Details:  "engine execution error",
	}
}

// familyErrorResult is the synthetic finding for a whole-family failure.
func familyErrorResult(family rule.Type, msg string) validation.Result {
	return validation.Result{
		RuleID:   string(family) + "-analyzer-error",
		RuleName: string(family) + " analyzer error",
		Passed:   false,
		Severity: validation.SeverityHigh,
		Message:  msg,
		Details:  "analyzer execution error",
	}
}
