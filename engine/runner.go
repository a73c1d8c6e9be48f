package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/c360studio/artifactguard/events"
	"github.com/c360studio/artifactguard/metrics"
	"github.com/c360studio/artifactguard/validation"
)

// DefaultMaxArtifactSize caps artifact content at 50MB. Oversized artifacts
// fail before the first attempt and are never retried.
const DefaultMaxArtifactSize = 50 * 1024 * 1024

const (
	backoffBase = time.Second
	backoffCap  = 10 * time.Second
)

// Validator is the engine capability the runner wraps.
type Validator interface {
	Validate(ctx context.Context, req validation.Request) (*validation.Report, error)
}

// RunnerConfig bounds one validation run.
type RunnerConfig struct {
	// Timeout is the overall budget for the run. The timer races the engine
	// call; when the timer wins, the run is over regardless of retries left.
	Timeout time.Duration

	// MaxRetries is how many times a retryable failure is reattempted. The
	// total number of attempts is MaxRetries + 1.
	MaxRetries int

	// MaxArtifactSize caps content size in bytes; zero uses the default.
	MaxArtifactSize int
}

// DefaultRunnerConfig returns the standard run limits.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Timeout:         2 * time.Minute,
		MaxRetries:      2,
		MaxArtifactSize: DefaultMaxArtifactSize,
	}
}

// Runner executes one engine invocation under a timeout with bounded,
// sequential retries. It is the only component that surfaces terminal
// errors; everything below it degrades in place.
type Runner struct {
	validator Validator
	config    RunnerConfig
	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher *events.Publisher

	// backoff is swappable so tests don't sleep for real.
	backoff func(attempt int) time.Duration
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithRunnerMetrics enables Prometheus instrumentation.
func WithRunnerMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithPublisher emits a lifecycle event after every run.
func WithPublisher(p *events.Publisher) RunnerOption {
	return func(r *Runner) {
		r.publisher = p
	}
}

// WithBackoff overrides the backoff schedule.
func WithBackoff(backoff func(attempt int) time.Duration) RunnerOption {
	return func(r *Runner) {
		r.backoff = backoff
	}
}

// NewRunner wraps a validator with run limits.
func NewRunner(validator Validator, config RunnerConfig, opts ...RunnerOption) *Runner {
	if config.Timeout <= 0 {
		config.Timeout = DefaultRunnerConfig().Timeout
	}
	if config.MaxArtifactSize <= 0 {
		config.MaxArtifactSize = DefaultMaxArtifactSize
	}

	r := &Runner{
		validator: validator,
		config:    config,
		logger:    slog.Default(),
		backoff:   defaultBackoff,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// defaultBackoff doubles from one second per attempt, capped at ten seconds.
func defaultBackoff(attempt int) time.Duration {
	backoff := backoffBase * (1 << attempt)
	if backoff > backoffCap {
		backoff = backoffCap
	}
	return backoff
}

// attemptResult carries one engine attempt across the timeout race.
type attemptResult struct {
	report *validation.Report
	err    error
}

// Run validates one artifact under the configured limits and always returns
// a terminal status: completed, skipped, failed, or timeout.
func (r *Runner) Run(ctx context.Context, req validation.Request) validation.RunStatus {
	start := time.Now()
	status := r.run(ctx, req, start)

	r.metrics.ObserveValidation(string(status.ExecutionStatus), status.ExecutionTime)
	r.publisher.PublishRun(req.ArtifactID, req.ArtifactType, status)

	return status
}

func (r *Runner) run(ctx context.Context, req validation.Request, start time.Time) validation.RunStatus {
	// Size is checked once, before the first attempt. Never retryable.
	if len(req.Content) > r.config.MaxArtifactSize {
		err := NewError(KindSizeLimit, "artifact exceeds maximum allowed size")
		r.logger.Warn("Artifact rejected",
			"artifact_id", req.ArtifactID,
			"size", len(req.Content),
			"limit", r.config.MaxArtifactSize)
		return r.failed(start, err, 0)
	}

	deadline := time.After(r.config.Timeout)

	var lastErr error
	for attempt := 0; ; attempt++ {
		res, timedOut := r.attempt(ctx, req, deadline)
		report, err := res.report, res.err
		if timedOut {
			r.logger.Warn("Validation timed out",
				"artifact_id", req.ArtifactID,
				"timeout", r.config.Timeout,
				"attempt", attempt+1)
			return validation.RunStatus{
				ExecutionStatus: validation.StatusTimeout,
				ExecutionTime:   time.Since(start),
				ErrorDetails: &validation.ErrorDetails{
					Message:   "validation timed out after " + r.config.Timeout.String(),
					Retries:   attempt,
					Timestamp: time.Now().UTC(),
				},
			}
		}

		if err == nil {
			// An empty report means no rules applied: the run is skipped,
			// not completed, so callers can tell "clean" from "unchecked".
			if len(report.Results) == 0 {
				return validation.RunStatus{
					ExecutionStatus: validation.StatusSkipped,
					ExecutionTime:   time.Since(start),
				}
			}
			return validation.RunStatus{
				ExecutionStatus: validation.StatusCompleted,
				ExecutionTime:   time.Since(start),
				Report:          report,
			}
		}

		lastErr = err
		if !IsRetryable(err) {
			r.logger.Warn("Validation failed with non-retryable error",
				"artifact_id", req.ArtifactID,
				"error", err)
			return r.failed(start, err, attempt)
		}

		if attempt >= r.config.MaxRetries {
			r.logger.Error("Validation failed after exhausting retries",
				"artifact_id", req.ArtifactID,
				"attempts", attempt+1,
				"error", err)
			return r.failed(start, lastErr, attempt)
		}

		wait := r.backoff(attempt + 1)
		r.logger.Info("Retrying validation",
			"artifact_id", req.ArtifactID,
			"attempt", attempt+1,
			"backoff", wait,
			"error", err)
		r.metrics.ObserveRetry()

		select {
		case <-deadline:
			return validation.RunStatus{
				ExecutionStatus: validation.StatusTimeout,
				ExecutionTime:   time.Since(start),
				ErrorDetails: &validation.ErrorDetails{
					Message:   "validation timed out after " + r.config.Timeout.String(),
					Retries:   attempt,
					Timestamp: time.Now().UTC(),
				},
			}
		case <-ctx.Done():
			return r.failed(start, ctx.Err(), attempt)
		case <-time.After(wait):
		}
	}
}

// attempt races one engine call against the run deadline. When the deadline
// wins, the in-flight call is cancelled best-effort and its eventual result
// discarded.
func (r *Runner) attempt(ctx context.Context, req validation.Request, deadline <-chan time.Time) (attemptResult, bool) {
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resultCh := make(chan attemptResult, 1)
	go func() {
		report, err := r.validator.Validate(attemptCtx, req)
		resultCh <- attemptResult{report: report, err: err}
	}()

	select {
	case res := <-resultCh:
		return res, false
	case <-deadline:
		return attemptResult{}, true
	case <-ctx.Done():
		return attemptResult{err: ctx.Err()}, false
	}
}

// failed builds a terminal failure status.
func (r *Runner) failed(start time.Time, err error, retries int) validation.RunStatus {
	return validation.RunStatus{
		ExecutionStatus: validation.StatusFailed,
		ExecutionTime:   time.Since(start),
		ErrorDetails: &validation.ErrorDetails{
			Message:   err.Error(),
			Retries:   retries,
			Timestamp: time.Now().UTC(),
		},
	}
}
