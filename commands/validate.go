package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/c360studio/artifactguard/analyzer"
	"github.com/c360studio/artifactguard/config"
	"github.com/c360studio/artifactguard/engine"
	"github.com/c360studio/artifactguard/events"
	"github.com/c360studio/artifactguard/llm"
	"github.com/c360studio/artifactguard/metrics"
	"github.com/c360studio/artifactguard/report"
	"github.com/c360studio/artifactguard/rule"
	"github.com/c360studio/artifactguard/validation"

	// Register LLM providers via init()
	_ "github.com/c360studio/artifactguard/llm/providers"
)

// typeByExtension maps common file extensions to artifact types.
var typeByExtension = map[string]string{
	".go":   "go",
	".js":   "javascript",
	".ts":   "typescript",
	".py":   "python",
	".tf":   "terraform",
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
	".sh":   "shell",
	".sql":  "sql",
	".md":   "markdown",
}

func validateCmd(configPath *string) *cobra.Command {
	var (
		artifactType string
		timeout      time.Duration
		maxRetries   int
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate an artifact against the configured rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if timeout > 0 {
				cfg.Engine.Timeout = timeout
			}
			if maxRetries >= 0 {
				cfg.Engine.MaxRetries = maxRetries
			}
			return runValidate(cmd.Context(), cfg, args[0], artifactType, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&artifactType, "type", "t", "", "Artifact type (inferred from extension if omitted)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall validation timeout (overrides config)")
	cmd.Flags().IntVar(&maxRetries, "max-retries", -1, "Retries after transient failures (overrides config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the composed report as JSON")

	return cmd
}

func runValidate(ctx context.Context, cfg *config.Config, path, artifactType string, jsonOutput bool) error {
	logger := slog.Default()

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}

	if artifactType == "" {
		artifactType = inferArtifactType(path)
		if artifactType == "" {
			return fmt.Errorf("cannot infer artifact type for %s, pass --type", path)
		}
	}

	store, err := rule.NewFileStore(cfg.Rules.Dir, rule.WithStoreLogger(logger))
	if err != nil {
		return fmt.Errorf("load rules from %s: %w", cfg.Rules.Dir, err)
	}
	defer store.Close()

	if cfg.Rules.Watch {
		if err := store.Watch(); err != nil {
			logger.Warn("Rule watching unavailable", "error", err)
		}
	}

	analyzers := []analyzer.Analyzer{
		analyzer.NewStatic(logger),
		analyzer.NewSecurity(logger),
		analyzer.NewSemantic(buildCompleter(cfg, logger), logger),
	}

	engineOpts := []engine.Option{
		engine.WithWeights(cfg.Weights),
		engine.WithParallel(cfg.Engine.Parallel),
		engine.WithLogger(logger),
	}
	runnerOpts := []engine.RunnerOption{engine.WithRunnerLogger(logger)}

	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		m := metrics.New(registry)
		engineOpts = append(engineOpts, engine.WithMetrics(m))
		runnerOpts = append(runnerOpts, engine.WithRunnerMetrics(m))
		serveMetrics(cfg.Metrics.Addr, registry, logger)
	}

	eng := engine.New(store, analyzers, engineOpts...)
	if cfg.NATS.URL != "" {
		conn, err := nats.Connect(cfg.NATS.URL, nats.Name(appName))
		if err != nil {
			logger.Warn("NATS unavailable, events disabled", "url", cfg.NATS.URL, "error", err)
		} else {
			defer conn.Close()
			runnerOpts = append(runnerOpts,
				engine.WithPublisher(events.NewPublisher(conn, cfg.NATS.Subject, logger)))
		}
	}

	runner := engine.NewRunner(eng, engine.RunnerConfig{
		Timeout:         cfg.Engine.Timeout,
		MaxRetries:      cfg.Engine.MaxRetries,
		MaxArtifactSize: cfg.Engine.MaxArtifactSize,
	}, runnerOpts...)

	req := validation.Request{
		ArtifactID:   filepath.Base(path),
		ArtifactType: artifactType,
		Content:      string(content),
		FilePath:     path,
	}

	status := runner.Run(ctx, req)
	doc := report.Compose(report.Input{
		ArtifactID:   req.ArtifactID,
		ArtifactType: req.ArtifactType,
		Run:          status,
	})

	if jsonOutput {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		fmt.Println(string(data))
	} else {
		fmt.Println(renderDocument(req.ArtifactID, doc))
	}

	// Exit codes surface as an error so deferred cleanup above still runs.
	if status.ExecutionStatus == validation.StatusCompleted && !status.Report.Passed {
		return &ExitError{Code: 1}
	}
	if status.ExecutionStatus == validation.StatusFailed || status.ExecutionStatus == validation.StatusTimeout {
		return &ExitError{Code: 2}
	}
	return nil
}

// buildCompleter wires the semantic analyzer's LLM client from config.
func buildCompleter(cfg *config.Config, logger *slog.Logger) analyzer.Completer {
	httpClient := &http.Client{Timeout: cfg.Model.Timeout}
	return llm.NewClient(llm.Endpoint{
		Provider: cfg.Model.Provider,
		URL:      cfg.Model.Endpoint,
		Model:    cfg.Model.Model,
	}, llm.WithLogger(logger), llm.WithHTTPClient(httpClient))
}

// serveMetrics exposes the collectors for the lifetime of the process. Scrape
// failures after exit are the scraper's problem; the run never waits on it.
func serveMetrics(addr string, registry *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn("Metrics endpoint unavailable", "addr", addr, "error", err)
		}
	}()
}

func inferArtifactType(path string) string {
	base := strings.ToLower(filepath.Base(path))
	if base == "dockerfile" || strings.HasPrefix(base, "dockerfile.") {
		return "dockerfile"
	}
	return typeByExtension[filepath.Ext(base)]
}
