package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/perfstack/perf-gate/internal/config"
	"github.com/perfstack/perf-gate/internal/engine"
	"github.com/perfstack/perf-gate/internal/metrics"
	"github.com/perfstack/perf-gate/internal/models"
	"github.com/perfstack/perf-gate/internal/policy"
	"github.com/perfstack/perf-gate/internal/preprocess"
	"github.com/perfstack/perf-gate/internal/repo"
	"github.com/perfstack/perf-gate/internal/utils"
)

// Exit codes follow the surrounding pipeline convention: PASS/WARN map to 0,
// FAIL to 1, INSUFFICIENT_DATA or errored metrics to 2.
const (
	exitOK           = 0
	exitFail         = 1
	exitInsufficient = 2
)

func main() {
	var (
		configPath  string
		policyPath  string
		service     string
		baseline    string
		candidate   string
		metricNames string
		timeRange   string
	)
	flag.StringVar(&configPath, "config", "", "Path to runtime configuration file")
	flag.StringVar(&policyPath, "policy", "", "Override path to the policy document")
	flag.StringVar(&service, "service", "", "Service name for policy resolution")
	flag.StringVar(&baseline, "baseline", "stable", "Baseline deployment label")
	flag.StringVar(&candidate, "candidate", "canary", "Candidate deployment label")
	flag.StringVar(&metricNames, "metrics", "", "Comma-separated metric names to compare")
	flag.StringVar(&timeRange, "time-range", "", "Override query time range, e.g. 15m")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(exitInsufficient)
	}
	if policyPath != "" {
		cfg.Policy.Path = policyPath
	}
	if service != "" {
		cfg.Policy.Service = service
	}
	if timeRange != "" {
		cfg.Prometheus.TimeRange = timeRange
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting perf-gate",
		slog.String("baseline", baseline),
		slog.String("candidate", candidate),
	)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(exitInsufficient)
	}

	doc, findings, err := policy.Load(cfg.Policy.Path)
	for _, f := range findings {
		attrs := []any{slog.String("field", f.Field), slog.String("message", f.Message)}
		if f.Severity == policy.SeverityError {
			logger.Error("policy validation", attrs...)
		} else {
			logger.Warn("policy validation", attrs...)
		}
	}
	if err != nil {
		logger.Error("failed to load policy document", slog.String("path", cfg.Policy.Path), slog.Any("error", err))
		os.Exit(exitInsufficient)
	}

	names := splitMetrics(metricNames)
	if len(names) == 0 {
		names = policyMetricNames(doc, cfg.Policy.Service)
	}
	if len(names) == 0 {
		logger.Error("no metrics to compare; pass -metrics or list them in the policy document")
		os.Exit(exitInsufficient)
	}

	batch := make([]engine.BatchMetric, 0, len(names))
	for _, name := range names {
		batch = append(batch, engine.BatchMetric{Name: name, TimeRange: cfg.Prometheus.TimeRange})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Metrics.Address != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Metrics.Address,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Metrics.Address))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server exited", slog.Any("error", err))
			}
		}()
	}

	fetcher := repo.NewPromClient(cfg.Prometheus.BaseURL, cfg.Prometheus.LabelKey, cfg.Prometheus.Timeout)
	analyzer := engine.NewAnalyzer(logger, preprocess.DefaultConfig())
	runner := engine.NewBatchRunner(logger, analyzer, fetcher).WithPolicies(doc, cfg.Policy.Service)

	batchOpts := engine.BatchOptions{
		Concurrency:     cfg.Batch.Concurrency,
		RetryCount:      cfg.Batch.RetryCount,
		RetryDelay:      cfg.Batch.RetryDelay,
		ContinueOnError: cfg.Batch.ContinueOnError,
		Progress: func(completed, total int, metric string) {
			logger.Info("metric completed", slog.Int("completed", completed), slog.Int("total", total), slog.String("metric", metric))
		},
	}

	result, runErr := runner.Run(ctx, batch, baseline, candidate, engine.DefaultOptions(""), batchOpts)
	if runErr != nil {
		logger.Error("batch halted", slog.Any("error", runErr))
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsServer.Shutdown(shutdownCtx)
		cancel()
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("failed to encode result", slog.Any("error", err))
		os.Exit(exitInsufficient)
	}
	fmt.Println(string(out))

	os.Exit(exitCode(result, runErr))
}

func exitCode(result models.BatchResult, runErr error) int {
	failed := result.Summary.Failed
	for _, o := range result.Outcomes {
		if o.Policy != nil && o.Policy.Action == policy.ActionFail {
			failed++
		}
	}
	switch {
	case failed > 0:
		return exitFail
	case runErr != nil || result.Summary.Errored > 0:
		return exitInsufficient
	default:
		return exitOK
	}
}

func splitMetrics(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}

// policyMetricNames collects every metric the document names for the service,
// its inheritance chain, and the base level.
func policyMetricNames(doc *policy.Document, service string) []string {
	seen := map[string]bool{}
	var names []string
	add := func(metricSet map[string]*policy.MetricPolicy) {
		for name := range metricSet {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	if service != "" {
		visited := map[string]bool{}
		for name := service; name != "" && !visited[name]; {
			visited[name] = true
			svc := doc.Services[name]
			if svc == nil {
				break
			}
			add(svc.Metrics)
			name = svc.Inherits
		}
	}
	if doc.Base != nil {
		add(doc.Base.Metrics)
	}
	add(doc.Metrics)
	return names
}
