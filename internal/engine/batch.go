package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/perfstack/perf-gate/internal/metrics"
	"github.com/perfstack/perf-gate/internal/models"
	"github.com/perfstack/perf-gate/internal/policy"
	"github.com/perfstack/perf-gate/internal/repo"
	"github.com/perfstack/perf-gate/internal/utils"
)

// BatchMetric describes one metric to compare in a batch run.
type BatchMetric struct {
	Name        string
	LabelFilter string
	Threshold   *float64
	TimeRange   string
}

// selector folds the optional label filter into the fetch expression.
func (m BatchMetric) selector() string {
	if m.LabelFilter == "" {
		return m.Name
	}
	return fmt.Sprintf("%s{%s}", m.Name, m.LabelFilter)
}

// ProgressFunc observes metric completion. It is called after each metric
// finishes (success or error) with a monotonically increasing completed
// count; interleaving across workers is otherwise unspecified.
type ProgressFunc func(completed, total int, metric string)

// BatchOptions tunes batch execution.
type BatchOptions struct {
	Concurrency     int
	RetryCount      int
	RetryDelay      time.Duration
	ContinueOnError bool
	Progress        ProgressFunc
}

// DefaultBatchOptions returns the standard batch tuning: five workers, two
// extra attempts per metric with linear backoff, and partial failure allowed.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		Concurrency:     5,
		RetryCount:      2,
		RetryDelay:      time.Second,
		ContinueOnError: true,
	}
}

// BatchRunner orchestrates the full pipeline across many metrics with a
// bounded worker pool. Per-metric computations share no mutable state; the
// result map is written under one mutex.
type BatchRunner struct {
	logger    *slog.Logger
	analyzer  *Analyzer
	fetcher   repo.MetricFetcher
	policies  *policy.Document
	service   string
	latencies *utils.LatencyTracker
}

// NewBatchRunner constructs a batch runner around an analyzer and a fetcher.
func NewBatchRunner(logger *slog.Logger, analyzer *Analyzer, fetcher repo.MetricFetcher) *BatchRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchRunner{
		logger:    logger,
		analyzer:  analyzer,
		fetcher:   fetcher,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// WithPolicies attaches a resolved policy document; each metric's result is
// then evaluated against its effective policy for the named service.
func (r *BatchRunner) WithPolicies(doc *policy.Document, service string) *BatchRunner {
	r.policies = doc
	r.service = service
	return r
}

// Run compares every metric between the two deployment labels and returns
// the aggregate. With ContinueOnError set, one metric exhausting its retries
// only marks that metric; otherwise the first exhausted failure halts the
// batch and already-captured results are returned alongside the error.
// Cancelling ctx stops dispatching queued metrics; in-flight ones finish.
func (r *BatchRunner) Run(ctx context.Context, batch []BatchMetric, baselineLabel, candidateLabel string, opts Options, batchOpts BatchOptions) (models.BatchResult, error) {
	start := time.Now()
	batchOpts = withBatchDefaults(batchOpts)

	result := models.BatchResult{
		RunID:    uuid.NewString(),
		Outcomes: make(map[string]models.MetricOutcome, len(batch)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchOpts.Concurrency)

	var mu sync.Mutex
	completed := 0
	total := len(batch)

	for _, m := range batch {
		if gctx.Err() != nil {
			break
		}
		m := m
		g.Go(func() error {
			outcome := r.analyzeOne(gctx, m, baselineLabel, candidateLabel, opts, batchOpts)

			mu.Lock()
			result.Outcomes[m.Name] = outcome
			completed++
			if batchOpts.Progress != nil {
				batchOpts.Progress(completed, total, m.Name)
			}
			mu.Unlock()

			if outcome.Err != nil {
				r.logger.Warn("metric failed", slog.String("metric", m.Name), slog.Any("error", outcome.Err))
				if !batchOpts.ContinueOnError {
					return outcome.Err
				}
			}
			return nil
		})
	}

	err := g.Wait()

	result.Summary = summarize(result.Outcomes)
	result.Elapsed = time.Since(start)
	metrics.ObserveBatch(result.Elapsed)

	r.logger.Info("batch finished",
		slog.String("run_id", result.RunID),
		slog.Int("total", result.Summary.Total),
		slog.Int("failed", result.Summary.Failed),
		slog.Int("errored", result.Summary.Errored),
		slog.Duration("elapsed", result.Elapsed),
		slog.Duration("p95", r.latencies.Percentile(95)),
	)

	return result, err
}

// analyzeOne runs fetch+compute for a metric with linear retry backoff.
func (r *BatchRunner) analyzeOne(ctx context.Context, m BatchMetric, baselineLabel, candidateLabel string, opts Options, batchOpts BatchOptions) models.MetricOutcome {
	opts.Metric = m.Name
	opts.BaselineLabel = baselineLabel
	opts.CandidateLabel = candidateLabel
	if m.Threshold != nil {
		opts.Threshold = *m.Threshold
	}

	started := time.Now()
	var lastErr error
	for attempt := 0; attempt <= batchOpts.RetryCount; attempt++ {
		if attempt > 0 {
			metrics.CountFetchRetry()
			select {
			case <-ctx.Done():
				return models.MetricOutcome{Err: ctx.Err()}
			case <-time.After(batchOpts.RetryDelay * time.Duration(attempt)):
			}
		}

		baseline, err := r.fetcher.Fetch(ctx, m.selector(), baselineLabel, m.TimeRange)
		if err != nil {
			lastErr = err
			continue
		}
		candidate, err := r.fetcher.Fetch(ctx, m.selector(), candidateLabel, m.TimeRange)
		if err != nil {
			lastErr = err
			continue
		}

		res := r.analyzer.Run(opts, baseline, candidate)
		elapsed := time.Since(started)
		r.latencies.Observe(elapsed)
		metrics.ObserveAnalysis(elapsed, string(res.Verdict))

		outcome := models.MetricOutcome{Result: &res}
		if r.policies != nil {
			pol, perr := policy.Resolve(r.policies, r.service, m.Name)
			if perr != nil {
				r.logger.Warn("policy resolution failed", slog.String("metric", m.Name), slog.Any("error", perr))
			} else {
				eval := policy.EvaluateRegression(m.Name, res.ChangePercent, res.PValue, res.EffectSize, res.Significant, pol)
				outcome.Policy = &eval
			}
		}
		return outcome
	}

	return models.MetricOutcome{Err: lastErr}
}

// summarize derives counts purely from the final per-metric outcomes.
// INSUFFICIENT_DATA lands in the errored bucket, never in pass/warn/fail.
func summarize(outcomes map[string]models.MetricOutcome) models.BatchSummary {
	summary := models.BatchSummary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			summary.Errored++
		case o.Result.Verdict == models.VerdictPass:
			summary.Passed++
		case o.Result.Verdict == models.VerdictFail:
			summary.Failed++
		case o.Result.Verdict == models.VerdictWarn:
			summary.Warned++
		default:
			summary.Errored++
		}
	}
	return summary
}

func withBatchDefaults(opts BatchOptions) BatchOptions {
	def := DefaultBatchOptions()
	if opts.Concurrency <= 0 {
		opts.Concurrency = def.Concurrency
	}
	if opts.RetryCount < 0 {
		opts.RetryCount = def.RetryCount
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = def.RetryDelay
	}
	return opts
}
