package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/perfstack/perf-gate/internal/models"
	"github.com/perfstack/perf-gate/internal/preprocess"
	"github.com/perfstack/perf-gate/internal/stats"
)

// Options configures a single metric comparison.
type Options struct {
	Metric              string
	BaselineLabel       string
	CandidateLabel      string
	Threshold           float64
	PValue              float64
	EffectSizeThreshold float64
	MinSamples          int
}

// DefaultOptions returns comparison options with the standard gate defaults.
func DefaultOptions(metric string) Options {
	return Options{
		Metric:              metric,
		Threshold:           10,
		PValue:              0.05,
		EffectSizeThreshold: 0.5,
		MinSamples:          30,
	}
}

// Analyzer runs the preprocessing, statistics, and decision stages for one
// metric pair. It is stateless apart from its configuration and safe for
// concurrent use.
type Analyzer struct {
	logger *slog.Logger
	pre    preprocess.Config
}

// NewAnalyzer constructs an analyzer. A nil logger falls back to the default.
func NewAnalyzer(logger *slog.Logger, pre preprocess.Config) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{logger: logger, pre: pre}
}

// RunRegression compares two raw sample sequences with the default
// preprocessing configuration.
func RunRegression(opts Options, baseline, candidate []float64) models.RegressionResult {
	return NewAnalyzer(nil, preprocess.DefaultConfig()).Run(opts, baseline, candidate)
}

// Run executes the full single-metric pipeline. Samples below the minimum
// count short-circuit to INSUFFICIENT_DATA before any cleaning or statistics
// run. Degenerate inputs produce extreme statistics, never a panic.
func (a *Analyzer) Run(opts Options, baseline, candidate []float64) models.RegressionResult {
	opts = withDefaults(opts)
	result := models.RegressionResult{Metric: opts.Metric}

	if len(baseline) < opts.MinSamples || len(candidate) < opts.MinSamples {
		result.Verdict = models.VerdictInsufficientData
		result.Baseline = models.SampleStats{SampleCount: len(baseline)}
		result.Candidate = models.SampleStats{SampleCount: len(candidate)}
		result.Detail = fmt.Sprintf("insufficient samples: baseline=%d candidate=%d, required=%d",
			len(baseline), len(candidate), opts.MinSamples)
		return result
	}

	basePre := preprocess.Run(baseline, a.pre)
	candPre := preprocess.Run(candidate, a.pre)

	if len(basePre.Data) == 0 || len(candPre.Data) == 0 {
		result.Verdict = models.VerdictInsufficientData
		result.Baseline = models.SampleStats{SampleCount: len(basePre.Data)}
		result.Candidate = models.SampleStats{SampleCount: len(candPre.Data)}
		result.Detail = "no usable samples after preprocessing"
		return result
	}

	change := stats.ChangePercent(basePre.Data, candPre.Data)
	kind := stats.SelectTest(basePre.Data, candPre.Data)
	test := stats.Run(kind, basePre.Data, candPre.Data)
	effect := stats.CohensD(basePre.Data, candPre.Data)

	decision := Decide(change, test.PValue, effect, Thresholds{
		ChangePercent: opts.Threshold,
		PValue:        opts.PValue,
		EffectSize:    opts.EffectSizeThreshold,
	})

	a.logger.Debug("metric compared",
		slog.String("metric", opts.Metric),
		slog.String("test", string(kind)),
		slog.Float64("change_percent", change),
		slog.Float64("p_value", test.PValue),
		slog.Float64("effect_size", effect),
		slog.String("verdict", string(decision.Verdict)),
	)

	result.Baseline = models.SampleStats{Mean: stats.Mean(basePre.Data), SampleCount: len(basePre.Data)}
	result.Candidate = models.SampleStats{Mean: stats.Mean(candPre.Data), SampleCount: len(candPre.Data)}
	result.ChangePercent = change
	result.PValue = test.PValue
	result.EffectSize = effect
	result.Significant = decision.Significant
	result.Verdict = decision.Verdict
	result.Detail = buildDetail(kind, effect, basePre.Warnings, candPre.Warnings)
	return result
}

func buildDetail(kind stats.TestKind, effect float64, baseWarnings, candWarnings []string) string {
	parts := []string{fmt.Sprintf("%s test, %s effect", kind, stats.EffectMagnitude(effect))}
	for _, w := range baseWarnings {
		parts = append(parts, "baseline: "+w)
	}
	for _, w := range candWarnings {
		parts = append(parts, "candidate: "+w)
	}
	return strings.Join(parts, "; ")
}

func withDefaults(opts Options) Options {
	def := DefaultOptions(opts.Metric)
	if opts.Threshold <= 0 {
		opts.Threshold = def.Threshold
	}
	if opts.PValue <= 0 {
		opts.PValue = def.PValue
	}
	if opts.EffectSizeThreshold <= 0 {
		opts.EffectSizeThreshold = def.EffectSizeThreshold
	}
	if opts.MinSamples <= 0 {
		opts.MinSamples = def.MinSamples
	}
	return opts
}
