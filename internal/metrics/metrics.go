package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	verdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "perfgate",
			Name:      "verdicts_total",
			Help:      "Metric comparisons handled, partitioned by verdict.",
		},
		[]string{"verdict"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "perfgate",
			Name:      "analysis_seconds",
			Help:      "Per-metric analysis latency in seconds, fetch included.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	batchDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "perfgate",
			Name:      "batch_seconds",
			Help:      "End-to-end batch run duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	fetchRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "perfgate",
			Name:      "fetch_retries_total",
			Help:      "Retried metric fetches across all batch runs.",
		},
	)
)

// Register attaches perf-gate collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		verdictsTotal,
		analysisDurationSeconds,
		batchDurationSeconds,
		fetchRetriesTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records one metric comparison.
func ObserveAnalysis(duration time.Duration, verdict string) {
	verdictsTotal.WithLabelValues(verdict).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}

// ObserveBatch records a finished batch run.
func ObserveBatch(duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	batchDurationSeconds.Observe(duration.Seconds())
}

// CountFetchRetry records one retried fetch attempt.
func CountFetchRetry() {
	fetchRetriesTotal.Inc()
}
