package models

import (
	"encoding/json"
	"time"

	"github.com/perfstack/perf-gate/internal/policy"
)

// Verdict classifies the outcome of a single metric comparison.
type Verdict string

const (
	VerdictPass             Verdict = "PASS"
	VerdictWarn             Verdict = "WARN"
	VerdictFail             Verdict = "FAIL"
	VerdictInsufficientData Verdict = "INSUFFICIENT_DATA"
)

// SampleStats summarises one side of a comparison after preprocessing.
type SampleStats struct {
	Mean        float64 `json:"mean"`
	SampleCount int     `json:"sample_count"`
}

// RegressionResult is the verdict for one metric. It is immutable once built:
// the verdict is a pure function of the statistics and thresholds it records.
type RegressionResult struct {
	Metric        string      `json:"metric"`
	Baseline      SampleStats `json:"baseline"`
	Candidate     SampleStats `json:"candidate"`
	ChangePercent float64     `json:"change_percent"`
	PValue        float64     `json:"p_value"`
	EffectSize    float64     `json:"effect_size"`
	Significant   bool        `json:"significant"`
	Verdict       Verdict     `json:"verdict"`
	Detail        string      `json:"detail,omitempty"`
}

// MetricOutcome holds either a regression result or the error that exhausted
// retries for the metric, plus the policy evaluation when a policy document
// was supplied to the batch run.
type MetricOutcome struct {
	Result *RegressionResult  `json:"result,omitempty"`
	Policy *policy.Evaluation `json:"policy,omitempty"`
	Err    error              `json:"-"`
}

// MarshalJSON renders the error as a plain string so batch output stays
// serialisable for CLI consumers.
func (o MetricOutcome) MarshalJSON() ([]byte, error) {
	type alias MetricOutcome
	out := struct {
		alias
		Error string `json:"error,omitempty"`
	}{alias: alias(o)}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}
	return json.Marshal(out)
}

// BatchSummary aggregates per-metric verdicts. A metric that errored or came
// back INSUFFICIENT_DATA only ever lands in the errored bucket.
type BatchSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Warned  int `json:"warned"`
	Errored int `json:"errored"`
}

// BatchResult is the aggregate of a batch run, keyed by metric name.
// Insertion order carries no meaning; summary counts are order-independent.
type BatchResult struct {
	RunID    string                   `json:"run_id"`
	Outcomes map[string]MetricOutcome `json:"outcomes"`
	Summary  BatchSummary             `json:"summary"`
	Elapsed  time.Duration            `json:"elapsed"`
}
