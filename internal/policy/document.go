package policy

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/perfstack/perf-gate/internal/utils"
)

// SupportedVersion is the only policy document version this engine accepts.
const SupportedVersion = 1

// Action is what the gate does when a policy rule fires.
type Action string

const (
	ActionFail   Action = "fail"
	ActionWarn   Action = "warn"
	ActionIgnore Action = "ignore"
	ActionPass   Action = "pass"
)

// Document is the hierarchical policy configuration. It is loaded once and
// treated as read-only for the duration of a run.
type Document struct {
	Version  int                       `yaml:"version"`
	Base     *PolicySet                `yaml:"base,omitempty"`
	Services map[string]*ServicePolicy `yaml:"services,omitempty"`

	// Legacy flat fields accepted for older documents; treated as base-level.
	Metrics    map[string]*MetricPolicy `yaml:"metrics,omitempty"`
	Prometheus *PrometheusRef           `yaml:"prometheus,omitempty"`
}

// PolicySet groups metric policies at one level of the hierarchy.
type PolicySet struct {
	Metrics map[string]*MetricPolicy `yaml:"metrics,omitempty"`
}

// ServicePolicy overrides policies for one service and may defer unspecified
// metrics to a named parent service.
type ServicePolicy struct {
	Inherits   string                   `yaml:"inherits,omitempty"`
	Metrics    map[string]*MetricPolicy `yaml:"metrics,omitempty"`
	Prometheus *PrometheusRef           `yaml:"prometheus,omitempty"`
	Deployment *DeploymentRef           `yaml:"deployment,omitempty"`
}

// PrometheusRef points a service (or the whole document) at a metrics source.
type PrometheusRef struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// DeploymentRef names the deployment labels a service compares.
type DeploymentRef struct {
	BaselineLabel  string `yaml:"baseline_label,omitempty"`
	CandidateLabel string `yaml:"candidate_label,omitempty"`
}

// MetricPolicy holds the optional regression and threshold rules for a
// metric. Unset fields defer to the parent level during resolution.
type MetricPolicy struct {
	Regression *RegressionPolicy `yaml:"regression,omitempty"`
	Threshold  *ThresholdPolicy  `yaml:"threshold,omitempty"`
}

// RegressionPolicy bounds how much a metric may regress. Pointer fields
// distinguish "unset, inherit" from an explicit zero.
type RegressionPolicy struct {
	MaxIncreasePercent *float64 `yaml:"max_increase_percent,omitempty" json:"max_increase_percent,omitempty"`
	PValue             *float64 `yaml:"p_value,omitempty" json:"p_value,omitempty"`
	EffectSize         *float64 `yaml:"effect_size,omitempty" json:"effect_size,omitempty"`
	Action             Action   `yaml:"action,omitempty" json:"action,omitempty"`
}

// ThresholdPolicy applies absolute bounds to a scalar value.
type ThresholdPolicy struct {
	Max    *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Min    *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Action Action   `yaml:"action,omitempty" json:"action,omitempty"`
}

// DefaultRegression returns the built-in regression policy shared by the
// single-metric and batch paths. One definition avoids the two call sites
// drifting apart.
func DefaultRegression() RegressionPolicy {
	return RegressionPolicy{
		MaxIncreasePercent: ptr(10.0),
		PValue:             ptr(0.05),
		EffectSize:         ptr(0.5),
		Action:             ActionFail,
	}
}

// Load reads and validates a policy document. The validation findings are
// returned alongside the document so callers can render a full report; the
// error is non-nil when the document is unusable (unreadable, unsupported
// version, or any error-severity finding).
func Load(path string) (*Document, []Finding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, utils.NewAppError("policy.Load", "read policy document", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, utils.NewAppError("policy.Load", "parse policy document", err)
	}

	findings := Validate(&doc)
	for _, f := range findings {
		if f.Severity == SeverityError {
			return &doc, findings, errors.New("policy document failed validation")
		}
	}
	return &doc, findings, nil
}

func ptr(v float64) *float64 { return &v }
