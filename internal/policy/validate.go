package policy

import "fmt"

// Severity grades a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one validation result. Findings are collected rather than
// raised so a full report can be produced in one pass.
type Finding struct {
	Severity Severity `json:"severity"`
	Field    string   `json:"field"`
	Message  string   `json:"message"`
}

// Validate checks a policy document for structural problems: unsupported
// version, dangling or circular inheritance, out-of-range numbers, and
// unknown action values.
func Validate(doc *Document) []Finding {
	var findings []Finding

	if doc.Version != SupportedVersion {
		findings = append(findings, Finding{
			Severity: SeverityError,
			Field:    "version",
			Message:  fmt.Sprintf("unsupported policy version %d, expected %d", doc.Version, SupportedVersion),
		})
	}

	for name, svc := range doc.Services {
		if svc == nil {
			continue
		}
		if svc.Inherits != "" {
			if _, ok := doc.Services[svc.Inherits]; !ok {
				findings = append(findings, Finding{
					Severity: SeverityError,
					Field:    fmt.Sprintf("services.%s.inherits", name),
					Message:  fmt.Sprintf("inherits unknown service %q", svc.Inherits),
				})
			} else if cyclic(doc, name) {
				findings = append(findings, Finding{
					Severity: SeverityError,
					Field:    fmt.Sprintf("services.%s.inherits", name),
					Message:  "circular inheritance chain",
				})
			}
		}
		for metric, mp := range svc.Metrics {
			findings = append(findings, validateMetricPolicy(fmt.Sprintf("services.%s.metrics.%s", name, metric), mp)...)
		}
	}

	if doc.Base != nil {
		for metric, mp := range doc.Base.Metrics {
			findings = append(findings, validateMetricPolicy(fmt.Sprintf("base.metrics.%s", metric), mp)...)
		}
	}
	for metric, mp := range doc.Metrics {
		findings = append(findings, validateMetricPolicy(fmt.Sprintf("metrics.%s", metric), mp)...)
	}

	return findings
}

func cyclic(doc *Document, start string) bool {
	visited := map[string]bool{}
	name := start
	for {
		if visited[name] {
			return true
		}
		visited[name] = true
		svc := doc.Services[name]
		if svc == nil || svc.Inherits == "" {
			return false
		}
		name = svc.Inherits
	}
}

func validateMetricPolicy(field string, mp *MetricPolicy) []Finding {
	if mp == nil {
		return nil
	}
	var findings []Finding

	if reg := mp.Regression; reg != nil {
		if reg.PValue != nil && (*reg.PValue < 0 || *reg.PValue > 1) {
			findings = append(findings, Finding{
				Severity: SeverityError,
				Field:    field + ".regression.p_value",
				Message:  fmt.Sprintf("p_value %.4f outside [0, 1]", *reg.PValue),
			})
		}
		if reg.MaxIncreasePercent != nil && *reg.MaxIncreasePercent < 0 {
			findings = append(findings, Finding{
				Severity: SeverityWarning,
				Field:    field + ".regression.max_increase_percent",
				Message:  "negative max_increase_percent; every increase will be flagged",
			})
		}
		if !validAction(reg.Action) {
			findings = append(findings, Finding{
				Severity: SeverityError,
				Field:    field + ".regression.action",
				Message:  fmt.Sprintf("unknown action %q", reg.Action),
			})
		}
	}

	if th := mp.Threshold; th != nil {
		if th.Max != nil && th.Min != nil && *th.Max < *th.Min {
			findings = append(findings, Finding{
				Severity: SeverityError,
				Field:    field + ".threshold",
				Message:  fmt.Sprintf("max %.2f below min %.2f", *th.Max, *th.Min),
			})
		}
		if !validAction(th.Action) {
			findings = append(findings, Finding{
				Severity: SeverityError,
				Field:    field + ".threshold.action",
				Message:  fmt.Sprintf("unknown action %q", th.Action),
			})
		}
	}

	return findings
}

func validAction(a Action) bool {
	switch a {
	case "", ActionFail, ActionWarn, ActionIgnore, ActionPass:
		return true
	default:
		return false
	}
}
