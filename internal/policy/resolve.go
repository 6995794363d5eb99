package policy

import "fmt"

// maxInheritanceDepth bounds how long an inherits chain may be before it is
// treated as malformed, independent of cycle detection.
const maxInheritanceDepth = 16

// Resolve returns the effective metric policy for a service/metric pair.
// Precedence, highest first: the service's own metric entry, entries
// inherited through the service's inherits chain, the base (or legacy flat)
// metric entry. Each level merges shallowly over the next; a metric with no
// entry anywhere resolves to nil and callers fall back to DefaultRegression.
// Circular inheritance is a hard error.
func Resolve(doc *Document, service, metric string) (*MetricPolicy, error) {
	if doc == nil {
		return nil, nil
	}

	var chain []*MetricPolicy

	if service != "" {
		svc := doc.Services[service]
		visited := map[string]bool{}
		depth := 0
		name := service
		for svc != nil {
			if visited[name] {
				return nil, fmt.Errorf("inheritance cycle through service %q", name)
			}
			visited[name] = true
			if depth++; depth > maxInheritanceDepth {
				return nil, fmt.Errorf("inheritance chain for service %q exceeds depth %d", service, maxInheritanceDepth)
			}
			if mp := svc.Metrics[metric]; mp != nil {
				chain = append(chain, mp)
			}
			if svc.Inherits == "" {
				break
			}
			name = svc.Inherits
			svc = doc.Services[name]
		}
	}

	if doc.Base != nil {
		if mp := doc.Base.Metrics[metric]; mp != nil {
			chain = append(chain, mp)
		}
	}
	if mp := doc.Metrics[metric]; mp != nil {
		chain = append(chain, mp)
	}

	if len(chain) == 0 {
		return nil, nil
	}

	// chain is ordered child-first: fold parents underneath.
	effective := chain[0]
	for _, parent := range chain[1:] {
		effective = merge(effective, parent)
	}
	return effective, nil
}

// merge overlays child on parent field by field. Blocks merge shallowly:
// a field set on the child wins, anything unset falls through to the parent.
func merge(child, parent *MetricPolicy) *MetricPolicy {
	if child == nil {
		return clonePolicy(parent)
	}
	if parent == nil {
		return clonePolicy(child)
	}
	out := &MetricPolicy{
		Regression: mergeRegression(child.Regression, parent.Regression),
		Threshold:  mergeThreshold(child.Threshold, parent.Threshold),
	}
	return out
}

func mergeRegression(child, parent *RegressionPolicy) *RegressionPolicy {
	if child == nil && parent == nil {
		return nil
	}
	out := &RegressionPolicy{}
	if parent != nil {
		*out = *parent
	}
	if child != nil {
		if child.MaxIncreasePercent != nil {
			out.MaxIncreasePercent = child.MaxIncreasePercent
		}
		if child.PValue != nil {
			out.PValue = child.PValue
		}
		if child.EffectSize != nil {
			out.EffectSize = child.EffectSize
		}
		if child.Action != "" {
			out.Action = child.Action
		}
	}
	return out
}

func mergeThreshold(child, parent *ThresholdPolicy) *ThresholdPolicy {
	if child == nil && parent == nil {
		return nil
	}
	out := &ThresholdPolicy{}
	if parent != nil {
		*out = *parent
	}
	if child != nil {
		if child.Max != nil {
			out.Max = child.Max
		}
		if child.Min != nil {
			out.Min = child.Min
		}
		if child.Action != "" {
			out.Action = child.Action
		}
	}
	return out
}

func clonePolicy(p *MetricPolicy) *MetricPolicy {
	if p == nil {
		return nil
	}
	out := &MetricPolicy{}
	if p.Regression != nil {
		reg := *p.Regression
		out.Regression = &reg
	}
	if p.Threshold != nil {
		th := *p.Threshold
		out.Threshold = &th
	}
	return out
}
