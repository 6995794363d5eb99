package policy

import (
	"fmt"
	"math"
)

// Evaluation is the policy verdict for one metric. Derived, never persisted.
type Evaluation struct {
	Action         Action `json:"action"`
	Reason         string `json:"reason"`
	ShouldRollback bool   `json:"should_rollback"`
}

// EvaluateRegression combines caller-supplied statistics with the resolved
// metric policy. A regression fires when the change is significant, positive,
// and past the allowed increase; a threshold breach without statistical
// significance downgrades to a warning. The policy itself is never mutated.
func EvaluateRegression(metric string, changePercent, pValue, effectSize float64, significant bool, pol *MetricPolicy) Evaluation {
	reg := effectiveRegression(pol)

	maxIncrease := *reg.MaxIncreasePercent
	exceeds := math.Abs(changePercent) > maxIncrease

	if significant && exceeds && changePercent > 0 {
		action := normalizeAction(reg.Action)
		return Evaluation{
			Action: action,
			Reason: fmt.Sprintf("%s regressed %.2f%% (allowed %.2f%%, p=%.4f, effect=%.2f)",
				metric, changePercent, maxIncrease, pValue, effectSize),
			ShouldRollback: action == ActionFail,
		}
	}

	if exceeds && changePercent > 0 {
		return Evaluation{
			Action: ActionWarn,
			Reason: fmt.Sprintf("%s: possible regression, change %.2f%% exceeds %.2f%% but is not statistically significant",
				metric, changePercent, maxIncrease),
		}
	}

	return Evaluation{
		Action: ActionPass,
		Reason: fmt.Sprintf("%s within policy (change %.2f%%)", metric, changePercent),
	}
}

// EvaluateThreshold applies absolute min/max bounds to a scalar value,
// independent of the regression path.
func EvaluateThreshold(metric string, value float64, pol *MetricPolicy) Evaluation {
	if pol == nil || pol.Threshold == nil {
		return Evaluation{Action: ActionPass, Reason: fmt.Sprintf("%s has no threshold policy", metric)}
	}

	th := pol.Threshold
	action := normalizeAction(th.Action)

	if th.Max != nil && value > *th.Max {
		return Evaluation{
			Action:         action,
			Reason:         fmt.Sprintf("%s value %.2f above maximum %.2f", metric, value, *th.Max),
			ShouldRollback: action == ActionFail,
		}
	}
	if th.Min != nil && value < *th.Min {
		return Evaluation{
			Action:         action,
			Reason:         fmt.Sprintf("%s value %.2f below minimum %.2f", metric, value, *th.Min),
			ShouldRollback: action == ActionFail,
		}
	}

	return Evaluation{Action: ActionPass, Reason: fmt.Sprintf("%s within bounds", metric)}
}

// effectiveRegression backfills unset fields from the built-in default so
// evaluation always works with concrete numbers.
func effectiveRegression(pol *MetricPolicy) RegressionPolicy {
	def := DefaultRegression()
	if pol == nil || pol.Regression == nil {
		return def
	}
	reg := *pol.Regression
	if reg.MaxIncreasePercent == nil {
		reg.MaxIncreasePercent = def.MaxIncreasePercent
	}
	if reg.PValue == nil {
		reg.PValue = def.PValue
	}
	if reg.EffectSize == nil {
		reg.EffectSize = def.EffectSize
	}
	if reg.Action == "" {
		reg.Action = def.Action
	}
	return reg
}

// normalizeAction maps ignore to pass and defaults unknown or empty actions
// to fail, the conservative choice for a gate.
func normalizeAction(a Action) Action {
	switch a {
	case ActionIgnore, ActionPass:
		return ActionPass
	case ActionWarn:
		return ActionWarn
	default:
		return ActionFail
	}
}
