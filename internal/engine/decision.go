package engine

import (
	"math"

	"github.com/perfstack/perf-gate/internal/models"
)

// Thresholds bounds what counts as a meaningful change.
type Thresholds struct {
	ChangePercent float64
	PValue        float64
	EffectSize    float64
}

// Decision is the pure classification of a metric comparison.
type Decision struct {
	Significant bool
	Verdict     models.Verdict
}

// Decide turns the computed statistics into a verdict. The verdict is a pure
// function of its inputs: statistical significance (p-value below cutoff)
// and practical significance (effect size past cutoff) must both hold, and
// the change must exceed the allowed percentage, before a positive change
// fails the gate. A statistically significant breach without practical
// significance only warns. NaN inputs compare false everywhere and therefore
// fall through to PASS rather than failing on degenerate statistics.
func Decide(changePercent, pValue, effectSize float64, th Thresholds) Decision {
	statSig := pValue < th.PValue
	practicalSig := math.Abs(effectSize) > th.EffectSize
	exceeds := math.Abs(changePercent) > th.ChangePercent

	significant := statSig && practicalSig

	var verdict models.Verdict
	switch {
	case significant && exceeds:
		if changePercent > 0 {
			verdict = models.VerdictFail
		} else {
			verdict = models.VerdictPass
		}
	case statSig && exceeds:
		verdict = models.VerdictWarn
	default:
		verdict = models.VerdictPass
	}

	return Decision{Significant: significant, Verdict: verdict}
}
