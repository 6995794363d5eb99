package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean, or 0 for an empty sequence.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// Variance returns the unbiased sample variance (ddof=1). Sequences shorter
// than 2 have no defined sample variance and yield 0.
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// ChangePercent returns the relative change of the candidate mean against the
// baseline mean, in percent. A zero baseline mean yields an infinite change;
// callers compare magnitudes, so the sign still carries direction.
func ChangePercent(baseline, candidate []float64) float64 {
	baseMean := Mean(baseline)
	candMean := Mean(candidate)
	if baseMean == 0 {
		if candMean == 0 {
			return 0
		}
		return math.Inf(sign(candMean))
	}
	return (candMean - baseMean) / baseMean * 100
}

// CohensD returns the standardized mean difference between candidate and
// baseline using the pooled deviation sqrt((var1+var2)/2). The sign carries
// direction; a zero pooled deviation produces an infinite or NaN value the
// decision layer handles defensively.
func CohensD(baseline, candidate []float64) float64 {
	pooled := math.Sqrt((Variance(baseline) + Variance(candidate)) / 2)
	return (Mean(candidate) - Mean(baseline)) / pooled
}

// EffectMagnitude labels a Cohen's d value using the conventional bands.
func EffectMagnitude(d float64) string {
	abs := math.Abs(d)
	switch {
	case math.IsNaN(abs):
		return "undefined"
	case abs < 0.2:
		return "negligible"
	case abs < 0.5:
		return "small"
	case abs < 0.8:
		return "medium"
	default:
		return "large"
	}
}

// Skewness returns the sample skewness.
func Skewness(data []float64) float64 {
	if len(data) < 3 {
		return 0
	}
	return stat.Skew(data, nil)
}

// ExcessKurtosis returns the sample excess kurtosis.
func ExcessKurtosis(data []float64) float64 {
	if len(data) < 4 {
		return 0
	}
	return stat.ExKurtosis(data, nil)
}

func sign(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}
