package preprocess

import (
	"math"
	"sort"
)

// madCutoff is the fixed modified z-score limit for the MAD rule.
const madCutoff = 3.5

// madScale converts a MAD into an estimate of the standard deviation for a
// normal distribution.
const madScale = 0.6745

func removeOutliers(data []float64, cfg Config) ([]float64, int) {
	switch cfg.OutlierMethod {
	case OutlierIQR:
		return removeOutliersIQR(data, cfg.IQRMultiplier)
	case OutlierZScore:
		return removeOutliersZScore(data, cfg.ZScoreThreshold)
	case OutlierMAD:
		return removeOutliersMAD(data)
	default:
		return data, 0
	}
}

// removeOutliersIQR keeps values inside [Q1 - k*IQR, Q3 + k*IQR]. Quartiles
// are taken at the floor(n*0.25) and floor(n*0.75) indices of the sorted
// sequence. Sequences shorter than 4 are returned untouched.
func removeOutliersIQR(data []float64, multiplier float64) ([]float64, int) {
	if len(data) < 4 {
		return data, 0
	}
	if multiplier <= 0 {
		multiplier = 1.5
	}

	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)

	q1 := sorted[int(float64(len(sorted))*0.25)]
	q3 := sorted[int(float64(len(sorted))*0.75)]
	iqr := q3 - q1
	lower := q1 - multiplier*iqr
	upper := q3 + multiplier*iqr

	kept := make([]float64, 0, len(data))
	for _, v := range data {
		if v >= lower && v <= upper {
			kept = append(kept, v)
		}
	}
	return kept, len(data) - len(kept)
}

// removeOutliersZScore rejects values whose population z-score magnitude
// exceeds the threshold. No-op when the deviation is zero or n < 2.
func removeOutliersZScore(data []float64, threshold float64) ([]float64, int) {
	if len(data) < 2 {
		return data, 0
	}
	if threshold <= 0 {
		threshold = 3
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	variance := 0.0
	for _, v := range data {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(data))
	stdDev := math.Sqrt(variance)
	if stdDev == 0 {
		return data, 0
	}

	kept := make([]float64, 0, len(data))
	for _, v := range data {
		if math.Abs(v-mean)/stdDev <= threshold {
			kept = append(kept, v)
		}
	}
	return kept, len(data) - len(kept)
}

// removeOutliersMAD rejects values whose modified z-score
// (0.6745*|x-median|/MAD) exceeds 3.5. No-op when MAD is zero or n < 2.
func removeOutliersMAD(data []float64) ([]float64, int) {
	if len(data) < 2 {
		return data, 0
	}

	med := median(data)
	deviations := make([]float64, len(data))
	for i, v := range data {
		deviations[i] = math.Abs(v - med)
	}
	mad := median(deviations)
	if mad == 0 {
		return data, 0
	}

	kept := make([]float64, 0, len(data))
	for _, v := range data {
		if madScale*math.Abs(v-med)/mad <= madCutoff {
			kept = append(kept, v)
		}
	}
	return kept, len(data) - len(kept)
}

func median(data []float64) float64 {
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
