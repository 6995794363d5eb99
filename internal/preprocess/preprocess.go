package preprocess

import (
	"fmt"
	"math"
)

// OutlierMethod selects the outlier rejection rule.
type OutlierMethod string

const (
	OutlierIQR    OutlierMethod = "iqr"
	OutlierZScore OutlierMethod = "zscore"
	OutlierMAD    OutlierMethod = "mad"
	OutlierNone   OutlierMethod = "none"
)

// SmoothingMethod selects the smoothing kernel.
type SmoothingMethod string

const (
	SmoothingMovingAverage SmoothingMethod = "moving-average"
	SmoothingExponential   SmoothingMethod = "exponential"
	SmoothingGaussian      SmoothingMethod = "gaussian"
	SmoothingNone          SmoothingMethod = "none"
)

// FillStrategy selects how non-finite observations are replaced.
type FillStrategy string

const (
	FillInterpolate FillStrategy = "interpolate"
	FillForward     FillStrategy = "forward"
	FillBackward    FillStrategy = "backward"
	FillMean        FillStrategy = "mean"
	FillNone        FillStrategy = "none"
)

// Config controls the cleaning pipeline. It is immutable per invocation.
type Config struct {
	OutlierMethod    OutlierMethod
	IQRMultiplier    float64
	ZScoreThreshold  float64
	TargetSampleSize int
	SmoothingMethod  SmoothingMethod
	SmoothingWindow  int
	ExponentialAlpha float64
	MinSampleSize    int
	FillStrategy     FillStrategy
}

// DefaultConfig returns the standard cleaning configuration used by the
// regression analyzer.
func DefaultConfig() Config {
	return Config{
		OutlierMethod:    OutlierIQR,
		IQRMultiplier:    1.5,
		ZScoreThreshold:  3,
		TargetSampleSize: 50,
		SmoothingMethod:  SmoothingNone,
		SmoothingWindow:  3,
		ExponentialAlpha: 0.3,
		MinSampleSize:    30,
		FillStrategy:     FillInterpolate,
	}
}

// Result captures the cleaned sequence and what was done to it.
type Result struct {
	Data                []float64
	OriginalLength      int
	OutliersRemoved     int
	MissingValuesFilled int
	Steps               []string
	Warnings            []string
}

// Run executes the cleaning pipeline in fixed stage order: missing-value
// handling, minimum-size check, outlier removal, resampling, smoothing.
// It never fails: empty input yields an empty result with a warning.
func Run(data []float64, cfg Config) Result {
	res := Result{OriginalLength: len(data)}

	if len(data) == 0 {
		res.Warnings = append(res.Warnings, "empty input sequence")
		return res
	}

	cleaned, filled := fillMissing(data, cfg.FillStrategy)
	res.MissingValuesFilled = filled
	if filled > 0 || len(cleaned) != len(data) {
		res.Steps = append(res.Steps, fmt.Sprintf("fill(%s)", cfg.FillStrategy))
	}
	if len(cleaned) == 0 {
		res.Warnings = append(res.Warnings, "no finite values in input sequence")
		return res
	}

	if cfg.MinSampleSize > 0 && len(cleaned) < cfg.MinSampleSize {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("sample size %d below minimum %d", len(cleaned), cfg.MinSampleSize))
	}

	if cfg.OutlierMethod != OutlierNone && cfg.OutlierMethod != "" {
		kept, removed := removeOutliers(cleaned, cfg)
		if removed > 0 {
			res.Steps = append(res.Steps, fmt.Sprintf("outliers(%s)", cfg.OutlierMethod))
		}
		cleaned = kept
		res.OutliersRemoved = removed
	}

	if cfg.TargetSampleSize > 0 && len(cleaned) > cfg.TargetSampleSize {
		cleaned = resample(cleaned, cfg.TargetSampleSize)
		res.Steps = append(res.Steps, fmt.Sprintf("resample(%d)", cfg.TargetSampleSize))
	}

	if cfg.SmoothingMethod != SmoothingNone && cfg.SmoothingMethod != "" && len(cleaned) > cfg.SmoothingWindow {
		cleaned = smooth(cleaned, cfg)
		res.Steps = append(res.Steps, fmt.Sprintf("smooth(%s)", cfg.SmoothingMethod))
	}

	res.Data = cleaned
	return res
}

// fillMissing replaces or drops non-finite observations. The second return
// value counts replacements; dropped values are not counted as filled.
func fillMissing(data []float64, strategy FillStrategy) ([]float64, int) {
	hasMissing := false
	for _, v := range data {
		if !isFinite(v) {
			hasMissing = true
			break
		}
	}
	if !hasMissing {
		return append([]float64(nil), data...), 0
	}

	switch strategy {
	case FillNone, "":
		out := make([]float64, 0, len(data))
		for _, v := range data {
			if isFinite(v) {
				out = append(out, v)
			}
		}
		return out, 0
	case FillForward:
		return fillDirectional(data, false)
	case FillBackward:
		return fillDirectional(data, true)
	case FillMean:
		mean, ok := finiteMean(data)
		if !ok {
			return nil, 0
		}
		out := make([]float64, len(data))
		filled := 0
		for i, v := range data {
			if isFinite(v) {
				out[i] = v
			} else {
				out[i] = mean
				filled++
			}
		}
		return out, filled
	default: // FillInterpolate
		return fillInterpolate(data)
	}
}

// fillDirectional carries the nearest valid neighbour across gaps. For the
// backward strategy the scan runs right to left. Gaps with no neighbour on
// the scan side fall back to the overall mean.
func fillDirectional(data []float64, backward bool) ([]float64, int) {
	mean, ok := finiteMean(data)
	if !ok {
		return nil, 0
	}
	out := make([]float64, len(data))
	filled := 0
	last := math.NaN()
	for step := 0; step < len(data); step++ {
		i := step
		if backward {
			i = len(data) - 1 - step
		}
		v := data[i]
		if isFinite(v) {
			last = v
			out[i] = v
			continue
		}
		if isFinite(last) {
			out[i] = last
		} else {
			out[i] = mean
		}
		filled++
	}
	return out, filled
}

// fillInterpolate replaces each gap with a linear interpolation between the
// nearest valid neighbours, falling back to the single nearer neighbour and
// finally to the overall mean.
func fillInterpolate(data []float64) ([]float64, int) {
	mean, ok := finiteMean(data)
	if !ok {
		return nil, 0
	}
	out := make([]float64, len(data))
	filled := 0
	for i, v := range data {
		if isFinite(v) {
			out[i] = v
			continue
		}
		prev, prevOK := prevFinite(data, i)
		next, nextOK := nextFinite(data, i)
		switch {
		case prevOK && nextOK:
			span := float64(next - prev)
			frac := float64(i-prev) / span
			out[i] = data[prev] + (data[next]-data[prev])*frac
		case prevOK:
			out[i] = data[prev]
		case nextOK:
			out[i] = data[next]
		default:
			out[i] = mean
		}
		filled++
	}
	return out, filled
}

func prevFinite(data []float64, i int) (int, bool) {
	for j := i - 1; j >= 0; j-- {
		if isFinite(data[j]) {
			return j, true
		}
	}
	return 0, false
}

func nextFinite(data []float64, i int) (int, bool) {
	for j := i + 1; j < len(data); j++ {
		if isFinite(data[j]) {
			return j, true
		}
	}
	return 0, false
}

// resample partitions the sequence into target contiguous chunks and replaces
// each chunk with its arithmetic mean. Chunk size is floor(n/target); the
// final chunk absorbs the remainder.
func resample(data []float64, target int) []float64 {
	n := len(data)
	chunk := n / target
	if chunk < 1 {
		chunk = 1
	}
	out := make([]float64, 0, target)
	for i := 0; i < target; i++ {
		start := i * chunk
		end := start + chunk
		if i == target-1 {
			end = n
		}
		if start >= n {
			break
		}
		sum := 0.0
		for _, v := range data[start:end] {
			sum += v
		}
		out = append(out, sum/float64(end-start))
	}
	return out
}

func finiteMean(data []float64) (float64, bool) {
	sum := 0.0
	count := 0
	for _, v := range data {
		if isFinite(v) {
			sum += v
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
