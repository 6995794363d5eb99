package preprocess

import "math"

func smooth(data []float64, cfg Config) []float64 {
	window := cfg.SmoothingWindow
	if window < 1 {
		window = 3
	}
	switch cfg.SmoothingMethod {
	case SmoothingMovingAverage:
		return smoothMovingAverage(data, window)
	case SmoothingExponential:
		alpha := cfg.ExponentialAlpha
		if alpha <= 0 || alpha > 1 {
			alpha = 0.3
		}
		return smoothExponential(data, alpha)
	case SmoothingGaussian:
		return smoothGaussian(data, window)
	default:
		return data
	}
}

// smoothMovingAverage applies a centered window, shrinking it near the
// sequence boundaries.
func smoothMovingAverage(data []float64, window int) []float64 {
	half := window / 2
	out := make([]float64, len(data))
	for i := range data {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half + 1
		if hi > len(data) {
			hi = len(data)
		}
		sum := 0.0
		for _, v := range data[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}

// smoothExponential applies the recurrence y[i] = a*x[i] + (1-a)*y[i-1]
// seeded with y[0] = x[0].
func smoothExponential(data []float64, alpha float64) []float64 {
	out := make([]float64, len(data))
	out[0] = data[0]
	for i := 1; i < len(data); i++ {
		out[i] = alpha*data[i] + (1-alpha)*out[i-1]
	}
	return out
}

// smoothGaussian convolves with a normalized Gaussian kernel of the given
// width and sigma = window/6. Weights are renormalized wherever the kernel
// extends past a boundary.
func smoothGaussian(data []float64, window int) []float64 {
	sigma := float64(window) / 6
	if sigma <= 0 {
		return data
	}
	half := window / 2

	kernel := make([]float64, 2*half+1)
	for j := -half; j <= half; j++ {
		kernel[j+half] = math.Exp(-float64(j*j) / (2 * sigma * sigma))
	}

	out := make([]float64, len(data))
	for i := range data {
		sum := 0.0
		weight := 0.0
		for j := -half; j <= half; j++ {
			k := i + j
			if k < 0 || k >= len(data) {
				continue
			}
			w := kernel[j+half]
			sum += w * data[k]
			weight += w
		}
		out[i] = sum / weight
	}
	return out
}
