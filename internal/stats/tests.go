package stats

import (
	"math"
	"math/rand/v2"
	"sort"
)

// TestKind identifies a two-sample hypothesis test.
type TestKind string

const (
	TestWelch       TestKind = "welch"
	TestMannWhitney TestKind = "mann-whitney"
	TestPermutation TestKind = "permutation"
	TestKS          TestKind = "kolmogorov-smirnov"
)

// defaultIterations is used by the permutation test and bootstrap when the
// caller does not supply an iteration count.
const defaultIterations = 1000

// TestResult carries the statistic and two-tailed p-value of a test run.
type TestResult struct {
	Statistic float64
	PValue    float64
	DF        float64
}

// Run dispatches to the named test. Permutation runs with the default
// iteration count.
func Run(kind TestKind, a, b []float64) TestResult {
	switch kind {
	case TestMannWhitney:
		return MannWhitneyU(a, b)
	case TestPermutation:
		return Permutation(a, b, defaultIterations)
	case TestKS:
		return KolmogorovSmirnov(a, b)
	default:
		return Welch(a, b)
	}
}

// Welch runs the unequal-variance two-sample t-test. The p-value uses a
// closed-form two-tailed approximation, exp(-0.717|t| - 0.416*t^2), rather
// than an exact Student-t CDF; it is documented as an approximation and kept
// for behavioural compatibility with the surrounding tooling.
func Welch(a, b []float64) TestResult {
	v1, v2 := Variance(a), Variance(b)
	n1, n2 := float64(len(a)), float64(len(b))
	if n1 == 0 || n2 == 0 {
		return TestResult{PValue: 1}
	}

	se := math.Sqrt(v1/n1 + v2/n2)
	t := (Mean(b) - Mean(a)) / se

	df := 0.0
	if v1 > 0 || v2 > 0 {
		num := (v1/n1 + v2/n2) * (v1/n1 + v2/n2)
		den := 0.0
		if n1 > 1 {
			den += (v1 / n1) * (v1 / n1) / (n1 - 1)
		}
		if n2 > 1 {
			den += (v2 / n2) * (v2 / n2) / (n2 - 1)
		}
		if den > 0 {
			df = num / den
		}
	}

	return TestResult{Statistic: t, PValue: approxTwoTailedP(t), DF: df}
}

// approxTwoTailedP converts a t statistic into a rough two-tailed p-value.
// Infinite statistics map to 0, undefined ones to 1.
func approxTwoTailedP(t float64) float64 {
	if math.IsNaN(t) {
		return 1
	}
	if math.IsInf(t, 0) {
		return 0
	}
	at := math.Abs(t)
	p := math.Exp(-0.717*at - 0.416*at*at)
	if p > 1 {
		p = 1
	}
	if p < 0 {
		p = 0
	}
	return p
}

// MannWhitneyU runs the rank-sum test with tie-averaged ranks and the normal
// z-approximation for the two-tailed p-value.
func MannWhitneyU(a, b []float64) TestResult {
	n1, n2 := float64(len(a)), float64(len(b))
	if n1 == 0 || n2 == 0 {
		return TestResult{PValue: 1}
	}

	type obs struct {
		value float64
		group int
	}
	combined := make([]obs, 0, len(a)+len(b))
	for _, v := range a {
		combined = append(combined, obs{v, 0})
	}
	for _, v := range b {
		combined = append(combined, obs{v, 1})
	}
	sort.Slice(combined, func(i, j int) bool { return combined[i].value < combined[j].value })

	ranks := make([]float64, len(combined))
	for i := 0; i < len(combined); {
		j := i
		for j < len(combined) && combined[j].value == combined[i].value {
			j++
		}
		// Tied values share the average of the ranks they span.
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[k] = avg
		}
		i = j
	}

	r1 := 0.0
	for i, o := range combined {
		if o.group == 0 {
			r1 += ranks[i]
		}
	}

	u1 := r1 - n1*(n1+1)/2
	u2 := n1*n2 - u1
	u := math.Min(u1, u2)

	mu := n1 * n2 / 2
	sigma := math.Sqrt(n1 * n2 * (n1 + n2 + 1) / 12)
	if sigma == 0 {
		return TestResult{Statistic: u, PValue: 1}
	}
	z := (u - mu) / sigma
	p := 2 * (1 - normalCDF(math.Abs(z)))
	if p > 1 {
		p = 1
	}
	return TestResult{Statistic: u, PValue: p}
}

// Permutation runs an exact label-shuffling test: the p-value is the share of
// shuffles whose absolute mean difference meets or exceeds the observed one.
func Permutation(a, b []float64, iterations int) TestResult {
	if len(a) == 0 || len(b) == 0 {
		return TestResult{PValue: 1}
	}
	if iterations <= 0 {
		iterations = defaultIterations
	}

	observed := math.Abs(Mean(a) - Mean(b))

	pool := make([]float64, 0, len(a)+len(b))
	pool = append(pool, a...)
	pool = append(pool, b...)

	extreme := 0
	for i := 0; i < iterations; i++ {
		rand.Shuffle(len(pool), func(x, y int) {
			pool[x], pool[y] = pool[y], pool[x]
		})
		diff := math.Abs(Mean(pool[:len(a)]) - Mean(pool[len(a):]))
		if diff >= observed {
			extreme++
		}
	}

	return TestResult{Statistic: observed, PValue: float64(extreme) / float64(iterations)}
}

// KolmogorovSmirnov runs the two-sample KS test. The statistic is the maximum
// empirical-CDF gap; the p-value is coarse, bucketed to 0.01 when the gap
// exceeds the approximate 5% critical value and 0.1 otherwise.
func KolmogorovSmirnov(a, b []float64) TestResult {
	n1, n2 := float64(len(a)), float64(len(b))
	if n1 == 0 || n2 == 0 {
		return TestResult{PValue: 1}
	}

	s1 := append([]float64(nil), a...)
	s2 := append([]float64(nil), b...)
	sort.Float64s(s1)
	sort.Float64s(s2)

	d := 0.0
	i, j := 0, 0
	for i < len(s1) && j < len(s2) {
		if s1[i] <= s2[j] {
			i++
		} else {
			j++
		}
		gap := math.Abs(float64(i)/n1 - float64(j)/n2)
		if gap > d {
			d = gap
		}
	}

	critical := 1.36 * math.Sqrt((n1+n2)/(n1*n2))
	p := 0.1
	if d > critical {
		p = 0.01
	}
	return TestResult{Statistic: d, PValue: p}
}

// BootstrapMeanDiffCI returns a percentile confidence interval for the mean
// difference (b - a) via resampling with replacement.
func BootstrapMeanDiffCI(a, b []float64, iterations int, confidence float64) (float64, float64) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0
	}
	if iterations <= 0 {
		iterations = defaultIterations
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}

	diffs := make([]float64, iterations)
	for i := 0; i < iterations; i++ {
		diffs[i] = resampleMean(b) - resampleMean(a)
	}
	sort.Float64s(diffs)

	alpha := (1 - confidence) / 2
	lo := int(alpha * float64(iterations))
	hi := int((1 - alpha) * float64(iterations))
	if hi >= iterations {
		hi = iterations - 1
	}
	return diffs[lo], diffs[hi]
}

func resampleMean(data []float64) float64 {
	sum := 0.0
	for range data {
		sum += data[rand.IntN(len(data))]
	}
	return sum / float64(len(data))
}

func normalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}
