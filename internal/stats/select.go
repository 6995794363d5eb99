package stats

import "math"

// smallSampleCutoff is the sample size below which the permutation test is
// preferred over parametric or rank alternatives.
const smallSampleCutoff = 20

// SelectTest picks a hypothesis test for the pair of samples. Small samples
// get the exact permutation test; samples failing a rough normality screen
// get Mann-Whitney; everything else gets Welch's t-test.
func SelectTest(a, b []float64) TestKind {
	if len(a) < smallSampleCutoff || len(b) < smallSampleCutoff {
		return TestPermutation
	}
	if !approximatelyNormal(a) || !approximatelyNormal(b) {
		return TestMannWhitney
	}
	return TestWelch
}

// approximatelyNormal screens a sample using skewness and excess kurtosis
// bounds (|skew| < 2, |excess kurtosis| < 7).
func approximatelyNormal(data []float64) bool {
	skew := Skewness(data)
	kurt := ExcessKurtosis(data)
	if math.IsNaN(skew) || math.IsNaN(kurt) {
		return false
	}
	return math.Abs(skew) < 2 && math.Abs(kurt) < 7
}
