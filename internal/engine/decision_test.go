package engine

import (
	"math"
	"testing"

	"github.com/perfstack/perf-gate/internal/models"
)

func defaultThresholds() Thresholds {
	return Thresholds{ChangePercent: 10, PValue: 0.05, EffectSize: 0.5}
}

func TestDecideVerdicts(t *testing.T) {
	cases := []struct {
		name          string
		changePercent float64
		pValue        float64
		effectSize    float64
		want          models.Verdict
		significant   bool
	}{
		{"significant increase fails", 50, 0.001, 2.0, models.VerdictFail, true},
		{"significant decrease passes", -50, 0.001, -2.0, models.VerdictPass, true},
		{"statistically but not practically significant warns", 20, 0.01, 0.1, models.VerdictWarn, false},
		{"within threshold passes", 5, 0.001, 2.0, models.VerdictPass, true},
		{"not significant passes", 50, 0.5, 2.0, models.VerdictPass, false},
		{"nan statistics pass", 50, math.NaN(), math.NaN(), models.VerdictPass, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Decide(tc.changePercent, tc.pValue, tc.effectSize, defaultThresholds())
			if got.Verdict != tc.want {
				t.Fatalf("verdict = %s, want %s", got.Verdict, tc.want)
			}
			if got.Significant != tc.significant {
				t.Fatalf("significant = %v, want %v", got.Significant, tc.significant)
			}
		})
	}
}

func TestDecideThresholdMonotonicity(t *testing.T) {
	// Raising the allowed change can only move a verdict toward PASS.
	rank := map[models.Verdict]int{
		models.VerdictFail: 2,
		models.VerdictWarn: 1,
		models.VerdictPass: 0,
	}

	for _, change := range []float64{5, 15, 25, 60} {
		prev := math.MaxInt
		for _, threshold := range []float64{1, 10, 20, 50, 100} {
			th := defaultThresholds()
			th.ChangePercent = threshold
			verdict := Decide(change, 0.001, 2.0, th).Verdict
			if rank[verdict] > prev {
				t.Fatalf("verdict worsened as threshold grew: change=%v threshold=%v verdict=%s", change, threshold, verdict)
			}
			prev = rank[verdict]
		}
	}
}
