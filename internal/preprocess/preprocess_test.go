package preprocess

import (
	"math"
	"testing"
)

func TestRunEmptyInput(t *testing.T) {
	res := Run(nil, DefaultConfig())
	if len(res.Data) != 0 {
		t.Fatalf("expected empty output, got %v", res.Data)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected a warning for empty input")
	}
}

func TestRunIdempotentWhenDisabled(t *testing.T) {
	input := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	cfg := Config{
		OutlierMethod:    OutlierNone,
		SmoothingMethod:  SmoothingNone,
		FillStrategy:     FillNone,
		TargetSampleSize: len(input),
	}

	res := Run(input, cfg)
	if len(res.Data) != len(input) {
		t.Fatalf("expected %d values, got %d", len(input), len(res.Data))
	}
	for i, v := range res.Data {
		if v != input[i] {
			t.Fatalf("value %d changed: %v != %v", i, v, input[i])
		}
	}
	if res.OutliersRemoved != 0 || res.MissingValuesFilled != 0 {
		t.Fatalf("unexpected modifications: %+v", res)
	}
}

func TestRunOutputIsFinite(t *testing.T) {
	input := make([]float64, 0, 60)
	for i := 0; i < 60; i++ {
		v := float64(i % 10)
		if i%7 == 0 {
			v = math.NaN()
		}
		if i == 33 {
			v = math.Inf(1)
		}
		input = append(input, v)
	}

	for _, strategy := range []FillStrategy{FillInterpolate, FillForward, FillBackward, FillMean, FillNone} {
		cfg := DefaultConfig()
		cfg.FillStrategy = strategy
		res := Run(input, cfg)
		for i, v := range res.Data {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("strategy %s leaked non-finite value at %d: %v", strategy, i, v)
			}
		}
	}
}

func TestFillInterpolate(t *testing.T) {
	input := []float64{1, math.NaN(), 3}
	out, filled := fillMissing(input, FillInterpolate)
	if filled != 1 {
		t.Fatalf("expected 1 fill, got %d", filled)
	}
	if math.Abs(out[1]-2) > 1e-9 {
		t.Fatalf("expected interpolated 2, got %v", out[1])
	}
}

func TestFillInterpolateSingleNeighbor(t *testing.T) {
	out, _ := fillMissing([]float64{math.NaN(), 5, 6}, FillInterpolate)
	if out[0] != 5 {
		t.Fatalf("expected nearest neighbor 5, got %v", out[0])
	}
}

func TestFillForwardAndBackward(t *testing.T) {
	input := []float64{1, math.NaN(), math.NaN(), 4}

	fwd, _ := fillMissing(input, FillForward)
	if fwd[1] != 1 || fwd[2] != 1 {
		t.Fatalf("forward fill wrong: %v", fwd)
	}

	bwd, _ := fillMissing(input, FillBackward)
	if bwd[1] != 4 || bwd[2] != 4 {
		t.Fatalf("backward fill wrong: %v", bwd)
	}
}

func TestFillMean(t *testing.T) {
	out, _ := fillMissing([]float64{2, math.NaN(), 4}, FillMean)
	if math.Abs(out[1]-3) > 1e-9 {
		t.Fatalf("expected mean 3, got %v", out[1])
	}
}

func TestIQRRemovesSpike(t *testing.T) {
	kept, removed := removeOutliersIQR([]float64{1, 2, 3, 4, 5, 100}, 1.5)
	if removed != 1 {
		t.Fatalf("expected 1 outlier removed, got %d", removed)
	}
	for _, v := range kept {
		if v == 100 {
			t.Fatal("spike value survived IQR filtering")
		}
	}
}

func TestIQRNoOpBelowFourSamples(t *testing.T) {
	kept, removed := removeOutliersIQR([]float64{1, 2, 1000}, 1.5)
	if removed != 0 || len(kept) != 3 {
		t.Fatalf("expected no-op, got kept=%v removed=%d", kept, removed)
	}
}

func TestZScoreNoOpOnConstantSequence(t *testing.T) {
	input := []float64{5, 5, 5, 5}
	kept, removed := removeOutliersZScore(input, 3)
	if removed != 0 || len(kept) != len(input) {
		t.Fatalf("zero-deviation sequence should pass through, got %v", kept)
	}
}

func TestMADRemovesSpike(t *testing.T) {
	input := []float64{10, 11, 10, 12, 11, 10, 11, 500}
	kept, removed := removeOutliersMAD(input)
	if removed != 1 {
		t.Fatalf("expected 1 outlier removed, got %d (kept %v)", removed, kept)
	}
}

func TestResampleToTarget(t *testing.T) {
	input := make([]float64, 100)
	for i := range input {
		input[i] = float64(i)
	}
	out := resample(input, 10)
	if len(out) != 10 {
		t.Fatalf("expected 10 chunks, got %d", len(out))
	}
	// First chunk covers 0..9, mean 4.5.
	if math.Abs(out[0]-4.5) > 1e-9 {
		t.Fatalf("unexpected first chunk mean %v", out[0])
	}
}

func TestResampleNoOpWhenShort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetSampleSize = 50
	input := make([]float64, 40)
	for i := range input {
		input[i] = float64(i)
	}
	res := Run(input, cfg)
	if len(res.Data) != 40 {
		t.Fatalf("resample should not trigger below target, got %d values", len(res.Data))
	}
}

func TestExponentialSmoothingRecurrence(t *testing.T) {
	out := smoothExponential([]float64{10, 20, 30}, 0.5)
	if out[0] != 10 {
		t.Fatalf("y[0] must equal x[0], got %v", out[0])
	}
	if math.Abs(out[1]-15) > 1e-9 {
		t.Fatalf("expected 15, got %v", out[1])
	}
	if math.Abs(out[2]-22.5) > 1e-9 {
		t.Fatalf("expected 22.5, got %v", out[2])
	}
}

func TestMovingAverageShrinksAtEdges(t *testing.T) {
	out := smoothMovingAverage([]float64{0, 10, 20, 30}, 3)
	if math.Abs(out[0]-5) > 1e-9 {
		t.Fatalf("edge window should average first two values, got %v", out[0])
	}
	if math.Abs(out[1]-10) > 1e-9 {
		t.Fatalf("expected centered mean 10, got %v", out[1])
	}
}

func TestGaussianSmoothingPreservesConstant(t *testing.T) {
	input := []float64{7, 7, 7, 7, 7, 7}
	out := smoothGaussian(input, 5)
	for i, v := range out {
		if math.Abs(v-7) > 1e-9 {
			t.Fatalf("constant sequence changed at %d: %v", i, v)
		}
	}
}
