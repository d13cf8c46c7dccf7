package qc

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestWelchTTestKnownValues(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{2, 3, 4, 5, 6}

	res, err := WelchTTest(a, b)
	if err != nil {
		t.Fatalf("welch: %v", err)
	}
	if math.Abs(res.T-(-1)) > 1e-9 {
		t.Fatalf("t = %v, want -1", res.T)
	}
	if math.Abs(res.DF-8) > 1e-9 {
		t.Fatalf("df = %v, want 8", res.DF)
	}
	// Two-sided p for |t|=1 with 8 degrees of freedom.
	if res.P < 0.33 || res.P > 0.36 {
		t.Fatalf("p = %v, want about 0.347", res.P)
	}
	if res.MeanA != 3 || res.MeanB != 4 {
		t.Fatalf("means %v / %v, want 3 / 4", res.MeanA, res.MeanB)
	}
}

func TestWelchTTestConstantGroups(t *testing.T) {
	res, err := WelchTTest([]float64{2, 2, 2}, []float64{2, 2, 2})
	if err != nil {
		t.Fatalf("welch: %v", err)
	}
	if res.P != 1 {
		t.Fatalf("constant groups p = %v, want 1", res.P)
	}
}

func TestWelchTTestTooFewObservations(t *testing.T) {
	if _, err := WelchTTest([]float64{1}, []float64{2, 3}); err == nil {
		t.Fatal("expected error for a single observation")
	}
}

func TestWelchTTestSeparatedGroups(t *testing.T) {
	rng := rand.New(rand.NewPCG(77, 1))
	a := make([]float64, 50)
	b := make([]float64, 50)
	for i := range a {
		a[i] = rng.NormFloat64()
		b[i] = rng.NormFloat64() + 10
	}

	res, err := WelchTTest(a, b)
	if err != nil {
		t.Fatalf("welch: %v", err)
	}
	if res.P > 1e-6 {
		t.Fatalf("p = %v for a ten-sigma shift, want near zero", res.P)
	}
	if res.T > 0 {
		t.Fatalf("t = %v, want negative for mean(a) < mean(b)", res.T)
	}
}
