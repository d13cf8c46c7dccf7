package engine

import (
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"scsim/domain/core"
	"scsim/domain/sim"
)

func TestNBSamplerMeanTracksMu(t *testing.T) {
	nb := nbSampler{rng: rand.New(rand.NewPCG(3, 11))}
	mu, phi := 8.0, 0.25
	n := 4000
	sum := 0
	for i := 0; i < n; i++ {
		v := nb.draw(mu, phi)
		if v < 0 {
			t.Fatalf("negative count %d", v)
		}
		sum += v
	}
	mean := float64(sum) / float64(n)
	// Var = mu + phi*mu^2 = 24, so the sample mean lands well inside +/-0.5.
	if math.Abs(mean-mu) > 0.5 {
		t.Fatalf("sample mean %.3f, want about %.1f", mean, mu)
	}
}

func TestNBSamplerZeroMean(t *testing.T) {
	nb := nbSampler{rng: rand.New(rand.NewPCG(4, 1))}
	for i := 0; i < 100; i++ {
		if v := nb.draw(0, 0.5); v != 0 {
			t.Fatalf("zero mean produced %d", v)
		}
	}
}

func TestTaskRejectsDegenerateDispersion(t *testing.T) {
	m := sim.NewCountMatrix(1, 2)
	tk := &task{
		cluster:    "cluster1",
		sample:     "sample1",
		category:   sim.CategoryEE,
		genes:      []int{0},
		baseMean:   []float64{5},
		dispersion: []float64{0},
		foldChange: []float64{0},
		colsA:      []int{0},
		colsB:      []int{1},
		factorsA:   []float64{1},
		factorsB:   []float64{1},
	}
	err := tk.run(m, math.Sqrt(2), rand.New(rand.NewPCG(1, 1)))
	if !core.IsInvalidParameterError(err) {
		t.Fatalf("expected invalid parameter, got %v", err)
	}
	for _, want := range []string{"cluster1", "sample1", "ee", "gene1"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
}

func TestTaskRejectsNonFiniteMean(t *testing.T) {
	m := sim.NewCountMatrix(1, 1)
	tk := &task{
		cluster:    "cluster1",
		sample:     "sample1",
		category:   sim.CategoryEE,
		genes:      []int{0},
		baseMean:   []float64{math.NaN()},
		dispersion: []float64{0.5},
		foldChange: []float64{0},
		colsA:      []int{0},
		factorsA:   []float64{1},
	}
	if err := tk.run(m, 1, rand.New(rand.NewPCG(1, 2))); !core.IsInvalidParameterError(err) {
		t.Fatalf("expected invalid parameter, got %v", err)
	}
}

func deTask(nCells int, foldChange float64) (*sim.CountMatrix, *task) {
	m := sim.NewCountMatrix(1, 2*nCells)
	colsA := make([]int, nCells)
	colsB := make([]int, nCells)
	factors := make([]float64, nCells)
	for i := 0; i < nCells; i++ {
		colsA[i] = i
		colsB[i] = nCells + i
		factors[i] = 1
	}
	return m, &task{
		cluster:    "cluster1",
		sample:     "sample1",
		category:   sim.CategoryDE,
		genes:      []int{0},
		baseMean:   []float64{10},
		dispersion: []float64{0.1},
		foldChange: []float64{foldChange},
		colsA:      colsA,
		colsB:      colsB,
		factorsA:   factors,
		factorsB:   factors,
	}
}

func TestTaskDEShiftsGroupB(t *testing.T) {
	m, tk := deTask(400, 4)
	if err := tk.run(m, 2, rand.New(rand.NewPCG(8, 8))); err != nil {
		t.Fatalf("run: %v", err)
	}
	var sumA, sumB float64
	for i := 0; i < 400; i++ {
		sumA += float64(m.At(0, i))
		sumB += float64(m.At(0, 400+i))
	}
	ratio := sumB / sumA
	if ratio < 3.0 || ratio > 5.2 {
		t.Fatalf("group B / group A ratio = %.2f, want about 4", ratio)
	}
}

func TestTaskNegativeFoldChangeSuppressesGroupB(t *testing.T) {
	m, tk := deTask(400, -4)
	if err := tk.run(m, 2, rand.New(rand.NewPCG(9, 9))); err != nil {
		t.Fatalf("run: %v", err)
	}
	var sumA, sumB float64
	for i := 0; i < 400; i++ {
		sumA += float64(m.At(0, i))
		sumB += float64(m.At(0, 400+i))
	}
	ratio := sumB / sumA
	if ratio < 0.15 || ratio > 0.4 {
		t.Fatalf("group B / group A ratio = %.3f, want about 0.25", ratio)
	}
}
