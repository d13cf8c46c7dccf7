package engine

import (
	"errors"
	"math/rand/v2"
	"testing"

	"scsim/domain/core"
	"scsim/domain/sim"
	"scsim/internal/testkit"
)

func TestBuildLayoutUsesEveryCellExactlyOnce(t *testing.T) {
	// 2x2 design with 20 cells per label pair and 10+10 requested per
	// bucket: the group split must consume the entire population.
	ref := testkit.Reference(5, 2, 2, 20)
	lay, err := buildLayout(ref, sim.FixedCells(10), rand.New(rand.NewPCG(11, 1)))
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if len(lay.buckets) != 4 {
		t.Fatalf("expected 4 buckets, got %d", len(lay.buckets))
	}
	if lay.totalCols != 80 {
		t.Fatalf("total columns = %d, want 80", lay.totalCols)
	}

	seen := make(map[int]bool)
	for _, b := range lay.buckets {
		cluster := ref.Clusters[b.clusterIdx]
		sample := ref.Samples[b.sampleIdx]
		for _, cell := range append(append([]int{}, b.groupA...), b.groupB...) {
			if seen[cell] {
				t.Fatalf("cell %d assigned twice", cell)
			}
			seen[cell] = true
			if ref.Cells[cell].Cluster != cluster || ref.Cells[cell].Sample != sample {
				t.Fatalf("cell %d labeled %s/%s landed in bucket %s/%s",
					cell, ref.Cells[cell].Cluster, ref.Cells[cell].Sample, cluster, sample)
			}
		}
	}
	if len(seen) != len(ref.Cells) {
		t.Fatalf("used %d of %d cells", len(seen), len(ref.Cells))
	}
}

func TestBuildLayoutRangedSizes(t *testing.T) {
	ref := testkit.Reference(5, 2, 3, 30)
	lay, err := buildLayout(ref, sim.CellRange(5, 9), rand.New(rand.NewPCG(12, 1)))
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	cols := 0
	for _, b := range lay.buckets {
		for _, n := range []int{len(b.groupA), len(b.groupB)} {
			if n < 5 || n > 9 {
				t.Fatalf("group size %d outside [5, 9]", n)
			}
		}
		if b.colStart != cols {
			t.Fatalf("bucket column start %d, want %d", b.colStart, cols)
		}
		cols += b.size()
	}
	if cols != lay.totalCols {
		t.Fatalf("column total %d vs layout %d", cols, lay.totalCols)
	}
}

func TestBuildLayoutOverdraw(t *testing.T) {
	ref := testkit.Reference(5, 1, 1, 12)
	_, err := buildLayout(ref, sim.FixedCells(10), rand.New(rand.NewPCG(13, 1)))
	if !errors.Is(err, core.ErrInsufficientPopulation) {
		t.Fatalf("expected insufficient population, got %v", err)
	}
}

func TestGroupSizeFixedConsumesNoDraws(t *testing.T) {
	rng1 := rand.New(rand.NewPCG(14, 1))
	_ = groupSize(sim.FixedCells(7), rng1)
	rng2 := rand.New(rand.NewPCG(14, 1))
	if rng1.Uint64() != rng2.Uint64() {
		t.Fatal("fixed size consumed randomness")
	}
}
