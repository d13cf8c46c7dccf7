package engine

import (
	"math/rand/v2"
	"reflect"
	"sort"
	"testing"

	"scsim/domain/sim"
)

func TestAllocatePartitionsEveryGene(t *testing.T) {
	probs := sim.CategoryProbs{0.4, 0.1, 0.2, 0.1, 0.1, 0.1}

	a, err := allocateCategories(500, 200, probs, rand.New(rand.NewPCG(5, 1)))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if a.counts.Total() != 500 {
		t.Fatalf("tally total = %d, want 500", a.counts.Total())
	}

	seen := make(map[int]bool)
	for ci, category := range sim.Categories {
		genes := a.genesFor(category)
		if len(genes) != a.counts[ci] {
			t.Fatalf("%s: %d genes vs tally %d", category, len(genes), a.counts[ci])
		}
		if !sort.IntsAreSorted(genes) {
			t.Fatalf("%s gene slots not in ascending order", category)
		}
		for _, g := range genes {
			if g < 0 || g >= 500 {
				t.Fatalf("%s: slot %d out of range", category, g)
			}
			if seen[g] {
				t.Fatalf("gene %d assigned to two categories", g)
			}
			seen[g] = true
		}
	}
	if len(seen) != 500 {
		t.Fatalf("assigned %d of 500 genes", len(seen))
	}

	for g, src := range a.sources {
		if src < 0 || src >= 200 {
			t.Fatalf("gene %d has source %d outside the reference", g, src)
		}
	}
}

func TestAllocateZeroProbabilityCategoryGetsNothing(t *testing.T) {
	probs := sim.CategoryProbs{1, 0, 0, 0, 0, 0}
	a, err := allocateCategories(100, 50, probs, rand.New(rand.NewPCG(6, 1)))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if got := a.counts.For(sim.CategoryEE); got != 100 {
		t.Fatalf("EE tally = %d, want 100", got)
	}
	for _, category := range sim.Categories[1:] {
		if n := len(a.genesFor(category)); n != 0 {
			t.Fatalf("%s received %d genes with zero probability", category, n)
		}
	}
}

func TestAllocateDeterministicForSeed(t *testing.T) {
	probs := sim.CategoryProbs{0.5, 0.1, 0.1, 0.1, 0.1, 0.1}

	a1, err := allocateCategories(64, 32, probs, rand.New(rand.NewPCG(9, 3)))
	if err != nil {
		t.Fatalf("first allocate: %v", err)
	}
	a2, err := allocateCategories(64, 32, probs, rand.New(rand.NewPCG(9, 3)))
	if err != nil {
		t.Fatalf("second allocate: %v", err)
	}
	if !reflect.DeepEqual(a1, a2) {
		t.Fatal("same stream produced different allocations")
	}
}
