package engine

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"scsim/domain/sim"
)

// allocation records one cluster's category assignment: how many genes landed
// in each category, which synthetic gene slots they occupy, and which
// reference gene backs each slot.
type allocation struct {
	counts sim.CategoryTally
	// genes holds ascending synthetic gene indices per category, keyed by
	// canonical category position. Disjoint by construction.
	genes [6][]int
	// sources maps synthetic gene index to reference gene index, drawn with
	// replacement independently of category assignment.
	sources []int
}

// genesFor returns the synthetic gene indices assigned to a category.
func (a *allocation) genesFor(c sim.Category) []int {
	return a.genes[c.Index()]
}

// allocateCategories runs the per-cluster allocation. Draw order is fixed:
// nGenes categorical draws, then per-category slot draws in canonical
// category order, then nGenes source draws. A category with probability zero
// is never drawn, so it triggers no slot draws and no downstream work.
func allocateCategories(nGenes, nRefGenes int, probs sim.CategoryProbs, rng *rand.Rand) (*allocation, error) {
	a := &allocation{sources: make([]int, nGenes)}

	cat := distuv.NewCategorical(probs.Weights(), rng)
	for i := 0; i < nGenes; i++ {
		a.counts[int(cat.Rand())]++
	}

	pool := NewIndexPool("gene slots", nGenes)
	for ci := range sim.Categories {
		n := a.counts[ci]
		if n == 0 {
			continue
		}
		slots, err := pool.Draw(n, rng)
		if err != nil {
			// Cannot happen: tallies sum to the pool size.
			return nil, fmt.Errorf("allocating %s genes: %w", sim.Categories[ci], err)
		}
		sort.Ints(slots)
		a.genes[ci] = slots
	}

	for i := 0; i < nGenes; i++ {
		a.sources[i] = rng.IntN(nRefGenes)
	}
	return a, nil
}
