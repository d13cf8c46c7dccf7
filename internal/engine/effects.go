package engine

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"scsim/domain/sim"
)

// effectShape is the Gamma shape for fold-change magnitudes. With rate
// shape/fc the magnitudes average exactly the requested fold-change.
const effectShape = 4

// sampleEffects draws one signed fold-change per non-EE gene of a cluster,
// keyed by synthetic gene index. EE genes get no entry: their fold-change is
// absent, not zero. Draw order is fixed: categories in canonical order, genes
// ascending within a category, sign before magnitude per gene.
func sampleEffects(a *allocation, fc float64, rng *rand.Rand) map[int]float64 {
	gamma := distuv.Gamma{Alpha: effectShape, Beta: effectShape / fc, Src: rng}

	effects := make(map[int]float64)
	for ci, category := range sim.Categories {
		if !category.HasFoldChange() {
			continue
		}
		for _, g := range a.genes[ci] {
			sign := 1.0
			if rng.Float64() < 0.5 {
				sign = -1.0
			}
			effects[g] = sign * gamma.Rand()
		}
	}
	return effects
}
