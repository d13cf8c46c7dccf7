package engine

import (
	"math"
	"math/rand/v2"
	"strconv"

	"gonum.org/v1/gonum/stat/distuv"

	"scsim/domain/core"
	"scsim/domain/sim"
)

// nbSampler draws negative-binomial counts as a Gamma-Poisson mixture, since
// distuv carries no negative-binomial sampler of its own. For mean mu and
// dispersion phi: r = 1/phi, lambda ~ Gamma(shape r, rate r/mu), count ~
// Poisson(lambda). That composition has mean mu and variance mu + phi*mu^2.
type nbSampler struct {
	rng *rand.Rand
}

// draw returns one count. mu must be finite and non-negative, phi positive;
// callers validate per gene before entering the cell loop.
func (s nbSampler) draw(mu, phi float64) int {
	if mu == 0 {
		return 0
	}
	r := 1 / phi
	lambda := distuv.Gamma{Alpha: r, Beta: r / mu, Src: s.rng}.Rand()
	if lambda <= 0 {
		return 0
	}
	return int(distuv.Poisson{Lambda: lambda, Src: s.rng}.Rand())
}

// task is one (cluster, sample, category) unit of count generation. Tasks
// touch disjoint row x column blocks of the shared matrix, so they run
// without locks; each owns a private sub-seeded stream.
type task struct {
	clusterIdx int
	sampleIdx  int
	cluster    core.ClusterID
	sample     core.SampleID
	category   sim.Category

	// genes holds ascending synthetic gene rows; the three slices below are
	// parallel to it.
	genes      []int
	baseMean   []float64 // exp of the source gene's log mean
	dispersion []float64
	foldChange []float64 // signed; 0 for EE (unused by its rule)

	// column indices and exp(offset) factors, group A then group B
	colsA, colsB       []int
	factorsA, factorsB []float64
}

// run fills the task's matrix block. Draw order is fixed and part of the
// reproducibility contract: genes ascending, group A cells then group B
// cells in column order, and for bimodal groups the component draw precedes
// the count draw for each cell.
func (t *task) run(m *sim.CountMatrix, thetaRef float64, rng *rand.Rand) error {
	nb := nbSampler{rng: rng}
	rule := ruleFor(t.category)

	for gi, g := range t.genes {
		mean, phi := t.baseMean[gi], t.dispersion[gi]
		if err := t.checkGene(g, mean, phi); err != nil {
			return err
		}

		mods := newModifiers(t.foldChange[gi], thetaRef)
		specA, specB := rule.a(mods), rule.b(mods)

		if err := t.fillGroup(m, nb, g, mean, phi, specA, t.colsA, t.factorsA, rng); err != nil {
			return err
		}
		if err := t.fillGroup(m, nb, g, mean, phi, specB, t.colsB, t.factorsB, rng); err != nil {
			return err
		}
	}
	return nil
}

func (t *task) fillGroup(m *sim.CountMatrix, nb nbSampler, g int, mean, phi float64, spec componentSpec, cols []int, factors []float64, rng *rand.Rand) error {
	row := m.Data[g]
	for i, col := range cols {
		mult := spec.Low
		if spec.bimodal() {
			mult = spec.pick(rng.Float64() < spec.PHigh)
		}
		mu := mean * factors[i] * mult
		if math.IsNaN(mu) || math.IsInf(mu, 0) {
			return t.parameterError(g, "mean overflows")
		}
		row[col] = nb.draw(mu, phi)
	}
	return nil
}

// checkGene rejects reference parameters the sampler cannot use. These are
// data-quality failures of the reference, surfaced at the first draw that
// would need them.
func (t *task) checkGene(g int, mean, phi float64) error {
	if math.IsNaN(mean) || math.IsInf(mean, 0) || mean < 0 {
		return t.parameterError(g, "non-finite or negative mean")
	}
	if math.IsNaN(phi) || math.IsInf(phi, 0) || phi <= 0 {
		return t.parameterError(g, "dispersion must be positive and finite")
	}
	return nil
}

func (t *task) parameterError(g int, reason string) error {
	gene := "gene" + strconv.Itoa(g+1)
	return core.NewParameterError(t.cluster.String(), t.sample.String(), t.category.String(), gene, reason)
}
