package engine

import (
	"math"

	"scsim/domain/sim"
)

// componentSpec positions the negative-binomial mean for one group of one
// gene. Low and High multiply the base mean mu; PHigh is the per-cell
// probability of drawing the High component. Unimodal groups set PHigh to 0,
// leaving only Low in play.
type componentSpec struct {
	Low   float64
	High  float64
	PHigh float64
}

// bimodal reports whether cells of this group need a component draw.
func (s componentSpec) bimodal() bool {
	return s.PHigh > 0
}

// pick resolves the mean multiplier for one cell given its component draw.
func (s componentSpec) pick(high bool) float64 {
	if high {
		return s.High
	}
	return s.Low
}

// modifiers carries the per-gene effect quantities the rules are built from:
// the effective multiplier M decoded from the signed fold-change, its square
// root theta, and the run-wide reference spread thetaRef used by EP.
type modifiers struct {
	mult     float64
	theta    float64
	thetaRef float64
}

// newModifiers decodes a signed fold-change: positive means up-regulation by
// the magnitude, negative means down-regulation by its reciprocal.
func newModifiers(foldChange, thetaRef float64) modifiers {
	m := foldChange
	if m < 0 {
		m = 1 / -m
	}
	if m == 0 {
		m = 1
	}
	return modifiers{mult: m, theta: math.Sqrt(m), thetaRef: thetaRef}
}

func unimodal(mult float64) componentSpec {
	return componentSpec{Low: mult, High: mult}
}

// categoryRule builds group A and group B component specs for one gene.
type categoryRule struct {
	a func(m modifiers) componentSpec
	b func(m modifiers) componentSpec
}

// rules is the category strategy table. Component positions are symmetric
// around mu on the log scale (sqrt spread), the DP weight w = 1/(1+M) flips
// between groups and degenerates to 0.5 when M = 1, and DB applies the DE
// shift to an EP-style bimodal base so its group mean ratio is exactly M.
var rules = map[sim.Category]categoryRule{
	sim.CategoryEE: {
		a: func(modifiers) componentSpec { return unimodal(1) },
		b: func(modifiers) componentSpec { return unimodal(1) },
	},
	sim.CategoryEP: {
		a: func(m modifiers) componentSpec {
			return componentSpec{Low: 1 / m.thetaRef, High: m.thetaRef, PHigh: 0.5}
		},
		b: func(m modifiers) componentSpec {
			return componentSpec{Low: 1 / m.thetaRef, High: m.thetaRef, PHigh: 0.5}
		},
	},
	sim.CategoryDE: {
		a: func(modifiers) componentSpec { return unimodal(1) },
		b: func(m modifiers) componentSpec { return unimodal(m.mult) },
	},
	sim.CategoryDP: {
		a: func(m modifiers) componentSpec {
			return componentSpec{Low: 1 / m.theta, High: m.theta, PHigh: 1 / (1 + m.mult)}
		},
		b: func(m modifiers) componentSpec {
			return componentSpec{Low: 1 / m.theta, High: m.theta, PHigh: 1 - 1/(1+m.mult)}
		},
	},
	sim.CategoryDM: {
		a: func(modifiers) componentSpec { return unimodal(1) },
		b: func(m modifiers) componentSpec {
			return componentSpec{Low: 1, High: m.mult, PHigh: 0.5}
		},
	},
	sim.CategoryDB: {
		a: func(m modifiers) componentSpec {
			return componentSpec{Low: 1 / m.theta, High: m.theta, PHigh: 0.5}
		},
		b: func(m modifiers) componentSpec {
			return componentSpec{Low: m.mult / m.theta, High: m.mult * m.theta, PHigh: 0.5}
		},
	},
}

// ruleFor returns the strategy for a category.
func ruleFor(c sim.Category) categoryRule {
	return rules[c]
}
