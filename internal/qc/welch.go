package qc

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"scsim/domain/core"
)

// TTest holds one Welch's t-test outcome.
type TTest struct {
	T     float64 `json:"t"`
	DF    float64 `json:"df"`
	P     float64 `json:"p"`
	D     float64 `json:"d"` // Cohen's d on the pooled sd
	MeanA float64 `json:"mean_a"`
	MeanB float64 `json:"mean_b"`
}

// WelchTTest compares two samples without assuming equal variances, using
// the Welch-Satterthwaite degrees of freedom. It needs at least two
// observations per side.
func WelchTTest(a, b []float64) (TTest, error) {
	if len(a) < 2 || len(b) < 2 {
		return TTest{P: 1}, core.NewArgumentError("samples", "need at least two observations per group")
	}

	n1, n2 := float64(len(a)), float64(len(b))
	mean1, mean2 := mean(a), mean(b)
	var1, var2 := variance(a, mean1), variance(b, mean2)

	se := math.Sqrt(var1/n1 + var2/n2)
	if se == 0 {
		// Two constant groups carry no evidence either way.
		return TTest{P: 1, DF: n1 + n2 - 2, MeanA: mean1, MeanB: mean2}, nil
	}
	t := (mean1 - mean2) / se
	df := math.Pow(var1/n1+var2/n2, 2) /
		(math.Pow(var1/n1, 2)/(n1-1) + math.Pow(var2/n2, 2)/(n2-1))

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.CDF(-math.Abs(t))

	d := 0.0
	if pooled := math.Sqrt(((n1-1)*var1 + (n2-1)*var2) / (n1 + n2 - 2)); pooled > 0 {
		d = (mean1 - mean2) / pooled
	}
	return TTest{T: t, DF: df, P: p, D: d, MeanA: mean1, MeanB: mean2}, nil
}

func mean(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

func variance(x []float64, m float64) float64 {
	if len(x) < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range x {
		diff := v - m
		sumSq += diff * diff
	}
	return sumSq / float64(len(x)-1)
}
