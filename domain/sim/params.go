package sim

import (
	"encoding/json"
	"fmt"
	"math"

	"scsim/domain/core"
)

// pddTolerance is how far the category probabilities may drift from summing
// to exactly 1 before the vector is rejected.
const pddTolerance = 1e-6

// CellCount specifies per-group cell counts for a bucket: either a fixed size
// (Low == High) or a closed integer range sampled independently per group.
type CellCount struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// FixedCells returns a fixed group size.
func FixedCells(n int) CellCount {
	return CellCount{Low: n, High: n}
}

// CellRange returns an inclusive [low, high] group-size range.
func CellRange(low, high int) CellCount {
	return CellCount{Low: low, High: high}
}

// Fixed reports whether the count is a single value rather than a range.
func (c CellCount) Fixed() bool {
	return c.Low == c.High
}

// Validate checks range shape: both bounds positive and ascending.
func (c CellCount) Validate() error {
	if c.Low < 1 {
		return fmt.Errorf("%w: lower bound %d must be >= 1", core.ErrInvalidNCells, c.Low)
	}
	if c.High < c.Low {
		return fmt.Errorf("%w: range [%d, %d] is not ascending", core.ErrInvalidNCells, c.Low, c.High)
	}
	return nil
}

func (c CellCount) String() string {
	if c.Fixed() {
		return fmt.Sprintf("%d", c.Low)
	}
	return fmt.Sprintf("[%d, %d]", c.Low, c.High)
}

// MarshalJSON encodes a fixed count as a number and a range as a 2-array.
func (c CellCount) MarshalJSON() ([]byte, error) {
	if c.Fixed() {
		return json.Marshal(c.Low)
	}
	return json.Marshal([2]int{c.Low, c.High})
}

// UnmarshalJSON accepts either a number or an ascending 2-array.
func (c *CellCount) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*c = FixedCells(n)
		return nil
	}
	var r [2]int
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("n_cells must be an integer or a [low, high] pair")
	}
	*c = CellRange(r[0], r[1])
	return nil
}

// CategoryProbs is the 6-way category probability vector in canonical order
// {EE, EP, DE, DP, DM, DB}. It must be non-negative and sum to 1.
type CategoryProbs [6]float64

// For returns the probability assigned to a category.
func (p CategoryProbs) For(c Category) float64 {
	i := c.Index()
	if i < 0 {
		return 0
	}
	return p[i]
}

// Validate rejects negative entries and vectors not summing to 1.
func (p CategoryProbs) Validate() error {
	sum := 0.0
	for i, v := range p {
		if math.IsNaN(v) || v < 0 {
			return fmt.Errorf("%w: entry %d (%s) is %v", core.ErrInvalidPDD, i, Categories[i], v)
		}
		sum += v
	}
	if math.Abs(sum-1) > pddTolerance {
		return fmt.Errorf("%w: entries sum to %v, want 1", core.ErrInvalidPDD, sum)
	}
	return nil
}

// Weights returns the vector as a slice for categorical samplers.
func (p CategoryProbs) Weights() []float64 {
	w := make([]float64, len(p))
	copy(w, p[:])
	return w
}

// Params are the user-facing simulation parameters.
type Params struct {
	// NGenes is the number of synthetic genes per cluster.
	NGenes int `json:"n_genes"`
	// Cells is the per-group cell count per bucket, fixed or ranged.
	Cells CellCount `json:"n_cells"`
	// PDD holds the category probabilities {EE, EP, DE, DP, DM, DB}.
	PDD CategoryProbs `json:"p_dd"`
	// FoldChange is the target mean fold-change magnitude, > 1.
	FoldChange float64 `json:"fold_change"`
	// Seed drives every random draw. Same seed, same output.
	Seed int64 `json:"seed"`
}

// DefaultParams mirrors a typical benchmarking setup: mostly-null genes with a
// thin, even spread across the five change categories.
func DefaultParams() Params {
	return Params{
		NGenes:     1000,
		Cells:      FixedCells(100),
		PDD:        CategoryProbs{0.9, 0.02, 0.02, 0.02, 0.02, 0.02},
		FoldChange: 2,
		Seed:       42,
	}
}

// Validate performs the eager argument checks. All failures wrap
// core.ErrInvalidArgument.
func (p Params) Validate() error {
	if p.NGenes <= 0 {
		return fmt.Errorf("%w: %d must be positive", core.ErrInvalidNGenes, p.NGenes)
	}
	if err := p.Cells.Validate(); err != nil {
		return err
	}
	if err := p.PDD.Validate(); err != nil {
		return err
	}
	if math.IsNaN(p.FoldChange) || p.FoldChange <= 1 {
		return fmt.Errorf("%w: %v must be > 1", core.ErrInvalidFC, p.FoldChange)
	}
	return nil
}
