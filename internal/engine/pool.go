package engine

import (
	"math/rand/v2"

	"scsim/domain/core"
)

// Pool holds the remaining members of a finite index population. Draw removes
// what it returns, so every index handed out across a pool's lifetime is
// distinct by construction. A pool is owned by exactly one draw sequence and
// is not safe for concurrent use.
type Pool struct {
	name  string
	items []int
}

// NewPool wraps an index slice. The pool takes ownership of the slice.
func NewPool(name string, items []int) *Pool {
	return &Pool{name: name, items: items}
}

// NewIndexPool builds a pool over 0..n-1.
func NewIndexPool(name string, n int) *Pool {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return &Pool{name: name, items: items}
}

// Remaining reports how many members are still drawable.
func (p *Pool) Remaining() int {
	return len(p.items)
}

// Draw removes and returns k distinct members chosen uniformly at random.
// Draws beyond the remaining population fail with ErrInsufficientPopulation;
// the pool is left untouched on failure.
func (p *Pool) Draw(k int, rng *rand.Rand) ([]int, error) {
	if k < 0 {
		return nil, core.NewArgumentError("k", "draw size cannot be negative")
	}
	if k > len(p.items) {
		return nil, core.NewPopulationError(p.name, k, len(p.items))
	}
	out := make([]int, 0, k)
	for i := 0; i < k; i++ {
		j := rng.IntN(len(p.items))
		out = append(out, p.items[j])
		last := len(p.items) - 1
		p.items[j] = p.items[last]
		p.items = p.items[:last]
	}
	return out, nil
}
