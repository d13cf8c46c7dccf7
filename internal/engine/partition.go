package engine

import (
	"fmt"
	"math/rand/v2"

	"scsim/domain/sim"
)

// bucket is one (cluster, sample) simulation unit: the group A and group B
// reference cells assigned to it, in draw order, and the matrix column range
// it occupies.
type bucket struct {
	clusterIdx int
	sampleIdx  int
	groupA     []int // reference cell indices
	groupB     []int
	colStart   int
}

func (b *bucket) size() int {
	return len(b.groupA) + len(b.groupB)
}

// layout is the full bucket partition in column order.
type layout struct {
	buckets   []*bucket
	totalCols int
}

// buildLayout runs the two partition stages. Stage one allots every reference
// cell to its bucket: buckets are visited cluster-major in factor-level order
// and draw as many cells from the shared pool as the reference holds for that
// (cluster, sample) label pair. Stage two splits each allotment into group A
// then group B of the requested sizes; ranged sizes consume two uniform draws
// per bucket (A before B). Requesting more cells than a bucket's allotment
// fails with ErrInsufficientPopulation rather than truncating.
func buildLayout(ref *sim.Reference, cells sim.CellCount, rng *rand.Rand) (*layout, error) {
	counts := ref.BucketCounts()
	pool := NewIndexPool("reference cells", len(ref.Cells))

	l := &layout{}
	col := 0
	for ci := range ref.Clusters {
		for si := range ref.Samples {
			name := fmt.Sprintf("%s/%s", ref.Clusters[ci], ref.Samples[si])
			allotted, err := pool.Draw(counts[ci][si], rng)
			if err != nil {
				return nil, fmt.Errorf("allotting cells to bucket %s: %w", name, err)
			}

			nA := groupSize(cells, rng)
			nB := groupSize(cells, rng)

			bp := NewPool("bucket "+name, allotted)
			groupA, err := bp.Draw(nA, rng)
			if err != nil {
				return nil, err
			}
			groupB, err := bp.Draw(nB, rng)
			if err != nil {
				return nil, err
			}

			l.buckets = append(l.buckets, &bucket{
				clusterIdx: ci,
				sampleIdx:  si,
				groupA:     groupA,
				groupB:     groupB,
				colStart:   col,
			})
			col += nA + nB
		}
	}
	l.totalCols = col
	return l, nil
}

// groupSize resolves one group's cell count. Fixed counts consume no draws.
func groupSize(cells sim.CellCount, rng *rand.Rand) int {
	if cells.Fixed() {
		return cells.Low
	}
	return cells.Low + rng.IntN(cells.High-cells.Low+1)
}
