package engine

import (
	"math/rand/v2"
)

// streamKind tags the independent random streams derived from one master
// seed. Keeping every consumer on its own named stream is what makes the
// engine reproducible under parallel execution: a count-generation task for
// (cluster, sample, category) always sees the same draw sequence no matter
// which worker runs it or when.
type streamKind uint64

const (
	streamPartition streamKind = iota + 1
	streamAlloc
	streamEffects
	streamCounts
)

// streams derives sub-seeded PCG generators from the master seed.
type streams struct {
	seed uint64
}

func newStreams(seed int64) streams {
	return streams{seed: uint64(seed)}
}

// id packs (kind, cluster, sample, category) into the PCG's second seed word.
// 16 bits per field is far beyond any realistic cluster/sample count.
func (s streams) id(kind streamKind, cluster, sample, category int) uint64 {
	return uint64(kind)<<48 |
		uint64(cluster&0xffff)<<32 |
		uint64(sample&0xffff)<<16 |
		uint64(category&0xffff)
}

func (s streams) derive(kind streamKind, cluster, sample, category int) *rand.Rand {
	return rand.New(rand.NewPCG(s.seed, s.id(kind, cluster, sample, category)))
}

// partition owns bucket allotment and group splitting.
func (s streams) partition() *rand.Rand {
	return s.derive(streamPartition, 0, 0, 0)
}

// alloc owns one cluster's category tallies, gene-slot draws and source draws.
func (s streams) alloc(cluster int) *rand.Rand {
	return s.derive(streamAlloc, cluster, 0, 0)
}

// effects owns one cluster's fold-change draws.
func (s streams) effects(cluster int) *rand.Rand {
	return s.derive(streamEffects, cluster, 0, 0)
}

// counts owns one (cluster, sample, category) generation task.
func (s streams) counts(cluster, sample int, category int) *rand.Rand {
	return s.derive(streamCounts, cluster, sample, category)
}
