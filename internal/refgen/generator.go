// Package refgen builds synthetic references for the simulator:
// log-normal gene means, gamma dispersions, normal library offsets and
// balanced cluster/sample labels. Handy when no real dataset is at hand.
package refgen

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"scsim/domain/core"
	"scsim/domain/sim"
)

// Config controls the shape of the generated reference.
type Config struct {
	Genes    int
	Cells    int
	Clusters int
	Samples  int
	Seed     uint64

	// LogMeanLoc and LogMeanSD parameterize the normal draw for per-gene
	// log means, i.e. log-normal means on the count scale.
	LogMeanLoc float64
	LogMeanSD  float64
	// DispShape and DispRate parameterize the gamma draw for dispersions.
	DispShape float64
	DispRate  float64
	// OffsetSD is the spread of per-cell log size offsets.
	OffsetSD float64
}

// DefaultConfig mirrors a mid-sized droplet dataset.
func DefaultConfig() Config {
	return Config{
		Genes:      2000,
		Cells:      1200,
		Clusters:   3,
		Samples:    2,
		Seed:       42,
		LogMeanLoc: 1.0,
		LogMeanSD:  1.5,
		DispShape:  2,
		DispRate:   4,
		OffsetSD:   0.25,
	}
}

// Generate builds a reference deterministically from cfg.Seed. Cells are
// spread as evenly as possible over the cluster x sample label pairs, the
// remainder going to the earliest pairs.
func Generate(cfg Config) (*sim.Reference, error) {
	if cfg.Genes <= 0 {
		return nil, core.NewArgumentError("genes", "must be positive")
	}
	if cfg.Clusters <= 0 || cfg.Samples <= 0 {
		return nil, core.NewArgumentError("clusters/samples", "must be positive")
	}
	buckets := cfg.Clusters * cfg.Samples
	if cfg.Cells < buckets {
		return nil, core.NewArgumentError("cells", fmt.Sprintf("need at least %d, one per label pair", buckets))
	}
	if cfg.DispShape <= 0 || cfg.DispRate <= 0 {
		return nil, core.NewArgumentError("dispersion", "gamma shape and rate must be positive")
	}
	if cfg.LogMeanSD < 0 || cfg.OffsetSD < 0 {
		return nil, core.NewArgumentError("spread", "standard deviations must not be negative")
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, 0x7ef9))
	logMean := distuv.Normal{Mu: cfg.LogMeanLoc, Sigma: cfg.LogMeanSD, Src: rng}
	disp := distuv.Gamma{Alpha: cfg.DispShape, Beta: cfg.DispRate, Src: rng}
	offset := distuv.Normal{Mu: 0, Sigma: cfg.OffsetSD, Src: rng}

	genes := make([]sim.GeneParam, cfg.Genes)
	for i := range genes {
		genes[i] = sim.GeneParam{
			ID:         core.GeneID(fmt.Sprintf("g%05d", i+1)),
			LogMean:    logMean.Rand(),
			Dispersion: disp.Rand(),
		}
	}

	cells := make([]sim.CellParam, 0, cfg.Cells)
	per, extra := cfg.Cells/buckets, cfg.Cells%buckets
	id := 0
	for ci := 0; ci < cfg.Clusters; ci++ {
		for si := 0; si < cfg.Samples; si++ {
			n := per
			if ci*cfg.Samples+si < extra {
				n++
			}
			for k := 0; k < n; k++ {
				id++
				cells = append(cells, sim.CellParam{
					ID:        fmt.Sprintf("c%06d", id),
					LogOffset: offset.Rand(),
					Cluster:   core.ClusterID(fmt.Sprintf("cluster%d", ci+1)),
					Sample:    core.SampleID(fmt.Sprintf("sample%d", si+1)),
				})
			}
		}
	}

	return sim.NewReference(genes, cells)
}
