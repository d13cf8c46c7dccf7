package testkit

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"scsim/domain/core"
	"scsim/domain/sim"
	"scsim/ports"
)

// fixtureSeed keeps every synthetic fixture reproducible across test runs.
const fixtureSeed = 1402

// Reference builds a deterministic synthetic reference with nClusters x
// nSamples label combinations and cellsPer cells in each. Gene means follow
// a log-normal profile and dispersions stay in a realistic 0.05..1 band.
func Reference(nGenes, nClusters, nSamples, cellsPer int) *sim.Reference {
	rng := rand.New(rand.NewPCG(fixtureSeed, uint64(nGenes)))

	genes := make([]sim.GeneParam, nGenes)
	for i := range genes {
		genes[i] = sim.GeneParam{
			ID:         core.GeneID(fmt.Sprintf("ref_gene%d", i+1)),
			LogMean:    rng.NormFloat64()*1.2 + 1.0,
			Dispersion: 0.05 + 0.95*rng.Float64(),
		}
	}

	cells := make([]sim.CellParam, 0, nClusters*nSamples*cellsPer)
	idx := 0
	for c := 0; c < nClusters; c++ {
		for s := 0; s < nSamples; s++ {
			for k := 0; k < cellsPer; k++ {
				idx++
				cells = append(cells, sim.CellParam{
					ID:        fmt.Sprintf("ref_cell%d", idx),
					LogOffset: rng.NormFloat64() * 0.2,
					Cluster:   core.ClusterID(fmt.Sprintf("cluster%d", c+1)),
					Sample:    core.SampleID(fmt.Sprintf("sample%d", s+1)),
				})
			}
		}
	}

	ref, err := sim.NewReference(genes, cells)
	if err != nil {
		panic(fmt.Sprintf("testkit reference fixture invalid: %v", err))
	}
	return ref
}

// FlatReference builds a reference where every gene shares one mean and
// dispersion and every cell has a zero offset. Useful when a test needs the
// expected count scale to be obvious.
func FlatReference(nGenes, cellsPer int, logMean, dispersion float64) *sim.Reference {
	genes := make([]sim.GeneParam, nGenes)
	for i := range genes {
		genes[i] = sim.GeneParam{
			ID:         core.GeneID(fmt.Sprintf("ref_gene%d", i+1)),
			LogMean:    logMean,
			Dispersion: dispersion,
		}
	}
	cells := make([]sim.CellParam, cellsPer)
	for i := range cells {
		cells[i] = sim.CellParam{
			ID:      fmt.Sprintf("ref_cell%d", i+1),
			Cluster: "cluster1",
			Sample:  "sample1",
		}
	}
	ref, err := sim.NewReference(genes, cells)
	if err != nil {
		panic(fmt.Sprintf("testkit flat reference invalid: %v", err))
	}
	return ref
}

// StaticReference adapts a fixed reference into a ports.ReferenceReader.
type StaticReference struct {
	Ref *sim.Reference
}

func (s StaticReference) Load(ctx context.Context) (*sim.Reference, error) {
	if s.Ref == nil {
		return nil, core.NewReferenceError("fixture reader holds no reference")
	}
	return s.Ref, nil
}

// MemoryRunRepository implements ports.RunRepository with in-memory storage.
type MemoryRunRepository struct {
	mu   sync.RWMutex
	runs map[core.RunID]*ports.RunRecord
}

func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{runs: make(map[core.RunID]*ports.RunRecord)}
}

func (r *MemoryRunRepository) Save(ctx context.Context, rec *ports.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.runs[rec.ID] = &cp
	return nil
}

func (r *MemoryRunRepository) Get(ctx context.Context, id core.RunID) (*ports.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.runs[id]
	if !ok {
		return nil, core.ErrRunNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *MemoryRunRepository) List(ctx context.Context, limit, offset int) ([]*ports.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*ports.RunRecord, 0, len(r.runs))
	for _, rec := range r.runs {
		cp := *rec
		cp.Truth = nil
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		ti, tj := all[i].CreatedAt.Time(), all[j].CreatedAt.Time()
		if ti.Equal(tj) {
			return all[i].ID > all[j].ID
		}
		return ti.After(tj)
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRunRepository) Delete(ctx context.Context, id core.RunID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[id]; !ok {
		return core.ErrRunNotFound
	}
	delete(r.runs, id)
	return nil
}

// AlmostEqual reports whether two floats agree within tol.
func AlmostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
