package engine

import (
	"context"
	"math"
	"sync"

	"golang.org/x/sync/semaphore"

	"scsim/domain/core"
	"scsim/domain/sim"
	"scsim/internal"
)

// Engine runs ground-truth-labeled count simulations against a fitted
// reference. The zero worker count means sequential execution.
type Engine struct {
	workers int
	log     *internal.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets how many count tasks may run concurrently. Values below
// two keep the sequential path.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithLogger replaces the default logger.
func WithLogger(log *internal.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New builds an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{workers: 1, log: internal.DefaultLogger.WithPrefix("engine: ")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Simulate runs one full simulation. The same reference, parameters, and
// seed produce byte-identical output regardless of the worker count: every
// random decision draws from a stream derived only from the seed and the
// task's (cluster, sample, category) coordinates.
func (e *Engine) Simulate(ctx context.Context, ref *sim.Reference, p sim.Params) (*sim.Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, core.NewArgumentError("reference", "must not be nil")
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	st := newStreams(p.Seed)

	lay, err := buildLayout(ref, p.Cells, st.partition())
	if err != nil {
		return nil, err
	}
	e.log.Debug("partitioned %d reference cells into %d buckets, %d columns",
		len(ref.Cells), len(lay.buckets), lay.totalCols)

	allocs := make([]*allocation, len(ref.Clusters))
	effects := make([]map[int]float64, len(ref.Clusters))
	for ci := range ref.Clusters {
		allocs[ci], err = allocateCategories(p.NGenes, len(ref.Genes), p.PDD, st.alloc(ci))
		if err != nil {
			return nil, err
		}
		effects[ci] = sampleEffects(allocs[ci], p.FoldChange, st.effects(ci))
	}

	tasks := buildTasks(ref, lay, allocs, effects)
	matrix := sim.NewCountMatrix(p.NGenes, lay.totalCols)
	if err := e.runTasks(ctx, st, tasks, matrix, math.Sqrt(p.FoldChange)); err != nil {
		return nil, err
	}

	cells, sizes := buildCells(ref, lay)
	result := &sim.Result{
		Counts:      matrix,
		Truth:       buildTruth(ref, allocs, effects),
		Cells:       cells,
		SampleSizes: sizes,
		SourceGenes: buildSources(ref, allocs),
		Params:      p,
	}

	var tally sim.CategoryTally
	for _, a := range allocs {
		tally = tally.Add(a.counts)
	}
	result.Manifest = sim.RunManifest{
		Seed:           p.Seed,
		NGenes:         p.NGenes,
		Rows:           matrix.Rows(),
		Cols:           matrix.Cols(),
		Clusters:       len(ref.Clusters),
		Samples:        len(ref.Samples),
		CategoryCounts: tally,
		ReferenceHash:  ref.Fingerprint(),
		CreatedAt:      core.Now(),
	}
	result.Manifest.Fingerprint = result.ComputeFingerprint()

	e.log.Info("simulated %dx%d counts in %d tasks, seed %d",
		matrix.Rows(), matrix.Cols(), len(tasks), p.Seed)
	return result, nil
}

// buildTasks expands the layout and allocations into one work item per
// non-empty (bucket, category). Tasks share read-only inputs and write to
// disjoint matrix blocks, so they may run in any order.
func buildTasks(ref *sim.Reference, l *layout, allocs []*allocation, effects []map[int]float64) []*task {
	var tasks []*task
	for _, b := range l.buckets {
		colsA := make([]int, len(b.groupA))
		factorsA := make([]float64, len(b.groupA))
		for i, cell := range b.groupA {
			colsA[i] = b.colStart + i
			factorsA[i] = math.Exp(ref.Cells[cell].LogOffset)
		}
		colsB := make([]int, len(b.groupB))
		factorsB := make([]float64, len(b.groupB))
		for i, cell := range b.groupB {
			colsB[i] = b.colStart + len(b.groupA) + i
			factorsB[i] = math.Exp(ref.Cells[cell].LogOffset)
		}

		a := allocs[b.clusterIdx]
		for _, category := range sim.Categories {
			genes := a.genesFor(category)
			if len(genes) == 0 {
				continue
			}
			t := &task{
				clusterIdx: b.clusterIdx,
				sampleIdx:  b.sampleIdx,
				cluster:    ref.Clusters[b.clusterIdx],
				sample:     ref.Samples[b.sampleIdx],
				category:   category,
				genes:      genes,
				baseMean:   make([]float64, len(genes)),
				dispersion: make([]float64, len(genes)),
				foldChange: make([]float64, len(genes)),
				colsA:      colsA,
				colsB:      colsB,
				factorsA:   factorsA,
				factorsB:   factorsB,
			}
			for gi, g := range genes {
				src := ref.Genes[a.sources[g]]
				t.baseMean[gi] = math.Exp(src.LogMean)
				t.dispersion[gi] = src.Dispersion
				if category.HasFoldChange() {
					t.foldChange[gi] = effects[b.clusterIdx][g]
				}
			}
			tasks = append(tasks, t)
		}
	}
	return tasks
}

// runTasks executes the count tasks, sequentially or under a weighted
// semaphore. Each task derives its own stream, so both paths fill the
// matrix identically.
func (e *Engine) runTasks(ctx context.Context, st streams, tasks []*task, m *sim.CountMatrix, thetaRef float64) error {
	if e.workers <= 1 {
		for _, t := range tasks {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := t.run(m, thetaRef, st.counts(t.clusterIdx, t.sampleIdx, t.category.Index())); err != nil {
				return err
			}
		}
		return nil
	}

	sem := semaphore.NewWeighted(int64(e.workers))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for _, t := range tasks {
		if err := sem.Acquire(ctx, 1); err != nil {
			setErr(err)
			break
		}
		mu.Lock()
		failed := firstErr != nil
		mu.Unlock()
		if failed {
			sem.Release(1)
			break
		}
		wg.Add(1)
		go func(t *task) {
			defer wg.Done()
			defer sem.Release(1)
			if err := t.run(m, thetaRef, st.counts(t.clusterIdx, t.sampleIdx, t.category.Index())); err != nil {
				setErr(err)
			}
		}(t)
	}

	wg.Wait()
	return firstErr
}
