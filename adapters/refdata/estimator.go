package refdata

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"scsim/domain/core"
	"scsim/domain/sim"
)

// dispersionFloor keeps moment-based estimates strictly positive.
const dispersionFloor = 1e-4

// RawDataset is an unfitted genes x cells expression matrix with per-cell
// labels, the input to Estimate.
type RawDataset struct {
	GeneIDs  []core.GeneID
	CellIDs  []string
	Clusters []core.ClusterID // one per cell
	Samples  []core.SampleID  // one per cell
	Counts   [][]float64      // genes x cells
}

// EstimateStats reports what the fit kept and dropped.
type EstimateStats struct {
	GenesKept    int `json:"genes_kept"`
	GenesDropped int `json:"genes_dropped"`
}

// Estimate fits reference parameters from raw counts with moment
// estimators: per-cell offsets are log library size over its geometric
// mean, per-gene log means come from the normalized counts, and the
// dispersion is the floored quadratic estimate (var - mean) / mean^2.
// Genes with an all-zero profile are dropped.
func Estimate(raw *RawDataset) (*sim.Reference, EstimateStats, error) {
	var st EstimateStats
	if raw == nil || len(raw.GeneIDs) == 0 || len(raw.CellIDs) == 0 {
		return nil, st, core.NewReferenceError("raw dataset is empty")
	}
	nGenes, nCells := len(raw.GeneIDs), len(raw.CellIDs)
	if len(raw.Counts) != nGenes || len(raw.Clusters) != nCells || len(raw.Samples) != nCells {
		return nil, st, core.NewReferenceError("raw dataset dimensions disagree")
	}

	lib := make([]float64, nCells)
	for _, row := range raw.Counts {
		if len(row) != nCells {
			return nil, st, core.NewReferenceError("count matrix is ragged")
		}
		for c, v := range row {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, st, core.NewReferenceError("counts must be finite and non-negative")
			}
			lib[c] += v
		}
	}
	logSum := 0.0
	for c, l := range lib {
		if l <= 0 {
			return nil, st, core.NewReferenceError("cell " + raw.CellIDs[c] + " has an empty library")
		}
		logSum += math.Log(l)
	}
	geomean := math.Exp(logSum / float64(nCells))

	factors := make([]float64, nCells)
	cells := make([]sim.CellParam, nCells)
	for c := range cells {
		factors[c] = lib[c] / geomean
		cells[c] = sim.CellParam{
			ID:        raw.CellIDs[c],
			LogOffset: math.Log(factors[c]),
			Cluster:   raw.Clusters[c],
			Sample:    raw.Samples[c],
		}
	}

	genes := make([]sim.GeneParam, 0, nGenes)
	for g, row := range raw.Counts {
		var sum, sumSq float64
		for c, v := range row {
			x := v / factors[c]
			sum += x
			sumSq += x * x
		}
		m := sum / float64(nCells)
		if m == 0 {
			st.GenesDropped++
			continue
		}
		variance := 0.0
		if nCells > 1 {
			variance = (sumSq - float64(nCells)*m*m) / float64(nCells-1)
		}
		phi := (variance - m) / (m * m)
		if math.IsNaN(phi) || phi < dispersionFloor {
			phi = dispersionFloor
		}
		genes = append(genes, sim.GeneParam{
			ID:         raw.GeneIDs[g],
			LogMean:    math.Log(m),
			Dispersion: phi,
		})
	}
	st.GenesKept = len(genes)
	if len(genes) == 0 {
		return nil, st, core.NewReferenceError("every gene dropped: no nonzero counts")
	}

	ref, err := sim.NewReference(genes, cells)
	if err != nil {
		return nil, st, err
	}
	return ref, st, nil
}

// LoadRawDataset reads a raw counts table (a gene column followed by one
// column per cell) and a cell annotation table (cell, cluster, sample).
// The counts header fixes the cell order.
func LoadRawDataset(countsPath, cellsPath string) (*RawDataset, error) {
	countRows, err := readTable(countsPath, "counts")
	if err != nil {
		return nil, err
	}
	annRows, err := readTable(cellsPath, "cells")
	if err != nil {
		return nil, err
	}

	annCols, err := headerIndex(annRows[0], "cell", "cluster", "sample")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cellsPath, err)
	}
	type labels struct {
		cluster core.ClusterID
		sample  core.SampleID
	}
	ann := make(map[string]labels, len(annRows)-1)
	for _, row := range annRows[1:] {
		ann[field(row, annCols["cell"])] = labels{
			cluster: core.ClusterID(field(row, annCols["cluster"])),
			sample:  core.SampleID(field(row, annCols["sample"])),
		}
	}

	header := countRows[0]
	if len(header) < 2 || strings.ToLower(strings.TrimSpace(header[0])) != "gene" {
		return nil, core.NewReferenceError("counts table must start with a gene column")
	}
	cellIDs := make([]string, len(header)-1)
	clusters := make([]core.ClusterID, len(cellIDs))
	samples := make([]core.SampleID, len(cellIDs))
	for i := range cellIDs {
		id := strings.TrimSpace(header[i+1])
		lab, ok := ann[id]
		if !ok {
			return nil, core.NewReferenceError("cell " + id + " missing from the annotation table")
		}
		cellIDs[i] = id
		clusters[i] = lab.cluster
		samples[i] = lab.sample
	}

	geneIDs := make([]core.GeneID, 0, len(countRows)-1)
	counts := make([][]float64, 0, len(countRows)-1)
	for i, row := range countRows[1:] {
		geneIDs = append(geneIDs, core.GeneID(field(row, 0)))
		vals := make([]float64, len(cellIDs))
		for c := range cellIDs {
			raw := field(row, c+1)
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, core.NewReferenceError(fmt.Sprintf("counts row %d: bad count %q", i+2, raw))
			}
			vals[c] = v
		}
		counts = append(counts, vals)
	}

	return &RawDataset{GeneIDs: geneIDs, CellIDs: cellIDs, Clusters: clusters, Samples: samples, Counts: counts}, nil
}
