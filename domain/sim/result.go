package sim

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"scsim/domain/core"
)

// CountMatrix is the simulated gene-by-cell matrix of non-negative integer
// counts. Rows follow synthetic gene index order; columns follow the exact
// order cells were drawn (bucket-major, group A before group B).
type CountMatrix struct {
	GeneIDs []string `json:"gene_ids"`
	CellIDs []string `json:"cell_ids"`
	Data    [][]int  `json:"data"`
}

// NewCountMatrix allocates a zeroed rows x cols matrix with generated labels
// gene1..geneN and cell1..cellM.
func NewCountMatrix(rows, cols int) *CountMatrix {
	m := &CountMatrix{
		GeneIDs: make([]string, rows),
		CellIDs: make([]string, cols),
		Data:    make([][]int, rows),
	}
	for g := 0; g < rows; g++ {
		m.GeneIDs[g] = "gene" + strconv.Itoa(g+1)
		m.Data[g] = make([]int, cols)
	}
	for c := 0; c < cols; c++ {
		m.CellIDs[c] = "cell" + strconv.Itoa(c+1)
	}
	return m
}

// Rows returns the gene count.
func (m *CountMatrix) Rows() int { return len(m.Data) }

// Cols returns the cell count.
func (m *CountMatrix) Cols() int { return len(m.CellIDs) }

// At returns the count for (gene, cell).
func (m *CountMatrix) At(g, c int) int { return m.Data[g][c] }

// ColSum returns the library size of one cell.
func (m *CountMatrix) ColSum(c int) int {
	sum := 0
	for g := range m.Data {
		sum += m.Data[g][c]
	}
	return sum
}

// Dense returns a float64 copy of the matrix for numeric analysis.
func (m *CountMatrix) Dense() *mat.Dense {
	d := mat.NewDense(m.Rows(), m.Cols(), nil)
	for g, row := range m.Data {
		for c, v := range row {
			d.Set(g, c, float64(v))
		}
	}
	return d
}

// Validate checks the matrix is rectangular and non-negative.
func (m *CountMatrix) Validate() error {
	if len(m.GeneIDs) != len(m.Data) {
		return fmt.Errorf("gene labels (%d) do not match rows (%d)", len(m.GeneIDs), len(m.Data))
	}
	for g, row := range m.Data {
		if len(row) != len(m.CellIDs) {
			return fmt.Errorf("row %d has %d cells, want %d", g, len(row), len(m.CellIDs))
		}
		for c, v := range row {
			if v < 0 {
				return fmt.Errorf("negative count %d at (%d, %d)", v, g, c)
			}
		}
	}
	return nil
}

// GeneTruth is one ground-truth row: the answer key for one (cluster, gene).
// FoldChange is nil for EE genes - absent, not zero.
type GeneTruth struct {
	Gene       string         `json:"gene"`
	GeneIndex  int            `json:"gene_index"`
	Cluster    core.ClusterID `json:"cluster"`
	Category   Category       `json:"category"`
	FoldChange *float64       `json:"fold_change,omitempty"`
	SourceGene core.GeneID    `json:"source_gene"`
}

// CellLabel is one cell-annotation row. Sample is the combined label
// group + "." + original sample id; row order matches matrix column order.
type CellLabel struct {
	Cell    string         `json:"cell"`
	Cluster core.ClusterID `json:"cluster"`
	Sample  string         `json:"sample"`
	Group   Group          `json:"group"`
}

// BaseSample strips the group prefix off the combined sample label.
func (c CellLabel) BaseSample() core.SampleID {
	return core.SampleID(strings.TrimPrefix(c.Sample, string(c.Group)+"."))
}

// SampleCount reports how many cells carry one combined sample label,
// in column order of first appearance.
type SampleCount struct {
	Label string `json:"label"`
	Cells int    `json:"cells"`
}

// RunManifest summarizes one run: parameter echo, dimensions, category
// tallies summed over clusters, and the reproducibility fingerprint.
type RunManifest struct {
	Seed           int64               `json:"seed"`
	NGenes         int                 `json:"n_genes"`
	Rows           int                 `json:"rows"`
	Cols           int                 `json:"cols"`
	Clusters       int                 `json:"clusters"`
	Samples        int                 `json:"samples"`
	CategoryCounts CategoryTally       `json:"category_counts"`
	ReferenceHash  core.ReferenceHash  `json:"reference_hash"`
	Fingerprint    core.RunFingerprint `json:"fingerprint"`
	CreatedAt      core.Timestamp      `json:"created_at"`
}

// Result is the complete output of one simulation invocation.
type Result struct {
	Counts      *CountMatrix
	Truth       []GeneTruth
	Cells       []CellLabel
	SampleSizes []SampleCount
	// SourceGenes maps each cluster to the reference gene backing each
	// synthetic gene, indexed by synthetic gene (0-based).
	SourceGenes map[core.ClusterID][]core.GeneID
	Params      Params
	Manifest    RunManifest
}

// ComputeFingerprint hashes the deterministic output (matrix, truth, cells)
// together with the seed. Two runs agree on this value exactly when they
// agree byte-for-byte on the simulated output.
func (r *Result) ComputeFingerprint() core.RunFingerprint {
	var b strings.Builder
	fmt.Fprintf(&b, "seed=%d;rows=%d;cols=%d\n", r.Params.Seed, r.Counts.Rows(), r.Counts.Cols())
	for _, row := range r.Counts.Data {
		for i, v := range row {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(v))
		}
		b.WriteByte('\n')
	}
	for _, t := range r.Truth {
		fc := "NA"
		if t.FoldChange != nil {
			fc = strconv.FormatFloat(*t.FoldChange, 'g', 17, 64)
		}
		fmt.Fprintf(&b, "t|%s|%s|%s|%s\n", t.Gene, t.Cluster, t.Category, fc)
	}
	for _, c := range r.Cells {
		fmt.Fprintf(&b, "c|%s|%s|%s|%s\n", c.Cell, c.Cluster, c.Sample, c.Group)
	}
	return core.NewRunFingerprint([]byte(b.String()))
}
