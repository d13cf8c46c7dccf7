package sim

import (
	"fmt"
	"math"
	"strings"

	"scsim/domain/core"
)

// GeneParam holds the negative-binomial parameters estimated for one
// reference gene. LogMean is on the natural-log scale; Dispersion is the NB
// overdispersion phi (variance = mu + phi*mu^2).
type GeneParam struct {
	ID         core.GeneID `json:"id"`
	LogMean    float64     `json:"log_mean"`
	Dispersion float64     `json:"dispersion"`
}

// CellParam holds one reference cell: its size-factor offset on the log scale
// and its cluster/sample labels.
type CellParam struct {
	ID        string         `json:"id"`
	LogOffset float64        `json:"log_offset"`
	Cluster   core.ClusterID `json:"cluster"`
	Sample    core.SampleID  `json:"sample"`
}

// Reference is the immutable input population the simulation draws from.
// Cluster and Sample hold the distinct factor levels in first-appearance
// order; bucket iteration follows that order.
type Reference struct {
	Genes    []GeneParam
	Cells    []CellParam
	Clusters []core.ClusterID
	Samples  []core.SampleID
}

// NewReference builds a Reference from gene and cell parameters, deriving the
// cluster/sample factor levels from the cells in first-appearance order.
func NewReference(genes []GeneParam, cells []CellParam) (*Reference, error) {
	r := &Reference{Genes: genes, Cells: cells}
	seenCluster := make(map[core.ClusterID]bool)
	seenSample := make(map[core.SampleID]bool)
	for _, c := range cells {
		if !seenCluster[c.Cluster] {
			seenCluster[c.Cluster] = true
			r.Clusters = append(r.Clusters, c.Cluster)
		}
		if !seenSample[c.Sample] {
			seenSample[c.Sample] = true
			r.Samples = append(r.Samples, c.Sample)
		}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks the structural health of the reference. Distribution-level
// problems (degenerate dispersions) are deliberately not checked here; they
// surface from the count sampler at the first offending draw.
func (r *Reference) Validate() error {
	if len(r.Genes) == 0 {
		return core.NewReferenceError("no genes")
	}
	if len(r.Cells) == 0 {
		return core.NewReferenceError("no cells")
	}
	for i, g := range r.Genes {
		if strings.TrimSpace(g.ID.String()) == "" {
			return core.NewReferenceError(fmt.Sprintf("gene %d has an empty id", i))
		}
		if math.IsNaN(g.LogMean) || math.IsInf(g.LogMean, 0) {
			return core.NewReferenceError(fmt.Sprintf("gene %s has non-finite log mean", g.ID))
		}
	}
	for i, c := range r.Cells {
		if strings.TrimSpace(string(c.Cluster)) == "" {
			return core.NewReferenceError(fmt.Sprintf("cell %d has an empty cluster label", i))
		}
		if strings.TrimSpace(string(c.Sample)) == "" {
			return core.NewReferenceError(fmt.Sprintf("cell %d has an empty sample label", i))
		}
		if math.IsNaN(c.LogOffset) || math.IsInf(c.LogOffset, 0) {
			return core.NewReferenceError(fmt.Sprintf("cell %d has a non-finite offset", i))
		}
	}
	return nil
}

// BucketCounts returns how many reference cells carry each (cluster, sample)
// label pair, indexed [cluster][sample] in factor-level order. These counts
// size the bucket partition of the cell population.
func (r *Reference) BucketCounts() [][]int {
	ci := make(map[core.ClusterID]int, len(r.Clusters))
	for i, c := range r.Clusters {
		ci[c] = i
	}
	si := make(map[core.SampleID]int, len(r.Samples))
	for i, s := range r.Samples {
		si[s] = i
	}
	counts := make([][]int, len(r.Clusters))
	for i := range counts {
		counts[i] = make([]int, len(r.Samples))
	}
	for _, c := range r.Cells {
		counts[ci[c.Cluster]][si[c.Sample]]++
	}
	return counts
}

// Fingerprint hashes the reference content so run manifests can pin the exact
// input they were produced from.
func (r *Reference) Fingerprint() core.ReferenceHash {
	var b strings.Builder
	for _, g := range r.Genes {
		fmt.Fprintf(&b, "g|%s|%.17g|%.17g\n", g.ID, g.LogMean, g.Dispersion)
	}
	for _, c := range r.Cells {
		fmt.Fprintf(&b, "c|%s|%.17g|%s|%s\n", c.ID, c.LogOffset, c.Cluster, c.Sample)
	}
	return core.NewReferenceHash([]byte(b.String()))
}
