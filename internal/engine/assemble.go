package engine

import (
	"sort"
	"strconv"

	"scsim/domain/core"
	"scsim/domain/sim"
)

// buildTruth stacks the per-cluster category tables into one answer key and
// stable-sorts it by synthetic gene index. Ties keep cluster order.
func buildTruth(ref *sim.Reference, allocs []*allocation, effects []map[int]float64) []sim.GeneTruth {
	truth := make([]sim.GeneTruth, 0, len(ref.Clusters)*len(allocs[0].sources))
	for ci, cluster := range ref.Clusters {
		a := allocs[ci]
		for _, category := range sim.Categories {
			for _, g := range a.genesFor(category) {
				row := sim.GeneTruth{
					Gene:       "gene" + strconv.Itoa(g+1),
					GeneIndex:  g + 1,
					Cluster:    cluster,
					Category:   category,
					SourceGene: ref.Genes[a.sources[g]].ID,
				}
				if category.HasFoldChange() {
					fc := effects[ci][g]
					row.FoldChange = &fc
				}
				truth = append(truth, row)
			}
		}
	}
	sort.SliceStable(truth, func(i, j int) bool {
		return truth[i].GeneIndex < truth[j].GeneIndex
	})
	return truth
}

// buildCells derives one annotation row per matrix column and tallies the
// combined sample labels in order of first appearance.
func buildCells(ref *sim.Reference, l *layout) ([]sim.CellLabel, []sim.SampleCount) {
	cells := make([]sim.CellLabel, 0, l.totalCols)
	tally := make(map[string]int)
	var order []string

	col := 0
	for _, b := range l.buckets {
		cluster := ref.Clusters[b.clusterIdx]
		sample := ref.Samples[b.sampleIdx]
		for _, group := range sim.Groups {
			members := b.groupA
			if group == sim.GroupB {
				members = b.groupB
			}
			label := group.String() + "." + sample.String()
			for range members {
				cells = append(cells, sim.CellLabel{
					Cell:    "cell" + strconv.Itoa(col+1),
					Cluster: cluster,
					Sample:  label,
					Group:   group,
				})
				if _, seen := tally[label]; !seen {
					order = append(order, label)
				}
				tally[label]++
				col++
			}
		}
	}

	sizes := make([]sim.SampleCount, 0, len(order))
	for _, label := range order {
		sizes = append(sizes, sim.SampleCount{Label: label, Cells: tally[label]})
	}
	return cells, sizes
}

// buildSources converts the per-cluster allocations into the source-gene
// lookup table, indexed by synthetic gene.
func buildSources(ref *sim.Reference, allocs []*allocation) map[core.ClusterID][]core.GeneID {
	sources := make(map[core.ClusterID][]core.GeneID, len(ref.Clusters))
	for ci, cluster := range ref.Clusters {
		ids := make([]core.GeneID, len(allocs[ci].sources))
		for g, src := range allocs[ci].sources {
			ids[g] = ref.Genes[src].ID
		}
		sources[cluster] = ids
	}
	return sources
}
