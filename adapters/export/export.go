// Package export writes simulation results to CSV and XLSX files.
//
// Every run produces four tables: the count matrix, the per-gene truth
// labels, the per-cell labels and the combined-sample sizes. Both
// writers emit the same tables so downstream tooling can pick either
// format.
package export

import (
	"strconv"

	"scsim/domain/core"
	"scsim/domain/sim"
)

type table struct {
	name string
	rows [][]string
}

func runTables(res *sim.Result) ([]table, error) {
	if res == nil || res.Counts == nil {
		return nil, core.NewArgumentError("result", "must not be nil")
	}
	return []table{
		{name: "counts", rows: countRows(res.Counts)},
		{name: "truth", rows: truthRows(res.Truth)},
		{name: "cells", rows: cellRows(res.Cells)},
		{name: "samples", rows: sampleRows(res.SampleSizes)},
	}, nil
}

func countRows(m *sim.CountMatrix) [][]string {
	rows := make([][]string, 0, m.Rows()+1)
	header := make([]string, 0, m.Cols()+1)
	header = append(header, "gene")
	header = append(header, m.CellIDs...)
	rows = append(rows, header)
	for g, data := range m.Data {
		row := make([]string, 0, len(data)+1)
		row = append(row, m.GeneIDs[g])
		for _, v := range data {
			row = append(row, strconv.Itoa(v))
		}
		rows = append(rows, row)
	}
	return rows
}

func truthRows(truth []sim.GeneTruth) [][]string {
	rows := make([][]string, 0, len(truth)+1)
	rows = append(rows, []string{"gene", "gene_index", "cluster", "category", "fold_change", "source_gene"})
	for _, t := range truth {
		fc := "NA"
		if t.FoldChange != nil {
			fc = strconv.FormatFloat(*t.FoldChange, 'g', -1, 64)
		}
		rows = append(rows, []string{
			t.Gene,
			strconv.Itoa(t.GeneIndex),
			string(t.Cluster),
			t.Category.String(),
			fc,
			string(t.SourceGene),
		})
	}
	return rows
}

func cellRows(cells []sim.CellLabel) [][]string {
	rows := make([][]string, 0, len(cells)+1)
	rows = append(rows, []string{"cell", "cluster", "sample", "group", "label"})
	for _, c := range cells {
		rows = append(rows, []string{
			c.Cell,
			string(c.Cluster),
			string(c.BaseSample()),
			c.Group.String(),
			c.Sample,
		})
	}
	return rows
}

func sampleRows(sizes []sim.SampleCount) [][]string {
	rows := make([][]string, 0, len(sizes)+1)
	rows = append(rows, []string{"label", "cells"})
	for _, s := range sizes {
		rows = append(rows, []string{s.Label, strconv.Itoa(s.Cells)})
	}
	return rows
}
