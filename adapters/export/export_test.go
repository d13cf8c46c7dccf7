package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"scsim/domain/core"
	"scsim/domain/sim"
	"scsim/internal/engine"
	"scsim/internal/testkit"
)

func fixtureResult(t *testing.T) *sim.Result {
	t.Helper()
	ref := testkit.Reference(40, 1, 1, 30)
	res, err := engine.New().Simulate(context.Background(), ref, sim.Params{
		NGenes:     40,
		Cells:      sim.FixedCells(5),
		PDD:        sim.CategoryProbs{0.5, 0, 0.5, 0, 0, 0},
		FoldChange: 3,
		Seed:       11,
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	return res
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestWriteCSVDir(t *testing.T) {
	res := fixtureResult(t)
	dir := filepath.Join(t.TempDir(), "run")
	if err := WriteCSVDir(res, dir); err != nil {
		t.Fatalf("write: %v", err)
	}

	counts := readCSV(t, filepath.Join(dir, "counts.csv"))
	if len(counts) != res.Counts.Rows()+1 {
		t.Fatalf("counts.csv has %d rows, want %d", len(counts), res.Counts.Rows()+1)
	}
	if counts[0][0] != "gene" || counts[0][1] != res.Counts.CellIDs[0] {
		t.Fatalf("counts header = %v", counts[0])
	}
	if len(counts[1]) != res.Counts.Cols()+1 {
		t.Fatalf("counts row width = %d, want %d", len(counts[1]), res.Counts.Cols()+1)
	}
	if counts[1][0] != res.Counts.GeneIDs[0] {
		t.Fatalf("first gene = %q", counts[1][0])
	}

	truth := readCSV(t, filepath.Join(dir, "truth.csv"))
	if len(truth) != len(res.Truth)+1 {
		t.Fatalf("truth.csv has %d rows, want %d", len(truth), len(res.Truth)+1)
	}
	sawNA, sawNumeric := false, false
	for _, row := range truth[1:] {
		if row[4] == "NA" {
			sawNA = true
		} else {
			sawNumeric = true
		}
	}
	if !sawNA || !sawNumeric {
		t.Fatalf("mixed run should write both NA and numeric fold changes (NA=%v numeric=%v)", sawNA, sawNumeric)
	}

	cells := readCSV(t, filepath.Join(dir, "cells.csv"))
	if len(cells) != len(res.Cells)+1 {
		t.Fatalf("cells.csv has %d rows, want %d", len(cells), len(res.Cells)+1)
	}
	if cells[1][3] != "A" || cells[1][4] != "A.sample1" {
		t.Fatalf("first cell row = %v", cells[1])
	}

	samples := readCSV(t, filepath.Join(dir, "samples.csv"))
	if len(samples) != len(res.SampleSizes)+1 {
		t.Fatalf("samples.csv has %d rows, want %d", len(samples), len(res.SampleSizes)+1)
	}
}

func TestWriteXLSX(t *testing.T) {
	res := fixtureResult(t)
	path := filepath.Join(t.TempDir(), "run.xlsx")
	if err := WriteXLSX(res, path); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	want := []string{"counts", "truth", "cells", "samples"}
	got := f.GetSheetList()
	if len(got) != len(want) {
		t.Fatalf("sheets = %v", got)
	}
	for i, name := range want {
		if got[i] != name {
			t.Fatalf("sheet %d = %q, want %q", i, got[i], name)
		}
	}

	rows, err := f.GetRows("counts")
	if err != nil {
		t.Fatalf("reading counts sheet: %v", err)
	}
	if len(rows) != res.Counts.Rows()+1 || rows[0][0] != "gene" {
		t.Fatalf("counts sheet shape: %d rows, header %v", len(rows), rows[0])
	}
}

func TestWriteNilResult(t *testing.T) {
	if err := WriteCSVDir(nil, t.TempDir()); !core.IsInvalidArgumentError(err) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if err := WriteXLSX(nil, filepath.Join(t.TempDir(), "x.xlsx")); !core.IsInvalidArgumentError(err) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
