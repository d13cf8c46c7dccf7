package refdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"scsim/domain/core"
	"scsim/domain/sim"
	"scsim/internal"
)

// Reader loads a fitted reference from a genes table and a cells table.
// Each file may be CSV or XLSX; the extension decides.
type Reader struct {
	genesPath string
	cellsPath string
	log       *internal.Logger
}

// NewReader creates a reference reader over the two table files.
func NewReader(genesPath, cellsPath string) *Reader {
	return &Reader{
		genesPath: genesPath,
		cellsPath: cellsPath,
		log:       internal.DefaultLogger.WithPrefix("refdata: "),
	}
}

// Load implements ports.ReferenceReader.
func (r *Reader) Load(ctx context.Context) (*sim.Reference, error) {
	genes, err := r.loadGenes()
	if err != nil {
		return nil, err
	}
	cells, err := r.loadCells()
	if err != nil {
		return nil, err
	}
	ref, err := sim.NewReference(genes, cells)
	if err != nil {
		return nil, err
	}
	r.log.Info("loaded reference: %d genes, %d cells, %d clusters, %d samples",
		len(ref.Genes), len(ref.Cells), len(ref.Clusters), len(ref.Samples))
	return ref, nil
}

// loadGenes reads the gene table: gene, log_mean, dispersion.
func (r *Reader) loadGenes() ([]sim.GeneParam, error) {
	rows, err := readTable(r.genesPath, "genes")
	if err != nil {
		return nil, err
	}
	cols, err := headerIndex(rows[0], "gene", "log_mean", "dispersion")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.genesPath, err)
	}

	genes := make([]sim.GeneParam, 0, len(rows)-1)
	for i, row := range rows[1:] {
		logMean, err := parseFloatField(r.genesPath, i+2, "log_mean", field(row, cols["log_mean"]))
		if err != nil {
			return nil, err
		}
		dispersion, err := parseFloatField(r.genesPath, i+2, "dispersion", field(row, cols["dispersion"]))
		if err != nil {
			return nil, err
		}
		genes = append(genes, sim.GeneParam{
			ID:         core.GeneID(field(row, cols["gene"])),
			LogMean:    logMean,
			Dispersion: dispersion,
		})
	}
	return genes, nil
}

// loadCells reads the cell table: cell, cluster, sample, log_offset.
func (r *Reader) loadCells() ([]sim.CellParam, error) {
	rows, err := readTable(r.cellsPath, "cells")
	if err != nil {
		return nil, err
	}
	cols, err := headerIndex(rows[0], "cell", "cluster", "sample", "log_offset")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.cellsPath, err)
	}

	cells := make([]sim.CellParam, 0, len(rows)-1)
	for i, row := range rows[1:] {
		offset, err := parseFloatField(r.cellsPath, i+2, "log_offset", field(row, cols["log_offset"]))
		if err != nil {
			return nil, err
		}
		cells = append(cells, sim.CellParam{
			ID:        field(row, cols["cell"]),
			LogOffset: offset,
			Cluster:   core.ClusterID(field(row, cols["cluster"])),
			Sample:    core.SampleID(field(row, cols["sample"])),
		})
	}
	return cells, nil
}

// readTable reads a CSV or XLSX file into string rows, header first. For
// workbooks, sheet names the preferred sheet; a workbook without it falls
// back to its first sheet, so single-table files work either way.
func readTable(path, sheet string) ([][]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, core.NewReferenceError("file not found: " + path)
	}

	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSX(path, sheet)
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, core.NewReferenceError("table needs a header row and at least one data row: " + path)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return rows, nil
}

func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	name := f.GetSheetName(0)
	if idx, err := f.GetSheetIndex(sheet); err == nil && idx >= 0 {
		name = sheet
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return rows, nil
}

// headerIndex maps lowercased trimmed header names to column positions and
// checks the required ones are present.
func headerIndex(header []string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, core.NewReferenceError("missing column " + name)
		}
	}
	return idx, nil
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseFloatField(path string, row int, name, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, core.NewReferenceError(fmt.Sprintf("%s row %d: bad %s %q", filepath.Base(path), row, name, raw))
	}
	return v, nil
}
