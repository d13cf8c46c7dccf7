package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"scsim/domain/sim"
)

// TruthCSV renders a truth table as CSV bytes for download endpoints.
func TruthCSV(truth []sim.GeneTruth) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range truthRows(truth) {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSVDir writes counts.csv, truth.csv, cells.csv and samples.csv
// under dir, creating the directory if needed.
func WriteCSVDir(res *sim.Result, dir string) error {
	tables, err := runTables(res)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	for _, tb := range tables {
		path := filepath.Join(dir, tb.name+".csv")
		if err := writeCSV(path, tb.rows); err != nil {
			return fmt.Errorf("writing %s: %w", tb.name+".csv", err)
		}
	}
	return nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}
