package refdata

import (
	"encoding/csv"
	"os"
	"strconv"

	"scsim/domain/sim"
)

// WriteReference writes a fitted reference back out as the two CSV tables
// the Reader consumes.
func WriteReference(ref *sim.Reference, genesPath, cellsPath string) error {
	if err := writeGenes(ref, genesPath); err != nil {
		return err
	}
	return writeCells(ref, cellsPath)
}

func writeGenes(ref *sim.Reference, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"gene", "log_mean", "dispersion"}); err != nil {
		return err
	}
	for _, g := range ref.Genes {
		row := []string{g.ID.String(), fToStr(g.LogMean), fToStr(g.Dispersion)}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func writeCells(ref *sim.Reference, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"cell", "cluster", "sample", "log_offset"}); err != nil {
		return err
	}
	for _, c := range ref.Cells {
		row := []string{c.ID, c.Cluster.String(), c.Sample.String(), fToStr(c.LogOffset)}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func fToStr(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}
