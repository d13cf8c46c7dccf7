package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"scsim/domain/sim"
)

// WriteXLSX writes all run tables into a single workbook, one sheet
// per table.
func WriteXLSX(res *sim.Result, path string) error {
	tables, err := runTables(res)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	for i, tb := range tables {
		if i == 0 {
			// Reuse the default sheet for the first table.
			if err := f.SetSheetName(f.GetSheetName(0), tb.name); err != nil {
				return fmt.Errorf("naming sheet %s: %w", tb.name, err)
			}
		} else if _, err := f.NewSheet(tb.name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", tb.name, err)
		}
		if err := writeSheet(f, tb.name, tb.rows); err != nil {
			return fmt.Errorf("filling sheet %s: %w", tb.name, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]string) error {
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}
