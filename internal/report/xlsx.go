package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"fintrack/internal/core"
)

// SheetName is the worksheet written by ExportXLSX.
const SheetName = "Transactions"

// ExportXLSX writes the ledger to a workbook at path. Row 1 holds the ledger
// header; amounts are stored as numbers so spreadsheet formulas work on them.
func ExportXLSX(path string, items []core.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(core.Header))
	for i, h := range core.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, tx := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{tx.Date, tx.Amount.InexactFloat64(), tx.Category, tx.Description}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
