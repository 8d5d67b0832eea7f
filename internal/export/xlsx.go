// Package export renders transaction exports in spreadsheet formats.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"fintrack/internal/core"
)

const (
	sheetName   = "Transactions"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var headers = []any{"Date", "Type", "Category", "Note", "Amount"}

// DateFormatter renders a transaction date for export.
type DateFormatter func(core.Transaction) string

// WriteXLSX writes rows as a single-sheet workbook with the same columns as
// the CSV export. Amounts are numeric cells.
func WriteXLSX(w io.Writer, rows []core.Transaction, formatDate DateFormatter) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, tx := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{formatDate(tx), string(tx.Type), tx.Category, tx.Note, tx.Amount.InexactFloat64()}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
