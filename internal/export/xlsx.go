package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"dockmatch/internal/domain"
)

// WriteXLSX renders the venue summary and its reconciliation rows as an xlsx
// workbook: a totals block on top, the per-invoice grid below it.
func WriteXLSX(w io.Writer, sheet string, summary *domain.MatchingSummary, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Reconciliation"
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("export.WriteXLSX sheet name: %w", err)
		}
	}

	totals := [][]interface{}{
		{"Venue", summary.VenueID.String()},
		{"Total Invoices", summary.Totals.TotalInvoices},
		{"Matched", summary.Totals.Matched},
		{"Partial", summary.Totals.Partial},
		{"Unmatched", summary.Totals.Unmatched},
		{"Conflict", summary.Totals.Conflict},
		{"Average Confidence", summary.Totals.AvgConfidence},
	}
	for i, pair := range totals {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &pair); err != nil {
			return fmt.Errorf("export.WriteXLSX totals: %w", err)
		}
	}

	headerRow := len(totals) + 2
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	cell, _ := excelize.CoordinatesToCellName(1, headerRow)
	if err := f.SetSheetRow(sheet, cell, &header); err != nil {
		return fmt.Errorf("export.WriteXLSX header: %w", err)
	}

	for i, row := range rows {
		values := record(row)
		out := make([]interface{}, len(values))
		for j, v := range values {
			out[j] = v
		}
		cell, _ := excelize.CoordinatesToCellName(1, headerRow+1+i)
		if err := f.SetSheetRow(sheet, cell, &out); err != nil {
			return fmt.Errorf("export.WriteXLSX row %d: %w", i, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export.WriteXLSX write: %w", err)
	}
	return nil
}
