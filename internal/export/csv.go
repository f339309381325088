package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"dockmatch/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row.
var columns = []string{
	"Invoice ID",
	"Invoice Number",
	"Supplier",
	"Invoice Date",
	"Gross Total",
	"Delivery Note ID",
	"Status",
	"Confidence",
	"Supplier Score",
	"Date Score",
	"Line Items Score",
	"Value Score",
	"Lines OK",
	"Quantity Mismatches",
	"Price Mismatches",
	"Missing On Note",
	"Missing On Invoice",
	"Top Reason",
}

// Row pairs a reconciliation record with the invoice header fields the
// report denormalizes.
type Row struct {
	Pair    domain.MatchingPair
	Invoice *domain.InvoiceRecord
}

// CSVWriter wraps csv.Writer for exporting reconciliation reports.
type CSVWriter struct {
	csv *csv.Writer
}

// NewCSVWriter creates a CSVWriter that writes to w, prefixed with a BOM.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	if _, err := w.Write(BOM); err != nil {
		return nil, fmt.Errorf("writing BOM: %w", err)
	}
	cw := &CSVWriter{csv: csv.NewWriter(w)}
	if err := cw.csv.Write(columns); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	return cw, nil
}

// WriteRow writes one reconciliation row.
func (w *CSVWriter) WriteRow(row Row) error {
	if err := w.csv.Write(record(row)); err != nil {
		return fmt.Errorf("writing row: %w", err)
	}
	return nil
}

// Flush flushes buffered rows and reports any accumulated write error.
func (w *CSVWriter) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}

func record(row Row) []string {
	p := row.Pair

	noteID := ""
	if p.DeliveryNoteID != nil {
		noteID = p.DeliveryNoteID.String()
	}

	invNumber, supplier, invDate, gross := "", "", "", ""
	if row.Invoice != nil {
		invNumber = row.Invoice.InvoiceNumber
		supplier = row.Invoice.SupplierName
		invDate = row.Invoice.InvoiceDate.Format("2006-01-02")
		gross = strconv.FormatFloat(row.Invoice.GrossTotal, 'f', 2, 64)
	}

	breakdown := topBreakdown(p)

	counts := diffCounts(p.Diffs)
	topReason := ""
	if len(p.Reasons) > 0 {
		topReason = string(p.Reasons[0].Code)
	}

	return []string{
		p.InvoiceID.String(),
		invNumber,
		supplier,
		invDate,
		gross,
		noteID,
		string(p.Status),
		strconv.FormatFloat(p.Confidence, 'f', 3, 64),
		strconv.FormatFloat(breakdown.Supplier, 'f', 3, 64),
		strconv.FormatFloat(breakdown.Date, 'f', 3, 64),
		strconv.FormatFloat(breakdown.LineItems, 'f', 3, 64),
		strconv.FormatFloat(breakdown.Value, 'f', 3, 64),
		strconv.Itoa(counts.ok),
		strconv.Itoa(counts.qty),
		strconv.Itoa(counts.price),
		strconv.Itoa(counts.missingDN),
		strconv.Itoa(counts.missingInv),
		topReason,
	}
}

// topBreakdown returns the breakdown of the bound or leading candidate.
func topBreakdown(p domain.MatchingPair) domain.ConfidenceBreakdown {
	if p.DeliveryNoteID != nil {
		for _, c := range p.Candidates {
			if c.DeliveryNoteID == *p.DeliveryNoteID {
				return c.Breakdown
			}
		}
	}
	if len(p.Candidates) > 0 {
		return p.Candidates[0].Breakdown
	}
	return domain.ConfidenceBreakdown{}
}

type diffCount struct {
	ok, qty, price, missingDN, missingInv int
}

func diffCounts(diffs []domain.LineDiff) diffCount {
	var c diffCount
	for _, d := range diffs {
		switch d.Status {
		case domain.LineDiffOK:
			c.ok++
		case domain.LineDiffQuantityMismatch:
			c.qty++
		case domain.LineDiffPriceMismatch:
			c.price++
		case domain.LineDiffMissingOnDN:
			c.missingDN++
		case domain.LineDiffMissingOnInv:
			c.missingInv++
		}
	}
	return c
}
