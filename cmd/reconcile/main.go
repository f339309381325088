package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"dockmatch/internal/domain"
	"dockmatch/internal/export"
	"dockmatch/internal/matching"
)

// reconcile runs the matching engine offline over JSON snapshot files,
// prints a summary, and optionally writes the CSV report. Useful for tuning
// tolerances against historical extracts without a running service.
func main() {
	var (
		invoicesPath = flag.String("invoices", "", "path to a JSON array of invoice records")
		notesPath    = flag.String("notes", "", "path to a JSON array of delivery note records")
		csvPath      = flag.String("csv", "", "write the per-invoice report to this CSV file")

		dateWindow = flag.Int("date-window-days", 3, "date window in days")
		amountProx = flag.Float64("amount-proximity-pct", 5.0, "total amount proximity percent")
		qtyRel     = flag.Float64("qty-tol-rel", 0.05, "relative quantity tolerance")
		qtyAbs     = flag.Float64("qty-tol-abs", 0.0, "absolute quantity tolerance")
		priceRel   = flag.Float64("price-tol-rel", 0.02, "relative unit price tolerance")
		descThresh = flag.Float64("fuzzy-desc-threshold", 0.6, "description similarity threshold")
		confirm    = flag.Float64("confirm-threshold", 0.85, "auto-confirmation threshold")
		band       = flag.Float64("conflict-band", 0.05, "conflict band width")
	)
	flag.Parse()

	if *invoicesPath == "" || *notesPath == "" {
		fmt.Fprintln(os.Stderr, "usage: reconcile -invoices invoices.json -notes notes.json [-csv report.csv] [tolerance flags]")
		os.Exit(1)
	}

	if err := run(*invoicesPath, *notesPath, *csvPath, matching.Tolerances{
		DateWindowDays:     *dateWindow,
		AmountProximityPct: *amountProx,
		QtyTolRel:          *qtyRel,
		QtyTolAbs:          *qtyAbs,
		PriceTolRel:        *priceRel,
		FuzzyDescThreshold: *descThresh,
	}, matching.Thresholds{
		Confirm:        *confirm,
		ConflictBand:   *band,
		CandidateFloor: 0.15,
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(invoicesPath, notesPath, csvPath string, tol matching.Tolerances, th matching.Thresholds) error {
	var invoices []domain.InvoiceRecord
	if err := loadJSON(invoicesPath, &invoices); err != nil {
		return err
	}
	var notes []domain.DeliveryNoteRecord
	if err := loadJSON(notesPath, &notes); err != nil {
		return err
	}

	gen, err := matching.NewGenerator(tol, th)
	if err != nil {
		return err
	}

	noteRefs := make([]*domain.DeliveryNoteRecord, len(notes))
	notesByID := make(map[uuid.UUID]*domain.DeliveryNoteRecord, len(notes))
	for i := range notes {
		noteRefs[i] = &notes[i]
		notesByID[notes[i].ID] = &notes[i]
	}

	claimed := make(map[uuid.UUID]uuid.UUID)
	var totals domain.SummaryTotals
	rows := make([]export.Row, 0, len(invoices))

	for i := range invoices {
		inv := &invoices[i]
		cands := gen.Generate(inv, noteRefs, func(id uuid.UUID) bool {
			holder, held := claimed[id]
			return held && holder != inv.ID
		})

		pair := domain.MatchingPair{
			ID:         uuid.New(),
			InvoiceID:  inv.ID,
			Candidates: cands,
			State:      domain.StateUnmatched,
		}
		switch matching.Resolve(cands, th) {
		case matching.DecisionAutoConfirm:
			note := notesByID[cands[0].DeliveryNoteID]
			score := matching.ScorePair(inv, note, tol)
			noteID := note.ID
			claimed[noteID] = inv.ID
			pair.DeliveryNoteID = &noteID
			pair.Diffs = score.Diffs
			pair.Confidence = score.Aggregate
			pair.Reasons = score.Reasons
			pair.State = matching.StatusFromDiffs(score.Diffs)
		case matching.DecisionConflict:
			pair.State = domain.StateConflict
			pair.Confidence = cands[0].Confidence
		case matching.DecisionPropose:
			pair.State = domain.StateCandidatesProposed
			pair.Confidence = cands[0].Confidence
		}
		pair.Status = pair.State.WireStatus()

		totals.TotalInvoices++
		totals.AvgConfidence += pair.Confidence
		switch pair.Status {
		case domain.MatchStatusMatched:
			totals.Matched++
		case domain.MatchStatusPartial:
			totals.Partial++
		case domain.MatchStatusConflict:
			totals.Conflict++
		default:
			totals.Unmatched++
		}
		rows = append(rows, export.Row{Pair: pair, Invoice: inv})
	}
	if totals.TotalInvoices > 0 {
		totals.AvgConfidence /= float64(totals.TotalInvoices)
	}

	fmt.Printf("invoices: %d\nmatched: %d\npartial: %d\nunmatched: %d\nconflict: %d\navg confidence: %.3f\n",
		totals.TotalInvoices, totals.Matched, totals.Partial, totals.Unmatched, totals.Conflict, totals.AvgConfidence)

	if csvPath != "" {
		f, err := os.Create(csvPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", csvPath, err)
		}
		defer f.Close()
		cw, err := export.NewCSVWriter(f)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := cw.WriteRow(row); err != nil {
				return err
			}
		}
		if err := cw.Flush(); err != nil {
			return err
		}
		fmt.Printf("report written to %s\n", csvPath)
	}
	return nil
}

func loadJSON(path string, dest interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
