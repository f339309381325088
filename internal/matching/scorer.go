package matching

import (
	"fmt"
	"math"
	"time"

	"dockmatch/internal/domain"
)

// Component weights of the aggregate confidence. Line alignment dominates
// when the note carries line items; weights sum to 1.
const (
	weightLineItems = 0.40
	weightValue     = 0.25
	weightSupplier  = 0.20
	weightDate      = 0.15
)

// Score is the full scored comparison of one invoice against one delivery
// note: component breakdown, aggregate confidence, the line diff that fed
// the line component, and pair-level reasons.
type Score struct {
	Breakdown domain.ConfidenceBreakdown
	Aggregate float64
	Diffs     []domain.LineDiff
	Reasons   []domain.MatchReason
}

// ScorePair computes the multi-factor confidence for an invoice /
// delivery-note pair. The aggregate is always in [0,1]. When the note has no
// line items the line weight is redistributed proportionally across the
// header signals instead of dragging the aggregate down.
func ScorePair(inv *domain.InvoiceRecord, note *domain.DeliveryNoteRecord, tol Tolerances) Score {
	supplier := Similarity(inv.SupplierName, note.SupplierName)
	date := dateScore(inv.InvoiceDate, note.DeliveryDate, tol.DateWindowDays)
	value := valueScore(inv.GrossTotal, note.Total, tol.AmountProximityPct)

	diffs := DiffLines(inv.Lines, note.Lines, tol)
	lineItems := lineItemsScore(diffs)

	hasNoteLines := len(note.Lines) > 0
	var aggregate float64
	if hasNoteLines {
		aggregate = weightLineItems*lineItems + weightValue*value + weightSupplier*supplier + weightDate*date
	} else {
		rest := weightValue + weightSupplier + weightDate
		aggregate = (weightValue*value + weightSupplier*supplier + weightDate*date) / rest
		lineItems = 0
	}

	breakdown := domain.ConfidenceBreakdown{
		Supplier:  supplier,
		Date:      date,
		LineItems: lineItems,
		Value:     value,
	}
	return Score{
		Breakdown: breakdown,
		Aggregate: clamp01(aggregate),
		Diffs:     diffs,
		Reasons:   scoreReasons(breakdown, hasNoteLines),
	}
}

// dayOffset is the whole-day distance between two timestamps, ignoring time
// of day and zone.
func dayOffset(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	d := int(math.Round(da.Sub(db).Hours() / 24))
	if d < 0 {
		return -d
	}
	return d
}

// dateScore is 1.0 at zero offset, decays linearly to 0 at the window edge
// and stays 0 beyond it. A zero window scores only same-day documents.
func dateScore(invDate, noteDate time.Time, windowDays int) float64 {
	offset := dayOffset(invDate, noteDate)
	if windowDays <= 0 {
		if offset == 0 {
			return 1
		}
		return 0
	}
	score := 1 - float64(offset)/float64(windowDays)
	if score < 0 {
		return 0
	}
	return score
}

// valueScore is 1.0 while the totals sit within the configured proximity,
// then decays linearly to 0 at three times that proximity.
func valueScore(invTotal, noteTotal, proximityPct float64) float64 {
	rel := relDiff(invTotal, noteTotal)
	prox := proximityPct / 100
	switch {
	case rel <= prox:
		return 1
	case prox == 0:
		return 0
	case rel >= 3*prox:
		return 0
	default:
		return 1 - (rel-prox)/(2*prox)
	}
}

// lineItemsScore is the value-weighted fraction of invoice lines whose diff
// is ok: a mismatch on a high-value line costs more than one on a cheap line.
func lineItemsScore(diffs []domain.LineDiff) float64 {
	var okWeight, totalWeight float64
	var okCount, total int
	for _, d := range diffs {
		if d.InvoiceLine == nil {
			continue
		}
		w := lineValue(*d.InvoiceLine)
		totalWeight += w
		total++
		if d.Status == domain.LineDiffOK {
			okWeight += w
			okCount++
		}
	}
	if total == 0 {
		return 0
	}
	if totalWeight <= 0 {
		return float64(okCount) / float64(total)
	}
	return clamp01(okWeight / totalWeight)
}

func lineValue(li domain.LineItem) float64 {
	if li.LineTotal > 0 {
		return li.LineTotal
	}
	v := li.Quantity * li.UnitPrice
	if v < 0 {
		return 0
	}
	return v
}

func scoreReasons(b domain.ConfidenceBreakdown, hasNoteLines bool) []domain.MatchReason {
	reasons := make([]domain.MatchReason, 0, 4)
	if hasNoteLines {
		reasons = append(reasons, domain.MatchReason{
			Code:   domain.ReasonLineAlignment,
			Detail: fmt.Sprintf("line alignment score %.2f", b.LineItems),
			Weight: weightLineItems,
		})
	}
	reasons = append(reasons,
		domain.MatchReason{
			Code:   domain.ReasonValueProximity,
			Detail: fmt.Sprintf("total value score %.2f", b.Value),
			Weight: weightValue,
		},
		domain.MatchReason{
			Code:   domain.ReasonSupplierSimilarity,
			Detail: fmt.Sprintf("supplier names %.0f%% similar", b.Supplier*100),
			Weight: weightSupplier,
		},
		domain.MatchReason{
			Code:   domain.ReasonDateProximity,
			Detail: fmt.Sprintf("date proximity score %.2f", b.Date),
			Weight: weightDate,
		},
	)
	return reasons
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
