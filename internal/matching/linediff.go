package matching

import (
	"fmt"
	"math"
	"sort"

	"dockmatch/internal/domain"
)

// alignCand is one potential pairing between an invoice line and a note line.
type alignCand struct {
	inv  int
	note int
	sim  float64
}

// DiffLines aligns one invoice's lines against one delivery note's lines and
// diagnoses every line. Alignment is greedy in descending description
// similarity, one-to-one, with ties broken by input order; pairs below the
// fuzzy threshold never align. Pure function of its inputs: identical inputs
// always produce the identical diff sequence.
func DiffLines(invLines, noteLines []domain.LineItem, tol Tolerances) []domain.LineDiff {
	cands := make([]alignCand, 0, len(invLines)*len(noteLines))
	for i := range invLines {
		for j := range noteLines {
			sim := Similarity(invLines[i].Description, noteLines[j].Description)
			if sim < tol.FuzzyDescThreshold {
				continue
			}
			cands = append(cands, alignCand{inv: i, note: j, sim: sim})
		}
	}

	// Highest similarity first; equal similarities fall back to input order
	// so re-runs reproduce the same alignment.
	sort.Slice(cands, func(a, b int) bool {
		if cands[a].sim != cands[b].sim {
			return cands[a].sim > cands[b].sim
		}
		if cands[a].inv != cands[b].inv {
			return cands[a].inv < cands[b].inv
		}
		return cands[a].note < cands[b].note
	})

	noteFor := make([]int, len(invLines))
	simFor := make([]float64, len(invLines))
	for i := range noteFor {
		noteFor[i] = -1
	}
	usedNote := make([]bool, len(noteLines))
	for _, c := range cands {
		if noteFor[c.inv] != -1 || usedNote[c.note] {
			continue
		}
		noteFor[c.inv] = c.note
		simFor[c.inv] = c.sim
		usedNote[c.note] = true
	}

	diffs := make([]domain.LineDiff, 0, len(invLines)+len(noteLines))
	for i := range invLines {
		invLine := invLines[i]
		if j := noteFor[i]; j != -1 {
			diffs = append(diffs, diffAligned(invLine, noteLines[j], simFor[i], tol))
			continue
		}
		d := domain.LineDiff{
			InvoiceLine: &invLine,
			Status:      domain.LineDiffMissingOnDN,
			Confidence:  0,
			Reasons: []domain.MatchReason{{
				Code:   domain.ReasonMissingOnDN,
				Detail: fmt.Sprintf("no delivery-note line matches %q", invLine.Description),
				Weight: 1,
			}},
		}
		if r := malformedReason(invLine); r != nil {
			d.Reasons = append(d.Reasons, *r)
		}
		diffs = append(diffs, d)
	}
	for j := range noteLines {
		if usedNote[j] {
			continue
		}
		noteLine := noteLines[j]
		d := domain.LineDiff{
			NoteLine:   &noteLine,
			Status:     domain.LineDiffMissingOnInv,
			Confidence: 0,
			Reasons: []domain.MatchReason{{
				Code:   domain.ReasonMissingOnInv,
				Detail: fmt.Sprintf("no invoice line matches %q", noteLine.Description),
				Weight: 1,
			}},
		}
		if r := malformedReason(noteLine); r != nil {
			d.Reasons = append(d.Reasons, *r)
		}
		diffs = append(diffs, d)
	}
	return diffs
}

// diffAligned diagnoses one aligned pair. Quantity failures outrank price
// failures because quantity drives the downstream financial impact.
func diffAligned(invLine, noteLine domain.LineItem, sim float64, tol Tolerances) domain.LineDiff {
	reasons := []domain.MatchReason{{
		Code:   domain.ReasonDescriptionSimilar,
		Detail: fmt.Sprintf("%q ~ %q", invLine.Description, noteLine.Description),
		Weight: sim,
	}}

	qtyOK := math.Abs(invLine.Quantity-noteLine.Quantity) <= tol.QtyTolAbs ||
		relDiff(invLine.Quantity, noteLine.Quantity) <= tol.QtyTolRel
	if qtyOK {
		reasons = append(reasons, domain.MatchReason{
			Code:   domain.ReasonQuantityOK,
			Detail: fmt.Sprintf("qty %s vs %s", fmtf(invLine.Quantity), fmtf(noteLine.Quantity)),
			Weight: 0,
		})
	} else {
		reasons = append(reasons, domain.MatchReason{
			Code:   domain.ReasonQuantityMismatch,
			Detail: fmt.Sprintf("qty %s vs %s", fmtf(invLine.Quantity), fmtf(noteLine.Quantity)),
			Weight: capped(relDiff(invLine.Quantity, noteLine.Quantity)),
		})
	}

	priceOK := relDiff(invLine.UnitPrice, noteLine.UnitPrice) <= tol.PriceTolRel
	if priceOK {
		reasons = append(reasons, domain.MatchReason{
			Code:   domain.ReasonPriceOK,
			Detail: fmt.Sprintf("unit price %s vs %s", fmtf(invLine.UnitPrice), fmtf(noteLine.UnitPrice)),
			Weight: 0,
		})
	} else {
		reasons = append(reasons, domain.MatchReason{
			Code:   domain.ReasonPriceMismatch,
			Detail: fmt.Sprintf("unit price %s vs %s", fmtf(invLine.UnitPrice), fmtf(noteLine.UnitPrice)),
			Weight: capped(relDiff(invLine.UnitPrice, noteLine.UnitPrice)),
		})
	}

	for _, li := range []domain.LineItem{invLine, noteLine} {
		if r := malformedReason(li); r != nil {
			reasons = append(reasons, *r)
			break
		}
	}

	status := domain.LineDiffOK
	switch {
	case !qtyOK:
		status = domain.LineDiffQuantityMismatch
	case !priceOK:
		status = domain.LineDiffPriceMismatch
	}

	return domain.LineDiff{
		InvoiceLine: &invLine,
		NoteLine:    &noteLine,
		Status:      status,
		Confidence:  sim,
		Reasons:     reasons,
	}
}

// relDiff is the deviation between two line values relative to the larger of
// the two, floored at 1 so near-zero quantities cannot explode the ratio.
func relDiff(a, b float64) float64 {
	return math.Abs(a-b) / math.Max(math.Max(a, b), 1)
}

func capped(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

func malformedReason(li domain.LineItem) *domain.MatchReason {
	if li.Quantity >= 0 && li.UnitPrice >= 0 {
		return nil
	}
	return &domain.MatchReason{
		Code:   domain.ReasonMalformedLine,
		Detail: fmt.Sprintf("negative quantity or price on %q", li.Description),
		Weight: 0,
	}
}

func fmtf(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
