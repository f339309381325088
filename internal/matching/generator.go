package matching

import (
	"bytes"
	"sort"

	"github.com/google/uuid"

	"dockmatch/internal/domain"
)

// Generator selects and ranks delivery-note candidates for one invoice.
type Generator struct {
	tol Tolerances
	th  Thresholds
}

// NewGenerator validates the run configuration up front so a bad tolerance
// set is rejected whole, never partially applied.
func NewGenerator(tol Tolerances, th Thresholds) (*Generator, error) {
	if err := tol.Validate(); err != nil {
		return nil, err
	}
	if err := th.Validate(); err != nil {
		return nil, err
	}
	return &Generator{tol: tol, th: th}, nil
}

// Generate scores every eligible note and returns candidates ranked by
// aggregate confidence. Eligible means same venue, delivery date inside the
// window, and not excluded; excluded reports notes already confirmed against
// a different invoice (nil excludes nothing). Candidates under the noise
// floor are dropped. Ordering is fully deterministic: confidence descending,
// then nearest delivery date, then lowest note id, so repeated runs over
// unchanged input return identical lists.
func (g *Generator) Generate(inv *domain.InvoiceRecord, notes []*domain.DeliveryNoteRecord, excluded func(uuid.UUID) bool) []domain.MatchCandidate {
	type ranked struct {
		cand   domain.MatchCandidate
		offset int
	}
	out := make([]ranked, 0, len(notes))
	for _, note := range notes {
		if note == nil || note.VenueID != inv.VenueID {
			continue
		}
		offset := dayOffset(inv.InvoiceDate, note.DeliveryDate)
		if offset > g.tol.DateWindowDays {
			continue
		}
		if excluded != nil && excluded(note.ID) {
			continue
		}
		s := ScorePair(inv, note, g.tol)
		if s.Aggregate < g.th.CandidateFloor {
			continue
		}
		out = append(out, ranked{
			cand: domain.MatchCandidate{
				DeliveryNoteID: note.ID,
				Breakdown:      s.Breakdown,
				Confidence:     s.Aggregate,
				NotePreview: &domain.NotePreview{
					SupplierName: note.SupplierName,
					DeliveryDate: note.DeliveryDate,
					Total:        note.Total,
					LineCount:    len(note.Lines),
				},
			},
			offset: offset,
		})
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].cand.Confidence != out[b].cand.Confidence {
			return out[a].cand.Confidence > out[b].cand.Confidence
		}
		if out[a].offset != out[b].offset {
			return out[a].offset < out[b].offset
		}
		return bytes.Compare(out[a].cand.DeliveryNoteID[:], out[b].cand.DeliveryNoteID[:]) < 0
	})

	cands := make([]domain.MatchCandidate, len(out))
	for i := range out {
		cands[i] = out[i].cand
	}
	return cands
}

// Tolerances returns the tolerance set this generator was built with.
func (g *Generator) Tolerances() Tolerances {
	return g.tol
}

// Thresholds returns the decision thresholds this generator was built with.
func (g *Generator) Thresholds() Thresholds {
	return g.th
}
