package matching

import (
	"fmt"

	"github.com/google/uuid"

	"dockmatch/internal/domain"
)

// Thresholds are the decision constants of the reconciliation state machine.
// The defaults are inferred product values, kept configurable rather than
// hardcoded.
type Thresholds struct {
	Confirm        float64 `json:"confirm"`
	ConflictBand   float64 `json:"conflict_band"`
	CandidateFloor float64 `json:"candidate_floor"`
}

// DefaultThresholds returns the standard confirmation cutoff, conflict band
// and candidate noise floor.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Confirm:        0.85,
		ConflictBand:   0.05,
		CandidateFloor: 0.15,
	}
}

// Validate rejects thresholds that cannot drive a decision.
func (t Thresholds) Validate() error {
	if t.Confirm <= 0 || t.Confirm > 1 {
		return fmt.Errorf("%w: confirm threshold must be in (0,1], got %g", domain.ErrInvalidTolerances, t.Confirm)
	}
	if t.ConflictBand < 0 || t.ConflictBand > 1 {
		return fmt.Errorf("%w: conflict band must be in [0,1], got %g", domain.ErrInvalidTolerances, t.ConflictBand)
	}
	if t.CandidateFloor < 0 || t.CandidateFloor >= 1 {
		return fmt.Errorf("%w: candidate floor must be in [0,1), got %g", domain.ErrInvalidTolerances, t.CandidateFloor)
	}
	return nil
}

// Decision is what a ranked candidate list warrants before any human command
// is applied.
type Decision int

const (
	// DecisionNone means no candidates survived generation.
	DecisionNone Decision = iota
	// DecisionPropose means candidates exist but none is strong enough to
	// confirm unattended.
	DecisionPropose
	// DecisionAutoConfirm means the top candidate is a clear winner above
	// the confirmation threshold.
	DecisionAutoConfirm
	// DecisionConflict means the top two candidates are too close to tell
	// apart mechanically; a human has to resolve the pairing.
	DecisionConflict
)

// Resolve applies the confirmation threshold and conflict band to a ranked
// candidate list. Two candidates inside the band while the leader sits near
// or above the threshold cannot be separated mechanically; a clear winner
// above the threshold confirms unattended. Weak ambiguous candidates stay
// proposals rather than conflicts.
func Resolve(cands []domain.MatchCandidate, th Thresholds) Decision {
	if len(cands) == 0 {
		return DecisionNone
	}
	top := cands[0].Confidence
	if len(cands) >= 2 &&
		top-cands[1].Confidence < th.ConflictBand &&
		top >= th.Confirm-th.ConflictBand {
		return DecisionConflict
	}
	if top >= th.Confirm {
		return DecisionAutoConfirm
	}
	return DecisionPropose
}

// StatusFromDiffs returns matched only when every diff line is ok; any
// mismatch or missing line downgrades the confirmed pair to partial.
func StatusFromDiffs(diffs []domain.LineDiff) domain.MatchState {
	for _, d := range diffs {
		if d.Status != domain.LineDiffOK {
			return domain.StatePartial
		}
	}
	return domain.StateMatched
}

// CanConfirm checks a confirm command against the current pair. noop is true
// when the pair is already confirmed with the same note, which callers treat
// as an idempotent re-confirm. Confirming a different note over a confirmed
// pair fails with ErrMatchConflict; the caller must reject first.
func CanConfirm(pair *domain.MatchingPair, noteID uuid.UUID) (noop bool, err error) {
	if pair == nil {
		return false, domain.ErrMatchingPairNotFound
	}
	switch pair.State {
	case domain.StateMatched, domain.StatePartial:
		if pair.DeliveryNoteID != nil {
			if *pair.DeliveryNoteID == noteID {
				return true, nil
			}
			return false, fmt.Errorf("%w: invoice %s is already confirmed against note %s",
				domain.ErrMatchConflict, pair.InvoiceID, *pair.DeliveryNoteID)
		}
	}
	return false, nil
}

// CanReject checks that the note actually takes part in the pair, either
// bound to it or listed among its current candidates.
func CanReject(pair *domain.MatchingPair, noteID uuid.UUID) error {
	if pair == nil {
		return domain.ErrMatchingPairNotFound
	}
	if pair.DeliveryNoteID != nil && *pair.DeliveryNoteID == noteID {
		return nil
	}
	for _, c := range pair.Candidates {
		if c.DeliveryNoteID == noteID {
			return nil
		}
	}
	return fmt.Errorf("%w: note %s is not part of the reconciliation for invoice %s",
		domain.ErrDeliveryNoteNotFound, noteID, pair.InvoiceID)
}
