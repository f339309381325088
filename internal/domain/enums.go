package domain

// MatchStatus is the wire status of a MatchingPair as consumed by
// dashboards and detail views. The reconciliation lifecycle tracks finer
// states (see MatchState); this four-value projection is the stable contract.
type MatchStatus string

const (
	MatchStatusMatched   MatchStatus = "matched"
	MatchStatusPartial   MatchStatus = "partial"
	MatchStatusUnmatched MatchStatus = "unmatched"
	MatchStatusConflict  MatchStatus = "conflict"
)

// MatchState is the internal lifecycle state of a reconciliation.
type MatchState string

const (
	StateUnmatched          MatchState = "unmatched"
	StateCandidatesProposed MatchState = "candidates_proposed"
	StateMatched            MatchState = "matched"
	StatePartial            MatchState = "partial"
	StateConflict           MatchState = "conflict"
	StateRejected           MatchState = "rejected"
)

// WireStatus projects the internal state onto the four-value wire status.
func (s MatchState) WireStatus() MatchStatus {
	switch s {
	case StateMatched:
		return MatchStatusMatched
	case StatePartial:
		return MatchStatusPartial
	case StateConflict:
		return MatchStatusConflict
	default:
		return MatchStatusUnmatched
	}
}

// LineDiffStatus is the diagnosis of a single line alignment.
type LineDiffStatus string

const (
	LineDiffOK               LineDiffStatus = "ok"
	LineDiffQuantityMismatch LineDiffStatus = "quantity_mismatch"
	LineDiffPriceMismatch    LineDiffStatus = "price_mismatch"
	LineDiffMissingOnDN      LineDiffStatus = "missing_on_dn"
	LineDiffMissingOnInv     LineDiffStatus = "missing_on_inv"
)

// ReasonCode identifies a machine-readable explanation attached to a diff
// or pair.
type ReasonCode string

const (
	ReasonDescriptionSimilar ReasonCode = "description_similar"
	ReasonQuantityOK         ReasonCode = "quantity_within_tolerance"
	ReasonQuantityMismatch   ReasonCode = "quantity_mismatch"
	ReasonPriceOK            ReasonCode = "price_within_tolerance"
	ReasonPriceMismatch      ReasonCode = "price_mismatch"
	ReasonMissingOnDN        ReasonCode = "missing_on_dn"
	ReasonMissingOnInv       ReasonCode = "missing_on_inv"
	ReasonMalformedLine      ReasonCode = "malformed_line"
	ReasonSupplierSimilarity ReasonCode = "supplier_similarity"
	ReasonDateProximity      ReasonCode = "date_proximity"
	ReasonValueProximity     ReasonCode = "value_proximity"
	ReasonLineAlignment      ReasonCode = "line_alignment"
	ReasonAutoConfirmed      ReasonCode = "auto_confirmed"
	ReasonConfirmedByUser    ReasonCode = "confirmed_by_user"
	ReasonConflictBand       ReasonCode = "conflict_band"
	ReasonRejectedByUser     ReasonCode = "rejected_by_user"
	ReasonAwaitingReview     ReasonCode = "awaiting_review"
	ReasonNoCandidates       ReasonCode = "no_candidates"
)

// RecordKind discriminates ingest envelopes from the extraction pipeline.
type RecordKind string

const (
	RecordKindInvoice      RecordKind = "invoice"
	RecordKindDeliveryNote RecordKind = "delivery_note"
)
