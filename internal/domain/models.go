package domain

import (
	"time"

	"github.com/google/uuid"
)

// LineItem is one extracted line of an invoice or delivery note. Stored as
// part of its parent record, never addressed individually.
type LineItem struct {
	SKU         string  `json:"sku"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Unit        string  `json:"unit"`
	LineTotal   float64 `json:"line_total"`
}

// InvoiceRecord is an extracted supplier invoice. Immutable once created;
// reconciliation results live on the MatchingPair, not here.
type InvoiceRecord struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	VenueID              uuid.UUID  `db:"venue_id" json:"venue_id"`
	SupplierName         string     `db:"supplier_name" json:"supplier_name"`
	InvoiceNumber        string     `db:"invoice_number" json:"invoice_number"`
	InvoiceDate          time.Time  `db:"invoice_date" json:"invoice_date"`
	GrossTotal           float64    `db:"gross_total" json:"gross_total"`
	Lines                []LineItem `json:"lines"`
	ExtractionConfidence float64    `db:"extraction_confidence" json:"extraction_confidence"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// DeliveryNoteRecord is an extracted warehouse delivery note.
type DeliveryNoteRecord struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	VenueID              uuid.UUID  `db:"venue_id" json:"venue_id"`
	SupplierName         string     `db:"supplier_name" json:"supplier_name"`
	DeliveryDate         time.Time  `db:"delivery_date" json:"delivery_date"`
	Total                float64    `db:"total" json:"total"`
	Lines                []LineItem `json:"lines"`
	ExtractionConfidence float64    `db:"extraction_confidence" json:"extraction_confidence"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// MatchReason is a machine-readable explanation with a human detail and the
// weight it contributed to a decision.
type MatchReason struct {
	Code   ReasonCode `json:"code"`
	Detail string     `json:"detail"`
	Weight float64    `json:"weight"`
}

// ConfidenceBreakdown holds the four independent component scores, each in
// [0,1]. Aggregation is owned by the scorer, not by this struct.
type ConfidenceBreakdown struct {
	Supplier  float64 `json:"supplier"`
	Date      float64 `json:"date"`
	LineItems float64 `json:"line_items"`
	Value     float64 `json:"value"`
}

// LineDiff is the diagnosis of one aligned (or unaligned) line pair. At most
// one of InvoiceLine/NoteLine is nil.
type LineDiff struct {
	InvoiceLine *LineItem      `json:"invoice_line"`
	NoteLine    *LineItem      `json:"note_line"`
	Status      LineDiffStatus `json:"status"`
	Confidence  float64        `json:"confidence"`
	Reasons     []MatchReason  `json:"reasons"`
}

// NotePreview is a denormalized delivery-note summary carried on candidates
// for display without a second fetch.
type NotePreview struct {
	SupplierName string    `json:"supplier_name"`
	DeliveryDate time.Time `json:"delivery_date"`
	Total        float64   `json:"total"`
	LineCount    int       `json:"line_count"`
}

// MatchCandidate is one scored delivery note proposed for an invoice.
type MatchCandidate struct {
	DeliveryNoteID uuid.UUID           `json:"delivery_note_id"`
	Breakdown      ConfidenceBreakdown `json:"breakdown"`
	Confidence     float64             `json:"confidence"`
	NotePreview    *NotePreview        `json:"note_preview,omitempty"`
}

// MatchingPair is the authoritative reconciliation record for one invoice.
// Created when the invoice first receives candidates, mutated only by the
// state machine, never deleted; superseded content is replaced in place and
// the id is preserved.
type MatchingPair struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	InvoiceID      uuid.UUID        `db:"invoice_id" json:"invoice_id"`
	DeliveryNoteID *uuid.UUID       `db:"delivery_note_id" json:"delivery_note_id"`
	Status         MatchStatus      `db:"status" json:"status"`
	State          MatchState       `db:"state" json:"state"`
	Confidence     float64          `db:"confidence" json:"confidence"`
	Reasons        []MatchReason    `json:"reasons"`
	Diffs          []LineDiff       `json:"line_diffs"`
	Candidates     []MatchCandidate `json:"candidates"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// ToleranceProfile is a per-venue override of the service-wide matching
// tolerances.
type ToleranceProfile struct {
	VenueID            uuid.UUID `db:"venue_id" json:"venue_id"`
	DateWindowDays     int       `db:"date_window_days" json:"date_window_days"`
	AmountProximityPct float64   `db:"amount_proximity_pct" json:"amount_proximity_pct"`
	QtyTolRel          float64   `db:"qty_tol_rel" json:"qty_tol_rel"`
	QtyTolAbs          float64   `db:"qty_tol_abs" json:"qty_tol_abs"`
	PriceTolRel        float64   `db:"price_tol_rel" json:"price_tol_rel"`
	FuzzyDescThreshold float64   `db:"fuzzy_desc_threshold" json:"fuzzy_desc_threshold"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// SummaryTotals aggregates pair statuses for one venue.
type SummaryTotals struct {
	TotalInvoices int     `json:"total_invoices"`
	Matched       int     `json:"matched"`
	Partial       int     `json:"partial"`
	Unmatched     int     `json:"unmatched"`
	Conflict      int     `json:"conflict"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// MatchingSummary is the bulk reporting shape for a venue.
type MatchingSummary struct {
	VenueID uuid.UUID      `json:"venue_id"`
	Totals  SummaryTotals  `json:"totals"`
	Pairs   []MatchingPair `json:"pairs"`
}

// RetryLateResponse reports the outcome of a retry-late pass.
type RetryLateResponse struct {
	NewMatchesFound int `json:"new_matches_found"`
	Processed       int `json:"processed"`
	Skipped         int `json:"skipped"`
	Errors          int `json:"errors"`
}
