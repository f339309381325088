package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"dockmatch/internal/domain"
	"dockmatch/internal/port"
)

type matchingPairRepo struct {
	db *sqlx.DB
}

// NewMatchingPairRepo creates a new PostgreSQL-backed MatchingPairRepository.
func NewMatchingPairRepo(db *sqlx.DB) port.MatchingPairRepository {
	return &matchingPairRepo{db: db}
}

type matchingPairRow struct {
	ID             uuid.UUID  `db:"id"`
	InvoiceID      uuid.UUID  `db:"invoice_id"`
	VenueID        uuid.UUID  `db:"venue_id"`
	DeliveryNoteID *uuid.UUID `db:"delivery_note_id"`
	Status         string     `db:"status"`
	State          string     `db:"state"`
	Confidence     float64    `db:"confidence"`
	Reasons        []byte     `db:"reasons"`
	Diffs          []byte     `db:"diffs"`
	Candidates     []byte     `db:"candidates"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

func (r matchingPairRow) toDomain() (*domain.MatchingPair, error) {
	pair := &domain.MatchingPair{
		ID:             r.ID,
		InvoiceID:      r.InvoiceID,
		DeliveryNoteID: r.DeliveryNoteID,
		Status:         domain.MatchStatus(r.Status),
		State:          domain.MatchState(r.State),
		Confidence:     r.Confidence,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	for _, col := range []struct {
		raw  []byte
		dest interface{}
		name string
	}{
		{r.Reasons, &pair.Reasons, "reasons"},
		{r.Diffs, &pair.Diffs, "diffs"},
		{r.Candidates, &pair.Candidates, "candidates"},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dest); err != nil {
			return nil, fmt.Errorf("decoding pair %s: %w", col.name, err)
		}
	}
	return pair, nil
}

// Upsert writes the pair keyed by invoice id. Superseded content is replaced
// in place; the row id and created_at survive re-scoring.
func (r *matchingPairRepo) Upsert(ctx context.Context, pair *domain.MatchingPair) error {
	now := time.Now().UTC()
	if pair.CreatedAt.IsZero() {
		pair.CreatedAt = now
	}
	pair.UpdatedAt = now

	reasons, err := json.Marshal(pair.Reasons)
	if err != nil {
		return fmt.Errorf("matchingPairRepo.Upsert encode reasons: %w", err)
	}
	diffs, err := json.Marshal(pair.Diffs)
	if err != nil {
		return fmt.Errorf("matchingPairRepo.Upsert encode diffs: %w", err)
	}
	candidates, err := json.Marshal(pair.Candidates)
	if err != nil {
		return fmt.Errorf("matchingPairRepo.Upsert encode candidates: %w", err)
	}

	venueID, err := r.venueForInvoice(ctx, pair.InvoiceID)
	if err != nil {
		return err
	}

	query := `INSERT INTO matching_pairs (
		id, invoice_id, venue_id, delivery_note_id, status, state,
		confidence, reasons, diffs, candidates, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (invoice_id) DO UPDATE SET
		delivery_note_id = EXCLUDED.delivery_note_id,
		status = EXCLUDED.status,
		state = EXCLUDED.state,
		confidence = EXCLUDED.confidence,
		reasons = EXCLUDED.reasons,
		diffs = EXCLUDED.diffs,
		candidates = EXCLUDED.candidates,
		updated_at = EXCLUDED.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		pair.ID, pair.InvoiceID, venueID, pair.DeliveryNoteID, pair.Status, pair.State,
		pair.Confidence, reasons, diffs, candidates, pair.CreatedAt, pair.UpdatedAt)
	if err != nil {
		return fmt.Errorf("matchingPairRepo.Upsert: %w", err)
	}
	return nil
}

func (r *matchingPairRepo) venueForInvoice(ctx context.Context, invoiceID uuid.UUID) (uuid.UUID, error) {
	var venueID uuid.UUID
	err := r.db.GetContext(ctx, &venueID,
		"SELECT venue_id FROM invoices WHERE id = $1", invoiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, domain.ErrInvoiceNotFound
		}
		return uuid.Nil, fmt.Errorf("matchingPairRepo venue lookup: %w", err)
	}
	return venueID, nil
}

func (r *matchingPairRepo) GetByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*domain.MatchingPair, error) {
	var row matchingPairRow
	err := r.db.GetContext(ctx, &row,
		"SELECT * FROM matching_pairs WHERE invoice_id = $1", invoiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMatchingPairNotFound
		}
		return nil, fmt.Errorf("matchingPairRepo.GetByInvoiceID: %w", err)
	}
	return row.toDomain()
}

func (r *matchingPairRepo) ListByVenue(ctx context.Context, venueID uuid.UUID) ([]domain.MatchingPair, error) {
	var rows []matchingPairRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM matching_pairs WHERE venue_id = $1 ORDER BY created_at, id`,
		venueID)
	if err != nil {
		return nil, fmt.Errorf("matchingPairRepo.ListByVenue: %w", err)
	}
	return rowsToPairs(rows)
}

func (r *matchingPairRepo) ListRetryable(ctx context.Context, venueID uuid.UUID) ([]domain.MatchingPair, error) {
	var rows []matchingPairRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM matching_pairs
		 WHERE venue_id = $1 AND state != $2
		 ORDER BY created_at, id`,
		venueID, domain.StateMatched)
	if err != nil {
		return nil, fmt.Errorf("matchingPairRepo.ListRetryable: %w", err)
	}
	return rowsToPairs(rows)
}

func rowsToPairs(rows []matchingPairRow) ([]domain.MatchingPair, error) {
	pairs := make([]domain.MatchingPair, 0, len(rows))
	for _, row := range rows {
		pair, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("matchingPairRepo decode: %w", err)
		}
		pairs = append(pairs, *pair)
	}
	return pairs, nil
}
