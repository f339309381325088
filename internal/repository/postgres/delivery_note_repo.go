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

type deliveryNoteRepo struct {
	db *sqlx.DB
}

// NewDeliveryNoteRepo creates a new PostgreSQL-backed DeliveryNoteRepository.
func NewDeliveryNoteRepo(db *sqlx.DB) port.DeliveryNoteRepository {
	return &deliveryNoteRepo{db: db}
}

type deliveryNoteRow struct {
	ID                   uuid.UUID `db:"id"`
	VenueID              uuid.UUID `db:"venue_id"`
	SupplierName         string    `db:"supplier_name"`
	DeliveryDate         time.Time `db:"delivery_date"`
	Total                float64   `db:"total"`
	Lines                []byte    `db:"lines"`
	ExtractionConfidence float64   `db:"extraction_confidence"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

func (r deliveryNoteRow) toDomain() (*domain.DeliveryNoteRecord, error) {
	note := &domain.DeliveryNoteRecord{
		ID:                   r.ID,
		VenueID:              r.VenueID,
		SupplierName:         r.SupplierName,
		DeliveryDate:         r.DeliveryDate,
		Total:                r.Total,
		ExtractionConfidence: r.ExtractionConfidence,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
	if len(r.Lines) > 0 {
		if err := json.Unmarshal(r.Lines, &note.Lines); err != nil {
			return nil, fmt.Errorf("decoding delivery note lines: %w", err)
		}
	}
	return note, nil
}

func (r *deliveryNoteRepo) Create(ctx context.Context, note *domain.DeliveryNoteRecord) error {
	now := time.Now().UTC()
	note.CreatedAt = now
	note.UpdatedAt = now

	lines, err := json.Marshal(note.Lines)
	if err != nil {
		return fmt.Errorf("deliveryNoteRepo.Create encode lines: %w", err)
	}

	query := `INSERT INTO delivery_notes (
		id, venue_id, supplier_name, delivery_date, total,
		lines, extraction_confidence, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.ExecContext(ctx, query,
		note.ID, note.VenueID, note.SupplierName, note.DeliveryDate, note.Total,
		lines, note.ExtractionConfidence, note.CreatedAt, note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("deliveryNoteRepo.Create: %w", err)
	}
	return nil
}

func (r *deliveryNoteRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.DeliveryNoteRecord, error) {
	var row deliveryNoteRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM delivery_notes WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDeliveryNoteNotFound
		}
		return nil, fmt.Errorf("deliveryNoteRepo.GetByID: %w", err)
	}
	return row.toDomain()
}

func (r *deliveryNoteRepo) ListByVenue(ctx context.Context, venueID uuid.UUID, offset, limit int) ([]domain.DeliveryNoteRecord, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM delivery_notes WHERE venue_id = $1", venueID)
	if err != nil {
		return nil, 0, fmt.Errorf("deliveryNoteRepo.ListByVenue count: %w", err)
	}

	var rows []deliveryNoteRow
	err = r.db.SelectContext(ctx, &rows,
		`SELECT * FROM delivery_notes WHERE venue_id = $1
		 ORDER BY delivery_date DESC, id LIMIT $2 OFFSET $3`,
		venueID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("deliveryNoteRepo.ListByVenue: %w", err)
	}
	notes, err := rowsToNotes(rows)
	if err != nil {
		return nil, 0, err
	}
	return notes, total, nil
}

func (r *deliveryNoteRepo) ListByVenueWindow(ctx context.Context, venueID uuid.UUID, from, to time.Time) ([]domain.DeliveryNoteRecord, error) {
	var rows []deliveryNoteRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM delivery_notes
		 WHERE venue_id = $1 AND delivery_date >= $2 AND delivery_date <= $3
		 ORDER BY delivery_date, id`,
		venueID, from, to)
	if err != nil {
		return nil, fmt.Errorf("deliveryNoteRepo.ListByVenueWindow: %w", err)
	}
	return rowsToNotes(rows)
}

func rowsToNotes(rows []deliveryNoteRow) ([]domain.DeliveryNoteRecord, error) {
	notes := make([]domain.DeliveryNoteRecord, 0, len(rows))
	for _, row := range rows {
		note, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("deliveryNoteRepo decode: %w", err)
		}
		notes = append(notes, *note)
	}
	return notes, nil
}
