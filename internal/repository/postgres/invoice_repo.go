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

type invoiceRepo struct {
	db *sqlx.DB
}

// NewInvoiceRepo creates a new PostgreSQL-backed InvoiceRepository.
func NewInvoiceRepo(db *sqlx.DB) port.InvoiceRepository {
	return &invoiceRepo{db: db}
}

// invoiceRow mirrors the invoices table; line items live in a jsonb column.
type invoiceRow struct {
	ID                   uuid.UUID `db:"id"`
	VenueID              uuid.UUID `db:"venue_id"`
	SupplierName         string    `db:"supplier_name"`
	InvoiceNumber        string    `db:"invoice_number"`
	InvoiceDate          time.Time `db:"invoice_date"`
	GrossTotal           float64   `db:"gross_total"`
	Lines                []byte    `db:"lines"`
	ExtractionConfidence float64   `db:"extraction_confidence"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

func (r invoiceRow) toDomain() (*domain.InvoiceRecord, error) {
	inv := &domain.InvoiceRecord{
		ID:                   r.ID,
		VenueID:              r.VenueID,
		SupplierName:         r.SupplierName,
		InvoiceNumber:        r.InvoiceNumber,
		InvoiceDate:          r.InvoiceDate,
		GrossTotal:           r.GrossTotal,
		ExtractionConfidence: r.ExtractionConfidence,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
	if len(r.Lines) > 0 {
		if err := json.Unmarshal(r.Lines, &inv.Lines); err != nil {
			return nil, fmt.Errorf("decoding invoice lines: %w", err)
		}
	}
	return inv, nil
}

func (r *invoiceRepo) Create(ctx context.Context, inv *domain.InvoiceRecord) error {
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now

	lines, err := json.Marshal(inv.Lines)
	if err != nil {
		return fmt.Errorf("invoiceRepo.Create encode lines: %w", err)
	}

	query := `INSERT INTO invoices (
		id, venue_id, supplier_name, invoice_number, invoice_date,
		gross_total, lines, extraction_confidence, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.db.ExecContext(ctx, query,
		inv.ID, inv.VenueID, inv.SupplierName, inv.InvoiceNumber, inv.InvoiceDate,
		inv.GrossTotal, lines, inv.ExtractionConfidence, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("invoiceRepo.Create: %w", err)
	}
	return nil
}

func (r *invoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error) {
	var row invoiceRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM invoices WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.GetByID: %w", err)
	}
	return row.toDomain()
}

func (r *invoiceRepo) ListByVenue(ctx context.Context, venueID uuid.UUID, offset, limit int) ([]domain.InvoiceRecord, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM invoices WHERE venue_id = $1", venueID)
	if err != nil {
		return nil, 0, fmt.Errorf("invoiceRepo.ListByVenue count: %w", err)
	}

	var rows []invoiceRow
	err = r.db.SelectContext(ctx, &rows,
		`SELECT * FROM invoices WHERE venue_id = $1
		 ORDER BY invoice_date DESC, id LIMIT $2 OFFSET $3`,
		venueID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("invoiceRepo.ListByVenue: %w", err)
	}

	invoices := make([]domain.InvoiceRecord, 0, len(rows))
	for _, row := range rows {
		inv, err := row.toDomain()
		if err != nil {
			return nil, 0, fmt.Errorf("invoiceRepo.ListByVenue: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	return invoices, total, nil
}
