package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dockmatch/internal/domain"
)

// InvoiceRepository defines the contract for invoice record persistence.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *domain.InvoiceRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error)
	ListByVenue(ctx context.Context, venueID uuid.UUID, offset, limit int) ([]domain.InvoiceRecord, int, error)
}

// DeliveryNoteRepository defines the contract for delivery note persistence.
type DeliveryNoteRepository interface {
	Create(ctx context.Context, note *domain.DeliveryNoteRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DeliveryNoteRecord, error)
	ListByVenue(ctx context.Context, venueID uuid.UUID, offset, limit int) ([]domain.DeliveryNoteRecord, int, error)
	// ListByVenueWindow returns every note for the venue whose delivery date
	// falls inside [from, to]. Used to snapshot the candidate universe for
	// one reconciliation run.
	ListByVenueWindow(ctx context.Context, venueID uuid.UUID, from, to time.Time) ([]domain.DeliveryNoteRecord, error)
}

// MatchingPairRepository defines the contract for reconciliation record
// persistence. Pairs are upserted in place, keyed by invoice id; they are
// never deleted.
type MatchingPairRepository interface {
	Upsert(ctx context.Context, pair *domain.MatchingPair) error
	GetByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*domain.MatchingPair, error)
	ListByVenue(ctx context.Context, venueID uuid.UUID) ([]domain.MatchingPair, error)
	// ListRetryable returns the venue's pairs whose state is not matched,
	// the working set of a retry-late pass.
	ListRetryable(ctx context.Context, venueID uuid.UUID) ([]domain.MatchingPair, error)
}

// ToleranceProfileRepository defines the contract for per-venue tolerance
// overrides.
type ToleranceProfileRepository interface {
	Upsert(ctx context.Context, profile *domain.ToleranceProfile) error
	GetByVenue(ctx context.Context, venueID uuid.UUID) (*domain.ToleranceProfile, error)
}
