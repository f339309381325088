package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dockmatch/internal/domain"
	"dockmatch/internal/port"
)

// IngestService stores extracted records handed over by the extraction
// pipeline and triggers reconciliation. Malformed line items are accepted and
// flagged downstream; only records missing their identity fields are
// rejected.
type IngestService interface {
	StoreInvoice(ctx context.Context, inv *domain.InvoiceRecord) (*domain.MatchingPair, error)
	StoreDeliveryNote(ctx context.Context, note *domain.DeliveryNoteRecord) (*domain.RetryLateResponse, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error)
	GetDeliveryNote(ctx context.Context, id uuid.UUID) (*domain.DeliveryNoteRecord, error)
	ListInvoices(ctx context.Context, venueID uuid.UUID, offset, limit int) ([]domain.InvoiceRecord, int, error)
	ListDeliveryNotes(ctx context.Context, venueID uuid.UUID, offset, limit int) ([]domain.DeliveryNoteRecord, int, error)
}

type ingestService struct {
	invoices port.InvoiceRepository
	notes    port.DeliveryNoteRepository
	recon    ReconService
	log      *logrus.Entry
}

// NewIngestService creates an IngestService.
func NewIngestService(
	invoices port.InvoiceRepository,
	notes port.DeliveryNoteRepository,
	recon ReconService,
	logger *logrus.Logger,
) IngestService {
	return &ingestService{
		invoices: invoices,
		notes:    notes,
		recon:    recon,
		log:      logger.WithField("component", "ingest"),
	}
}

// StoreInvoice persists the invoice and immediately reconciles it against the
// current delivery-note universe.
func (s *ingestService) StoreInvoice(ctx context.Context, inv *domain.InvoiceRecord) (*domain.MatchingPair, error) {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if err := checkRecordIdentity(inv.VenueID, inv.SupplierName, inv.InvoiceDate.IsZero()); err != nil {
		return nil, err
	}
	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"invoice_id": inv.ID, "venue_id": inv.VenueID, "lines": len(inv.Lines)}).
		Info("invoice ingested")
	return s.recon.ReconcileInvoice(ctx, inv.ID)
}

// StoreDeliveryNote persists the note and retries every open reconciliation
// of its venue, since a late note may be the match an earlier invoice was
// waiting for.
func (s *ingestService) StoreDeliveryNote(ctx context.Context, note *domain.DeliveryNoteRecord) (*domain.RetryLateResponse, error) {
	if note.ID == uuid.Nil {
		note.ID = uuid.New()
	}
	if err := checkRecordIdentity(note.VenueID, note.SupplierName, note.DeliveryDate.IsZero()); err != nil {
		return nil, err
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"note_id": note.ID, "venue_id": note.VenueID, "lines": len(note.Lines)}).
		Info("delivery note ingested")
	return s.recon.RetryLate(ctx, note.VenueID)
}

func (s *ingestService) GetInvoice(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error) {
	return s.invoices.GetByID(ctx, id)
}

func (s *ingestService) GetDeliveryNote(ctx context.Context, id uuid.UUID) (*domain.DeliveryNoteRecord, error) {
	return s.notes.GetByID(ctx, id)
}

func (s *ingestService) ListInvoices(ctx context.Context, venueID uuid.UUID, offset, limit int) ([]domain.InvoiceRecord, int, error) {
	return s.invoices.ListByVenue(ctx, venueID, offset, limit)
}

func (s *ingestService) ListDeliveryNotes(ctx context.Context, venueID uuid.UUID, offset, limit int) ([]domain.DeliveryNoteRecord, int, error) {
	return s.notes.ListByVenue(ctx, venueID, offset, limit)
}

// checkRecordIdentity enforces the minimum a record needs to take part in
// matching. Degraded line items pass through; a record with no venue,
// supplier or date cannot be placed at all.
func checkRecordIdentity(venueID uuid.UUID, supplier string, dateMissing bool) error {
	if venueID == uuid.Nil {
		return fmt.Errorf("%w: venue_id is required", domain.ErrInvalidRecord)
	}
	if supplier == "" {
		return fmt.Errorf("%w: supplier_name is required", domain.ErrInvalidRecord)
	}
	if dateMissing {
		return fmt.Errorf("%w: document date is required", domain.ErrInvalidRecord)
	}
	return nil
}
