package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"dockmatch/internal/domain"
)

// MockIngestService is a mock implementation of service.IngestService.
type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) StoreInvoice(ctx context.Context, inv *domain.InvoiceRecord) (*domain.MatchingPair, error) {
	args := m.Called(ctx, inv)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchingPair), args.Error(1)
}

func (m *MockIngestService) StoreDeliveryNote(ctx context.Context, note *domain.DeliveryNoteRecord) (*domain.RetryLateResponse, error) {
	args := m.Called(ctx, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RetryLateResponse), args.Error(1)
}

func (m *MockIngestService) GetInvoice(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InvoiceRecord), args.Error(1)
}

func (m *MockIngestService) GetDeliveryNote(ctx context.Context, id uuid.UUID) (*domain.DeliveryNoteRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DeliveryNoteRecord), args.Error(1)
}

func (m *MockIngestService) ListInvoices(ctx context.Context, venueID uuid.UUID, offset, limit int) ([]domain.InvoiceRecord, int, error) {
	args := m.Called(ctx, venueID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.InvoiceRecord), args.Int(1), args.Error(2)
}

func (m *MockIngestService) ListDeliveryNotes(ctx context.Context, venueID uuid.UUID, offset, limit int) ([]domain.DeliveryNoteRecord, int, error) {
	args := m.Called(ctx, venueID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.DeliveryNoteRecord), args.Int(1), args.Error(2)
}
