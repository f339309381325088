package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"dockmatch/internal/domain"
)

// MockDeliveryNoteRepo is a mock implementation of port.DeliveryNoteRepository.
type MockDeliveryNoteRepo struct {
	mock.Mock
}

func (m *MockDeliveryNoteRepo) Create(ctx context.Context, note *domain.DeliveryNoteRecord) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *MockDeliveryNoteRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.DeliveryNoteRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DeliveryNoteRecord), args.Error(1)
}

func (m *MockDeliveryNoteRepo) ListByVenue(ctx context.Context, venueID uuid.UUID, offset, limit int) ([]domain.DeliveryNoteRecord, int, error) {
	args := m.Called(ctx, venueID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.DeliveryNoteRecord), args.Int(1), args.Error(2)
}

func (m *MockDeliveryNoteRepo) ListByVenueWindow(ctx context.Context, venueID uuid.UUID, from, to time.Time) ([]domain.DeliveryNoteRecord, error) {
	args := m.Called(ctx, venueID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DeliveryNoteRecord), args.Error(1)
}
