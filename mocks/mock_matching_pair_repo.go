package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"dockmatch/internal/domain"
)

// MockMatchingPairRepo is a mock implementation of port.MatchingPairRepository.
type MockMatchingPairRepo struct {
	mock.Mock
}

func (m *MockMatchingPairRepo) Upsert(ctx context.Context, pair *domain.MatchingPair) error {
	args := m.Called(ctx, pair)
	return args.Error(0)
}

func (m *MockMatchingPairRepo) GetByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*domain.MatchingPair, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchingPair), args.Error(1)
}

func (m *MockMatchingPairRepo) ListByVenue(ctx context.Context, venueID uuid.UUID) ([]domain.MatchingPair, error) {
	args := m.Called(ctx, venueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MatchingPair), args.Error(1)
}

func (m *MockMatchingPairRepo) ListRetryable(ctx context.Context, venueID uuid.UUID) ([]domain.MatchingPair, error) {
	args := m.Called(ctx, venueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MatchingPair), args.Error(1)
}
