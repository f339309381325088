package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"dockmatch/internal/domain"
	"dockmatch/internal/matching"
)

// MockReconService is a mock implementation of service.ReconService.
type MockReconService struct {
	mock.Mock
}

func (m *MockReconService) ReconcileInvoice(ctx context.Context, invoiceID uuid.UUID) (*domain.MatchingPair, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchingPair), args.Error(1)
}

func (m *MockReconService) ReconcileVenue(ctx context.Context, venueID uuid.UUID) (*domain.MatchingSummary, error) {
	args := m.Called(ctx, venueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchingSummary), args.Error(1)
}

func (m *MockReconService) RetryLate(ctx context.Context, venueID uuid.UUID) (*domain.RetryLateResponse, error) {
	args := m.Called(ctx, venueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RetryLateResponse), args.Error(1)
}

func (m *MockReconService) Confirm(ctx context.Context, invoiceID, noteID uuid.UUID) (*domain.MatchingPair, error) {
	args := m.Called(ctx, invoiceID, noteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchingPair), args.Error(1)
}

func (m *MockReconService) Reject(ctx context.Context, invoiceID, noteID uuid.UUID) (*domain.MatchingPair, error) {
	args := m.Called(ctx, invoiceID, noteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchingPair), args.Error(1)
}

func (m *MockReconService) GetPair(ctx context.Context, invoiceID uuid.UUID) (*domain.MatchingPair, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchingPair), args.Error(1)
}

func (m *MockReconService) Candidates(ctx context.Context, invoiceID uuid.UUID) ([]domain.MatchCandidate, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MatchCandidate), args.Error(1)
}

func (m *MockReconService) Summary(ctx context.Context, venueID uuid.UUID) (*domain.MatchingSummary, error) {
	args := m.Called(ctx, venueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchingSummary), args.Error(1)
}

func (m *MockReconService) TolerancesForVenue(ctx context.Context, venueID uuid.UUID) (matching.Tolerances, error) {
	args := m.Called(ctx, venueID)
	return args.Get(0).(matching.Tolerances), args.Error(1)
}
