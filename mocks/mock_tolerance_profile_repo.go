package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"dockmatch/internal/domain"
)

// MockToleranceProfileRepo is a mock implementation of
// port.ToleranceProfileRepository.
type MockToleranceProfileRepo struct {
	mock.Mock
}

func (m *MockToleranceProfileRepo) Upsert(ctx context.Context, profile *domain.ToleranceProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockToleranceProfileRepo) GetByVenue(ctx context.Context, venueID uuid.UUID) (*domain.ToleranceProfile, error) {
	args := m.Called(ctx, venueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ToleranceProfile), args.Error(1)
}
