package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockClaimStore is a mock implementation of port.ClaimStore.
type MockClaimStore struct {
	mock.Mock
}

func (m *MockClaimStore) Claim(ctx context.Context, noteID, invoiceID uuid.UUID) error {
	args := m.Called(ctx, noteID, invoiceID)
	return args.Error(0)
}

func (m *MockClaimStore) Release(ctx context.Context, noteID, invoiceID uuid.UUID) error {
	args := m.Called(ctx, noteID, invoiceID)
	return args.Error(0)
}

func (m *MockClaimStore) Holder(ctx context.Context, noteID uuid.UUID) (uuid.UUID, bool, error) {
	args := m.Called(ctx, noteID)
	return args.Get(0).(uuid.UUID), args.Bool(1), args.Error(2)
}
