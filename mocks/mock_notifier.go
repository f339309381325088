package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"dockmatch/internal/domain"
)

// MockNotifier is a mock implementation of port.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendConflictAlert(ctx context.Context, pair *domain.MatchingPair) error {
	args := m.Called(ctx, pair)
	return args.Error(0)
}

func (m *MockNotifier) SendBatchDigest(ctx context.Context, summary *domain.MatchingSummary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}
