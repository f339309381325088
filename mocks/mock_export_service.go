package mocks

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockExportService is a mock implementation of service.ExportService.
type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) WriteCSV(ctx context.Context, venueID uuid.UUID, w io.Writer) error {
	args := m.Called(ctx, venueID, w)
	return args.Error(0)
}

func (m *MockExportService) ExportXLSX(ctx context.Context, venueID uuid.UUID) (string, error) {
	args := m.Called(ctx, venueID)
	return args.String(0), args.Error(1)
}
