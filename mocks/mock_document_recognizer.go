package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockDocumentRecognizer is a mock implementation of port.DocumentRecognizer.
type MockDocumentRecognizer struct {
	mock.Mock
}

func (m *MockDocumentRecognizer) Recognize(ctx context.Context, fileURL string) (string, error) {
	args := m.Called(ctx, fileURL)
	return args.String(0), args.Error(1)
}
