package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"freightrates/internal/domain"
)

// MockJobNotifier is a mock implementation of port.JobNotifier.
type MockJobNotifier struct {
	mock.Mock
}

func (m *MockJobNotifier) NotifyJobFailed(ctx context.Context, job *domain.ParseJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}
