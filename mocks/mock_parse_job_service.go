package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"freightrates/internal/domain"
	"freightrates/internal/service"
)

// MockParseJobService is a mock implementation of service.ParseJobService.
type MockParseJobService struct {
	mock.Mock
}

func (m *MockParseJobService) SubmitEmail(ctx context.Context, input service.SubmitEmailInput) (*domain.ParseJob, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParseJob), args.Error(1)
}

func (m *MockParseJobService) SubmitFile(ctx context.Context, input service.SubmitFileInput) (*domain.ParseJob, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParseJob), args.Error(1)
}

func (m *MockParseJobService) Get(ctx context.Context, id uuid.UUID) (*domain.ParseJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParseJob), args.Error(1)
}

func (m *MockParseJobService) List(ctx context.Context, status domain.JobStatus, offset, limit int) ([]domain.ParseJob, int, error) {
	args := m.Called(ctx, status, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ParseJob), args.Int(1), args.Error(2)
}

func (m *MockParseJobService) Retry(ctx context.Context, id uuid.UUID) (*domain.ParseJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParseJob), args.Error(1)
}

func (m *MockParseJobService) Result(ctx context.Context, id uuid.UUID) (*domain.ExtractionResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionResult), args.Error(1)
}

func (m *MockParseJobService) Process(ctx context.Context, job *domain.ParseJob, maxAttempts int) {
	m.Called(ctx, job, maxAttempts)
}
