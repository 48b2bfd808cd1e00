package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"freightrates/internal/domain"
)

// MockParseJobRepo is a mock implementation of port.ParseJobRepository.
type MockParseJobRepo struct {
	mock.Mock
}

func (m *MockParseJobRepo) Create(ctx context.Context, job *domain.ParseJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockParseJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ParseJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParseJob), args.Error(1)
}

func (m *MockParseJobRepo) List(ctx context.Context, status domain.JobStatus, offset, limit int) ([]domain.ParseJob, int, error) {
	args := m.Called(ctx, status, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ParseJob), args.Int(1), args.Error(2)
}

func (m *MockParseJobRepo) ClaimQueued(ctx context.Context, limit int) ([]domain.ParseJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ParseJob), args.Error(1)
}

func (m *MockParseJobRepo) Claim(ctx context.Context, id uuid.UUID) (*domain.ParseJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParseJob), args.Error(1)
}

func (m *MockParseJobRepo) MarkCompleted(ctx context.Context, job *domain.ParseJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockParseJobRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	args := m.Called(ctx, id, errMsg)
	return args.Error(0)
}

func (m *MockParseJobRepo) Requeue(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error {
	args := m.Called(ctx, id, errMsg, retryAt)
	return args.Error(0)
}

func (m *MockParseJobRepo) RecoverStale(ctx context.Context, before time.Time) (int, error) {
	args := m.Called(ctx, before)
	return args.Int(0), args.Error(1)
}
