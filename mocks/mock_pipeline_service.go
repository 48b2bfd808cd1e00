package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"freightrates/internal/domain"
)

// MockPipelineService is a mock implementation of service.PipelineService.
type MockPipelineService struct {
	mock.Mock
}

func (m *MockPipelineService) Run(ctx context.Context, html string, opts domain.ParseOptions) (*domain.ParseOutcome, error) {
	args := m.Called(ctx, html, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParseOutcome), args.Error(1)
}

func (m *MockPipelineService) Sections(ctx context.Context, html string, opts domain.ParseOptions) ([]domain.Section, *domain.ParseStats, error) {
	args := m.Called(ctx, html, opts)
	var sections []domain.Section
	if v := args.Get(0); v != nil {
		sections = v.([]domain.Section)
	}
	var stats *domain.ParseStats
	if v := args.Get(1); v != nil {
		stats = v.(*domain.ParseStats)
	}
	return sections, stats, args.Error(2)
}
