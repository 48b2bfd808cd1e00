package extractor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"freightrates/internal/extractor"
	"freightrates/internal/port"
	"freightrates/mocks"
)

// stalledService blocks until its context is cancelled and records that it was.
type stalledService struct {
	cancelled chan struct{}
}

func (s *stalledService) Extract(ctx context.Context, _ port.ExtractInput) (*port.ExtractOutput, error) {
	<-ctx.Done()
	close(s.cancelled)
	return nil, ctx.Err()
}

func TestHedgedService_PrimaryWins(t *testing.T) {
	p := new(mocks.MockExtractionService)
	s := new(mocks.MockExtractionService)
	p.On("Extract", mock.Anything, testInput).Return(output("primary"), nil)
	s.On("Extract", mock.Anything, testInput).Return(output("secondary"), nil).After(200 * time.Millisecond)

	out, err := extractor.NewHedgedService(p, s).Extract(context.Background(), testInput)
	require.NoError(t, err)
	assert.Equal(t, "primary", out.ModelUsed)
	p.AssertExpectations(t)
}

func TestHedgedService_FasterSecondaryWins(t *testing.T) {
	p := new(mocks.MockExtractionService)
	s := new(mocks.MockExtractionService)
	p.On("Extract", mock.Anything, testInput).Return(output("primary"), nil).After(800 * time.Millisecond)
	s.On("Extract", mock.Anything, testInput).Return(output("secondary"), nil)

	began := time.Now()
	out, err := extractor.NewHedgedService(p, s).Extract(context.Background(), testInput)
	require.NoError(t, err)
	assert.Equal(t, "secondary", out.ModelUsed)
	assert.Less(t, time.Since(began), 500*time.Millisecond)
}

func TestHedgedService_CancelsSlowerCall(t *testing.T) {
	stalled := &stalledService{cancelled: make(chan struct{})}
	s := new(mocks.MockExtractionService)
	s.On("Extract", mock.Anything, testInput).Return(output("secondary"), nil)

	out, err := extractor.NewHedgedService(stalled, s).Extract(context.Background(), testInput)
	require.NoError(t, err)
	assert.Equal(t, "secondary", out.ModelUsed)

	select {
	case <-stalled.cancelled:
	case <-time.After(time.Second):
		t.Fatal("primary call was not cancelled")
	}
}

func TestHedgedService_SecondaryCovers(t *testing.T) {
	p := new(mocks.MockExtractionService)
	s := new(mocks.MockExtractionService)
	p.On("Extract", mock.Anything, testInput).Return(nil, errors.New("primary down"))
	s.On("Extract", mock.Anything, testInput).Return(output("secondary"), nil)

	out, err := extractor.NewHedgedService(p, s).Extract(context.Background(), testInput)
	require.NoError(t, err)
	assert.Equal(t, "secondary", out.ModelUsed)
}

func TestHedgedService_BothFail(t *testing.T) {
	p := new(mocks.MockExtractionService)
	s := new(mocks.MockExtractionService)
	secondaryErr := errors.New("secondary down")
	p.On("Extract", mock.Anything, testInput).Return(nil, errors.New("primary down"))
	s.On("Extract", mock.Anything, testInput).Return(nil, secondaryErr)

	_, err := extractor.NewHedgedService(p, s).Extract(context.Background(), testInput)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary down")
	assert.ErrorIs(t, err, secondaryErr)
}

func TestHedgedService_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &stalledService{cancelled: make(chan struct{})}
	s := &stalledService{cancelled: make(chan struct{})}

	_, err := extractor.NewHedgedService(p, s).Extract(ctx, testInput)
	assert.Error(t, err)
}
