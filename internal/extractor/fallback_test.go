package extractor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"freightrates/internal/extractor"
	"freightrates/internal/port"
	"freightrates/mocks"
)

var testInput = port.ExtractInput{Task: port.TaskExtractRates, Context: "table data type:\nprice"}

func output(model string) *port.ExtractOutput {
	return &port.ExtractOutput{Content: `{"prices":[]}`, ModelUsed: model, PromptUsed: "p"}
}

func TestFallbackService_FirstSucceeds(t *testing.T) {
	s1 := new(mocks.MockExtractionService)
	s2 := new(mocks.MockExtractionService)
	s1.On("Extract", mock.Anything, testInput).Return(output("azure"), nil)

	fs := extractor.NewFallbackService([]port.ExtractionService{s1, s2}, []string{"azure", "claude"})

	out, err := fs.Extract(context.Background(), testInput)
	require.NoError(t, err)
	assert.Equal(t, "azure", out.ModelUsed)
	s2.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestFallbackService_FirstFails_SecondSucceeds(t *testing.T) {
	s1 := new(mocks.MockExtractionService)
	s2 := new(mocks.MockExtractionService)
	s1.On("Extract", mock.Anything, testInput).Return(nil, errors.New("boom"))
	s2.On("Extract", mock.Anything, testInput).Return(output("claude"), nil)

	fs := extractor.NewFallbackService([]port.ExtractionService{s1, s2}, []string{"azure", "claude"})

	out, err := fs.Extract(context.Background(), testInput)
	require.NoError(t, err)
	assert.Equal(t, "claude", out.ModelUsed)
}

func TestFallbackService_AllFail(t *testing.T) {
	s1 := new(mocks.MockExtractionService)
	s2 := new(mocks.MockExtractionService)
	s1.On("Extract", mock.Anything, testInput).Return(nil, errors.New("boom"))
	s2.On("Extract", mock.Anything, testInput).Return(nil, extractor.NewRateLimitError("claude", errors.New("429"), 30))

	fs := extractor.NewFallbackService([]port.ExtractionService{s1, s2}, []string{"azure", "claude"})

	_, err := fs.Extract(context.Background(), testInput)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all providers failed")

	var rl *extractor.RateLimitError
	assert.True(t, errors.As(err, &rl))
}

func TestFallbackService_AllRateLimited_CircuitSkipsOnNextCall(t *testing.T) {
	s1 := new(mocks.MockExtractionService)
	s2 := new(mocks.MockExtractionService)
	s1.On("Extract", mock.Anything, testInput).Return(nil, extractor.NewRateLimitError("azure", errors.New("429"), 60)).Once()
	s2.On("Extract", mock.Anything, testInput).Return(nil, extractor.NewRateLimitError("claude", errors.New("429"), 30)).Once()

	fs := extractor.NewFallbackService([]port.ExtractionService{s1, s2}, []string{"azure", "claude"})

	_, err := fs.Extract(context.Background(), testInput)
	var rl *extractor.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, "all", rl.Provider)

	// Both circuits are open now; neither service is called again.
	_, err = fs.Extract(context.Background(), testInput)
	require.True(t, errors.As(err, &rl))
	s1.AssertNumberOfCalls(t, "Extract", 1)
	s2.AssertNumberOfCalls(t, "Extract", 1)
}

func TestFallbackService_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s1 := new(mocks.MockExtractionService)
	s2 := new(mocks.MockExtractionService)
	s1.On("Extract", mock.Anything, testInput).Return(nil, context.Canceled)

	fs := extractor.NewFallbackService([]port.ExtractionService{s1, s2}, []string{"azure", "claude"})

	_, err := fs.Extract(ctx, testInput)
	assert.ErrorIs(t, err, context.Canceled)
	s2.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}
