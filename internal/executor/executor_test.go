package executor_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"freightrates/internal/config"
	"freightrates/internal/domain"
	"freightrates/internal/executor"
	"freightrates/internal/extractor"
	"freightrates/internal/port"
	"freightrates/mocks"
)

// recordingSleeper collects requested waits without blocking.
type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func reply(content string) *port.ExtractOutput {
	return &port.ExtractOutput{Content: content, ModelUsed: "gpt-4o"}
}

func newExecutor(svc port.ExtractionService, s *recordingSleeper) *executor.Executor {
	cfg := config.DefaultBatchConfig()
	return executor.NewExecutor(svc, &cfg, executor.WithSleeper(s.sleep))
}

func priceSection(rows ...domain.Row) domain.Section {
	return domain.Section{
		ID:         "table_0_0",
		HeaderRows: []domain.Row{{"POL", "POD", "20GP", "40HQ"}},
		DataRows:   rows,
		Type:       domain.TableTypePrice,
	}
}

func TestExecute_RetryThenSuccess(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	svc.On("Extract", mock.Anything, mock.Anything).Return(nil, errors.New("timeout")).Twice()
	svc.On("Extract", mock.Anything, mock.Anything).Return(reply(`{"prices":[{"POL":"Shanghai"}]}`), nil).Once()

	sleeper := &recordingSleeper{}
	result, report, err := newExecutor(svc, sleeper).ExecuteSections(context.Background(),
		[]domain.Section{priceSection(domain.Row{"Shanghai", "Los Angeles", "1500", "2100"})})

	require.NoError(t, err)
	require.Len(t, result.Prices, 1)
	assert.Equal(t, "Shanghai", result.Prices[0]["POL"])
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeper.waits)
	assert.Equal(t, 1, report.Batches)
	assert.Equal(t, 0, report.FailedBatches)
	assert.Equal(t, "gpt-4o", report.ModelUsed)
	svc.AssertNumberOfCalls(t, "Extract", 3)
}

func TestExecute_AllAttemptsFail_EmptyBuckets(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	svc.On("Extract", mock.Anything, mock.Anything).Return(nil, errors.New("down"))

	sleeper := &recordingSleeper{}
	result, report, err := newExecutor(svc, sleeper).ExecuteSections(context.Background(),
		[]domain.Section{priceSection(domain.Row{"Shanghai", "Los Angeles", "1500", "2100"})})

	require.NoError(t, err)
	assert.Empty(t, result.Prices)
	assert.Empty(t, result.SurchargeItems)
	assert.Empty(t, result.OtherRemarks)
	assert.NotNil(t, result.Prices)
	assert.Equal(t, 1, report.FailedBatches)
	// No wait after the final attempt.
	assert.Len(t, sleeper.waits, 2)
	svc.AssertNumberOfCalls(t, "Extract", 3)
}

func TestExecute_RateLimitWaitsForRetryAfter(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	svc.On("Extract", mock.Anything, mock.Anything).
		Return(nil, extractor.NewRateLimitError("openai", errors.New("429"), 30)).Once()
	svc.On("Extract", mock.Anything, mock.Anything).
		Return(nil, extractor.NewRateLimitError("openai", errors.New("429"), 600)).Once()
	svc.On("Extract", mock.Anything, mock.Anything).Return(reply(`{"prices":[{"POL":"Xiamen"}]}`), nil).Once()

	sleeper := &recordingSleeper{}
	result, report, err := newExecutor(svc, sleeper).ExecuteSections(context.Background(),
		[]domain.Section{priceSection(domain.Row{"Xiamen", "Oakland", "1600", "2900"})})

	require.NoError(t, err)
	require.Len(t, result.Prices, 1)
	// Retry-After beats the 2s/4s backoff and is capped at one minute.
	assert.Equal(t, []time.Duration{30 * time.Second, time.Minute}, sleeper.waits)
	assert.Equal(t, 0, report.RateLimited)
	assert.False(t, report.AllRateLimited())
}

func TestExecute_AllBatchesRateLimited(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	svc.On("Extract", mock.Anything, mock.Anything).
		Return(nil, extractor.NewRateLimitError("claude", errors.New("429"), 45))

	sleeper := &recordingSleeper{}
	_, report, err := newExecutor(svc, sleeper).ExecuteSections(context.Background(),
		[]domain.Section{priceSection(domain.Row{"Qingdao", "Seattle", "1700", "3000"})})

	require.NoError(t, err)
	assert.Equal(t, 1, report.FailedBatches)
	assert.Equal(t, 1, report.RateLimited)
	assert.True(t, report.AllRateLimited())
	require.NotNil(t, report.LastRateLimit)
	assert.Equal(t, "claude", report.LastRateLimit.Provider)
	assert.Equal(t, []time.Duration{45 * time.Second, 45 * time.Second}, sleeper.waits)
}

func TestExecute_MixedFailuresAreNotAllRateLimited(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	svc.On("Extract", mock.Anything, mock.Anything).Return(nil, errors.New("down"))

	_, report, err := newExecutor(svc, &recordingSleeper{}).ExecuteSections(context.Background(),
		[]domain.Section{priceSection(domain.Row{"Qingdao", "Seattle", "1700", "3000"})})

	require.NoError(t, err)
	assert.Equal(t, 1, report.FailedBatches)
	assert.False(t, report.AllRateLimited())
}

func TestExecute_MalformedReplyIsRetried(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	svc.On("Extract", mock.Anything, mock.Anything).Return(reply("I cannot help with that"), nil).Once()
	svc.On("Extract", mock.Anything, mock.Anything).Return(reply("```json\n{\"prices\":[{\"POL\":\"Ningbo\"}]}\n```"), nil).Once()

	result, report, err := newExecutor(svc, &recordingSleeper{}).ExecuteSections(context.Background(),
		[]domain.Section{priceSection(domain.Row{"Ningbo", "Long Beach", "1400", "2000"})})

	require.NoError(t, err)
	require.Len(t, result.Prices, 1)
	assert.Equal(t, "Ningbo", result.Prices[0]["POL"])
	assert.Equal(t, 0, report.FailedBatches)
}

func TestExecute_SchemaViolationIsRetried(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	svc.On("Extract", mock.Anything, mock.Anything).Return(reply(`{"prices":"none"}`), nil).Once()
	svc.On("Extract", mock.Anything, mock.Anything).Return(reply(`{"prices":[]}`), nil).Once()

	_, report, err := newExecutor(svc, &recordingSleeper{}).ExecuteSections(context.Background(),
		[]domain.Section{priceSection(domain.Row{"Ningbo", "Long Beach", "1400", "2000"})})

	require.NoError(t, err)
	assert.Equal(t, 0, report.FailedBatches)
	svc.AssertNumberOfCalls(t, "Extract", 2)
}

func TestExecute_HighRiskRowIsExpanded(t *testing.T) {
	var contexts []string
	svc := new(mocks.MockExtractionService)
	svc.On("Extract", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		contexts = append(contexts, args.Get(1).(port.ExtractInput).Context)
	}).Return(reply(`{}`), nil)

	// 3 x 2 x 2 = 12 combinations, above the high threshold of 10.
	row := domain.Row{"Shanghai/Ningbo/Qingdao", "Los Angeles/Long Beach", "CY/CFS", "2100"}
	_, report, err := newExecutor(svc, &recordingSleeper{}).ExecuteSections(context.Background(),
		[]domain.Section{priceSection(row, domain.Row{"Xiamen", "Oakland", "CY", "2300"})})

	require.NoError(t, err)
	require.Len(t, contexts, 2)
	assert.Equal(t, 2, report.Batches)

	rows := strings.Split(strings.SplitN(contexts[0], "rows:\n", 2)[1], "\n")
	assert.Len(t, rows, 12)
	assert.Equal(t, "Shanghai | Los Angeles | CY | 2100", rows[0])
	assert.Contains(t, contexts[1], "Xiamen | Oakland | CY | 2300")
}

func TestExecute_BatchesByTierSize(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	svc.On("Extract", mock.Anything, mock.Anything).Return(reply(`{}`), nil)

	rows := make([]domain.Row, 45)
	for i := range rows {
		rows[i] = domain.Row{"Shanghai", "Rotterdam", "1500", "2100"}
	}
	_, report, err := newExecutor(svc, &recordingSleeper{}).ExecuteSections(context.Background(),
		[]domain.Section{priceSection(rows...)})

	require.NoError(t, err)
	// Normal rows flush every 20: 20 + 20 + 5.
	assert.Equal(t, 3, report.Batches)
}

func TestExecute_SurchargeRouting(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	svc.On("Extract", mock.Anything, mock.Anything).Return(reply(`{
		"surchargeItems": [{"name": "CSS", "content": "USD 100/CTR"}],
		"prices": [{"POL": "Shanghai", "Remark": "PSS USD 200"}, {"POL": "Ningbo", "F20GP": 150}],
		"otherRemarks": [{"content": "ignored", "category": "notice"}]
	}`), nil)

	sec := domain.Section{
		ID:         "table_1_0",
		HeaderRows: []domain.Row{{"Surcharge", "Amount"}},
		DataRows:   []domain.Row{{"CSS", "100"}},
		Type:       domain.TableTypeSurcharge,
	}
	result, _, err := newExecutor(svc, &recordingSleeper{}).ExecuteSections(context.Background(), []domain.Section{sec})

	require.NoError(t, err)
	assert.Empty(t, result.Prices)
	assert.Empty(t, result.OtherRemarks)
	require.Len(t, result.SurchargeItems, 3)
	assert.Equal(t, "CSS", result.SurchargeItems[0]["name"])
	assert.Equal(t, domain.Record{"name": "additional", "content": "PSS USD 200"}, result.SurchargeItems[1])
	assert.Equal(t, domain.Record{"name": "additional", "content": `{"F20GP":150,"POL":"Ningbo"}`}, result.SurchargeItems[2])
}

func TestExecute_RemarkRoutingAndSnakeCaseKeys(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	svc.On("Extract", mock.Anything, mock.Anything).Return(reply(`{
		"prices": [{"POL": "x"}],
		"surcharge_items": [{"name": "y"}],
		"other_remarks": [{"content": "Rates subject to GRI", "category": "notice"}]
	}`), nil)

	sec := domain.Section{ID: "table_2_0", DataRows: []domain.Row{{"Rates subject to GRI"}}, Type: domain.TableTypeRemark}
	result, _, err := newExecutor(svc, &recordingSleeper{}).ExecuteSections(context.Background(), []domain.Section{sec})

	require.NoError(t, err)
	assert.Empty(t, result.Prices)
	assert.Empty(t, result.SurchargeItems)
	require.Len(t, result.OtherRemarks, 1)
	assert.Equal(t, "notice", result.OtherRemarks[0]["category"])
}

func TestExecute_PriceAndUnknownRouteAllBuckets(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	svc.On("Extract", mock.Anything, mock.Anything).Return(reply(`{
		"prices": [{"POL": "Shanghai"}],
		"surchargeItems": [{"name": "BAF"}],
		"otherRemarks": [{"content": "valid till month end"}]
	}`), nil)

	unknown := priceSection(domain.Row{"a", "b"})
	unknown.Type = domain.TableTypeUnknown
	result, _, err := newExecutor(svc, &recordingSleeper{}).ExecuteSections(context.Background(),
		[]domain.Section{priceSection(domain.Row{"Shanghai", "LA", "1", "2"}), unknown})

	require.NoError(t, err)
	assert.Len(t, result.Prices, 2)
	assert.Len(t, result.SurchargeItems, 2)
	assert.Len(t, result.OtherRemarks, 2)
}

func TestExecuteFixed_BatchesOfTen(t *testing.T) {
	var sizes []int
	svc := new(mocks.MockExtractionService)
	svc.On("Extract", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		text := args.Get(1).(port.ExtractInput).Context
		sizes = append(sizes, len(strings.Split(strings.SplitN(text, "rows:\n", 2)[1], "\n")))
	}).Return(reply(`{}`), nil)

	rows := make([]domain.Row, 23)
	for i := range rows {
		// High-risk rows are not expanded in fixed mode.
		rows[i] = domain.Row{"A/B/C/D", "E/F/G", "1500"}
	}
	_, report, err := newExecutor(svc, &recordingSleeper{}).Execute(context.Background(), domain.StrategyFixed,
		[]domain.Section{priceSection(rows...), priceSection()})

	require.NoError(t, err)
	assert.Equal(t, []int{10, 10, 3}, sizes)
	assert.Equal(t, 3, report.Batches)
}

func TestExecute_InvalidStrategy(t *testing.T) {
	_, _, err := newExecutor(new(mocks.MockExtractionService), &recordingSleeper{}).
		Execute(context.Background(), domain.BatchStrategy("random"), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidStrategy)
}

func TestExecute_ContextCanceledStopsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := new(mocks.MockExtractionService)
	svc.On("Extract", mock.Anything, mock.Anything).Run(func(mock.Arguments) { cancel() }).
		Return(nil, context.Canceled)

	cfg := config.DefaultBatchConfig()
	ex := executor.NewExecutor(svc, &cfg, executor.WithSleeper(executor.ContextSleeper))
	_, _, err := ex.ExecuteSections(ctx, []domain.Section{
		priceSection(domain.Row{"Shanghai", "LA", "1", "2"}),
		priceSection(domain.Row{"Ningbo", "LA", "1", "2"}),
	})

	assert.ErrorIs(t, err, context.Canceled)
	svc.AssertNumberOfCalls(t, "Extract", 1)
}

func TestExecute_SkipsSectionsWithoutData(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	result, report, err := newExecutor(svc, &recordingSleeper{}).ExecuteSections(context.Background(),
		[]domain.Section{{ID: "table_0_0", HeaderRows: []domain.Row{{"Title"}}}})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Total())
	assert.Equal(t, 0, report.Batches)
	svc.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}
