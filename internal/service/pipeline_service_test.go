package service_test

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
	"freightrates/internal/service"
	"freightrates/mocks"
)

const quoteMail = `<html><body>
<p>Please find our rates below.</p>
<table>
  <tr><td>POL</td><td>POD</td><td>20GP</td><td>40GP</td></tr>
  <tr><td>Shanghai/Ningbo/Qingdao</td><td>Los Angeles/Long Beach</td><td>1500 USD all in rate</td><td>2800 USD all in rate</td></tr>
  <tr><td>Xiamen/Fuzhou/Shantou</td><td>Oakland/Seattle/Tacoma</td><td>1600 USD all in rate</td><td>2900 USD all in rate</td></tr>
</table>
<p>Rates subject to space.</p>
</body></html>`

func noWait(context.Context, time.Duration) error { return nil }

func newPipeline(svc port.ExtractionService) service.PipelineService {
	tableCfg := config.DefaultTableConfig()
	batchCfg := config.DefaultBatchConfig()
	return service.NewPipelineService(svc, &tableCfg, &batchCfg, executor.WithSleeper(noWait))
}

func rateTask(in port.ExtractInput) bool { return in.Task == port.TaskExtractRates }

func TestPipelineService_Sections_SplitsAndClassifies(t *testing.T) {
	svc := new(mocks.MockExtractionService)

	sections, stats, err := newPipeline(svc).Sections(context.Background(), quoteMail, domain.ParseOptions{})

	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "table_0_0", sections[0].ID)
	assert.Equal(t, domain.TableTypePrice, sections[0].Type)
	assert.Equal(t, []domain.Row{{"POL", "POD", "20GP", "40GP"}}, sections[0].HeaderRows)
	assert.Len(t, sections[0].DataRows, 2)

	assert.Equal(t, 1, stats.Tables)
	assert.Equal(t, 2, stats.TextBlocks)
	assert.Equal(t, 1, stats.Sections)
	assert.Equal(t, 1, stats.SectionsByType[domain.TableTypePrice])
	assert.Equal(t, domain.StrategyRisk, stats.Strategy)
	assert.False(t, stats.Clustered)
	svc.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestPipelineService_Sections_IncludeText(t *testing.T) {
	sections, stats, err := newPipeline(new(mocks.MockExtractionService)).
		Sections(context.Background(), quoteMail, domain.ParseOptions{IncludeText: true})

	require.NoError(t, err)
	require.Len(t, sections, 2)
	text := sections[1]
	assert.Equal(t, "text_0", text.ID)
	assert.Equal(t, domain.TableTypeRemark, text.Type)
	assert.Equal(t, []domain.Row{{"Please find our rates below."}, {"Rates subject to space."}}, text.DataRows)
	assert.Equal(t, 1, stats.SectionsByType[domain.TableTypeRemark])
}

func TestPipelineService_Sections_InvalidStrategy(t *testing.T) {
	_, _, err := newPipeline(new(mocks.MockExtractionService)).
		Sections(context.Background(), quoteMail, domain.ParseOptions{Strategy: "greedy"})

	assert.ErrorIs(t, err, domain.ErrInvalidStrategy)
}

func TestPipelineService_Run_BlankInputYieldsEmptyBuckets(t *testing.T) {
	svc := new(mocks.MockExtractionService)

	outcome, err := newPipeline(svc).Run(context.Background(), "   ", domain.ParseOptions{})

	require.NoError(t, err)
	assert.Equal(t, 0, outcome.Result.Total())
	assert.NotNil(t, outcome.Result.Prices)
	assert.Equal(t, 0, outcome.Stats.Batches)
	svc.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestPipelineService_Run_ExpandsPortLists(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	svc.On("Extract", mock.Anything, mock.MatchedBy(rateTask)).Return(&port.ExtractOutput{
		Content:   `{"prices":[{"POL":"Shanghai/Ningbo","POD":"Los Angeles","20GP":"1500"}],"surchargeItems":[],"otherRemarks":[]}`,
		ModelUsed: "gpt-4o",
	}, nil)

	outcome, err := newPipeline(svc).Run(context.Background(), quoteMail, domain.ParseOptions{})

	require.NoError(t, err)
	require.Len(t, outcome.Result.Prices, 2)
	assert.Equal(t, "Shanghai", outcome.Result.Prices[0]["POL"])
	assert.Equal(t, "Ningbo", outcome.Result.Prices[1]["POL"])
	assert.Equal(t, "gpt-4o", outcome.ModelUsed)
	assert.Equal(t, 1, outcome.Stats.Batches)
	assert.Equal(t, 0, outcome.Stats.FailedBatches)

	svc.AssertCalled(t, "Extract", mock.Anything, mock.MatchedBy(func(in port.ExtractInput) bool {
		return strings.Contains(in.Context, "table data type:\nprice") &&
			strings.Contains(in.Context, "Xiamen/Fuzhou/Shantou")
	}))
}

func TestPipelineService_Run_AllBatchesRateLimited(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	svc.On("Extract", mock.Anything, mock.MatchedBy(rateTask)).
		Return(nil, extractor.NewRateLimitError("openai", errors.New("429"), 30))

	outcome, err := newPipeline(svc).Run(context.Background(), quoteMail, domain.ParseOptions{})

	require.Error(t, err)
	assert.Nil(t, outcome)
	var rlErr *extractor.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, 30*time.Second, rlErr.RetryAfter)
}

func TestPipelineService_Run_ClusteredSectionsUseFixedBatches(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	svc.On("Extract", mock.Anything, mock.MatchedBy(clusterTask)).Return(&port.ExtractOutput{
		Content: `{"tables":[{"header":["POL","POD","20GP"],"data":[["Shanghai","Hamburg","1500"]],"data_type":"price"}]}`,
	}, nil)
	svc.On("Extract", mock.Anything, mock.MatchedBy(rateTask)).Return(&port.ExtractOutput{
		Content: `{"prices":[{"POL":"Shanghai","POD":"Hamburg","20GP":"1500"}]}`,
	}, nil)

	outcome, err := newPipeline(svc).Run(context.Background(), quoteMail, domain.ParseOptions{Cluster: true})

	require.NoError(t, err)
	assert.True(t, outcome.Stats.Clustered)
	assert.Equal(t, domain.StrategyFixed, outcome.Stats.Strategy)
	assert.Len(t, outcome.Result.Prices, 1)
	svc.AssertNumberOfCalls(t, "Extract", 2)
}

func TestPipelineService_Run_ClusterFailureFallsBackToSplit(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	svc.On("Extract", mock.Anything, mock.MatchedBy(clusterTask)).Return(nil, errors.New("provider down"))
	svc.On("Extract", mock.Anything, mock.MatchedBy(rateTask)).Return(&port.ExtractOutput{
		Content: `{"prices":[{"POL":"Shanghai","POD":"Los Angeles"}]}`,
	}, nil)

	outcome, err := newPipeline(svc).Run(context.Background(), quoteMail, domain.ParseOptions{Cluster: true})

	require.NoError(t, err)
	assert.False(t, outcome.Stats.Clustered)
	assert.Equal(t, domain.StrategyRisk, outcome.Stats.Strategy)
	assert.Len(t, outcome.Result.Prices, 1)
}
