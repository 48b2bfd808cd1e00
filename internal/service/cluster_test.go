package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"freightrates/internal/domain"
	"freightrates/internal/executor"
	"freightrates/internal/markup"
	"freightrates/internal/port"
	"freightrates/internal/service"
	"freightrates/mocks"
)

func clusterTask(in port.ExtractInput) bool { return in.Task == port.TaskClusterTables }

func TestTableClusterer_Cluster_Success(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	svc.On("Extract", mock.Anything, mock.MatchedBy(func(in port.ExtractInput) bool {
		return clusterTask(in) && in.Context == `{"tables":[[["POL","POD"],["Shanghai","Hamburg"]]]}`
	})).Return(&port.ExtractOutput{Content: "```json\n" + `{"tables":[
		{"header":["POL","POD","20GP"],"data":[["Shanghai","Hamburg",1500],["","",null]],"data_type":" Price "},
		{"header":null,"data":[["",""]],"data_type":"remark"},
		{"header":["Note"],"data":[["Subject to space"]],"data_type":"misc"}
	]}` + "\n```"}, nil)

	tables := []markup.Table{{Index: 0, Grid: domain.Grid{{"POL", "POD"}, {"Shanghai", "Hamburg"}}}}
	sections, err := service.NewTableClusterer(svc).Cluster(context.Background(), tables)

	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, "cluster_0", sections[0].ID)
	assert.Equal(t, domain.TableTypePrice, sections[0].Type)
	assert.Equal(t, []domain.Row{{"POL", "POD", "20GP"}}, sections[0].HeaderRows)
	assert.Equal(t, []domain.Row{{"Shanghai", "Hamburg", "1500"}}, sections[0].DataRows)
	assert.Equal(t, "cluster_2", sections[1].ID)
	assert.Equal(t, domain.TableTypeUnknown, sections[1].Type)
}

func TestTableClusterer_Cluster_SchemaViolation(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	svc.On("Extract", mock.Anything, mock.Anything).
		Return(&port.ExtractOutput{Content: `{"tables":[{"header":["POL"]}]}`}, nil)

	_, err := service.NewTableClusterer(svc).Cluster(context.Background(),
		[]markup.Table{{Grid: domain.Grid{{"POL"}}}})

	assert.ErrorIs(t, err, executor.ErrMalformedResponse)
}

func TestTableClusterer_Cluster_NoTables(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	svc.On("Extract", mock.Anything, mock.Anything).
		Return(&port.ExtractOutput{Content: `{"tables":[]}`}, nil)

	_, err := service.NewTableClusterer(svc).Cluster(context.Background(),
		[]markup.Table{{Grid: domain.Grid{{"POL"}}}})

	assert.ErrorIs(t, err, service.ErrNoClusteredTables)
}

func TestTableClusterer_Cluster_ServiceError(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	svc.On("Extract", mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))

	_, err := service.NewTableClusterer(svc).Cluster(context.Background(),
		[]markup.Table{{Grid: domain.Grid{{"POL"}}}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider down")
}
