package extractor_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"freightrates/internal/extractor"
	"freightrates/internal/port"
)

func TestPromptSet_Build(t *testing.T) {
	p := extractor.DefaultPrompts()

	rates := p.Build(port.TaskExtractRates, "table data type:\nprice")
	assert.True(t, strings.HasSuffix(rates, "table data type:\nprice"))
	assert.Contains(t, rates, "surchargeItems")
	assert.Contains(t, rates, "F40HQ")

	cluster := p.Build(port.TaskClusterTables, "raw")
	assert.Contains(t, cluster, "data_type")
	assert.True(t, strings.HasSuffix(cluster, "raw"))
}

func TestPromptSet_WithOverrides(t *testing.T) {
	p := extractor.DefaultPrompts().WithOverrides("EXTRACT:", "  ")

	assert.Equal(t, "EXTRACT:ctx", p.Build(port.TaskExtractRates, "ctx"))
	assert.Equal(t, extractor.DefaultPrompts().Cluster, p.Cluster)
}
