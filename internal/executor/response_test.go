package executor_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightrates/internal/executor"
)

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"strict", `{"prices":[]}`, "prices"},
		{"code fence", "```json\n{\"prices\":[]}\n```", "prices"},
		{"prose around object", `Here you go: {"otherRemarks":[{"content":"a } b"}]} hope it helps`, "otherRemarks"},
		{"two objects picks first balanced", `{"prices":[]} and {"other":1}`, "prices"},
		{"trailing brace", `note {"surchargeItems": [] } trailing }`, "surchargeItems"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := executor.RepairJSON(tt.content)
			require.NoError(t, err)
			assert.Contains(t, obj, tt.want)
		})
	}
}

func TestRepairJSON_Unrecoverable(t *testing.T) {
	for _, content := range []string{"", "no json here", `{"prices": [`, `[1,2,3]`} {
		_, err := executor.RepairJSON(content)
		assert.ErrorIs(t, err, executor.ErrMalformedResponse, content)
	}
}

func TestRepairJSON_ErrorKeepsRunesWhole(t *testing.T) {
	content := strings.Repeat("港", 100)

	_, err := executor.RepairJSON(content)
	require.Error(t, err)
	assert.True(t, utf8.ValidString(err.Error()))
	assert.True(t, strings.HasSuffix(err.Error(), "..."))
}
