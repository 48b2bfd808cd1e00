package gemini_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightrates/internal/config"
	"freightrates/internal/extractor"
	"freightrates/internal/extractor/gemini"
	"freightrates/internal/port"
)

func newTestService(t *testing.T, serverURL string) *gemini.Service {
	t.Helper()
	cfg := &config.ProviderConfig{
		Provider:     "gemini",
		APIKey:       "test-gemini-key",
		DefaultModel: "gemini-2.0-flash",
		TimeoutSecs:  30,
	}
	svc, err := gemini.NewServiceWithEndpoint(context.Background(), cfg, extractor.DefaultPrompts(), serverURL)
	require.NoError(t, err)
	return svc
}

func TestService_Extract_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "gemini-2.0-flash:generateContent"), r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "table data type:")
		assert.Contains(t, string(body), "application/json")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{
					"content": map[string]interface{}{
						"role":  "model",
						"parts": []map[string]interface{}{{"text": `{"prices":[]}`}},
					},
					"finishReason": "STOP",
				},
			},
			"modelVersion": "gemini-2.0-flash-001",
		})
	}))
	defer server.Close()

	out, err := newTestService(t, server.URL).Extract(context.Background(), port.ExtractInput{
		Task:    port.TaskExtractRates,
		Context: "table data type:\nprice",
	})

	require.NoError(t, err)
	assert.Equal(t, `{"prices":[]}`, out.Content)
	assert.Equal(t, "gemini-2.0-flash-001", out.ModelUsed)
}

func TestService_Extract_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	_, err := newTestService(t, server.URL).Extract(context.Background(), port.ExtractInput{Task: port.TaskExtractRates})

	var rl *extractor.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, "gemini", rl.Provider)
}

func TestService_Extract_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	_, err := newTestService(t, server.URL).Extract(context.Background(), port.ExtractInput{Task: port.TaskExtractRates})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}
