package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"freightrates/internal/config"
	"freightrates/internal/extractor"
	"freightrates/internal/port"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
)

// Service implements port.ExtractionService using the Anthropic Messages API.
type Service struct {
	apiKey   string
	model    string
	endpoint string
	prompts  extractor.PromptSet
	client   *http.Client
}

// NewService creates a Claude-backed extraction service.
func NewService(cfg *config.ProviderConfig, prompts extractor.PromptSet) *Service {
	endpoint := apiURL
	if cfg.Endpoint != "" {
		endpoint = cfg.Endpoint
	}
	return newService(cfg, prompts, endpoint)
}

// NewServiceWithEndpoint creates a service pointing at a custom API endpoint (for testing).
func NewServiceWithEndpoint(cfg *config.ProviderConfig, prompts extractor.PromptSet, endpoint string) *Service {
	return newService(cfg, prompts, endpoint)
}

func newService(cfg *config.ProviderConfig, prompts extractor.PromptSet, endpoint string) *Service {
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Service{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		prompts:  prompts,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *Service) Extract(ctx context.Context, input port.ExtractInput) (*port.ExtractOutput, error) {
	prompt := s.prompts.Build(input.Task, input.Context)

	reqBody := map[string]interface{}{
		"model":       s.model,
		"max_tokens":  16384,
		"temperature": 0,
		"system":      "Respond with a single JSON object and nothing else.",
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": prompt,
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling anthropic API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := &extractor.StatusError{Provider: "claude", StatusCode: resp.StatusCode, Body: string(respBody)}
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := extractor.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, extractor.NewRateLimitError("claude", baseErr, retryAfter)
		}
		return nil, baseErr
	}

	return parseResponse(respBody, s.model, prompt)
}

// apiResponse models the Anthropic Messages API response.
type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func parseResponse(body []byte, model, prompt string) (*port.ExtractOutput, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("empty response from API")
	}

	if resp.StopReason == "max_tokens" {
		return nil, fmt.Errorf("output truncated (stop_reason: max_tokens): response exceeded output token limit")
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &port.ExtractOutput{
		Content:    text.String(),
		ModelUsed:  model,
		PromptUsed: prompt,
	}, nil
}
