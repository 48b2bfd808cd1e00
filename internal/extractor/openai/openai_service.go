package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"freightrates/internal/config"
	"freightrates/internal/extractor"
	"freightrates/internal/port"
)

const (
	apiURL            = "https://api.openai.com/v1/chat/completions"
	defaultAPIVersion = "2024-06-01"
)

// Service implements port.ExtractionService using the OpenAI Chat Completions API.
// The same wire format serves Azure OpenAI deployments.
type Service struct {
	name     string
	apiKey   string
	model    string
	endpoint string
	azure    bool
	prompts  extractor.PromptSet
	client   *http.Client
}

// NewService creates an OpenAI-backed extraction service.
func NewService(cfg *config.ProviderConfig, prompts extractor.PromptSet) *Service {
	endpoint := apiURL
	if cfg.Endpoint != "" {
		endpoint = cfg.Endpoint
	}
	return newService(cfg, prompts, endpoint, false)
}

// NewAzureService creates an extraction service for an Azure OpenAI deployment.
// cfg.Endpoint is the resource URL and cfg.DefaultModel the deployment name.
func NewAzureService(cfg *config.ProviderConfig, prompts extractor.PromptSet) (*Service, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("azure extraction provider requires an endpoint")
	}
	if cfg.DefaultModel == "" {
		return nil, fmt.Errorf("azure extraction provider requires a deployment name")
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(cfg.Endpoint, "/"), url.PathEscape(cfg.DefaultModel), url.QueryEscape(apiVersion))
	return newService(cfg, prompts, endpoint, true), nil
}

// NewServiceWithEndpoint creates a service pointing at a custom API endpoint (for testing).
func NewServiceWithEndpoint(cfg *config.ProviderConfig, prompts extractor.PromptSet, endpoint string, azure bool) *Service {
	return newService(cfg, prompts, endpoint, azure)
}

func newService(cfg *config.ProviderConfig, prompts extractor.PromptSet, endpoint string, azure bool) *Service {
	model := cfg.DefaultModel
	if model == "" {
		model = "gpt-4o"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	name := "openai"
	if azure {
		name = "azure"
	}
	return &Service{
		name:     name,
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		azure:    azure,
		prompts:  prompts,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *Service) Extract(ctx context.Context, input port.ExtractInput) (*port.ExtractOutput, error) {
	prompt := s.prompts.Build(input.Task, input.Context)

	reqBody := map[string]interface{}{
		"model":       s.model,
		"temperature": 0,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"response_format": map[string]interface{}{
			"type": "json_object",
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
	if s.azure {
		req.Header.Set("api-key", s.apiKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s API: %w", s.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := &extractor.StatusError{Provider: s.name, StatusCode: resp.StatusCode, Body: string(respBody)}
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := extractor.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, extractor.NewRateLimitError(s.name, baseErr, retryAfter)
		}
		return nil, baseErr
	}

	return parseResponse(respBody, s.model, prompt)
}

// apiResponse models the Chat Completions API response.
type apiResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func parseResponse(body []byte, model, prompt string) (*port.ExtractOutput, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from API: no choices")
	}

	if resp.Choices[0].FinishReason == "length" {
		return nil, fmt.Errorf("output truncated (finish_reason: length): response exceeded output token limit")
	}

	used := model
	if resp.Model != "" {
		used = resp.Model
	}
	return &port.ExtractOutput{
		Content:    resp.Choices[0].Message.Content,
		ModelUsed:  used,
		PromptUsed: prompt,
	}, nil
}
