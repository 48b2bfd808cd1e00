package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"freightrates/internal/config"
	"freightrates/internal/extractor"
	"freightrates/internal/port"
)

// Service implements port.ExtractionService using the Gemini API through the genai SDK.
type Service struct {
	client  *genai.Client
	model   string
	prompts extractor.PromptSet
}

// NewService creates a Gemini-backed extraction service.
func NewService(ctx context.Context, cfg *config.ProviderConfig, prompts extractor.PromptSet) (*Service, error) {
	return newService(ctx, cfg, prompts, cfg.Endpoint)
}

// NewServiceWithEndpoint creates a service pointing at a custom API base URL (for testing).
func NewServiceWithEndpoint(ctx context.Context, cfg *config.ProviderConfig, prompts extractor.PromptSet, baseURL string) (*Service, error) {
	return newService(ctx, cfg, prompts, baseURL)
}

func newService(ctx context.Context, cfg *config.ProviderConfig, prompts extractor.PromptSet, baseURL string) (*Service, error) {
	model := cfg.DefaultModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Service{client: client, model: model, prompts: prompts}, nil
}

func (s *Service) Extract(ctx context.Context, input port.ExtractInput) (*port.ExtractOutput, error) {
	prompt := s.prompts.Build(input.Task, input.Context)

	res, err := s.client.Models.GenerateContent(ctx, s.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr[float32](0),
			ResponseMIMEType: "application/json",
		})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
			return nil, extractor.NewRateLimitError("gemini", err, 0)
		}
		return nil, fmt.Errorf("calling gemini API: %w", err)
	}

	if len(res.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from API: no candidates")
	}
	if res.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		return nil, fmt.Errorf("output truncated (finishReason: MAX_TOKENS): response exceeded output token limit")
	}

	used := s.model
	if res.ModelVersion != "" {
		used = res.ModelVersion
	}
	return &port.ExtractOutput{
		Content:    res.Text(),
		ModelUsed:  used,
		PromptUsed: prompt,
	}, nil
}
