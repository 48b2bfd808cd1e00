// Package providers registers every built-in extraction provider with the
// extractor factory.
package providers

import (
	"context"

	"freightrates/internal/config"
	"freightrates/internal/extractor"
	"freightrates/internal/extractor/claude"
	"freightrates/internal/extractor/gemini"
	"freightrates/internal/extractor/openai"
	"freightrates/internal/port"
)

// RegisterAll registers the openai, azure, claude and gemini providers.
func RegisterAll() {
	extractor.RegisterProvider("openai", func(cfg *config.ProviderConfig, prompts extractor.PromptSet) (port.ExtractionService, error) {
		return openai.NewService(cfg, prompts), nil
	})
	extractor.RegisterProvider("azure", func(cfg *config.ProviderConfig, prompts extractor.PromptSet) (port.ExtractionService, error) {
		return openai.NewAzureService(cfg, prompts)
	})
	extractor.RegisterProvider("claude", func(cfg *config.ProviderConfig, prompts extractor.PromptSet) (port.ExtractionService, error) {
		return claude.NewService(cfg, prompts), nil
	})
	extractor.RegisterProvider("gemini", func(cfg *config.ProviderConfig, prompts extractor.PromptSet) (port.ExtractionService, error) {
		return gemini.NewService(context.Background(), cfg, prompts)
	})
}
