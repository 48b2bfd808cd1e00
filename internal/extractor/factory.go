package extractor

import (
	"fmt"
	"sort"

	"freightrates/internal/config"
	"freightrates/internal/port"
)

// ProviderFactory creates an ExtractionService from a provider config.
type ProviderFactory func(cfg *config.ProviderConfig, prompts PromptSet) (port.ExtractionService, error)

// registry of provider factories, populated explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// Providers returns the registered provider names in sorted order.
func Providers() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewService creates an ExtractionService from a provider config using the registered factory.
func NewService(cfg *config.ProviderConfig, prompts PromptSet) (port.ExtractionService, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown extraction provider: %s", cfg.Provider)
	}
	return factory(cfg, prompts)
}

// NewFromConfig builds the configured provider chain. With more than one
// provider configured the result is a FallbackService trying them in order,
// or a HedgedService racing primary and secondary when mode is "hedged".
func NewFromConfig(cfg *config.ExtractorConfig) (port.ExtractionService, error) {
	prompts := DefaultPrompts().WithOverrides(cfg.ExtractPrompt, cfg.ClusterPrompt)

	configs := []*config.ProviderConfig{cfg.PrimaryConfig()}
	if s := cfg.SecondaryConfig(); s != nil {
		configs = append(configs, s)
	}
	if t := cfg.TertiaryConfig(); t != nil {
		configs = append(configs, t)
	}

	services := make([]port.ExtractionService, 0, len(configs))
	names := make([]string, 0, len(configs))
	for _, pc := range configs {
		svc, err := NewService(pc, prompts)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
		names = append(names, pc.Provider)
	}

	if len(services) == 1 {
		return services[0], nil
	}
	if cfg.Mode == "hedged" {
		return NewHedgedService(services[0], services[1]), nil
	}
	return NewFallbackService(services, names), nil
}
