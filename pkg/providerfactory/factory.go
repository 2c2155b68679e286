// Package providerfactory builds provider adapters from configuration.
package providerfactory

import (
	"fmt"
	"log/slog"

	"mercator-hq/switchboard/pkg/providers"
	"mercator-hq/switchboard/pkg/providers/anthropic"
	"mercator-hq/switchboard/pkg/providers/gemini"
	"mercator-hq/switchboard/pkg/providers/generic"
	"mercator-hq/switchboard/pkg/providers/ollama"
	"mercator-hq/switchboard/pkg/providers/openai"
)

// knownBaseURLs fills in the endpoint for well-known OpenAI-compatible
// providers so configs only need a key.
var knownBaseURLs = map[string]string{
	"mistral":  "https://api.mistral.ai/v1",
	"groq":     "https://api.groq.com/openai/v1",
	"deepseek": "https://api.deepseek.com/v1",
	"lmstudio": "http://localhost:1234/v1",
	"vllm":     "http://localhost:8000/v1",
}

// NewAdapter creates an adapter based on the configuration.
//
// Supported adapter types:
//   - "openai": OpenAI Chat Completions (SSE data framing)
//   - "anthropic": Anthropic Messages (SSE event framing)
//   - "ollama": Ollama native chat (NDJSON)
//   - "gemini": Gemini generateContent (single JSON body)
//   - "generic": OpenAI-compatible APIs (Mistral, Groq, DeepSeek, vLLM, ...)
//
// The type is taken from config.Type. If not specified, it is inferred from
// the provider name; unknown names default to generic.
//
// Example:
//
//	adapter, err := NewAdapter(providers.ProviderConfig{
//	    Name:   "mistral",
//	    APIKey: "...",
//	})
func NewAdapter(config providers.ProviderConfig) (providers.Adapter, error) {
	if config.Type == "" {
		config.Type = inferProviderType(config.Name)
	}
	if config.BaseURL == "" && config.Type == "generic" {
		config.BaseURL = knownBaseURLs[config.Name]
	}

	slog.Debug("creating adapter",
		"name", config.Name,
		"type", config.Type,
		"base_url", config.BaseURL,
	)

	var (
		adapter providers.Adapter
		err     error
	)

	switch config.Type {
	case "openai":
		adapter, err = openai.NewProvider(config)
	case "anthropic":
		adapter, err = anthropic.NewProvider(config)
	case "ollama":
		adapter, err = ollama.NewProvider(config)
	case "gemini":
		adapter, err = gemini.NewProvider(config)
	case "generic":
		adapter, err = generic.NewProvider(config)
	default:
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "type",
			Message:  fmt.Sprintf("unsupported provider type: %q (supported: openai, anthropic, ollama, gemini, generic)", config.Type),
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create provider %q: %w", config.Name, err)
	}
	return adapter, nil
}

// BuildRegistry creates an adapter for every config and registers it.
// A single bad entry fails the whole build so misconfiguration is caught at
// startup.
func BuildRegistry(configs []providers.ProviderConfig) (*providers.Registry, error) {
	registry := providers.NewRegistry()

	for _, cfg := range configs {
		adapter, err := NewAdapter(cfg)
		if err != nil {
			_ = registry.Close()
			return nil, err
		}
		registry.Register(adapter)

		slog.Info("provider adapter registered",
			"name", adapter.Name(),
			"type", adapter.Type(),
			"has_credentials", adapter.HasCredentials(),
		)
	}

	return registry, nil
}

// inferProviderType infers the adapter type from the provider name.
func inferProviderType(name string) string {
	switch name {
	case "openai":
		return "openai"
	case "anthropic":
		return "anthropic"
	case "ollama":
		return "ollama"
	case "gemini", "google":
		return "gemini"
	default:
		return "generic"
	}
}
