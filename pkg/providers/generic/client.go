package generic

import (
	"log/slog"

	"mercator-hq/switchboard/pkg/providers"
	"mercator-hq/switchboard/pkg/providers/openai"
)

// Provider is a generic OpenAI-compatible adapter.
// It supports any provider that implements the OpenAI Chat Completions
// format, such as Mistral, Groq, DeepSeek, LM Studio or vLLM.
//
// The adapter reuses the OpenAI request/response format and SSE reader but
// requires an explicit base URL and treats the API key as optional.
type Provider struct {
	*openai.Provider
	keyless bool
}

// NewProvider creates a new generic OpenAI-compatible adapter.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "generic",
			Field:    "name",
			Message:  "provider name is required",
		}
	}

	if config.BaseURL == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "base_url",
			Message:  "base URL is required for generic provider",
		}
	}

	// Local models don't need a key. The OpenAI adapter refuses calls
	// without one, so a placeholder is set and the header is still sent.
	keyless := config.APIKey == ""
	if keyless {
		config.APIKey = "not-required"
	}
	config.Type = "generic"

	openaiProvider, err := openai.NewProvider(config)
	if err != nil {
		return nil, err
	}
	// Compatible servers accept temperature on every model.
	openaiProvider.SetCapabilities(providers.Capabilities{
		Framing:   providers.FramingSSEData,
		Streaming: true,
	})

	slog.Debug("Generic OpenAI-compatible provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
		"keyless", keyless,
	)

	return &Provider{Provider: openaiProvider, keyless: keyless}, nil
}

// Keyless reports whether the adapter was configured without an API key.
func (p *Provider) Keyless() bool {
	return p.keyless
}

var _ providers.Adapter = (*Provider)(nil)
