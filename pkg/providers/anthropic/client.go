package anthropic

import (
	"context"
	"log/slog"
	"strings"

	"mercator-hq/switchboard/pkg/providers"
)

const (
	// DefaultAnthropicVersion is the API version to use
	DefaultAnthropicVersion = "2023-06-01"

	// DefaultBaseURL is the public Anthropic API endpoint.
	DefaultBaseURL = "https://api.anthropic.com"
)

// Provider is the Anthropic adapter for the Messages API.
type Provider struct {
	*providers.HTTPProvider
	caps providers.Capabilities
}

// NewProvider creates a new Anthropic adapter.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "anthropic",
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if config.Type == "" {
		config.Type = "anthropic"
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.APIVersion == "" {
		config.APIVersion = DefaultAnthropicVersion
	}

	p := &Provider{
		HTTPProvider: providers.NewHTTPProvider(config),
		caps: providers.Capabilities{
			Framing:   providers.FramingSSEEvent,
			Streaming: true,
		},
	}

	slog.Debug("Anthropic provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
	)

	return p, nil
}

// Capabilities implements providers.Adapter.
func (p *Provider) Capabilities() providers.Capabilities {
	return p.caps
}

// Dispatch sends one Messages API request.
func (p *Provider) Dispatch(ctx context.Context, call *providers.Call) (providers.ChunkStream, error) {
	if err := validateCall(call); err != nil {
		return nil, err
	}
	if !p.HasCredentials() {
		return nil, &providers.AuthError{Provider: p.Name(), Message: "no API key configured"}
	}

	req := transformRequest(call, p.caps)
	url := p.Config().BaseURL + "/v1/messages"
	headers := map[string]string{
		"x-api-key":         p.Config().APIKey,
		"anthropic-version": p.Config().APIVersion,
		"Content-Type":      "application/json",
	}
	if call.Stream {
		headers["Accept"] = "text/event-stream"
	}

	resp, err := p.DoJSONRequest(ctx, url, req, headers)
	if err != nil {
		return nil, err
	}

	if call.Stream {
		return newStreamReader(p.HTTPProvider, resp.Body), nil
	}

	var body AnthropicResponse
	if err := p.DecodeJSON(ctx, resp, &body); err != nil {
		return nil, err
	}
	return providers.NewSingleChunkStream(transformResponse(&body)), nil
}

func validateCall(call *providers.Call) error {
	if call == nil {
		return &providers.ValidationError{Field: "call", Message: "call cannot be nil"}
	}
	if call.Model == "" {
		return &providers.ValidationError{Field: "model", Message: "model is required"}
	}
	if call.Prompt == "" {
		return &providers.ValidationError{Field: "prompt", Message: "prompt is required"}
	}
	return nil
}

var _ providers.Adapter = (*Provider)(nil)
