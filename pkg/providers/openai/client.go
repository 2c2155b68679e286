package openai

import (
	"context"
	"log/slog"
	"strings"

	"mercator-hq/switchboard/pkg/providers"
)

// DefaultBaseURL is the public OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// reasoningModelPrefixes reject an explicit temperature and take
// max_completion_tokens.
var reasoningModelPrefixes = []string{"o1", "o3", "o4", "gpt-5"}

// Provider is the OpenAI adapter for the Chat Completions API.
type Provider struct {
	*providers.HTTPProvider
	caps providers.Capabilities
}

// NewProvider creates a new OpenAI adapter. A missing API key is allowed;
// the adapter then reports no credentials and rejects calls locally.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "openai",
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if config.Type == "" {
		config.Type = "openai"
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	p := &Provider{
		HTTPProvider: providers.NewHTTPProvider(config),
		caps: providers.Capabilities{
			Framing:            providers.FramingSSEData,
			Streaming:          true,
			OmitTemperatureFor: reasoningModelPrefixes,
		},
	}

	slog.Debug("OpenAI provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
	)

	return p, nil
}

// Capabilities implements providers.Adapter.
func (p *Provider) Capabilities() providers.Capabilities {
	return p.caps
}

// SetCapabilities replaces the declared capabilities. OpenAI-compatible
// adapters use it to drop the reasoning-model restrictions.
func (p *Provider) SetCapabilities(caps providers.Capabilities) {
	p.caps = caps
}

// Dispatch sends one chat completion request. Streaming calls return an SSE
// reader; non-streaming calls decode the body into a single chunk.
func (p *Provider) Dispatch(ctx context.Context, call *providers.Call) (providers.ChunkStream, error) {
	if err := validateCall(call); err != nil {
		return nil, err
	}
	if !p.HasCredentials() {
		return nil, &providers.AuthError{Provider: p.Name(), Message: "no API key configured"}
	}

	req := TransformRequest(call, p.caps)
	url := p.Config().BaseURL + "/chat/completions"

	resp, err := p.DoJSONRequest(ctx, url, req, p.headers(call.Stream))
	if err != nil {
		return nil, err
	}

	if call.Stream {
		return NewStreamReader(p.HTTPProvider, resp.Body), nil
	}

	var body OpenAIResponse
	if err := p.DecodeJSON(ctx, resp, &body); err != nil {
		return nil, err
	}
	chunk, err := transformResponse(&body)
	if err != nil {
		return nil, &providers.ParseError{Provider: p.Name(), Cause: err}
	}
	return providers.NewSingleChunkStream(chunk), nil
}

func (p *Provider) headers(stream bool) map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if key := p.Config().APIKey; key != "" {
		headers["Authorization"] = "Bearer " + key
	}
	if stream {
		headers["Accept"] = "text/event-stream"
	}
	return headers
}

// validateCall validates the call before anything is sent.
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
