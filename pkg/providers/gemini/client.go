// Package gemini implements the adapter for Google's Gemini generateContent
// endpoint. The endpoint returns one JSON body, which the adapter delivers
// as a single chunk regardless of whether streaming was requested.
package gemini

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"mercator-hq/switchboard/pkg/providers"
)

// DefaultBaseURL is the public Generative Language API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GenerateRequest is the body of models/{model}:generateContent.
type GenerateRequest struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

// Content is a role plus its parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a text part.
type Part struct {
	Text string `json:"text,omitempty"`
}

// GenerationConfig holds output limits and sampling.
type GenerationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

// GenerateResponse is the generateContent response body.
type GenerateResponse struct {
	Candidates    []Candidate    `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string         `json:"modelVersion,omitempty"`
}

// Candidate is one generated answer.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

// UsageMetadata reports token counts.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// Provider is the Gemini adapter.
type Provider struct {
	*providers.HTTPProvider
}

// NewProvider creates a new Gemini adapter.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{Provider: "gemini", Field: "name", Message: "provider name is required"}
	}
	if config.Type == "" {
		config.Type = "gemini"
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	slog.Debug("Gemini provider initialized", "provider", config.Name, "base_url", config.BaseURL)
	return &Provider{HTTPProvider: providers.NewHTTPProvider(config)}, nil
}

// Capabilities implements providers.Adapter.
func (p *Provider) Capabilities() providers.Capabilities {
	return providers.Capabilities{Framing: providers.FramingSingleBody}
}

// Dispatch sends one generateContent request and re-chunks the body.
func (p *Provider) Dispatch(ctx context.Context, call *providers.Call) (providers.ChunkStream, error) {
	if call == nil || call.Model == "" {
		return nil, &providers.ValidationError{Field: "model", Message: "model is required"}
	}
	if call.Prompt == "" {
		return nil, &providers.ValidationError{Field: "prompt", Message: "prompt is required"}
	}
	if !p.HasCredentials() {
		return nil, &providers.AuthError{Provider: p.Name(), Message: "no API key configured"}
	}

	req := &GenerateRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: call.Prompt}}}},
		GenerationConfig: &GenerationConfig{
			MaxOutputTokens: call.MaxTokens,
			Temperature:     call.Temperature,
		},
	}

	endpoint := p.Config().BaseURL + "/models/" + url.PathEscape(call.Model) + ":generateContent"
	headers := map[string]string{
		"Content-Type":   "application/json",
		"x-goog-api-key": p.Config().APIKey,
	}

	resp, err := p.DoJSONRequest(ctx, endpoint, req, headers)
	if err != nil {
		return nil, err
	}

	var body GenerateResponse
	if err := p.DecodeJSON(ctx, resp, &body); err != nil {
		return nil, err
	}
	return providers.NewSingleChunkStream(toChunk(&body)), nil
}

// toChunk concatenates the first candidate's text parts. A response with
// no candidates (blocked prompt) yields an empty chunk with no finish reason,
// which still normalizes to one empty delta and Completed.
func toChunk(body *GenerateResponse) *providers.Chunk {
	chunk := &providers.Chunk{Model: body.ModelVersion}

	if len(body.Candidates) > 0 {
		var text strings.Builder
		for _, part := range body.Candidates[0].Content.Parts {
			text.WriteString(part.Text)
		}
		chunk.Delta = text.String()
		chunk.FinishReason = body.Candidates[0].FinishReason
	}

	if body.UsageMetadata != nil {
		chunk.Usage = &providers.Usage{
			Input:  body.UsageMetadata.PromptTokenCount,
			Output: body.UsageMetadata.CandidatesTokenCount,
		}
	}
	return chunk
}

var _ providers.Adapter = (*Provider)(nil)
