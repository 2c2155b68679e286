package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"mercator-hq/switchboard/pkg/providers"
)

// StreamReader reads Server-Sent Events with "data:" framing.
// It is exported so OpenAI-compatible adapters can share it.
type StreamReader struct {
	provider *providers.HTTPProvider
	lines    *providers.LineReader
	closed   bool
}

// NewStreamReader wraps an SSE response body.
func NewStreamReader(provider *providers.HTTPProvider, body io.ReadCloser) *StreamReader {
	return &StreamReader{
		provider: provider,
		lines:    providers.NewLineReader(provider, body),
	}
}

// Read reads the next chunk from the stream.
// Returns nil, io.EOF on "[DONE]" or when the body ends.
func (s *StreamReader) Read(ctx context.Context) (*providers.Chunk, error) {
	if s.closed {
		return nil, io.EOF
	}

	for {
		line, err := s.lines.Next(ctx)
		if err != nil {
			return nil, err
		}

		if line == "" || !strings.HasPrefix(line, "data:") {
			// Blank separators, comments and event names.
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return nil, io.EOF
		}

		var payload OpenAIStreamResponse
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return nil, &providers.ParseError{
				Provider:    s.provider.Name(),
				RawResponse: data,
				Cause:       fmt.Errorf("failed to parse stream chunk: %w", err),
			}
		}

		return transformStreamChunk(&payload), nil
	}
}

// Close closes the stream and releases resources.
func (s *StreamReader) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.lines.Close()
}
