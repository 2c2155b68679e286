package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"mercator-hq/switchboard/pkg/providers"
)

// streamReader reads Server-Sent Events with "event:" and "data:" framing
// from Anthropic's streaming API.
type streamReader struct {
	provider *providers.HTTPProvider
	lines    *providers.LineReader
	state    *streamState
	closed   bool
}

func newStreamReader(provider *providers.HTTPProvider, body io.ReadCloser) *streamReader {
	return &streamReader{
		provider: provider,
		lines:    providers.NewLineReader(provider, body),
		state:    &streamState{},
	}
}

// Read reads the next chunk from the stream.
// Returns nil, io.EOF on message_stop or when the body ends.
func (s *streamReader) Read(ctx context.Context) (*providers.Chunk, error) {
	if s.closed {
		return nil, io.EOF
	}

	for {
		eventType, data, err := s.readEvent(ctx)
		if err != nil {
			return nil, err
		}

		var event AnthropicStreamEvent
		if data != "" {
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				return nil, &providers.ParseError{
					Provider:    s.provider.Name(),
					RawResponse: data,
					Cause:       fmt.Errorf("failed to parse stream event: %w", err),
				}
			}
		}
		if event.Type == "" {
			event.Type = eventType
		}

		switch event.Type {
		case "message_stop":
			return nil, io.EOF
		case "error":
			msg := "unknown stream error"
			if event.Error != nil {
				msg = event.Error.Type + ": " + event.Error.Message
			}
			return nil, &providers.StreamError{Provider: s.provider.Name(), Message: msg}
		}

		chunk, err := transformStreamEvent(&event, s.state)
		if err != nil {
			return nil, &providers.ParseError{Provider: s.provider.Name(), RawResponse: data, Cause: err}
		}
		if chunk != nil {
			return chunk, nil
		}
	}
}

// readEvent reads lines up to the blank line that terminates one SSE event.
func (s *streamReader) readEvent(ctx context.Context) (string, string, error) {
	var eventType string
	var dataLines []string

	for {
		line, err := s.lines.Next(ctx)
		if err == io.EOF && (eventType != "" || len(dataLines) > 0) {
			break
		}
		if err != nil {
			return "", "", err
		}

		if line == "" {
			if eventType != "" || len(dataLines) > 0 {
				break
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
		// id, retry and comments are ignored.
	}

	return eventType, strings.Join(dataLines, "\n"), nil
}

// Close closes the stream and releases resources.
func (s *streamReader) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.lines.Close()
}
