package anthropic

import (
	"context"
	"testing"

	testhelpers "mercator-hq/switchboard/internal/providers"
	"mercator-hq/switchboard/pkg/providers"
)

func newTestProvider(t *testing.T, mock *testhelpers.MockServer) *Provider {
	t.Helper()
	provider, err := NewProvider(testhelpers.TestConfigWithURL("anthropic", "anthropic", mock.URL()))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { provider.Close() })
	return provider
}

func TestAnthropicProvider_DispatchSingleBody(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/v1/messages", testhelpers.MockResponse{
		Body: testhelpers.MockAnthropicResponse("Hello, world!", "claude-3-5-sonnet-latest", "end_turn"),
	})

	provider := newTestProvider(t, mock)
	ctx := context.Background()

	stream, err := provider.Dispatch(ctx, testhelpers.TestCall("claude-3-5-sonnet-latest", "Hello", false))
	testhelpers.AssertNoError(t, err)
	chunks, err := testhelpers.CollectChunks(ctx, stream)
	testhelpers.AssertNoError(t, err)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Delta != "Hello, world!" {
		t.Errorf("expected content %q, got %q", "Hello, world!", chunks[0].Delta)
	}
	if chunks[0].Usage == nil || chunks[0].Usage.Total() != 30 {
		t.Errorf("expected 30 total tokens, got %+v", chunks[0].Usage)
	}

	req := mock.LastRequest()
	if err := testhelpers.ExpectHeader(req, "x-api-key", "test-key"); err != nil {
		t.Error(err)
	}
	if err := testhelpers.ExpectHeader(req, "anthropic-version", DefaultAnthropicVersion); err != nil {
		t.Error(err)
	}
}

func TestAnthropicProvider_DispatchStream(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/v1/messages", testhelpers.MockResponse{
		Headers:  map[string]string{"Content-Type": "text/event-stream"},
		RawLines: testhelpers.MockAnthropicStream("claude-3-5-haiku-latest", "max_tokens", "Hel", "lo"),
	})

	provider := newTestProvider(t, mock)
	ctx := context.Background()

	stream, err := provider.Dispatch(ctx, testhelpers.TestCall("claude-3-5-haiku-latest", "Hello", true))
	testhelpers.AssertNoError(t, err)
	chunks, err := testhelpers.CollectChunks(ctx, stream)
	testhelpers.AssertNoError(t, err)

	if got := testhelpers.ConcatenateChunks(chunks); got != "Hello" {
		t.Errorf("expected %q, got %q", "Hello", got)
	}
	if got := testhelpers.LastFinishReason(chunks); got != "max_tokens" {
		t.Errorf("expected stop reason max_tokens, got %q", got)
	}

	last := chunks[len(chunks)-1]
	if last.Usage == nil || last.Usage.Input != 12 || last.Usage.Output != 7 {
		t.Errorf("expected usage 12/7, got %+v", last.Usage)
	}
	if last.Model != "claude-3-5-haiku-latest" {
		t.Errorf("expected model from message_start, got %q", last.Model)
	}
}

func TestAnthropicProvider_StreamErrorEvent(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/v1/messages", testhelpers.MockResponse{
		Headers: map[string]string{"Content-Type": "text/event-stream"},
		RawLines: []string{
			"event: error",
			`data: {"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
			"",
		},
	})

	provider := newTestProvider(t, mock)
	ctx := context.Background()

	stream, err := provider.Dispatch(ctx, testhelpers.TestCall("claude-3-5-haiku-latest", "Hello", true))
	testhelpers.AssertNoError(t, err)

	_, err = testhelpers.CollectChunks(ctx, stream)
	testhelpers.AssertKind(t, err, providers.KindUpstream)
	if !providers.IsRetryable(err) {
		t.Error("expected in-band stream error to be retryable")
	}
}

func TestTransformRequest(t *testing.T) {
	hot := 1.7

	req := transformRequest(&providers.Call{Model: "claude", Prompt: "p", Temperature: &hot}, providers.Capabilities{})
	if req.MaxTokens != defaultMaxTokens {
		t.Errorf("expected default max_tokens %d, got %d", defaultMaxTokens, req.MaxTokens)
	}
	if req.Temperature == nil || *req.Temperature != 1 {
		t.Errorf("expected temperature capped at 1, got %v", req.Temperature)
	}

	req = transformRequest(&providers.Call{Model: "claude", Prompt: "p", MaxTokens: 8192}, providers.Capabilities{})
	if req.MaxTokens != 8192 {
		t.Errorf("expected max_tokens 8192, got %d", req.MaxTokens)
	}
	if req.Temperature != nil {
		t.Errorf("expected no temperature, got %v", *req.Temperature)
	}
}
