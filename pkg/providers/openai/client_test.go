package openai

import (
	"context"
	"testing"

	testhelpers "mercator-hq/switchboard/internal/providers"
	"mercator-hq/switchboard/pkg/providers"
)

func newTestProvider(t *testing.T, mock *testhelpers.MockServer) *Provider {
	t.Helper()
	config := testhelpers.TestConfigWithURL("openai", "openai", mock.URL()+"/v1")
	provider, err := NewProvider(config)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { provider.Close() })
	return provider
}

func TestOpenAIProvider_DispatchSingleBody(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/v1/chat/completions", testhelpers.MockResponse{
		Body: testhelpers.MockOpenAIResponse("Hello, world!", "gpt-4o", "stop"),
	})

	provider := newTestProvider(t, mock)
	ctx := context.Background()

	stream, err := provider.Dispatch(ctx, testhelpers.TestCall("gpt-4o", "Hello", false))
	testhelpers.AssertNoError(t, err)

	chunks, err := testhelpers.CollectChunks(ctx, stream)
	testhelpers.AssertNoError(t, err)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Delta != "Hello, world!" {
		t.Errorf("expected content %q, got %q", "Hello, world!", chunks[0].Delta)
	}
	if chunks[0].FinishReason != "stop" {
		t.Errorf("expected finish reason stop, got %q", chunks[0].FinishReason)
	}
	if chunks[0].Usage == nil || chunks[0].Usage.Input != 10 || chunks[0].Usage.Output != 20 {
		t.Errorf("unexpected usage: %+v", chunks[0].Usage)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("expected 1 request, got %d", mock.GetRequestCount())
	}
}

func TestOpenAIProvider_DispatchStream(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/v1/chat/completions", testhelpers.MockResponse{
		StreamChunks: []string{
			testhelpers.MockOpenAIStreamChunk("Hello", ""),
			testhelpers.MockOpenAIStreamChunk(", ", ""),
			testhelpers.MockOpenAIStreamChunk("world", ""),
			testhelpers.MockOpenAIStreamChunk("!", "length"),
			testhelpers.MockOpenAIUsageChunk(4, 5),
		},
	})

	provider := newTestProvider(t, mock)
	ctx := context.Background()

	stream, err := provider.Dispatch(ctx, testhelpers.TestCall("gpt-4o", "Hello", true))
	testhelpers.AssertNoError(t, err)

	chunks, err := testhelpers.CollectChunks(ctx, stream)
	testhelpers.AssertNoError(t, err)

	if got := testhelpers.ConcatenateChunks(chunks); got != "Hello, world!" {
		t.Errorf("expected %q, got %q", "Hello, world!", got)
	}
	if got := testhelpers.LastFinishReason(chunks); got != "length" {
		t.Errorf("expected finish reason length, got %q", got)
	}

	last := chunks[len(chunks)-1]
	if last.Usage == nil || last.Usage.Input != 4 || last.Usage.Output != 5 {
		t.Errorf("expected trailing usage chunk, got %+v", last.Usage)
	}

	req := mock.LastRequest()
	if err := testhelpers.ExpectHeader(req, "Authorization", "Bearer test-key"); err != nil {
		t.Error(err)
	}
	opts, ok := req.Body["stream_options"].(map[string]interface{})
	if !ok || opts["include_usage"] != true {
		t.Errorf("expected stream_options.include_usage, got %v", req.Body["stream_options"])
	}
}

func TestOpenAIProvider_TemperatureCapability(t *testing.T) {
	tests := []struct {
		name         string
		model        string
		wantTemp     bool
		wantLimitKey string
	}{
		{name: "chat model", model: "gpt-4o", wantTemp: true, wantLimitKey: "max_tokens"},
		{name: "o1 model", model: "o1-mini", wantTemp: false, wantLimitKey: "max_completion_tokens"},
		{name: "o3 model", model: "o3", wantTemp: false, wantLimitKey: "max_completion_tokens"},
		{name: "gpt-5", model: "gpt-5-mini", wantTemp: false, wantLimitKey: "max_completion_tokens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testhelpers.NewMockServer()
			defer mock.Close()
			mock.SetResponse("/v1/chat/completions", testhelpers.MockResponse{
				Body: testhelpers.MockOpenAIResponse("ok", tt.model, "stop"),
			})

			provider := newTestProvider(t, mock)
			ctx := context.Background()

			stream, err := provider.Dispatch(ctx, testhelpers.TestCall(tt.model, "hi", false))
			testhelpers.AssertNoError(t, err)
			_, _ = testhelpers.CollectChunks(ctx, stream)

			body := mock.LastRequest().Body
			_, hasTemp := body["temperature"]
			if hasTemp != tt.wantTemp {
				t.Errorf("temperature present = %v, want %v", hasTemp, tt.wantTemp)
			}
			if body[tt.wantLimitKey] != float64(100) {
				t.Errorf("expected %s=100, got %v", tt.wantLimitKey, body[tt.wantLimitKey])
			}
		})
	}
}

func TestOpenAIProvider_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		response  testhelpers.MockResponse
		wantKind  providers.ErrorKind
		retryable bool
	}{
		{name: "401", response: testhelpers.MockAuthError(), wantKind: providers.KindAuth},
		{name: "429", response: testhelpers.MockRateLimitError(3), wantKind: providers.KindRateLimited},
		{name: "500", response: testhelpers.MockServerError(), wantKind: providers.KindUpstream, retryable: true},
		{name: "400", response: testhelpers.MockErrorResponse(400, "bad"), wantKind: providers.KindUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testhelpers.NewMockServer()
			defer mock.Close()
			mock.SetResponse("/v1/chat/completions", tt.response)

			provider := newTestProvider(t, mock)
			_, err := provider.Dispatch(context.Background(), testhelpers.TestCall("gpt-4o", "hi", true))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := provider.TranslateError(err); got != tt.wantKind {
				t.Errorf("expected kind %s, got %s", tt.wantKind, got)
			}
			if got := providers.IsRetryable(err); got != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v", got, tt.retryable)
			}
			if mock.GetRequestCount() != 1 {
				t.Errorf("adapter must not retry, got %d requests", mock.GetRequestCount())
			}
		})
	}
}

func TestOpenAIProvider_NoCredentials(t *testing.T) {
	provider, err := NewProvider(providers.ProviderConfig{Name: "openai"})
	testhelpers.AssertNoError(t, err)
	defer provider.Close()

	if provider.HasCredentials() {
		t.Fatal("expected no credentials")
	}
	_, err = provider.Dispatch(context.Background(), testhelpers.TestCall("gpt-4o", "hi", false))
	testhelpers.AssertKind(t, err, providers.KindAuth)
}

func TestOpenAIProvider_Validation(t *testing.T) {
	provider, err := NewProvider(testhelpers.TestConfig("openai", "openai"))
	testhelpers.AssertNoError(t, err)
	defer provider.Close()

	_, err = provider.Dispatch(context.Background(), &providers.Call{Model: "gpt-4o"})
	testhelpers.AssertKind(t, err, providers.KindConfig)
}
