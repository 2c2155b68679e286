package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPProvider_SingleAttempt(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantKind   ErrorKind
	}{
		{name: "400 bad request", statusCode: http.StatusBadRequest, wantKind: KindUpstream},
		{name: "401 unauthorized", statusCode: http.StatusUnauthorized, wantKind: KindAuth},
		{name: "403 forbidden", statusCode: http.StatusForbidden, wantKind: KindAuth},
		{name: "429 rate limit", statusCode: http.StatusTooManyRequests, wantKind: KindRateLimited},
		{name: "500 server error", statusCode: http.StatusInternalServerError, wantKind: KindUpstream},
		{name: "503 unavailable", statusCode: http.StatusServiceUnavailable, wantKind: KindUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&attempts, 1)
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(`{"error": "upstream said no"}`))
			}))
			defer server.Close()

			provider := NewHTTPProvider(ProviderConfig{Name: "test-provider", BaseURL: server.URL})
			defer provider.Close()

			_, err := provider.DoRequest(context.Background(), http.MethodPost, server.URL+"/test", []byte(`{}`), nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := ClassifyError(err); got != tt.wantKind {
				t.Errorf("expected kind %s, got %s", tt.wantKind, got)
			}
			if n := atomic.LoadInt32(&attempts); n != 1 {
				t.Errorf("expected exactly 1 attempt, got %d", n)
			}

			var provErr *ProviderError
			if errors.As(err, &provErr) && provErr.Message != `{"error": "upstream said no"}` {
				t.Errorf("expected verbatim body, got %q", provErr.Message)
			}

			stats := provider.Stats()
			if stats.TotalRequests != 1 || stats.FailedRequests != 1 {
				t.Errorf("unexpected stats %+v", stats)
			}
		})
	}
}

func TestHTTPProvider_RetryAfterParsed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := NewHTTPProvider(ProviderConfig{Name: "p"})
	_, err := provider.DoRequest(context.Background(), http.MethodGet, server.URL, nil, nil)

	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rateErr.RetryAfter != 7*time.Second {
		t.Errorf("expected 7s retry-after, got %s", rateErr.RetryAfter)
	}
}

func TestHTTPProvider_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	provider := NewHTTPProvider(ProviderConfig{Name: "slow"})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := provider.DoRequest(ctx, http.MethodGet, server.URL, nil, nil)
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %T: %v", err, err)
	}
}

func TestHTTPProvider_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	provider := NewHTTPProvider(ProviderConfig{Name: "slow"})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := provider.DoRequest(ctx, http.MethodGet, server.URL, nil, nil)
	if ClassifyError(err) != KindCancelled {
		t.Fatalf("expected cancelled, got %v", err)
	}
}

func TestHTTPProvider_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	provider := NewHTTPProvider(ProviderConfig{Name: "gone"})
	_, err := provider.DoRequest(context.Background(), http.MethodGet, url, nil, nil)

	if ClassifyError(err) != KindNetwork {
		t.Fatalf("expected network error, got %T: %v", err, err)
	}
	if !IsRetryable(err) {
		t.Error("network errors should be retryable")
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter(""); got != 0 {
		t.Errorf("expected 0 for empty header, got %s", got)
	}
	if got := parseRetryAfter("3"); got != 3*time.Second {
		t.Errorf("expected 3s, got %s", got)
	}
	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(future); got <= 0 || got > time.Minute {
		t.Errorf("expected positive duration up to 1m, got %s", got)
	}
}
