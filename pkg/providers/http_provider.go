package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// maxErrorBody bounds how much of a non-2xx response body is kept as the
// error message.
const maxErrorBody = 64 << 10

// Stats holds passive request counters for one provider.
type Stats struct {
	TotalRequests  int64
	FailedRequests int64
	LastError      string
	LastSuccess    time.Time
	LastFailure    time.Time
}

// HTTPProvider is the base implementation for HTTP-based adapters.
// It provides connection pooling, status classification and passive stats.
// It performs exactly one attempt per call and has no client-level timeout;
// the caller's context bounds the request and the body read.
//
// Concrete adapters embed this struct.
type HTTPProvider struct {
	config ProviderConfig
	client *http.Client
	logger *slog.Logger

	statsMu sync.Mutex
	stats   Stats
}

// NewHTTPProvider creates a new base HTTP provider with connection pooling.
func NewHTTPProvider(config ProviderConfig) *HTTPProvider {
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 100
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 10
	}
	if config.IdleConnTimeout == 0 {
		config.IdleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPProvider{
		config: config,
		client: &http.Client{Transport: transport},
		logger: slog.Default().With("component", "provider", "provider", config.Name),
	}
}

// Name returns the provider's configured name.
func (p *HTTPProvider) Name() string {
	return p.config.Name
}

// Type returns the adapter type.
func (p *HTTPProvider) Type() string {
	return p.config.Type
}

// Config returns the provider's connection settings.
func (p *HTTPProvider) Config() ProviderConfig {
	return p.config
}

// HasCredentials reports whether an API key is configured.
func (p *HTTPProvider) HasCredentials() bool {
	return p.config.APIKey != ""
}

// TranslateError maps an error onto the shared taxonomy.
func (p *HTTPProvider) TranslateError(err error) ErrorKind {
	return ClassifyError(err)
}

// Stats returns a snapshot of the passive request counters.
func (p *HTTPProvider) Stats() Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}

func (p *HTTPProvider) record(err error) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	p.stats.TotalRequests++
	if err == nil {
		p.stats.LastSuccess = time.Now()
		return
	}
	p.stats.FailedRequests++
	p.stats.LastFailure = time.Now()
	p.stats.LastError = err.Error()
}

// DoRequest performs a single HTTP request. Non-2xx responses are consumed,
// closed and returned as typed errors:
//
//	401, 403 -> *AuthError
//	429      -> *RateLimitError
//	other    -> *ProviderError with the verbatim body
//
// Transport failures become *TimeoutError when the context deadline expired,
// the context error when the caller cancelled, and *NetworkError otherwise.
func (p *HTTPProvider) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, &ConfigError{Provider: p.config.Name, Field: "base_url", Message: err.Error()}
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	p.logger.DebugContext(ctx, "sending request to provider", "method", method, "url", url)

	resp, err := p.client.Do(req)
	if err != nil {
		err = p.transportError(ctx, err)
		p.record(err)
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		p.record(nil)
		return resp, nil
	}

	errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		err = &AuthError{Provider: p.config.Name, Message: string(errorBody)}
	case http.StatusTooManyRequests:
		err = &RateLimitError{
			Provider:   p.config.Name,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    string(errorBody),
		}
	default:
		err = &ProviderError{
			Provider:   p.config.Name,
			StatusCode: resp.StatusCode,
			Message:    string(errorBody),
		}
	}

	p.record(err)
	p.logger.WarnContext(ctx, "provider returned error status", "status", resp.StatusCode)
	return nil, err
}

// DoJSONRequest marshals reqBody, performs the request and returns the
// response for the caller to decode or stream.
func (p *HTTPProvider) DoJSONRequest(ctx context.Context, url string, reqBody interface{}, headers map[string]string) (*http.Response, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &ConfigError{Provider: p.config.Name, Field: "request", Message: fmt.Sprintf("failed to marshal request: %v", err)}
	}
	return p.DoRequest(ctx, http.MethodPost, url, bodyBytes, headers)
}

// DecodeJSON reads the whole response body into out.
func (p *HTTPProvider) DecodeJSON(ctx context.Context, resp *http.Response, out interface{}) error {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return p.ReadError(ctx, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ParseError{
			Provider:    p.config.Name,
			RawResponse: string(raw),
			Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
		}
	}
	return nil
}

// ReadError converts an error raised while reading a response body.
func (p *HTTPProvider) ReadError(ctx context.Context, err error) error {
	if errors.Is(err, io.EOF) {
		return err
	}
	return p.transportError(ctx, err)
}

func (p *HTTPProvider) transportError(ctx context.Context, err error) error {
	switch ctxErr := ctx.Err(); {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		// The dispatcher knows the configured duration and reports it.
		return &TimeoutError{Provider: p.config.Name}
	case ctxErr != nil:
		return ctxErr
	}
	return &NetworkError{Provider: p.config.Name, Cause: err}
}

// Close closes idle pooled connections.
func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	p.logger.Debug("provider closed")
	return nil
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}
