package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/switchboard/pkg/config"
)

func TestCORSMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	t.Run("adds CORS headers for allowed origin", func(t *testing.T) {
		wrapped := CORSMiddleware(config.CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"https://example.com"},
			AllowedMethods: []string{"GET", "POST"},
		})(handler)

		req := httptest.NewRequest(http.MethodPost, "/v1/fanout", nil)
		req.Header.Set("Origin", "https://example.com")
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
			t.Errorf("Access-Control-Allow-Origin = %q", got)
		}
		if got := w.Header().Get("Vary"); got != "Origin" {
			t.Errorf("Vary = %q, want Origin", got)
		}
		if w.Code != http.StatusOK {
			t.Errorf("Status code = %v, want 200", w.Code)
		}
	})

	t.Run("ignores unknown origin", func(t *testing.T) {
		wrapped := CORSMiddleware(config.CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"https://example.com"},
		})(handler)

		req := httptest.NewRequest(http.MethodGet, "/v1/providers", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
		}
	})

	t.Run("allows all origins with wildcard", func(t *testing.T) {
		wrapped := CORSMiddleware(config.CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
		})(handler)

		req := httptest.NewRequest(http.MethodGet, "/v1/providers", nil)
		req.Header.Set("Origin", "https://any-origin.com")
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
		}
		if got := w.Header().Get("Access-Control-Expose-Headers"); got != "X-Request-ID, X-Trace-ID" {
			t.Errorf("Access-Control-Expose-Headers = %q", got)
		}
	})

	t.Run("handles preflight OPTIONS request", func(t *testing.T) {
		wrapped := CORSMiddleware(config.CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "X-Caller-ID"},
			MaxAge:         600,
		})(handler)

		req := httptest.NewRequest(http.MethodOptions, "/v1/fanout", nil)
		req.Header.Set("Origin", "https://example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("Status code = %v, want 204", w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, X-Caller-ID" {
			t.Errorf("Access-Control-Allow-Headers = %q", got)
		}
		if got := w.Header().Get("Access-Control-Max-Age"); got != "600" {
			t.Errorf("Access-Control-Max-Age = %q", got)
		}
		if w.Body.Len() != 0 {
			t.Error("preflight should not reach the handler")
		}
	})

	t.Run("disabled passes through", func(t *testing.T) {
		wrapped := CORSMiddleware(config.CORSConfig{AllowedOrigins: []string{"*"}})(handler)

		req := httptest.NewRequest(http.MethodGet, "/v1/providers", nil)
		req.Header.Set("Origin", "https://example.com")
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
		}
	})
}
