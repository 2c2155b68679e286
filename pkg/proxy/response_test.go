package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mercator-hq/switchboard/pkg/dispatch"
	"mercator-hq/switchboard/pkg/proxy/types"
)

func TestWriteJSONResponse(t *testing.T) {
	w := httptest.NewRecorder()

	if err := WriteJSONResponse(w, http.StatusOK, map[string]string{"id": "fan-1"}); err != nil {
		t.Fatalf("WriteJSONResponse() error = %v", err)
	}
	if w.Code != http.StatusOK {
		t.Errorf("Status code = %v, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %v, want application/json", ct)
	}

	var result map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Errorf("Response is not valid JSON: %v", err)
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantCode   string
	}{
		{
			name:       "dispatch validation on prompt",
			err:        &dispatch.ValidationError{Field: "prompt", Message: "must not be empty"},
			wantStatus: http.StatusBadRequest,
			wantType:   types.ErrorTypeValidation,
			wantCode:   types.CodeMissingField,
		},
		{
			name:       "dispatch validation on engines",
			err:        &dispatch.ValidationError{Field: "engines", Message: "at most 16 engines"},
			wantStatus: http.StatusBadRequest,
			wantType:   types.ErrorTypeValidation,
			wantCode:   types.CodeInvalidValue,
		},
		{
			name:       "no enabled providers",
			err:        fmt.Errorf("prepare: %w", dispatch.ErrNoTargets),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   types.ErrorTypeConfiguration,
			wantCode:   types.CodeNoEnabledProviders,
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   types.ErrorTypeServerError,
			wantCode:   types.CodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := HandleError(tt.err)

			w := httptest.NewRecorder()
			WriteErrorResponse(w, resp)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %v, want %v", w.Code, tt.wantStatus)
			}
			var got types.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("Response is not valid JSON: %v", err)
			}
			if got.Error.Type != tt.wantType || got.Error.Code != tt.wantCode {
				t.Errorf("type/code = %s/%s, want %s/%s", got.Error.Type, got.Error.Code, tt.wantType, tt.wantCode)
			}
		})
	}
}

func TestHandleError_DoesNotLeakInternals(t *testing.T) {
	resp := HandleError(errors.New("dial tcp 10.0.0.3:5432: connection refused"))
	if strings.Contains(resp.Error.Message, "10.0.0.3") {
		t.Errorf("internal detail leaked: %q", resp.Error.Message)
	}
}

func TestSetSSEHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	SetSSEHeaders(w)

	want := map[string]string{
		"Content-Type":  "text/event-stream",
		"Cache-Control": "no-cache",
		"Connection":    "keep-alive",
	}
	for header, value := range want {
		if got := w.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}
}

func TestWriteSSEEvent(t *testing.T) {
	w := httptest.NewRecorder()

	payload := map[string]any{"provider": "openai", "seq": 0, "type": "delta", "text": "po"}
	if err := WriteSSEEvent(w, "delta", payload); err != nil {
		t.Fatalf("WriteSSEEvent() error = %v", err)
	}

	body := w.Body.String()
	if !strings.HasPrefix(body, "event: delta\ndata: {") {
		t.Errorf("unexpected framing: %q", body)
	}
	if !strings.HasSuffix(body, "}\n\n") {
		t.Errorf("event not terminated by a blank line: %q", body)
	}
	if !w.Flushed {
		t.Error("event was not flushed")
	}
}

func TestWriteSSEDone(t *testing.T) {
	w := httptest.NewRecorder()

	if err := WriteSSEDone(w); err != nil {
		t.Fatalf("WriteSSEDone() error = %v", err)
	}
	if got := w.Body.String(); got != "data: [DONE]\n\n" {
		t.Errorf("body = %q", got)
	}
}

func TestExtractResponseMetadata(t *testing.T) {
	env := &dispatch.Envelope{
		ID: "fan-1",
		Responses: []dispatch.ProviderResponse{
			{Provider: "a", Usage: &dispatch.Usage{Input: 3, Output: 7, Total: 10}},
			{Provider: "b", Usage: &dispatch.Usage{Input: 3, Output: 2, Total: 5}},
			{Provider: "c", Status: dispatch.ResponseError},
		},
		Meta: dispatch.Meta{TotalEngines: 3, Successful: 2, Failed: 1, TotalLatencyMS: 420},
	}

	m := ExtractResponseMetadata(env)

	if m.InputTokens != 6 || m.OutputTokens != 9 {
		t.Errorf("tokens = %d/%d, want 6/9", m.InputTokens, m.OutputTokens)
	}
	if !m.IsPartial() {
		t.Error("expected partial outcome")
	}
	if m.Latency.Milliseconds() != 420 {
		t.Errorf("Latency = %v", m.Latency)
	}
}
