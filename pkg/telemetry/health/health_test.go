package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mercator-hq/switchboard/pkg/config"
)

func TestNew_DefaultTimeout(t *testing.T) {
	if got := New(0).timeout; got != 2*time.Second {
		t.Errorf("expected default timeout 2s, got %v", got)
	}
	if got := New(time.Second).timeout; got != time.Second {
		t.Errorf("expected timeout 1s, got %v", got)
	}
}

func TestChecker_Readiness(t *testing.T) {
	pass := func(context.Context) error { return nil }
	fail := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name     string
		critical CheckFunc
		optional CheckFunc
		want     string
	}{
		{"all passing", pass, pass, StatusReady},
		{"optional failing", pass, fail, StatusDegraded},
		{"critical failing", fail, pass, StatusUnavailable},
		{"both failing", fail, fail, StatusUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(time.Second)
			checker.Register("providers", tt.critical)
			checker.RegisterOptional("settings_store", tt.optional)

			report := checker.Readiness(context.Background())
			if report.Status != tt.want {
				t.Errorf("expected status %q, got %q", tt.want, report.Status)
			}
			if len(report.Checks) != 2 {
				t.Fatalf("expected 2 check results, got %d", len(report.Checks))
			}
			if report.Checks["settings_store"].Critical {
				t.Error("settings_store should be optional")
			}
		})
	}
}

func TestChecker_NoChecksIsReady(t *testing.T) {
	if got := New(time.Second).Readiness(context.Background()).Status; got != StatusReady {
		t.Errorf("expected ready with no checks, got %q", got)
	}
}

func TestChecker_CheckTimeout(t *testing.T) {
	checker := New(20 * time.Millisecond)
	checker.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(300 * time.Millisecond)
		return nil
	})

	start := time.Now()
	report := checker.Readiness(context.Background())
	if time.Since(start) > 200*time.Millisecond {
		t.Errorf("readiness waited for the slow check: %v", time.Since(start))
	}
	if report.Checks["slow"].Status != CheckFailed {
		t.Errorf("expected timed out check to fail, got %+v", report.Checks["slow"])
	}
}

func TestChecker_RegisterReplaceUnregister(t *testing.T) {
	checker := New(time.Second)
	checker.Register("b", func(context.Context) error { return nil })
	checker.Register("a", func(context.Context) error { return nil })
	checker.Register("a", func(context.Context) error { return errors.New("replaced") })

	names := checker.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("unexpected names %v", names)
	}

	if msg := checker.Readiness(context.Background()).Checks["a"].Message; msg != "replaced" {
		t.Errorf("expected replaced check to run, got message %q", msg)
	}

	checker.Unregister("a")
	if len(checker.Names()) != 1 {
		t.Errorf("expected 1 check after unregister, got %v", checker.Names())
	}
}

func TestReadinessHandler_StatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		register func(*Checker)
		wantCode int
	}{
		{
			name:     "ready",
			register: func(c *Checker) { c.Register("providers", func(context.Context) error { return nil }) },
			wantCode: http.StatusOK,
		},
		{
			name: "degraded still serves",
			register: func(c *Checker) {
				c.RegisterOptional("settings_store", func(context.Context) error { return errors.New("down") })
			},
			wantCode: http.StatusOK,
		},
		{
			name: "unavailable",
			register: func(c *Checker) {
				c.Register("providers", func(context.Context) error { return errors.New("no adapters registered") })
			},
			wantCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(time.Second)
			tt.register(checker)

			rec := httptest.NewRecorder()
			checker.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, rec.Code)
			}

			var report Report
			if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
				t.Fatalf("failed to decode report: %v", err)
			}
		})
	}
}

func TestHandlers_Methods(t *testing.T) {
	checker := New(time.Second)

	rec := httptest.NewRecorder()
	checker.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for POST, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	checker.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Errorf("expected empty 200 for HEAD, got %d with %d bytes", rec.Code, rec.Body.Len())
	}
}

func TestMount(t *testing.T) {
	checker := New(time.Second)
	mux := http.NewServeMux()
	checker.Mount(mux, config.HealthConfig{LivenessPath: "/livez"}, BuildInfo{Version: "1.2.3"})

	for _, path := range []string{"/livez", "/ready", "/version"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	var info BuildInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("failed to decode version: %v", err)
	}
	if info.Version != "1.2.3" || info.GoVersion == "" {
		t.Errorf("unexpected build info %+v", info)
	}
}
