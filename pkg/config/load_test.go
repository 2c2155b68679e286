package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "0.0.0.0:9000"
  read_timeout: "45s"

providers:
  openai:
    api_key: "test-key-123"
  corp:
    type: generic
    base_url: "http://llm.internal:8000/v1"

store:
  backend: memory

resolver:
  cache_ttl: "2m"

stream:
  flush_interval: "0s"

telemetry:
  logging:
    level: debug
    format: text
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9000" {
		t.Errorf("expected listen address 0.0.0.0:9000, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 45*time.Second {
		t.Errorf("expected read timeout 45s, got %s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("expected default write timeout, got %s", cfg.Server.WriteTimeout)
	}
	if len(cfg.Providers) != 2 {
		t.Errorf("providers section should replace defaults, got %d providers", len(cfg.Providers))
	}
	if cfg.Providers["openai"].APIKey != "test-key-123" {
		t.Errorf("unexpected openai key %q", cfg.Providers["openai"].APIKey)
	}
	if cfg.Providers["corp"].MaxIdleConns != DefaultMaxIdleConns {
		t.Errorf("expected pool defaults on provider, got %d", cfg.Providers["corp"].MaxIdleConns)
	}
	if cfg.Resolver.CacheTTL != 2*time.Minute {
		t.Errorf("expected cache ttl 2m, got %s", cfg.Resolver.CacheTTL)
	}
	if cfg.Resolver.StoreTimeout != DefaultStoreTimeout {
		t.Errorf("expected default store timeout, got %s", cfg.Resolver.StoreTimeout)
	}
	if cfg.Stream.FlushInterval != 0 {
		t.Errorf("explicit zero flush interval should be kept, got %s", cfg.Stream.FlushInterval)
	}
	if !cfg.Telemetry.Logging.RedactPII {
		t.Error("redact_pii should default to true")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("metrics should default to enabled")
	}
}

func TestLoadConfig_BooleansCanBeDisabled(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: memory
telemetry:
  logging:
    redact_pii: false
  metrics:
    enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Telemetry.Logging.RedactPII {
		t.Error("expected redact_pii false")
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics disabled")
	}
	if len(cfg.Providers) != len(defaultProviderNames) {
		t.Errorf("expected default providers, got %d", len(cfg.Providers))
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to read configuration file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "server:\n  listen_address: [unterminated\n")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "failed to parse configuration file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: cassandra
telemetry:
  logging:
    level: verbose
`)

	_, err := LoadConfig(path)
	var valErr ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(valErr.Errors) != 2 {
		t.Errorf("expected 2 field errors, got %d: %v", len(valErr.Errors), valErr.Errors)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()
	applyEnvOverrides(cfg, []string{
		"SWITCHBOARD_SERVER_LISTEN_ADDRESS=0.0.0.0:7000",
		"SWITCHBOARD_RESOLVER_CACHE_TTL=30s",
		"SWITCHBOARD_DISPATCH_MAX_TARGETS=4",
		"SWITCHBOARD_TELEMETRY_TRACING_ENABLED=true",
		"SWITCHBOARD_STORE_BACKEND=postgres",
		"SWITCHBOARD_STORE_POSTGRES_DSN=postgres://localhost/sb",
		"SWITCHBOARD_STREAM_FLUSH_INTERVAL=not-a-duration",
		"SWITCHBOARD_DISPATCH_DEFAULT_TIMEOUT=",
		"UNRELATED=1",
	})

	if cfg.Server.ListenAddress != "0.0.0.0:7000" {
		t.Errorf("unexpected listen address %q", cfg.Server.ListenAddress)
	}
	if cfg.Resolver.CacheTTL != 30*time.Second {
		t.Errorf("unexpected cache ttl %s", cfg.Resolver.CacheTTL)
	}
	if cfg.Dispatch.MaxTargets != 4 {
		t.Errorf("unexpected max targets %d", cfg.Dispatch.MaxTargets)
	}
	if !cfg.Telemetry.Tracing.Enabled {
		t.Error("expected tracing enabled")
	}
	if cfg.Store.Backend != "postgres" || cfg.Store.Postgres.DSN != "postgres://localhost/sb" {
		t.Errorf("unexpected store %+v", cfg.Store)
	}
	if cfg.Stream.FlushInterval != DefaultFlushInterval {
		t.Errorf("invalid duration should be ignored, got %s", cfg.Stream.FlushInterval)
	}
	if cfg.Dispatch.DefaultTimeout != DefaultDispatchTimeout {
		t.Errorf("empty value should be ignored, got %s", cfg.Dispatch.DefaultTimeout)
	}
}

func TestApplyProviderEnvOverrides(t *testing.T) {
	cfg := Default()
	applyEnvOverrides(cfg, []string{
		"SWITCHBOARD_PROVIDERS_OPENAI_API_KEY=sk-env",
		"SWITCHBOARD_PROVIDERS_ANTHROPIC_API_VERSION=2024-01-01",
		"SWITCHBOARD_PROVIDERS_MY_LLM_BASE_URL=http://localhost:9999/v1",
		"SWITCHBOARD_PROVIDERS_MY_LLM_TYPE=generic",
	})

	if got := cfg.Providers["openai"].APIKey; got != "sk-env" {
		t.Errorf("expected openai key from env, got %q", got)
	}
	if got := cfg.Providers["anthropic"].APIVersion; got != "2024-01-01" {
		t.Errorf("expected anthropic version from env, got %q", got)
	}

	custom, ok := cfg.Providers["my_llm"]
	if !ok {
		t.Fatal("expected my_llm provider to be added")
	}
	if custom.BaseURL != "http://localhost:9999/v1" || custom.Type != "generic" {
		t.Errorf("unexpected custom provider %+v", custom)
	}
	if custom.MaxIdleConnsPerHost != DefaultMaxIdleConnsPerHost {
		t.Errorf("expected pool defaults on env-only provider")
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("SWITCHBOARD_STORE_BACKEND", "memory")
	t.Setenv("SWITCHBOARD_PROVIDERS_GROQ_API_KEY", "gsk-test")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("expected memory backend, got %q", cfg.Store.Backend)
	}
	if cfg.Providers["groq"].APIKey != "gsk-test" {
		t.Errorf("expected groq key from env")
	}
}

func TestLoadConfigWithEnvOverrides_InvalidAfterOverride(t *testing.T) {
	path := writeConfig(t, "store:\n  backend: memory\n")
	t.Setenv("SWITCHBOARD_TELEMETRY_LOGGING_FORMAT", "xml")

	_, err := LoadConfigWithEnvOverrides(path)
	if err == nil || !strings.Contains(err.Error(), "after environment overrides") {
		t.Fatalf("expected validation error after overrides, got %v", err)
	}
}

func TestAdapterConfigs(t *testing.T) {
	cfg := Default()
	cfg.Providers = map[string]ProviderConfig{
		"openai":    {APIKey: "a"},
		"anthropic": {APIKey: "b", APIVersion: "2023-06-01"},
	}

	out := cfg.AdapterConfigs()
	if len(out) != 2 {
		t.Fatalf("expected 2 adapter configs, got %d", len(out))
	}
	if out[0].Name != "anthropic" || out[1].Name != "openai" {
		t.Errorf("expected sorted names, got %s, %s", out[0].Name, out[1].Name)
	}
	if out[0].APIVersion != "2023-06-01" || out[1].APIKey != "a" {
		t.Errorf("fields not carried over: %+v", out)
	}
}
