package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// envPrefix is the prefix of every environment override.
const envPrefix = "SWITCHBOARD_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded over Default(), remaining zero values are defaulted,
// and the result is validated. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML over the default configuration and applies defaults.
// It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	// The providers section replaces the default provider list instead of
	// merging into it.
	cfg.Providers = nil

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention SWITCHBOARD_SECTION_FIELD (e.g., SWITCHBOARD_SERVER_LISTEN_ADDRESS).
// An empty path skips the file and starts from Default().
//
// The loading sequence is:
// 1. Load YAML from file (or defaults)
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path == "" {
		cfg = Default()
	} else {
		cfg, err = LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg, os.Environ())

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// environ is in os.Environ form.
func applyEnvOverrides(cfg *Config, environ []string) {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, envPrefix) && v != "" {
			env[k] = v
		}
	}

	str := func(key string, dst *string) {
		if val, ok := env[envPrefix+key]; ok {
			*dst = val
		}
	}
	dur := func(key string, dst *time.Duration) {
		if val, ok := env[envPrefix+key]; ok {
			if d, err := time.ParseDuration(val); err == nil {
				*dst = d
			}
		}
	}
	boolean := func(key string, dst *bool) {
		if val, ok := env[envPrefix+key]; ok {
			if b, err := strconv.ParseBool(val); err == nil {
				*dst = b
			}
		}
	}
	integer := func(key string, dst *int) {
		if val, ok := env[envPrefix+key]; ok {
			if i, err := strconv.Atoi(val); err == nil {
				*dst = i
			}
		}
	}

	// Server overrides
	str("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	dur("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	dur("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	dur("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Store overrides
	str("STORE_BACKEND", &cfg.Store.Backend)
	str("STORE_SEED_FILE", &cfg.Store.SeedFile)
	str("STORE_SQLITE_PATH", &cfg.Store.SQLite.Path)
	str("STORE_POSTGRES_DSN", &cfg.Store.Postgres.DSN)
	str("STORE_NOTIFIER_TYPE", &cfg.Store.Notifier.Type)
	str("STORE_NOTIFIER_CHANNEL", &cfg.Store.Notifier.Channel)
	str("STORE_REDIS_ADDR", &cfg.Store.Notifier.Redis.Addr)
	str("STORE_REDIS_PASSWORD", &cfg.Store.Notifier.Redis.Password)
	integer("STORE_REDIS_DB", &cfg.Store.Notifier.Redis.DB)

	// Resolver overrides
	dur("RESOLVER_CACHE_TTL", &cfg.Resolver.CacheTTL)
	dur("RESOLVER_STORE_TIMEOUT", &cfg.Resolver.StoreTimeout)
	dur("RESOLVER_FAILURE_BACKOFF", &cfg.Resolver.FailureBackoff)
	str("RESOLVER_REFRESH_SCHEDULE", &cfg.Resolver.RefreshSchedule)

	// Dispatch and stream overrides
	dur("DISPATCH_DEFAULT_TIMEOUT", &cfg.Dispatch.DefaultTimeout)
	integer("DISPATCH_MAX_TARGETS", &cfg.Dispatch.MaxTargets)
	dur("STREAM_FLUSH_INTERVAL", &cfg.Stream.FlushInterval)

	// Telemetry overrides
	str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	boolean("TELEMETRY_LOGGING_REDACT_PII", &cfg.Telemetry.Logging.RedactPII)
	boolean("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	str("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	boolean("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	str("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	str("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)

	applyProviderEnvOverrides(cfg, env)
}

// providerEnvFields maps the variable suffix to the provider field it sets.
var providerEnvFields = map[string]func(*ProviderConfig, string){
	"_API_KEY":     func(p *ProviderConfig, v string) { p.APIKey = v },
	"_BASE_URL":    func(p *ProviderConfig, v string) { p.BaseURL = v },
	"_TYPE":        func(p *ProviderConfig, v string) { p.Type = v },
	"_API_VERSION": func(p *ProviderConfig, v string) { p.APIVersion = v },
}

// applyProviderEnvOverrides handles SWITCHBOARD_PROVIDERS_<NAME>_<FIELD>.
// Any provider name is accepted; a variable for a provider missing from the
// file adds it with defaults.
func applyProviderEnvOverrides(cfg *Config, env map[string]string) {
	const prefix = envPrefix + "PROVIDERS_"

	for key, val := range env {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}
		for suffix, set := range providerEnvFields {
			upper, ok := strings.CutSuffix(rest, suffix)
			if !ok || upper == "" {
				continue
			}
			name := strings.ToLower(upper)
			if cfg.Providers == nil {
				cfg.Providers = make(map[string]ProviderConfig)
			}
			p, existed := cfg.Providers[name]
			set(&p, val)
			if !existed {
				p.MaxIdleConns = DefaultMaxIdleConns
				p.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
				p.IdleConnTimeout = DefaultIdleConnTimeout
			}
			cfg.Providers[name] = p
			break
		}
	}
}
