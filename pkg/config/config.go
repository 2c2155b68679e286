package config

import (
	"sort"
	"time"

	"mercator-hq/switchboard/pkg/providers"
)

// Config is the root configuration structure for Switchboard.
// It contains the HTTP server, provider endpoints, the provider settings
// store, the resolver cache, fan-out dispatch, stream normalization and
// telemetry settings.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and connection limits.
	Server ServerConfig `yaml:"server"`

	// Providers contains the endpoint and credential configuration for each
	// provider adapter. Keys are provider names (e.g., "openai", "anthropic").
	// Enablement, caps and timeouts are NOT configured here; they come from
	// the settings store and the compiled default table.
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Store selects the provider settings store and its change feed.
	Store StoreConfig `yaml:"store"`

	// Resolver controls the settings resolver cache.
	Resolver ResolverConfig `yaml:"resolver"`

	// Dispatch controls fan-out timeouts and retries.
	Dispatch DispatchConfig `yaml:"dispatch"`

	// Stream controls normalization of provider streams.
	Stream StreamConfig `yaml:"stream"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port for the server to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Streaming responses stay open for the whole fan-out, so this
	// must exceed the longest provider timeout.
	// Default: 5m
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits the size of fan-out request bodies.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins. ["*"] allows all.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed request headers.
	// Default: ["Authorization", "Content-Type", "X-Request-ID", "X-Caller-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the preflight cache lifetime in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`
}

// ProviderConfig contains endpoint configuration for a single provider.
type ProviderConfig struct {
	// Type selects the adapter: "openai", "anthropic", "ollama", "gemini"
	// or "generic". Inferred from the provider name when empty.
	Type string `yaml:"type"`

	// BaseURL is the base URL for the provider's API endpoint.
	// Example: "https://api.openai.com/v1"
	BaseURL string `yaml:"base_url"`

	// APIKey is the credential sent to the provider. A provider without a
	// key is still registered but reports has_credentials=false.
	// Typically supplied via SWITCHBOARD_PROVIDERS_<NAME>_API_KEY.
	APIKey string `yaml:"api_key"`

	// APIVersion is sent by adapters that version their API by header
	// (Anthropic).
	APIVersion string `yaml:"api_version"`

	// MaxIdleConns bounds the adapter's idle connection pool.
	// Default: 100
	MaxIdleConns int `yaml:"max_idle_conns"`

	// MaxIdleConnsPerHost bounds idle connections per upstream host.
	// Default: 10
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`

	// IdleConnTimeout closes idle pooled connections after this duration.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// StoreConfig selects the provider settings store.
type StoreConfig struct {
	// Backend is the store implementation.
	// Options: "memory", "sqlite", "postgres"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SeedFile is an optional YAML file of provider rows loaded into the
	// memory backend at startup and by the seed command.
	SeedFile string `yaml:"seed_file"`

	// SQLite contains SQLite backend configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Postgres contains PostgreSQL backend configuration.
	Postgres PostgresConfig `yaml:"postgres"`

	// Notifier selects the change feed that invalidates resolver entries.
	Notifier NotifierConfig `yaml:"notifier"`
}

// SQLiteConfig contains SQLite store configuration.
type SQLiteConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/switchboard.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 4
	MaxOpenConns int `yaml:"max_open_conns"`

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// PostgresConfig contains PostgreSQL store configuration.
type PostgresConfig struct {
	// DSN is the lib/pq connection string.
	// Example: "postgres://switchboard@localhost/switchboard?sslmode=disable"
	DSN string `yaml:"dsn"`

	// Table is the provider settings table.
	// Default: "provider_settings"
	Table string `yaml:"table"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`
}

// NotifierConfig selects the change feed.
type NotifierConfig struct {
	// Type is the change feed implementation.
	// Options: "none", "auto", "fsnotify", "postgres", "redis"
	// "auto" picks fsnotify for sqlite, LISTEN/NOTIFY for postgres and the
	// store itself for memory.
	// Default: "auto"
	Type string `yaml:"type"`

	// Channel is the LISTEN/NOTIFY or pub/sub channel name.
	// Default: "provider_settings_changed"
	Channel string `yaml:"channel"`

	// Debounce coalesces bursts of file events before diffing the store.
	// Default: 250ms
	Debounce time.Duration `yaml:"debounce"`

	// Redis contains the redis pub/sub connection.
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig contains redis connection settings for the pub/sub feed.
type RedisConfig struct {
	// Addr is the redis server address.
	// Default: "localhost:6379"
	Addr string `yaml:"addr"`

	// Password authenticates to redis.
	Password string `yaml:"password"`

	// DB selects the redis database.
	DB int `yaml:"db"`
}

// ResolverConfig controls the settings resolver.
type ResolverConfig struct {
	// CacheTTL is how long a store read is served from cache.
	// Default: 5m
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// StoreTimeout bounds a single store read.
	// Default: 2s
	StoreTimeout time.Duration `yaml:"store_timeout"`

	// FailureBackoff suppresses store reads for a provider after a failed
	// read, so an unreachable store is not hammered on every request.
	// Zero disables the backoff.
	// Default: 5s
	FailureBackoff time.Duration `yaml:"failure_backoff"`

	// RefreshSchedule is a cron expression for proactive cache refresh.
	// Empty disables the refresher.
	// Default: "@every 1m"
	RefreshSchedule string `yaml:"refresh_schedule"`
}

// DispatchConfig controls fan-out dispatch.
type DispatchConfig struct {
	// DefaultTimeout is used when neither the request nor the resolver
	// supplies a provider timeout.
	// Default: 60s
	DefaultTimeout time.Duration `yaml:"default_timeout"`

	// MaxTargets limits the number of providers in one fan-out.
	// Default: 16
	MaxTargets int `yaml:"max_targets"`

	// RetryInitialInterval is the first retry delay.
	// Default: 250ms
	RetryInitialInterval time.Duration `yaml:"retry_initial_interval"`

	// RetryMaxInterval caps the exponential retry delay.
	// Default: 4s
	RetryMaxInterval time.Duration `yaml:"retry_max_interval"`
}

// StreamConfig controls stream normalization.
type StreamConfig struct {
	// FlushInterval is the coalescing window for content deltas.
	// Zero flushes on every provider chunk.
	// Default: 15ms
	FlushInterval time.Duration `yaml:"flush_interval"`

	// EventBuffer is the channel buffer per fan-out event stream.
	// Default: 64
	EventBuffer int `yaml:"event_buffer"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII enables redaction of credentials and PII in log attributes.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns contains custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "switchboard"
	Namespace string `yaml:"namespace"`

	// LatencyBuckets defines histogram buckets for latencies (seconds).
	// Default: [0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60]
	LatencyBuckets []float64 `yaml:"latency_buckets"`

	// TokenCountBuckets defines histogram buckets for token counts.
	// Default: [16, 64, 256, 1024, 4096, 16384]
	TokenCountBuckets []float64 `yaml:"token_count_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "switchboard"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout is the timeout for individual component checks.
	// Default: 2s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}

// AdapterConfigs converts the providers section into adapter configs,
// sorted by provider name.
func (c *Config) AdapterConfigs() []providers.ProviderConfig {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]providers.ProviderConfig, 0, len(names))
	for _, name := range names {
		p := c.Providers[name]
		out = append(out, providers.ProviderConfig{
			Name:                name,
			Type:                p.Type,
			BaseURL:             p.BaseURL,
			APIKey:              p.APIKey,
			APIVersion:          p.APIVersion,
			MaxIdleConns:        p.MaxIdleConns,
			MaxIdleConnsPerHost: p.MaxIdleConnsPerHost,
			IdleConnTimeout:     p.IdleConnTimeout,
		})
	}
	return out
}
