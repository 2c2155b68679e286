package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 5 * time.Minute
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultMaxBodyBytes    = 1048576 // 1MB

	// CORS defaults
	DefaultCORSEnabled = true
	DefaultCORSMaxAge  = 3600 // 1 hour

	// Provider endpoint defaults
	DefaultMaxIdleConns        = 100
	DefaultMaxIdleConnsPerHost = 10
	DefaultIdleConnTimeout     = 90 * time.Second

	// Store defaults
	DefaultStoreBackend         = "sqlite"
	DefaultSQLitePath           = "data/switchboard.db"
	DefaultSQLiteMaxOpenConns   = 4
	DefaultSQLiteWALMode        = true
	DefaultSQLiteBusyTimeout    = 5 * time.Second
	DefaultPostgresTable        = "provider_settings"
	DefaultPostgresMaxOpenConns = 10
	DefaultNotifierType         = "auto"
	DefaultNotifierChannel      = "provider_settings_changed"
	DefaultNotifierDebounce     = 250 * time.Millisecond
	DefaultRedisAddr            = "localhost:6379"

	// Resolver defaults
	DefaultCacheTTL        = 5 * time.Minute
	DefaultStoreTimeout    = 2 * time.Second
	DefaultFailureBackoff  = 5 * time.Second
	DefaultRefreshSchedule = "@every 1m"

	// Dispatch defaults
	DefaultDispatchTimeout      = 60 * time.Second
	DefaultMaxTargets           = 16
	DefaultRetryInitialInterval = 250 * time.Millisecond
	DefaultRetryMaxInterval     = 4 * time.Second

	// Stream defaults
	DefaultFlushInterval = 15 * time.Millisecond
	DefaultEventBuffer   = 64

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultRedactPII = true

	// Metrics defaults
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "switchboard"

	// Tracing defaults
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingService     = "switchboard"
	DefaultTracingInsecure    = true
	DefaultTracingTimeout     = 10 * time.Second

	// Health defaults
	DefaultLivenessPath       = "/health"
	DefaultReadinessPath      = "/ready"
	DefaultHealthCheckTimeout = 2 * time.Second
)

// Default histogram buckets.
var (
	DefaultLatencyBuckets    = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
	DefaultTokenCountBuckets = []float64{16, 64, 256, 1024, 4096, 16384}
)

// defaultProviderNames are registered when the config file has no providers
// section, so keys supplied through the environment are enough to start.
var defaultProviderNames = []string{
	"openai", "anthropic", "gemini", "ollama", "mistral", "groq", "deepseek",
}

// Default returns a configuration with every default applied. LoadConfig
// decodes the YAML file over this value, so booleans that default to true
// stay true unless the file sets them.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			CORS: CORSConfig{Enabled: DefaultCORSEnabled},
		},
		Store: StoreConfig{
			SQLite: SQLiteConfig{WALMode: DefaultSQLiteWALMode},
		},
		Stream: StreamConfig{FlushInterval: DefaultFlushInterval},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{RedactPII: DefaultRedactPII},
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
			Tracing: TracingConfig{Insecure: DefaultTracingInsecure},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-valued field with its default.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	applyCORSDefaults(&cfg.Server.CORS)

	// Provider defaults - applied to each provider
	if len(cfg.Providers) == 0 {
		cfg.Providers = make(map[string]ProviderConfig, len(defaultProviderNames))
		for _, name := range defaultProviderNames {
			cfg.Providers[name] = ProviderConfig{}
		}
	}
	for name, provider := range cfg.Providers {
		if provider.MaxIdleConns == 0 {
			provider.MaxIdleConns = DefaultMaxIdleConns
		}
		if provider.MaxIdleConnsPerHost == 0 {
			provider.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
		}
		if provider.IdleConnTimeout == 0 {
			provider.IdleConnTimeout = DefaultIdleConnTimeout
		}
		cfg.Providers[name] = provider
	}

	applyStoreDefaults(&cfg.Store)

	// Resolver defaults
	if cfg.Resolver.CacheTTL == 0 {
		cfg.Resolver.CacheTTL = DefaultCacheTTL
	}
	if cfg.Resolver.StoreTimeout == 0 {
		cfg.Resolver.StoreTimeout = DefaultStoreTimeout
	}
	if cfg.Resolver.FailureBackoff == 0 {
		cfg.Resolver.FailureBackoff = DefaultFailureBackoff
	}
	if cfg.Resolver.RefreshSchedule == "" {
		cfg.Resolver.RefreshSchedule = DefaultRefreshSchedule
	}

	// Dispatch defaults
	if cfg.Dispatch.DefaultTimeout == 0 {
		cfg.Dispatch.DefaultTimeout = DefaultDispatchTimeout
	}
	if cfg.Dispatch.MaxTargets == 0 {
		cfg.Dispatch.MaxTargets = DefaultMaxTargets
	}
	if cfg.Dispatch.RetryInitialInterval == 0 {
		cfg.Dispatch.RetryInitialInterval = DefaultRetryInitialInterval
	}
	if cfg.Dispatch.RetryMaxInterval == 0 {
		cfg.Dispatch.RetryMaxInterval = DefaultRetryMaxInterval
	}

	// Stream defaults. A zero flush interval is meaningful (flush every
	// chunk), so only the buffer is defaulted here; Default() sets the
	// interval before the file is decoded.
	if cfg.Stream.EventBuffer == 0 {
		cfg.Stream.EventBuffer = DefaultEventBuffer
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyCORSDefaults(cfg *CORSConfig) {
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID", "X-Caller-ID"}
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = DefaultCORSMaxAge
	}
}

func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultStoreBackend
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = DefaultSQLitePath
	}
	if cfg.SQLite.MaxOpenConns == 0 {
		cfg.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.SQLite.BusyTimeout == 0 {
		cfg.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Postgres.Table == "" {
		cfg.Postgres.Table = DefaultPostgresTable
	}
	if cfg.Postgres.MaxOpenConns == 0 {
		cfg.Postgres.MaxOpenConns = DefaultPostgresMaxOpenConns
	}
	if cfg.Notifier.Type == "" {
		cfg.Notifier.Type = DefaultNotifierType
	}
	if cfg.Notifier.Channel == "" {
		cfg.Notifier.Channel = DefaultNotifierChannel
	}
	if cfg.Notifier.Debounce == 0 {
		cfg.Notifier.Debounce = DefaultNotifierDebounce
	}
	if cfg.Notifier.Redis.Addr == "" {
		cfg.Notifier.Redis.Addr = DefaultRedisAddr
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Metrics.LatencyBuckets) == 0 {
		cfg.Metrics.LatencyBuckets = DefaultLatencyBuckets
	}
	if len(cfg.Metrics.TokenCountBuckets) == 0 {
		cfg.Metrics.TokenCountBuckets = DefaultTokenCountBuckets
	}

	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Tracing.Endpoint == "" {
		cfg.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Tracing.Timeout == 0 {
		cfg.Tracing.Timeout = DefaultTracingTimeout
	}

	if cfg.Health.LivenessPath == "" {
		cfg.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Health.ReadinessPath == "" {
		cfg.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Health.CheckTimeout == 0 {
		cfg.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
