package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

var (
	validProviderTypes = []string{"openai", "anthropic", "ollama", "gemini", "generic"}
	validStoreBackends = []string{"memory", "sqlite", "postgres"}
	validNotifierTypes = []string{"none", "auto", "fsnotify", "postgres", "redis"}
	validLogLevels     = []string{"debug", "info", "warn", "error"}
	validLogFormats    = []string{"json", "text"}
	validSamplers      = []string{"always", "never", "ratio"}
)

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateProviders(cfg.Providers)...)
	errs = append(errs, validateStore(&cfg.Store)...)
	errs = append(errs, validateResolver(&cfg.Resolver)...)
	errs = append(errs, validateDispatch(&cfg.Dispatch, &cfg.Stream)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "listen address is required"})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.idle_timeout", Message: "idle timeout must be positive"})
	}
	if cfg.MaxHeaderBytes < 0 || cfg.MaxHeaderBytes > 10*1024*1024 {
		errs = append(errs, FieldError{Field: "server.max_header_bytes", Message: "max header bytes must be between 0 and 10MB"})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "max body bytes must be non-negative"})
	}

	return errs
}

func validateProviders(providers map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	if len(providers) == 0 {
		errs = append(errs, FieldError{Field: "providers", Message: "at least one provider must be configured"})
		return errs
	}

	for name, p := range providers {
		prefix := fmt.Sprintf("providers.%s", name)

		if strings.TrimSpace(name) == "" {
			errs = append(errs, FieldError{Field: "providers", Message: "provider name must not be empty"})
		}
		if p.Type != "" && !contains(validProviderTypes, p.Type) {
			errs = append(errs, FieldError{
				Field:   prefix + ".type",
				Message: fmt.Sprintf("invalid provider type %q (must be one of: %s)", p.Type, strings.Join(validProviderTypes, ", ")),
			})
		}
		if p.BaseURL != "" {
			u, err := url.Parse(p.BaseURL)
			if err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, FieldError{Field: prefix + ".base_url", Message: "base URL must be an absolute URL"})
			} else if u.Scheme != "http" && u.Scheme != "https" {
				errs = append(errs, FieldError{Field: prefix + ".base_url", Message: "base URL must use http or https"})
			}
		}
		if p.MaxIdleConns < 0 || p.MaxIdleConnsPerHost < 0 {
			errs = append(errs, FieldError{Field: prefix + ".max_idle_conns", Message: "connection pool sizes must be non-negative"})
		}
	}

	return errs
}

func validateStore(cfg *StoreConfig) []FieldError {
	var errs []FieldError

	if !contains(validStoreBackends, cfg.Backend) {
		errs = append(errs, FieldError{
			Field:   "store.backend",
			Message: fmt.Sprintf("invalid store backend %q (must be one of: %s)", cfg.Backend, strings.Join(validStoreBackends, ", ")),
		})
	}

	switch cfg.Backend {
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "store.sqlite.path", Message: "path is required for the sqlite backend"})
		}
		if cfg.SQLite.MaxOpenConns < 1 {
			errs = append(errs, FieldError{Field: "store.sqlite.max_open_conns", Message: "must be at least 1"})
		}
	case "postgres":
		if cfg.Postgres.DSN == "" {
			errs = append(errs, FieldError{Field: "store.postgres.dsn", Message: "dsn is required for the postgres backend"})
		}
		if cfg.Postgres.Table == "" {
			errs = append(errs, FieldError{Field: "store.postgres.table", Message: "table is required"})
		}
	}

	if !contains(validNotifierTypes, cfg.Notifier.Type) {
		errs = append(errs, FieldError{
			Field:   "store.notifier.type",
			Message: fmt.Sprintf("invalid notifier type %q (must be one of: %s)", cfg.Notifier.Type, strings.Join(validNotifierTypes, ", ")),
		})
	}
	switch cfg.Notifier.Type {
	case "fsnotify":
		if cfg.Backend != "sqlite" {
			errs = append(errs, FieldError{Field: "store.notifier.type", Message: "fsnotify requires the sqlite backend"})
		}
	case "postgres":
		if cfg.Backend != "postgres" {
			errs = append(errs, FieldError{Field: "store.notifier.type", Message: "postgres notifications require the postgres backend"})
		}
	case "redis":
		if cfg.Notifier.Redis.Addr == "" {
			errs = append(errs, FieldError{Field: "store.notifier.redis.addr", Message: "address is required for the redis notifier"})
		}
	}
	if cfg.Notifier.Type != "none" && cfg.Notifier.Channel == "" {
		errs = append(errs, FieldError{Field: "store.notifier.channel", Message: "channel is required"})
	}
	if cfg.Notifier.Debounce < 0 {
		errs = append(errs, FieldError{Field: "store.notifier.debounce", Message: "debounce must be non-negative"})
	}

	return errs
}

func validateResolver(cfg *ResolverConfig) []FieldError {
	var errs []FieldError

	if cfg.CacheTTL <= 0 {
		errs = append(errs, FieldError{Field: "resolver.cache_ttl", Message: "cache TTL must be positive"})
	}
	if cfg.StoreTimeout <= 0 {
		errs = append(errs, FieldError{Field: "resolver.store_timeout", Message: "store timeout must be positive"})
	}
	if cfg.FailureBackoff < 0 {
		errs = append(errs, FieldError{Field: "resolver.failure_backoff", Message: "failure backoff must be non-negative"})
	}
	if cfg.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(cfg.RefreshSchedule); err != nil {
			errs = append(errs, FieldError{Field: "resolver.refresh_schedule", Message: fmt.Sprintf("invalid cron expression: %v", err)})
		}
	}

	return errs
}

func validateDispatch(cfg *DispatchConfig, stream *StreamConfig) []FieldError {
	var errs []FieldError

	if cfg.DefaultTimeout <= 0 {
		errs = append(errs, FieldError{Field: "dispatch.default_timeout", Message: "default timeout must be positive"})
	}
	if cfg.MaxTargets < 1 {
		errs = append(errs, FieldError{Field: "dispatch.max_targets", Message: "must be at least 1"})
	}
	if cfg.RetryInitialInterval <= 0 {
		errs = append(errs, FieldError{Field: "dispatch.retry_initial_interval", Message: "must be positive"})
	}
	if cfg.RetryMaxInterval < cfg.RetryInitialInterval {
		errs = append(errs, FieldError{Field: "dispatch.retry_max_interval", Message: "must not be less than retry_initial_interval"})
	}

	if stream.FlushInterval < 0 {
		errs = append(errs, FieldError{Field: "stream.flush_interval", Message: "flush interval must be non-negative"})
	}
	if stream.EventBuffer < 0 {
		errs = append(errs, FieldError{Field: "stream.event_buffer", Message: "event buffer must be non-negative"})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	if !contains(validLogLevels, cfg.Logging.Level) {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be one of: %s)", cfg.Logging.Level, strings.Join(validLogLevels, ", ")),
		})
	}
	if !contains(validLogFormats, cfg.Logging.Format) {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be one of: %s)", cfg.Logging.Format, strings.Join(validLogFormats, ", ")),
		})
	}
	for i, p := range cfg.Logging.RedactPatterns {
		if p.Name == "" || p.Pattern == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d]", i),
				Message: "name and pattern are required",
			})
		}
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "metrics path must start with /"})
	}

	if cfg.Tracing.Enabled {
		if !contains(validSamplers, cfg.Tracing.Sampler) {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q (must be one of: %s)", cfg.Tracing.Sampler, strings.Join(validSamplers, ", ")),
			})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "sample ratio must be between 0.0 and 1.0"})
		}
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
		}
	}

	if !strings.HasPrefix(cfg.Health.LivenessPath, "/") || !strings.HasPrefix(cfg.Health.ReadinessPath, "/") {
		errs = append(errs, FieldError{Field: "telemetry.health", Message: "health paths must start with /"})
	}

	return errs
}

// contains checks if a string slice contains a specific string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
