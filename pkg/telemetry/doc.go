// Package telemetry groups the observability packages of the gateway.
//
// # Components
//
//   - logging: slog handlers with request context fields and credential redaction
//   - metrics: Prometheus collector for fan-outs, provider tasks and the settings resolver
//   - tracing: OpenTelemetry tracer with OTLP export, noop when disabled
//   - health: liveness and readiness endpoints backed by component checks
//
// Each component is built from its section of config.TelemetryConfig and
// injected into the server, dispatcher and resolver; nothing here is global.
//
//	logger, _ := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	tracer, _ := tracing.New(cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(ctx)
//
// # Redaction
//
// With redact_pii set, string attributes pass through a Redactor before they
// are written:
//
//   - API keys: sk-abc123def456 → sk-***
//   - Bearer tokens: Bearer abc.def → Bearer ***
//   - Emails: user@example.com → u***@example.com
package telemetry
