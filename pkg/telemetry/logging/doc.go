// Package logging builds the service's *slog.Logger.
//
// The handler returned by New adds request-scoped fields stored with
// WithRequestID, WithCaller, WithProvider and WithModel (plus OpenTelemetry
// trace and span IDs) to every record logged through the *Context methods,
// and, when redaction is enabled, masks provider credentials and PII in
// attribute values:
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
//	ctx = logging.WithRequestID(ctx, id)
//	logger.InfoContext(ctx, "fan-out complete", "successful", 2)
//
// Components receive a *slog.Logger and tag it with Component.
package logging
