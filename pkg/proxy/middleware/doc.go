// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// The server assembles the chain with Chain, outermost first:
//
//	handler = middleware.Chain(mux,
//	    middleware.RecoveryMiddleware(logger),
//	    tracing.HTTPMiddleware(tracer),
//	    middleware.RequestIDMiddleware,
//	    middleware.CallerMiddleware,
//	    middleware.LoggingMiddleware(logger),
//	    middleware.CORSMiddleware(cfg.Server.CORS),
//	)
//
// Request ID and caller identity are stored with the logging package's
// context helpers, so any *Context log call made while serving the request
// carries them. There is no per-request timeout middleware: fan-out
// deadlines are owned by the dispatcher.
package middleware
