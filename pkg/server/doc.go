// Package server assembles and runs the fan-out gateway.
//
// New wires the components from configuration: provider adapters, the
// settings store and its change feed, the resolver and its refresh
// schedule, the limit enforcer, the dispatcher, and telemetry. Run serves
// HTTP alongside the settings watcher in one errgroup; the first failure
// or a SIGINT/SIGTERM stops all of them and drains in-flight requests.
//
//	srv, err := server.New(ctx, cfg, server.Options{Logger: logger})
//	if err != nil {
//	    return err
//	}
//	defer srv.Close()
//	return srv.Run(ctx)
//
// Routes:
//
//	POST /v1/fanout
//	POST /v1/fanout/stream
//	GET  /v1/providers
//	GET  /health, /ready, /version
//	GET  /metrics
package server
