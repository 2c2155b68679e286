package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"mercator-hq/switchboard/pkg/config"
	"mercator-hq/switchboard/pkg/dispatch"
	"mercator-hq/switchboard/pkg/limits"
	"mercator-hq/switchboard/pkg/providerfactory"
	"mercator-hq/switchboard/pkg/providers"
	"mercator-hq/switchboard/pkg/proxy/handlers"
	"mercator-hq/switchboard/pkg/proxy/middleware"
	"mercator-hq/switchboard/pkg/settings"
	"mercator-hq/switchboard/pkg/settings/store"
	"mercator-hq/switchboard/pkg/telemetry/health"
	"mercator-hq/switchboard/pkg/telemetry/logging"
	"mercator-hq/switchboard/pkg/telemetry/metrics"
	"mercator-hq/switchboard/pkg/telemetry/tracing"
)

// Options supplies process-level dependencies.
type Options struct {
	Logger    *slog.Logger
	BuildInfo health.BuildInfo

	// Store replaces the configured settings store.
	Store settings.Store

	// Registry replaces the adapters built from the providers section.
	Registry *providers.Registry

	// Tracer replaces the configured tracer.
	Tracer *tracing.Tracer
}

// Server is the fan-out gateway: the HTTP listener plus every component
// behind it.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	info   health.BuildInfo

	store      settings.Store
	notifier   settings.Notifier
	registry   *providers.Registry
	resolver   *settings.Resolver
	refresher  *settings.Refresher
	dispatcher *dispatch.Dispatcher
	metrics    *metrics.Collector
	tracer     *tracing.Tracer
	health     *health.Checker

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New assembles the gateway from cfg. Close releases what New opened.
func New(ctx context.Context, cfg *config.Config, opts Options) (s *Server, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s = &Server{
		cfg:     cfg,
		logger:  logging.Component(logger, "server"),
		info:    opts.BuildInfo,
		metrics: metrics.NewCollector(cfg.Telemetry.Metrics, nil),
	}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	s.tracer = opts.Tracer
	if s.tracer == nil {
		if s.tracer, err = tracing.New(cfg.Telemetry.Tracing, opts.BuildInfo.Version); err != nil {
			return nil, fmt.Errorf("failed to create tracer: %w", err)
		}
	}

	s.registry = opts.Registry
	if s.registry == nil {
		if s.registry, err = providerfactory.BuildRegistry(cfg.AdapterConfigs()); err != nil {
			return nil, fmt.Errorf("failed to build provider adapters: %w", err)
		}
	}

	s.store = opts.Store
	if s.store == nil {
		if s.store, err = store.Open(ctx, cfg.Store); err != nil {
			return nil, fmt.Errorf("failed to open settings store: %w", err)
		}
	}
	if s.notifier, err = store.NewNotifier(cfg.Store, s.store, logger); err != nil {
		return nil, fmt.Errorf("failed to create settings notifier: %w", err)
	}

	resolverOpts := settings.OptionsFromConfig(cfg.Resolver)
	resolverOpts.Logger = logger
	resolverOpts.Metrics = s.metrics
	s.resolver = settings.NewResolver(s.store, resolverOpts)
	s.refresher = settings.NewRefresher(s.resolver, cfg.Resolver.RefreshSchedule, logger)

	dispatchOpts := dispatch.OptionsFromConfig(cfg)
	dispatchOpts.Logger = logger
	dispatchOpts.Metrics = s.metrics
	dispatchOpts.Tracer = s.tracer
	s.dispatcher = dispatch.New(
		s.registry,
		s.resolver,
		limits.NewEnforcer(s.resolver, logger, s.metrics),
		dispatchOpts,
	)

	s.health = health.New(cfg.Telemetry.Health.CheckTimeout)
	s.health.Register("provider_adapters", handlers.AdaptersCheck(s.registry))
	s.health.RegisterOptional("settings_store", handlers.SettingsStoreCheck(s.resolver))
	s.health.RegisterOptional("enabled_providers", handlers.EnabledProvidersCheck(s.resolver))

	return s, nil
}

// Resolver exposes the settings resolver.
func (s *Server) Resolver() *settings.Resolver {
	return s.resolver
}

// Dispatcher exposes the fan-out dispatcher.
func (s *Server) Dispatcher() *dispatch.Dispatcher {
	return s.dispatcher
}

// Registry returns the provider adapters.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Run listens on the configured address and serves until ctx is done or
// the process receives SIGINT or SIGTERM.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln alongside the settings watcher and the
// refresh schedule. The first of them to fail stops the others.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		_ = ln.Close()
		return errors.New("server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.cfg.Server.ReadTimeout,
		WriteTimeout:   s.cfg.Server.WriteTimeout,
		IdleTimeout:    s.cfg.Server.IdleTimeout,
		MaxHeaderBytes: s.cfg.Server.MaxHeaderBytes,
	}
	s.mu.Unlock()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("starting fan-out gateway",
			"address", ln.Addr().String(),
			"providers", s.registry.Names(),
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("initiating graceful shutdown", "timeout", s.cfg.Server.ShutdownTimeout.String())
		return s.Shutdown(context.Background())
	})

	if s.notifier != nil {
		g.Go(func() error {
			if err := s.resolver.Watch(gctx, s.notifier); err != nil {
				s.logger.Warn("settings change feed unavailable, relying on cache TTL", "error", err)
			}
			return nil
		})
	}

	if err := s.refresher.Start(gctx); err != nil {
		s.logger.Warn("settings refresher not started", "error", err)
	}

	return g.Wait()
}

// Shutdown stops accepting requests and waits for in-flight fan-outs up to
// the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		srv := s.httpServer
		s.mu.RUnlock()
		if srv == nil {
			return
		}

		timeout := s.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = config.DefaultShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}
		s.refresher.Stop()

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("fan-out gateway stopped")
	})

	return shutdownErr
}

// Close releases adapters, the settings store and the tracer. Call it
// after Run returns.
func (s *Server) Close() error {
	var errs []error
	if s.registry != nil {
		errs = append(errs, s.registry.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.tracer != nil {
		errs = append(errs, s.tracer.Shutdown(context.Background()))
	}
	return errors.Join(errs...)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	maxBody := s.cfg.Server.MaxBodyBytes
	mux.Handle("/v1/fanout", handlers.NewFanoutHandler(s.dispatcher, s.logger, maxBody))
	mux.Handle("/v1/fanout/stream", handlers.NewStreamHandler(s.dispatcher, s.logger, maxBody))
	mux.Handle("/v1/providers", handlers.NewProvidersHandler(s.resolver, s.registry, s.logger))

	if s.cfg.Telemetry.Metrics.Enabled {
		path := s.cfg.Telemetry.Metrics.Path
		if path == "" {
			path = config.DefaultMetricsPath
		}
		mux.Handle(path, s.metrics.Handler())
	}
	s.health.Mount(mux, s.cfg.Telemetry.Health, s.info)

	return middleware.Chain(mux,
		middleware.RecoveryMiddleware(s.logger),
		tracing.HTTPMiddleware(s.tracer),
		middleware.RequestIDMiddleware,
		middleware.CallerMiddleware,
		middleware.LoggingMiddleware(s.logger),
		middleware.CORSMiddleware(s.cfg.Server.CORS),
	)
}
