package settings

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"mercator-hq/switchboard/pkg/telemetry/logging"
)

// Refresher re-reads the store on a cron schedule so hot providers rarely
// take a cache miss on the request path.
type Refresher struct {
	resolver *Resolver
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewRefresher creates a Refresher. Schedule accepts standard cron syntax
// and descriptors such as "@every 1m"; an empty schedule disables it.
func NewRefresher(resolver *Resolver, schedule string, logger *slog.Logger) *Refresher {
	return &Refresher{
		resolver: resolver,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logging.Component(logger, "settings.refresher"),
	}
}

// Start schedules the refresh job and stops it when ctx is done.
func (f *Refresher) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.schedule == "" {
		f.logger.Info("refresh schedule not configured, skipping refresher")
		return nil
	}
	if _, err := cron.ParseStandard(f.schedule); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", f.schedule, err)
	}
	if _, err := f.cron.AddFunc(f.schedule, func() { f.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}

	f.cron.Start()
	f.running = true
	f.logger.Info("settings refresher started", "schedule", f.schedule)

	go func() {
		<-ctx.Done()
		f.Stop()
	}()
	return nil
}

// RunOnce performs one refresh.
func (f *Refresher) RunOnce(ctx context.Context) {
	n, err := f.resolver.Refresh(ctx)
	if err != nil {
		f.logger.Warn("settings refresh failed", "error", err)
		return
	}
	f.logger.Debug("settings refreshed", "rows", n)
}

// Stop stops the schedule and waits for a running refresh.
func (f *Refresher) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.running {
		return
	}
	<-f.cron.Stop().Done()
	f.running = false
	f.logger.Info("settings refresher stopped")
}

// Running reports whether the schedule is active.
func (f *Refresher) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}
