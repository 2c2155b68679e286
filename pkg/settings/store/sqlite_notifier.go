package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"mercator-hq/switchboard/pkg/settings"
	"mercator-hq/switchboard/pkg/telemetry/logging"
)

// SQLiteNotifier turns writes to a SQLite file into change notifications.
// It watches the database directory, debounces bursts of file events and
// then diffs updated_at per provider against the last snapshot, so writes
// from other processes are seen too.
type SQLiteNotifier struct {
	store    *SQLiteStore
	debounce time.Duration
	logger   *slog.Logger
}

// NewSQLiteNotifier creates a notifier for store.
func NewSQLiteNotifier(store *SQLiteStore, debounce time.Duration, logger *slog.Logger) *SQLiteNotifier {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &SQLiteNotifier{
		store:    store,
		debounce: debounce,
		logger:   logging.Component(logger, "settings.sqlite_notifier"),
	}
}

// Subscribe implements settings.Notifier.
func (n *SQLiteNotifier) Subscribe(ctx context.Context) (<-chan settings.Change, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(n.store.Path())
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	snapshot, err := n.store.Versions(ctx)
	if err != nil {
		watcher.Close()
		return nil, err
	}

	out := make(chan settings.Change, 16)
	go n.run(ctx, watcher, snapshot, out)

	n.logger.Info("watching settings database", "path", n.store.Path(), "debounce_ms", n.debounce.Milliseconds())
	return out, nil
}

func (n *SQLiteNotifier) run(ctx context.Context, watcher *fsnotify.Watcher, snapshot map[string]int64, out chan<- settings.Change) {
	defer close(out)
	defer watcher.Close()

	base := filepath.Base(n.store.Path())
	timer := time.NewTimer(n.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !n.relevant(event, base) {
				continue
			}
			timer.Reset(n.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			n.logger.Warn("settings file watcher error", "error", err)

		case <-timer.C:
			current, err := n.store.Versions(ctx)
			if err != nil {
				n.logger.Warn("failed to diff settings rows", "error", err)
				continue
			}
			now := time.Now()
			for _, name := range changedProviders(snapshot, current) {
				select {
				case out <- settings.Change{Provider: name, At: now}:
				case <-ctx.Done():
					return
				}
			}
			snapshot = current
		}
	}
}

// relevant keeps writes to the database file and its journal. The shared
// memory file changes on reads and is ignored.
func (n *SQLiteNotifier) relevant(event fsnotify.Event, base string) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	name := filepath.Base(event.Name)
	return strings.HasPrefix(name, base) && !strings.HasSuffix(name, "-shm")
}

// changedProviders returns the providers added, removed or rewritten
// between two snapshots, sorted.
func changedProviders(before, after map[string]int64) []string {
	var changed []string
	for name, v := range after {
		if prev, ok := before[name]; !ok || prev != v {
			changed = append(changed, name)
		}
	}
	for name := range before {
		if _, ok := after[name]; !ok {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	return changed
}
