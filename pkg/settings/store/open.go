package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mercator-hq/switchboard/pkg/config"
	"mercator-hq/switchboard/pkg/settings"
)

// Backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Notifier types.
const (
	NotifierNone     = "none"
	NotifierAuto     = "auto"
	NotifierFSNotify = "fsnotify"
	NotifierPostgres = "postgres"
	NotifierRedis    = "redis"
)

// Open creates the configured store. The memory backend is loaded from
// cfg.SeedFile when set.
func Open(ctx context.Context, cfg config.StoreConfig) (settings.Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		mem := NewMemoryStore()
		if cfg.SeedFile != "" {
			rows, err := LoadSeed(cfg.SeedFile)
			if err != nil {
				return nil, err
			}
			if _, err := Seed(ctx, mem, rows); err != nil {
				return nil, err
			}
		}
		return mem, nil
	case BackendSQLite, "":
		return OpenSQLite(cfg.SQLite)
	case BackendPostgres:
		return OpenPostgres(cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// NewNotifier creates the change feed for st. It returns nil when
// notifications are disabled.
func NewNotifier(cfg config.StoreConfig, st settings.Store, logger *slog.Logger) (settings.Notifier, error) {
	kind := cfg.Notifier.Type
	if kind == NotifierAuto || kind == "" {
		switch s := st.(type) {
		case *MemoryStore:
			return s, nil
		case *SQLiteStore:
			kind = NotifierFSNotify
		case *PostgresStore:
			kind = NotifierPostgres
		default:
			return nil, nil
		}
	}

	switch kind {
	case NotifierNone:
		return nil, nil
	case NotifierFSNotify:
		sqlite, ok := st.(*SQLiteStore)
		if !ok {
			return nil, errors.New("fsnotify notifier requires the sqlite backend")
		}
		return NewSQLiteNotifier(sqlite, cfg.Notifier.Debounce, logger), nil
	case NotifierPostgres:
		return NewPostgresNotifier(cfg.Postgres.DSN, cfg.Notifier.Channel, logger), nil
	case NotifierRedis:
		return NewRedisNotifier(cfg.Notifier.Redis, cfg.Notifier.Channel, logger), nil
	default:
		return nil, fmt.Errorf("unknown notifier type %q", kind)
	}
}
