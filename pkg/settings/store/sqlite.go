package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/switchboard/pkg/config"
	"mercator-hq/switchboard/pkg/settings"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS provider_settings (
	provider        TEXT    NOT NULL PRIMARY KEY,
	is_enabled      INTEGER NOT NULL DEFAULT 0,
	max_output_cap  INTEGER NOT NULL,
	rate_limit_rpm  INTEGER NOT NULL DEFAULT 0,
	timeout_seconds INTEGER NOT NULL,
	retry_count     INTEGER NOT NULL DEFAULT 0,
	temperature     REAL    NOT NULL DEFAULT 0.7,
	default_model   TEXT    NOT NULL DEFAULT '',
	updated_at      INTEGER NOT NULL
);
`

const sqliteColumns = `provider, is_enabled, max_output_cap, rate_limit_rpm, timeout_seconds,
	retry_count, temperature, default_model, updated_at`

// SQLiteStore is a single-node settings store backed by a local SQLite
// file. updated_at holds Unix nanoseconds so the file watcher can tell
// rows apart by write.
type SQLiteStore struct {
	db   *sql.DB
	path string

	readStmt     *sql.Stmt
	listStmt     *sql.Stmt
	upsertStmt   *sql.Stmt
	deleteStmt   *sql.Stmt
	versionsStmt *sql.Stmt
}

// OpenSQLite opens or creates the database at cfg.Path.
func OpenSQLite(cfg config.SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path cannot be empty")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = config.DefaultSQLiteBusyTimeout
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", cfg.Path, busy.Milliseconds())
	if cfg.WALMode {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	s := &SQLiteStore{db: db, path: cfg.Path}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepare(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) prepare() error {
	var err error

	s.readStmt, err = s.db.Prepare(`SELECT ` + sqliteColumns + ` FROM provider_settings WHERE provider = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare read statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`SELECT ` + sqliteColumns + ` FROM provider_settings ORDER BY provider`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	s.upsertStmt, err = s.db.Prepare(`
		INSERT INTO provider_settings (` + sqliteColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider) DO UPDATE SET
			is_enabled = excluded.is_enabled,
			max_output_cap = excluded.max_output_cap,
			rate_limit_rpm = excluded.rate_limit_rpm,
			timeout_seconds = excluded.timeout_seconds,
			retry_count = excluded.retry_count,
			temperature = excluded.temperature,
			default_model = excluded.default_model,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM provider_settings WHERE provider = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	s.versionsStmt, err = s.db.Prepare(`SELECT provider, updated_at FROM provider_settings`)
	if err != nil {
		return fmt.Errorf("failed to prepare versions statement: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDescriptor(row rowScanner) (settings.Descriptor, error) {
	var (
		d         settings.Descriptor
		enabled   int64
		updatedAt int64
	)
	err := row.Scan(&d.Name, &enabled, &d.MaxOutputCap, &d.RequestsPerMinute, &d.TimeoutSeconds,
		&d.RetryCount, &d.Temperature, &d.DefaultModel, &updatedAt)
	if err != nil {
		return settings.Descriptor{}, err
	}
	d.Enabled = enabled != 0
	d.UpdatedAt = time.Unix(0, updatedAt)
	return d, nil
}

func (s *SQLiteStore) ReadProvider(ctx context.Context, name string) (settings.Descriptor, error) {
	d, err := scanDescriptor(s.readStmt.QueryRowContext(ctx, name))
	if errors.Is(err, sql.ErrNoRows) {
		return settings.Descriptor{}, settings.ErrNotFound
	}
	if err != nil {
		return settings.Descriptor{}, fmt.Errorf("failed to read provider %q: %w", name, err)
	}
	return d, nil
}

func (s *SQLiteStore) ListProviders(ctx context.Context) ([]settings.Descriptor, error) {
	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var out []settings.Descriptor
	for rows.Next() {
		d, err := scanDescriptor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Upsert writes a row, stamping updated_at.
func (s *SQLiteStore) Upsert(ctx context.Context, d settings.Descriptor) error {
	if d.Name == "" {
		return errors.New("provider name cannot be empty")
	}
	enabled := 0
	if d.Enabled {
		enabled = 1
	}
	_, err := s.upsertStmt.ExecContext(ctx, d.Name, enabled, d.MaxOutputCap, d.RequestsPerMinute,
		d.TimeoutSeconds, d.RetryCount, d.Temperature, d.DefaultModel, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to upsert provider %q: %w", d.Name, err)
	}
	return nil
}

// Delete removes a row.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	if _, err := s.deleteStmt.ExecContext(ctx, name); err != nil {
		return fmt.Errorf("failed to delete provider %q: %w", name, err)
	}
	return nil
}

// Versions returns updated_at per provider.
func (s *SQLiteStore) Versions(ctx context.Context) (map[string]int64, error) {
	rows, err := s.versionsStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read versions: %w", err)
	}
	defer rows.Close()

	versions := make(map[string]int64)
	for rows.Next() {
		var name string
		var v int64
		if err := rows.Scan(&name, &v); err != nil {
			return nil, err
		}
		versions[name] = v
	}
	return versions, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.readStmt, s.listStmt, s.upsertStmt, s.deleteStmt, s.versionsStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}
