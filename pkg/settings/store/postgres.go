package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"

	"mercator-hq/switchboard/pkg/config"
	"mercator-hq/switchboard/pkg/settings"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostgresStore reads provider rows from the shared PostgreSQL settings
// table. The table is owned by the admin service; this store never writes.
//
// Expected columns: provider, is_enabled, max_output_cap, rate_limit_rpm,
// timeout_seconds, retry_count, temperature, default_model, updated_at.
// NULLs scan as zero values, which the resolver rejects as malformed.
type PostgresStore struct {
	db        *sql.DB
	readSQL   string
	listSQL   string
	tableName string
}

// OpenPostgres connects with lib/pq. The connection is established lazily;
// use Ping to check reachability.
func OpenPostgres(cfg config.PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres dsn cannot be empty")
	}
	table := cfg.Table
	if table == "" {
		table = config.DefaultPostgresTable
	}
	quoted, err := quoteTable(table)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}

	columns := `provider, is_enabled, max_output_cap, rate_limit_rpm, timeout_seconds,
		retry_count, temperature, default_model, updated_at`
	return &PostgresStore{
		db:        db,
		tableName: table,
		readSQL:   `SELECT ` + columns + ` FROM ` + quoted + ` WHERE provider = $1`,
		listSQL:   `SELECT ` + columns + ` FROM ` + quoted + ` ORDER BY provider`,
	}, nil
}

// quoteTable validates and quotes an optionally schema-qualified table name.
func quoteTable(table string) (string, error) {
	if !tableName.MatchString(table) {
		return "", fmt.Errorf("invalid postgres table name %q", table)
	}
	schema, name, qualified := strings.Cut(table, ".")
	if !qualified {
		return pq.QuoteIdentifier(table), nil
	}
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(name), nil
}

func scanPostgres(row rowScanner) (settings.Descriptor, error) {
	var (
		d       settings.Descriptor
		enabled sql.NullBool
		maxOut  sql.NullInt64
		rpm     sql.NullInt64
		timeout sql.NullInt64
		retries sql.NullInt64
		temp    sql.NullFloat64
		model   sql.NullString
		updated sql.NullTime
	)
	if err := row.Scan(&d.Name, &enabled, &maxOut, &rpm, &timeout, &retries, &temp, &model, &updated); err != nil {
		return settings.Descriptor{}, err
	}
	d.Enabled = enabled.Bool
	d.MaxOutputCap = int(maxOut.Int64)
	d.RequestsPerMinute = int(rpm.Int64)
	d.TimeoutSeconds = int(timeout.Int64)
	d.RetryCount = int(retries.Int64)
	d.Temperature = temp.Float64
	d.DefaultModel = model.String
	d.UpdatedAt = updated.Time
	return d, nil
}

func (s *PostgresStore) ReadProvider(ctx context.Context, name string) (settings.Descriptor, error) {
	d, err := scanPostgres(s.db.QueryRowContext(ctx, s.readSQL, name))
	if errors.Is(err, sql.ErrNoRows) {
		return settings.Descriptor{}, settings.ErrNotFound
	}
	if err != nil {
		return settings.Descriptor{}, fmt.Errorf("failed to read provider %q from %s: %w", name, s.tableName, err)
	}
	return d, nil
}

func (s *PostgresStore) ListProviders(ctx context.Context) ([]settings.Descriptor, error) {
	rows, err := s.db.QueryContext(ctx, s.listSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers from %s: %w", s.tableName, err)
	}
	defer rows.Close()

	var out []settings.Descriptor
	for rows.Next() {
		d, err := scanPostgres(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
