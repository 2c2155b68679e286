package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/switchboard/pkg/config"
	"mercator-hq/switchboard/pkg/settings"
)

func testRow(name string) settings.Descriptor {
	return settings.Descriptor{
		Name: name, Enabled: true, DefaultModel: name + "-model",
		MaxOutputCap: 4096, RequestsPerMinute: 60, TimeoutSeconds: 30, RetryCount: 1, Temperature: 0.5,
	}
}

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(config.SQLiteConfig{
		Path:        filepath.Join(t.TempDir(), "settings.db"),
		WALMode:     true,
		BusyTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	_, err := m.ReadProvider(ctx, "openai")
	assert.ErrorIs(t, err, settings.ErrNotFound)

	require.NoError(t, m.Upsert(ctx, testRow("openai")))
	require.NoError(t, m.Upsert(ctx, testRow("anthropic")))

	got, err := m.ReadProvider(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, 4096, got.MaxOutputCap)
	assert.False(t, got.UpdatedAt.IsZero())

	rows, err := m.ListProviders(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "anthropic", rows[0].Name)

	require.NoError(t, m.Delete(ctx, "openai"))
	_, err = m.ReadProvider(ctx, "openai")
	assert.ErrorIs(t, err, settings.ErrNotFound)
}

func TestMemoryStore_Subscribe(t *testing.T) {
	m := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())

	changes, err := m.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Upsert(context.Background(), testRow("gemini")))
	select {
	case c := <-changes:
		assert.Equal(t, "gemini", c.Provider)
	case <-time.After(time.Second):
		t.Fatal("expected a change notification")
	}

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-changes
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestSQLiteStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	_, err := s.ReadProvider(ctx, "openai")
	assert.ErrorIs(t, err, settings.ErrNotFound)

	row := testRow("openai")
	row.Enabled = false
	require.NoError(t, s.Upsert(ctx, row))

	got, err := s.ReadProvider(ctx, "openai")
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.Equal(t, "openai-model", got.DefaultModel)
	assert.InDelta(t, 0.5, got.Temperature, 1e-9)
	assert.False(t, got.UpdatedAt.IsZero())

	row.MaxOutputCap = 8192
	require.NoError(t, s.Upsert(ctx, row))
	got, err = s.ReadProvider(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, 8192, got.MaxOutputCap)

	require.NoError(t, s.Upsert(ctx, testRow("anthropic")))
	rows, err := s.ListProviders(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "anthropic", rows[0].Name)

	versions, err := s.Versions(ctx)
	require.NoError(t, err)
	assert.Len(t, versions, 2)

	require.NoError(t, s.Delete(ctx, "openai"))
	_, err = s.ReadProvider(ctx, "openai")
	assert.ErrorIs(t, err, settings.ErrNotFound)
	assert.NoError(t, s.Ping(ctx))
}

func TestSQLiteStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.db")
	ctx := context.Background()

	s, err := OpenSQLite(config.SQLiteConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, testRow("ollama")))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(config.SQLiteConfig{Path: path})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.ReadProvider(ctx, "ollama")
	require.NoError(t, err)
	assert.Equal(t, "ollama", got.Name)
}

func TestSQLiteStore_EmptyPath(t *testing.T) {
	_, err := OpenSQLite(config.SQLiteConfig{})
	assert.Error(t, err)
}

func TestSQLiteStore_ResolverIntegration(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)
	require.NoError(t, s.Upsert(ctx, testRow("anthropic")))

	r := settings.NewResolver(s, settings.Options{})
	res := r.Resolve(ctx, settings.Scope{Provider: "anthropic", Field: settings.FieldMaxOutputCap}, nil)
	assert.Equal(t, settings.SourceStore, res.Source)
	assert.Equal(t, 4096, res.Value)

	require.NoError(t, s.Close())
	res = r.Resolve(ctx, settings.Scope{Provider: "gemini", Field: settings.FieldMaxOutputCap}, nil)
	assert.Equal(t, settings.SourceDefault, res.Source)
	assert.Equal(t, 8192, res.Value)
}

func TestSQLiteNotifier(t *testing.T) {
	s := openTestSQLite(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Upsert(ctx, testRow("openai")))

	notifier := NewSQLiteNotifier(s, 20*time.Millisecond, nil)
	changes, err := notifier.Subscribe(ctx)
	require.NoError(t, err)

	// A second handle stands in for the admin process.
	writer, err := OpenSQLite(config.SQLiteConfig{Path: s.Path(), WALMode: true})
	require.NoError(t, err)
	defer writer.Close()
	require.NoError(t, writer.Upsert(ctx, testRow("mistral")))

	select {
	case c := <-changes:
		assert.Equal(t, "mistral", c.Provider)
	case <-time.After(3 * time.Second):
		t.Fatal("expected a change for the new row")
	}

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-changes
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestChangedProviders(t *testing.T) {
	before := map[string]int64{"openai": 1, "anthropic": 1, "gemini": 1}
	after := map[string]int64{"openai": 1, "anthropic": 2, "mistral": 1}

	assert.Equal(t, []string{"anthropic", "gemini", "mistral"}, changedProviders(before, after))
	assert.Empty(t, changedProviders(before, before))
}

func TestParsePayload(t *testing.T) {
	at := time.Now()
	tests := []struct {
		payload string
		want    string
	}{
		{"openai", "openai"},
		{"  anthropic\n", "anthropic"},
		{`{"provider":"gemini","op":"update"}`, "gemini"},
		{`{not json`, ""},
		{"", ""},
	}
	for _, tt := range tests {
		got := parsePayload(tt.payload, at)
		assert.Equal(t, tt.want, got.Provider, "payload %q", tt.payload)
		assert.Equal(t, at, got.At)
	}
}

func TestChangeFromNotification(t *testing.T) {
	at := time.Now()
	assert.Equal(t, "", changeFromNotification(nil, at).Provider)
	assert.Equal(t, "openai", changeFromNotification(&pq.Notification{Channel: "c", Extra: "openai"}, at).Provider)
}

func TestQuoteTable(t *testing.T) {
	tests := []struct {
		table   string
		want    string
		wantErr bool
	}{
		{"provider_settings", `"provider_settings"`, false},
		{"admin.provider_settings", `"admin"."provider_settings"`, false},
		{"settings; DROP TABLE x", "", true},
		{"a.b.c", "", true},
	}
	for _, tt := range tests {
		got, err := quoteTable(tt.table)
		if tt.wantErr {
			assert.Error(t, err, tt.table)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestOpenPostgres_Validation(t *testing.T) {
	_, err := OpenPostgres(config.PostgresConfig{})
	assert.Error(t, err)

	_, err = OpenPostgres(config.PostgresConfig{DSN: "postgres://localhost/x", Table: "bad table"})
	assert.Error(t, err)

	s, err := OpenPostgres(config.PostgresConfig{DSN: "postgres://localhost/x?sslmode=disable"})
	require.NoError(t, err)
	assert.Contains(t, s.readSQL, `FROM "provider_settings" WHERE provider = $1`)
	assert.NoError(t, s.Close())
}

func TestRedisNotifier_Unreachable(t *testing.T) {
	n := NewRedisNotifier(config.RedisConfig{Addr: "127.0.0.1:1"}, "changes", nil)
	defer n.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := n.Subscribe(ctx)
	assert.Error(t, err)
	assert.Error(t, n.Publish(ctx, "openai"))
}

func TestSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
providers:
  - name: openai
    enabled: true
    default_model: gpt-4o
    max_output_cap: 16384
    requests_per_minute: 500
    timeout_seconds: 60
    retry_count: 2
    temperature: 0.7
  - name: ollama
    enabled: true
    default_model: llama3.2
    max_output_cap: 4096
    timeout_seconds: 120
`), 0o644))

	rows, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	s := openTestSQLite(t)
	n, err := Seed(context.Background(), s, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.ReadProvider(context.Background(), "ollama")
	require.NoError(t, err)
	assert.Equal(t, 120, got.TimeoutSeconds)
}

func TestParseSeed_Invalid(t *testing.T) {
	tests := map[string]string{
		"zero cap":  "providers:\n  - {name: a, max_output_cap: 0, timeout_seconds: 1}\n",
		"duplicate": "providers:\n  - {name: a, max_output_cap: 1, timeout_seconds: 1}\n  - {name: a, max_output_cap: 1, timeout_seconds: 1}\n",
		"bad yaml":  "providers: [",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSeed([]byte(data))
			assert.Error(t, err)
		})
	}

	var me *settings.MalformedError
	_, err := ParseSeed([]byte(tests["zero cap"]))
	assert.True(t, errors.As(err, &me))
}

func TestOpenAndNotifier(t *testing.T) {
	ctx := context.Background()
	seed := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte("providers:\n  - {name: alpha, enabled: true, max_output_cap: 100, timeout_seconds: 5}\n"), 0o644))

	mem, err := Open(ctx, config.StoreConfig{Backend: BackendMemory, SeedFile: seed})
	require.NoError(t, err)
	got, err := mem.ReadProvider(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, 100, got.MaxOutputCap)

	n, err := NewNotifier(config.StoreConfig{Notifier: config.NotifierConfig{Type: NotifierAuto}}, mem, nil)
	require.NoError(t, err)
	assert.Same(t, mem.(*MemoryStore), n.(*MemoryStore))

	n, err = NewNotifier(config.StoreConfig{Notifier: config.NotifierConfig{Type: NotifierNone}}, mem, nil)
	require.NoError(t, err)
	assert.Nil(t, n)

	_, err = NewNotifier(config.StoreConfig{Notifier: config.NotifierConfig{Type: NotifierFSNotify}}, mem, nil)
	assert.Error(t, err)

	sqlite, err := Open(ctx, config.StoreConfig{
		Backend: BackendSQLite,
		SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "s.db")},
	})
	require.NoError(t, err)
	defer sqlite.Close()
	n, err = NewNotifier(config.StoreConfig{}, sqlite, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteNotifier{}, n)

	_, err = Open(ctx, config.StoreConfig{Backend: "etcd"})
	assert.Error(t, err)
}
