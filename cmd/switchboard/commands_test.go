package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testprov "mercator-hq/switchboard/internal/providers"
	"mercator-hq/switchboard/pkg/cli"
	"mercator-hq/switchboard/pkg/config"
	"mercator-hq/switchboard/pkg/dispatch"
	"mercator-hq/switchboard/pkg/proxy/types"
	"mercator-hq/switchboard/pkg/settings/store"
	"mercator-hq/switchboard/pkg/stream"
)

const testSeed = `providers:
  - name: alpha
    enabled: true
    default_model: gpt-4o-mini
    max_output_cap: 2048
    requests_per_minute: 0
    timeout_seconds: 5
    retry_count: 0
    temperature: 0.5
  - name: beta
    enabled: true
    default_model: gpt-4o-mini
    max_output_cap: 1024
    timeout_seconds: 5
`

// execute runs the root command with fresh flag values.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// useConfig installs a memory-store configuration whose "alpha" provider
// talks to upstream and whose "beta" provider has no reachable adapter.
func useConfig(t *testing.T, upstream *testprov.MockServer) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Providers = map[string]config.ProviderConfig{
		"alpha": {Type: "openai", BaseURL: upstream.URL(), APIKey: "sk-test-key"},
	}
	cfg.Store.Backend = store.BackendMemory
	cfg.Store.SeedFile = writeFile(t, "seed.yaml", testSeed)
	cfg.Resolver.RefreshSchedule = ""
	cfg.Telemetry.Logging.Level = "error"
	config.ApplyDefaults(cfg)

	config.SetConfig(cfg)
	t.Cleanup(func() { config.SetConfig(nil) })
	return cfg
}

func newUpstream(t *testing.T) *testprov.MockServer {
	t.Helper()
	upstream := testprov.NewMockServer()
	t.Cleanup(upstream.Close)
	upstream.SetResponse("/chat/completions", testprov.MockResponse{
		StreamChunks: []string{
			testprov.MockOpenAIStreamChunk("pong", "stop"),
			testprov.MockOpenAIUsageChunk(3, 1),
		},
	})
	return upstream
}

func TestRunDryRun(t *testing.T) {
	useConfig(t, newUpstream(t))

	stdout, _, err := execute(t, "run", "--dry-run", "--listen", "127.0.0.1:0")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration valid")
}

func TestRunInvalidOverride(t *testing.T) {
	useConfig(t, newUpstream(t))

	_, _, err := execute(t, "run", "--dry-run", "--log-level", "chatty")
	require.Error(t, err)
	assert.Equal(t, cli.ExitConfig, cli.ExitCode(err))
}

func TestProvidersCommand(t *testing.T) {
	useConfig(t, newUpstream(t))

	t.Run("json", func(t *testing.T) {
		stdout, _, err := execute(t, "providers", "--format", "json")
		require.NoError(t, err)

		var list []types.ProviderInfo
		require.NoError(t, json.Unmarshal([]byte(stdout), &list))

		byName := make(map[string]types.ProviderInfo)
		for _, info := range list {
			byName[info.Name] = info
		}
		alpha, ok := byName["alpha"]
		require.True(t, ok, "alpha missing from %s", stdout)
		assert.True(t, alpha.Enabled)
		assert.True(t, alpha.HasCredentials)
		assert.Equal(t, "openai", alpha.Type)
		assert.Equal(t, 2048, alpha.MaxOutputCap)

		beta := byName["beta"]
		assert.True(t, beta.Enabled)
		assert.False(t, beta.HasCredentials)
	})

	t.Run("csv", func(t *testing.T) {
		stdout, _, err := execute(t, "providers", "--format", "csv")
		require.NoError(t, err)

		records, err := csv.NewReader(strings.NewReader(stdout)).ReadAll()
		require.NoError(t, err)
		require.NotEmpty(t, records)
		assert.Equal(t, "NAME", records[0][0])
	})

	t.Run("bad format", func(t *testing.T) {
		_, _, err := execute(t, "providers", "--format", "yaml")
		assert.Equal(t, cli.ExitConfig, cli.ExitCode(err))
	})
}

func TestResolveCommand(t *testing.T) {
	useConfig(t, newUpstream(t))

	stdout, _, err := execute(t, "resolve", "alpha", "--field", "max_output_cap,default_model", "--model", "gpt-4o", "--format", "json")
	require.NoError(t, err)

	var rows []resolutionRow
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	require.Len(t, rows, 2)

	assert.EqualValues(t, "max_output_cap", rows[0].Field)
	assert.EqualValues(t, 2048, rows[0].Value)
	assert.EqualValues(t, "store", rows[0].Source)

	assert.EqualValues(t, "default_model", rows[1].Field)
	assert.Equal(t, "gpt-4o", rows[1].Value)
	assert.EqualValues(t, "override", rows[1].Source)
}

func TestResolveCommandErrors(t *testing.T) {
	useConfig(t, newUpstream(t))

	_, _, err := execute(t, "resolve", "alpha", "--field", "colour")
	assert.Equal(t, cli.ExitConfig, cli.ExitCode(err))

	_, stderr, err := execute(t, "resolve", "nobody-knows-me", "--field", "enabled")
	require.NoError(t, err)
	assert.Contains(t, stderr, "unknown to every layer")
}

func TestAskCommand(t *testing.T) {
	upstream := newUpstream(t)
	useConfig(t, upstream)

	t.Run("json envelope", func(t *testing.T) {
		stdout, _, err := execute(t, "ask", "ping", "--engine", "alpha", "--format", "json", "--no-progress")
		require.NoError(t, err)

		var env dispatch.Envelope
		require.NoError(t, json.Unmarshal([]byte(stdout), &env))
		require.Len(t, env.Responses, 1)
		resp := env.Responses[0]
		assert.Equal(t, dispatch.ResponseSuccess, resp.Status)
		require.NotNil(t, resp.Content)
		assert.Equal(t, "pong", *resp.Content)
	})

	t.Run("partial failure exit code", func(t *testing.T) {
		stdout, stderr, err := execute(t, "ask", "ping", "--engine", "alpha", "--engine", "beta")
		require.Error(t, err)
		assert.Equal(t, cli.ExitPartial, cli.ExitCode(err))
		assert.Contains(t, stdout, "== alpha")
		assert.Contains(t, stdout, "== beta")
		assert.Contains(t, stdout, "2 engines: 1 succeeded, 1 failed")
		assert.Contains(t, stderr, "Providers:")
	})

	t.Run("events", func(t *testing.T) {
		stdout, _, err := execute(t, "ask", "ping", "--engine", "alpha:gpt-4o", "--events")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		require.GreaterOrEqual(t, len(lines), 2)

		var first stream.Event
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
		assert.Equal(t, "alpha", first.Provider)

		var env dispatch.Envelope
		require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &env))
		assert.Equal(t, "gpt-4o", env.Responses[0].Model)
	})

	t.Run("empty prompt", func(t *testing.T) {
		_, _, err := execute(t, "ask", "  ", "--engine", "alpha", "--no-progress")
		require.Error(t, err)
		assert.Equal(t, cli.ExitFailure, cli.ExitCode(err))
	})
}

func TestParseEngines(t *testing.T) {
	targets, err := parseEngines([]string{"openai", "ollama:llama3:8b", " anthropic : claude "})
	require.NoError(t, err)
	assert.Equal(t, []dispatch.Target{
		{Provider: "openai"},
		{Provider: "ollama", Model: "llama3:8b"},
		{Provider: "anthropic", Model: "claude"},
	}, targets)

	_, err = parseEngines([]string{":gpt-4o"})
	assert.Error(t, err)
}

func TestSeedCommand(t *testing.T) {
	upstream := newUpstream(t)
	cfg := useConfig(t, upstream)
	cfg.Store.Backend = store.BackendSQLite
	cfg.Store.SQLite.Path = filepath.Join(t.TempDir(), "settings.db")
	cfg.Store.Notifier.Type = store.NotifierNone

	stdout, _, err := execute(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Seed file valid: 2 providers")
	assert.Contains(t, stdout, "Wrote 2 providers to sqlite store")

	stdout, _, err = execute(t, "resolve", "beta", "--field", "max_output_cap")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1024")
	assert.Contains(t, stdout, "store")
}

func TestSeedCommandRejectsInvalidRows(t *testing.T) {
	useConfig(t, newUpstream(t))
	bad := writeFile(t, "bad.yaml", "providers:\n  - name: alpha\n    max_output_cap: -1\n")

	_, _, err := execute(t, "seed", "--file", bad)
	require.Error(t, err)
	assert.Equal(t, cli.ExitConfig, cli.ExitCode(err))
}

func TestSeedCommandMemoryBackend(t *testing.T) {
	useConfig(t, newUpstream(t))

	stdout, _, err := execute(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, stdout, "process-local")
}

func TestValidateCommand(t *testing.T) {
	useConfig(t, newUpstream(t))

	stdout, _, err := execute(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration valid")
	assert.Contains(t, stdout, "Seed file valid: 2 providers (2 enabled)")

	dup := writeFile(t, "dup.yaml", "providers:\n  - name: a\n    max_output_cap: 1\n    timeout_seconds: 1\n  - name: a\n    max_output_cap: 1\n    timeout_seconds: 1\n")
	_, _, err = execute(t, "validate", "--seed", dup)
	assert.Equal(t, cli.ExitConfig, cli.ExitCode(err))
}

func TestCompletionCommand(t *testing.T) {
	stdout, _, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, stdout, "switchboard")
}
