package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/switchboard/pkg/cli"
	"mercator-hq/switchboard/pkg/settings/store"
)

var seedFlags struct {
	file   string
	dryRun bool
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load provider settings rows into the settings store",
	Long: `Validate a YAML file of provider rows and upsert them into the configured
settings store. With the redis notifier configured, every written provider
is announced so running gateways drop their cached rows immediately.

The postgres backend is read-only to the gateway; apply rows there with
your migration tooling.

Seed file format:
  providers:
    - name: openai
      enabled: true
      default_model: gpt-4o-mini
      max_output_cap: 16384
      requests_per_minute: 500
      timeout_seconds: 60
      retry_count: 2
      temperature: 0.7

Examples:
  switchboard seed --file providers.yaml
  switchboard seed --file providers.yaml --dry-run`,
	Args: cobra.NoArgs,
	RunE: seedStore,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVar(&seedFlags.file, "file", "", "seed file (defaults to store.seed_file)")
	seedCmd.Flags().BoolVar(&seedFlags.dryRun, "dry-run", false, "validate rows without writing")
}

func seedStore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	path := seedFlags.file
	if path == "" {
		path = cfg.Store.SeedFile
	}
	if path == "" {
		return cli.NewConfigError("store.seed_file", "no seed file given; use --file")
	}

	rows, err := store.LoadSeed(path)
	if err != nil {
		return cli.NewConfigError("seed", err.Error())
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Seed file valid: %d providers\n", len(rows))
	if seedFlags.dryRun {
		return nil
	}
	if cfg.Store.Backend == store.BackendMemory {
		fmt.Fprintln(out, "memory backend is process-local; nothing written")
		return nil
	}

	ctx := cmd.Context()
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return cli.NewCommandError("seed", err)
	}
	defer st.Close()

	w, ok := st.(store.Writer)
	if !ok {
		return cli.NewCommandError("seed", fmt.Errorf("%s backend does not accept writes", cfg.Store.Backend))
	}

	n, err := store.Seed(ctx, w, rows)
	if err != nil {
		return cli.NewCommandError("seed", fmt.Errorf("wrote %d of %d rows: %w", n, len(rows), err))
	}
	fmt.Fprintf(out, "✓ Wrote %d providers to %s store\n", n, cfg.Store.Backend)

	if cfg.Store.Notifier.Type != store.NotifierRedis {
		return nil
	}

	notifier := store.NewRedisNotifier(cfg.Store.Notifier.Redis, cfg.Store.Notifier.Channel, logger)
	defer notifier.Close()

	var errs []error
	for _, row := range rows {
		errs = append(errs, notifier.Publish(ctx, row.Name))
	}
	if err := errors.Join(errs...); err != nil {
		// Rows are written; gateways pick them up when their cache expires.
		logger.Warn("failed to announce settings change", "error", err)
		return nil
	}
	fmt.Fprintf(out, "✓ Announced %d changes on %s\n", len(rows), cfg.Store.Notifier.Channel)
	return nil
}
