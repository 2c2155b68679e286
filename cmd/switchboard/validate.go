package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/switchboard/pkg/cli"
	"mercator-hq/switchboard/pkg/config"
	"mercator-hq/switchboard/pkg/settings/store"
)

var validateFlags struct {
	seedFile string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and seed file",
	Long: `Validate the configuration (file, defaults and SWITCHBOARD_* environment)
and, when one is given or configured, the provider seed file. Nothing is
opened or written.

Examples:
  switchboard validate --config switchboard.yaml
  switchboard validate --seed providers.yaml`,
	Args: cobra.NoArgs,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.seedFile, "seed", "", "seed file to validate (defaults to store.seed_file)")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "✓ Configuration valid")
	fmt.Fprintf(out, "  providers section: %d entries\n", len(cfg.Providers))
	fmt.Fprintf(out, "  settings store: %s (notifier %s)\n", cfg.Store.Backend, cfg.Store.Notifier.Type)

	path := validateFlags.seedFile
	if path == "" {
		path = cfg.Store.SeedFile
	}
	if path == "" {
		return nil
	}

	rows, err := store.LoadSeed(path)
	if err != nil {
		return cli.NewConfigError("seed", err.Error())
	}
	enabled := 0
	for _, row := range rows {
		if row.Enabled {
			enabled++
		}
	}
	fmt.Fprintf(out, "✓ Seed file valid: %d providers (%d enabled)\n", len(rows), enabled)
	return nil
}
