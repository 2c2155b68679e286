package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/switchboard/pkg/cli"
	"mercator-hq/switchboard/pkg/config"
	"mercator-hq/switchboard/pkg/server"
	"mercator-hq/switchboard/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "switchboard",
	Short: "Switchboard - multi-provider LLM fan-out gateway",
	Long: `Switchboard sends one prompt to several LLM providers at once and
collects their answers.

It runs as an HTTP gateway providing:
  - Concurrent fan-out with per-provider timeouts and retries
  - Output caps and enablement resolved from a settings store
  - One SSE stream interleaving every provider's deltas
  - A uniform envelope with per-provider status, latency and usage`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the command's exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults plus SWITCHBOARD_* environment when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig returns a copy of the process configuration, loading it on
// first use.
func loadConfig() (*config.Config, error) {
	if cfg := config.GetConfig(); cfg != nil {
		c := *cfg
		return &c, nil
	}
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	c := *config.GetConfig()
	return &c, nil
}

// newLogger builds the process logger. Command diagnostics go to the
// command's stderr so stdout stays machine readable.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	lc := logging.FromConfig(cfg.Telemetry.Logging)
	if verbose {
		lc.Level = "debug"
	}
	lc.Writer = cmd.ErrOrStderr()

	logger, err := logging.New(lc)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return logger, nil
}

// openGateway builds the gateway components without listening. Commands
// that resolve settings or fan out in-process share the server's wiring.
func openGateway(cmd *cobra.Command) (*server.Server, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}

	srv, err := server.New(cmd.Context(), cfg, server.Options{
		Logger:    logger,
		BuildInfo: buildInfo(),
	})
	if err != nil {
		return nil, cli.NewCommandError(cmd.Name(), err)
	}
	return srv, nil
}
