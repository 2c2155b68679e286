package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/switchboard/pkg/cli"
	"mercator-hq/switchboard/pkg/dispatch"
	"mercator-hq/switchboard/pkg/stream"
)

var askFlags struct {
	engines     []string
	maxTokens   int
	timeout     time.Duration
	temperature float64
	format      string
	events      bool
	noProgress  bool
}

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Fan a prompt out to providers without starting the gateway",
	Long: `Send one prompt to several providers in-process, using the same settings
resolution, caps, timeouts and retries as the gateway, and print the
aggregated envelope.

Engines are given as provider or provider:model. Without --engine every
enabled provider is asked.

Exit status is 0 when every provider succeeded, 3 when only some did and
1 when none did.

Examples:
  switchboard ask "Name three prime numbers"
  switchboard ask "Hello" --engine openai:gpt-4o --engine anthropic
  switchboard ask "Hello" --events          # NDJSON stream events, then the envelope
  switchboard ask "Hello" --format csv`,
	Args: cobra.ExactArgs(1),
	RunE: askProviders,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringArrayVarP(&askFlags.engines, "engine", "e", nil, "provider or provider:model (repeatable)")
	askCmd.Flags().IntVar(&askFlags.maxTokens, "max-tokens", 0, "requested output tokens, clamped to each provider's cap (default 4096)")
	askCmd.Flags().DurationVar(&askFlags.timeout, "timeout", 0, "per-provider timeout (default: each provider's setting)")
	askCmd.Flags().Float64Var(&askFlags.temperature, "temperature", 0, "sampling temperature override")
	askCmd.Flags().StringVarP(&askFlags.format, "format", "f", "text", "envelope format: text, json, csv")
	askCmd.Flags().BoolVar(&askFlags.events, "events", false, "print each stream event as a JSON line")
	askCmd.Flags().BoolVar(&askFlags.noProgress, "no-progress", false, "do not report progress on stderr")
}

// parseEngines splits provider:model pairs. Only the first colon
// separates, so model tags such as llama3:8b survive.
func parseEngines(specs []string) ([]dispatch.Target, error) {
	targets := make([]dispatch.Target, 0, len(specs))
	for _, spec := range specs {
		provider, model, _ := strings.Cut(spec, ":")
		provider = strings.TrimSpace(provider)
		if provider == "" {
			return nil, cli.NewConfigError("engine", fmt.Sprintf("invalid engine %q", spec))
		}
		targets = append(targets, dispatch.Target{Provider: provider, Model: strings.TrimSpace(model)})
	}
	return targets, nil
}

type envelopeView struct {
	*dispatch.Envelope
}

func (v envelopeView) Table() cli.Table {
	t := cli.Table{Headers: []string{"PROVIDER", "MODEL", "STATUS", "LATENCY_MS", "INPUT_TOKENS", "OUTPUT_TOKENS", "ATTEMPTS", "ERROR"}}
	for _, r := range v.Responses {
		var usage dispatch.Usage
		if r.Usage != nil {
			usage = *r.Usage
		}
		t.Rows = append(t.Rows, []string{
			r.Provider,
			r.Model,
			string(r.Status),
			strconv.FormatInt(r.LatencyMS, 10),
			strconv.Itoa(usage.Input),
			strconv.Itoa(usage.Output),
			strconv.Itoa(r.Attempts),
			r.Error,
		})
	}
	return t
}

func askProviders(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(askFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}
	targets, err := parseEngines(askFlags.engines)
	if err != nil {
		return err
	}

	req := dispatch.Request{
		Caller:    "cli",
		Prompt:    args[0],
		MaxTokens: askFlags.maxTokens,
		Targets:   targets,
		Timeout:   askFlags.timeout,
	}
	if cmd.Flags().Changed("temperature") {
		temp := askFlags.temperature
		req.Temperature = &temp
	}

	srv, err := openGateway(cmd)
	if err != nil {
		return err
	}
	defer srv.Close()

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	events, result, err := srv.Dispatcher().Stream(ctx, req)
	if err != nil {
		return cli.NewCommandError("ask", err)
	}

	total := len(targets)
	if total == 0 {
		total = len(srv.Resolver().EnabledProviders(ctx))
	}

	var progress cli.ProgressReporter
	if !askFlags.noProgress && !askFlags.events {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr(), "Providers")
		progress.Start(total)
	}

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	for ev := range events {
		if askFlags.events {
			if err := enc.Encode(ev); err != nil {
				return err
			}
		}
		if ev.Terminal() && progress != nil {
			progress.Settle(ev.Provider, ev.Type == stream.EventFailed)
		}
	}
	env := <-result
	if progress != nil {
		progress.Finish()
	}

	switch {
	case askFlags.events:
		err = enc.Encode(env)
	case format == cli.FormatText:
		err = printEnvelope(out, env)
	case format == cli.FormatCSV:
		err = cli.NewFormatter(format).FormatTo(out, envelopeView{env})
	default:
		err = cli.NewFormatter(format).FormatTo(out, env)
	}
	if err != nil {
		return err
	}

	return envelopeOutcome(env)
}

// envelopeOutcome maps partial and total failure to exit codes.
func envelopeOutcome(env *dispatch.Envelope) error {
	switch {
	case env.Meta.Failed == 0:
		return nil
	case env.Meta.Successful > 0:
		return &cli.CommandError{
			Command: "ask",
			Code:    cli.ExitPartial,
			Err:     fmt.Errorf("%d of %d providers failed", env.Meta.Failed, env.Meta.TotalEngines),
		}
	default:
		return cli.NewCommandError("ask", fmt.Errorf("all %d providers failed", env.Meta.TotalEngines))
	}
}

func printEnvelope(w io.Writer, env *dispatch.Envelope) error {
	for _, r := range env.Responses {
		fmt.Fprintf(w, "== %s (%s) %s in %dms", r.Provider, orDash(r.Model), r.Status, r.LatencyMS)
		if r.Usage != nil {
			fmt.Fprintf(w, ", %d+%d tokens", r.Usage.Input, r.Usage.Output)
		}
		if r.Clamped {
			fmt.Fprintf(w, ", clamped to %d", r.EffectiveMaxTokens)
		}
		fmt.Fprintln(w)

		switch {
		case r.Content != nil:
			fmt.Fprintln(w, *r.Content)
			if r.Truncated {
				fmt.Fprintln(w, "[truncated]")
			}
		case r.Error != "":
			fmt.Fprintf(w, "error (%s): %s\n", r.ErrorKind, r.Error)
		}
		fmt.Fprintln(w)
	}

	_, err := fmt.Fprintf(w, "%d engines: %d succeeded, %d failed in %dms\n",
		env.Meta.TotalEngines, env.Meta.Successful, env.Meta.Failed, env.Meta.TotalLatencyMS)
	return err
}
