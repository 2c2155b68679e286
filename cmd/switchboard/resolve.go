package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"mercator-hq/switchboard/pkg/cli"
	"mercator-hq/switchboard/pkg/settings"
)

var resolveFlags struct {
	fields      []string
	model       string
	timeout     int
	temperature float64
	format      string
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <provider>",
	Short: "Show where each provider setting comes from",
	Long: `Resolve provider settings through the same layers a fan-out uses
(request override, cache, store, compiled default) and show which layer
answered and why the others did not.

Override flags simulate the per-request values a caller may send.

Examples:
  # Every field
  switchboard resolve openai

  # One field, with a simulated request override
  switchboard resolve openai --field default_model --model gpt-4o

  # Machine readable
  switchboard resolve anthropic --format json`,
	Args: cobra.ExactArgs(1),
	RunE: resolveProvider,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringSliceVar(&resolveFlags.fields, "field", nil, "fields to resolve (repeatable; default all)")
	resolveCmd.Flags().StringVar(&resolveFlags.model, "model", "", "simulate a request model override")
	resolveCmd.Flags().IntVar(&resolveFlags.timeout, "timeout-seconds", 0, "simulate a request timeout override")
	resolveCmd.Flags().Float64Var(&resolveFlags.temperature, "temperature", 0, "simulate a request temperature override")
	resolveCmd.Flags().StringVarP(&resolveFlags.format, "format", "f", "text", "output format: text, json, csv")
}

type resolutionRow struct {
	Field  settings.Field  `json:"field"`
	Value  any             `json:"value"`
	Source settings.Source `json:"source"`
	Trace  string          `json:"trace"`
}

type resolutionList []resolutionRow

func (r resolutionList) Table() cli.Table {
	t := cli.Table{Headers: []string{"FIELD", "VALUE", "SOURCE", "TRACE"}}
	for _, row := range r {
		value := "-"
		if row.Value != nil {
			value = fmt.Sprint(row.Value)
		}
		t.Rows = append(t.Rows, []string{string(row.Field), value, string(row.Source), row.Trace})
	}
	return t
}

func parseFields(names []string) ([]settings.Field, error) {
	if len(names) == 0 {
		return settings.Fields, nil
	}
	fields := make([]settings.Field, 0, len(names))
	for _, name := range names {
		f := settings.Field(name)
		if !slices.Contains(settings.Fields, f) {
			return nil, cli.NewConfigError("field", fmt.Sprintf("unknown field %q", name))
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func resolveProvider(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(resolveFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}
	fields, err := parseFields(resolveFlags.fields)
	if err != nil {
		return err
	}

	var ov *settings.Overrides
	if resolveFlags.model != "" || resolveFlags.timeout > 0 || cmd.Flags().Changed("temperature") {
		ov = &settings.Overrides{Model: resolveFlags.model, TimeoutSeconds: resolveFlags.timeout}
		if cmd.Flags().Changed("temperature") {
			temp := resolveFlags.temperature
			ov.Temperature = &temp
		}
	}

	srv, err := openGateway(cmd)
	if err != nil {
		return err
	}
	defer srv.Close()

	provider := args[0]
	rows := make(resolutionList, 0, len(fields))
	for _, field := range fields {
		res := srv.Resolver().Resolve(cmd.Context(), settings.Scope{Provider: provider, Field: field}, ov)
		rows = append(rows, resolutionRow{
			Field:  field,
			Value:  res.Value,
			Source: res.Source,
			Trace:  res.Trace.String(),
		})
	}

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), rows); err != nil {
		return err
	}
	if format == cli.FormatText && !slices.ContainsFunc(rows, func(r resolutionRow) bool { return r.Source != settings.SourceNone }) {
		fmt.Fprintf(cmd.ErrOrStderr(), "provider %q is unknown to every layer\n", provider)
	}
	return nil
}
