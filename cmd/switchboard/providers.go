package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/switchboard/pkg/cli"
	"mercator-hq/switchboard/pkg/proxy/handlers"
	"mercator-hq/switchboard/pkg/proxy/types"
)

var providersFlags struct {
	format string
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List providers with their resolved settings",
	Long: `List every provider known to the settings store, the compiled defaults
or the providers section of the config, with the settings a fan-out would
use right now.

Examples:
  switchboard providers
  switchboard providers --format json`,
	Args: cobra.NoArgs,
	RunE: listProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)

	providersCmd.Flags().StringVarP(&providersFlags.format, "format", "f", "text", "output format: text, json, csv")
}

type providerList []types.ProviderInfo

func (p providerList) Table() cli.Table {
	t := cli.Table{Headers: []string{"NAME", "TYPE", "ENABLED", "CREDENTIALS", "DEFAULT MODEL", "MAX OUTPUT", "SOURCE"}}
	for _, info := range p {
		t.Rows = append(t.Rows, []string{
			info.Name,
			orDash(info.Type),
			strconv.FormatBool(info.Enabled),
			strconv.FormatBool(info.HasCredentials),
			orDash(info.DefaultModel),
			strconv.Itoa(info.MaxOutputCap),
			string(info.Source),
		})
	}
	return t
}

func listProviders(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(providersFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	srv, err := openGateway(cmd)
	if err != nil {
		return err
	}
	defer srv.Close()

	list := providerList(handlers.ListProviders(cmd.Context(), srv.Resolver(), srv.Registry()))
	if len(list) == 0 && format == cli.FormatText {
		fmt.Fprintln(cmd.OutOrStdout(), "No providers configured.")
		return nil
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), list)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
