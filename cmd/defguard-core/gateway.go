package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "inspect gateway registry state",
}

func init() {
	gatewayCmd.AddCommand(gatewayLsCmd)
}

// gatewayLsCmd is a placeholder for listing the in-process gateway
// registry of a running `serve` instance. Registry state lives in that
// process's memory and the administrative API that would expose it over
// the network is a Non-goal (SPEC_FULL.md §5); this subcommand exists so
// the CLI surface matches the domain stack table's `gateway ls` entry, and
// a deployment that adds the admin API wires it to call
// internal/gateway.Registry.ListByLocation through that transport instead
// of duplicating registry bookkeeping in the CLI process.
var gatewayLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "list connected gateways (requires a running instance's admin API)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("gateway ls: no admin API endpoint configured; see internal/gateway.Registry.ListByLocation for the data it would query")
	},
}
