// Command defguard-core runs the control-plane components described in
// internal/: license cache, counts cache, ACL compiler, client session
// tracker, gateway registry and bidi protocol, event router, audit log
// store, and activity stream manager.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a TOML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(licenseCmd)
	rootCmd.AddCommand(gatewayCmd)
}

var rootCmd = &cobra.Command{
	Use:   "defguard-core",
	Short: "defguard-core runs the VPN control-plane services",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
