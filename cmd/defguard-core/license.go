package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ed25519"

	"github.com/defguard/defguard-core/internal/config"
	"github.com/defguard/defguard-core/internal/license"
)

var licensePublicKeyB64 string

func init() {
	licenseVerifyCmd.Flags().StringVar(&licensePublicKeyB64, "public-key", "", "base64 ed25519 public key to verify against")
	licenseCmd.AddCommand(licenseShowCmd)
	licenseCmd.AddCommand(licenseVerifyCmd)
}

var licenseCmd = &cobra.Command{
	Use:   "license",
	Short: "inspect the cached enterprise license",
}

var licenseShowCmd = &cobra.Command{
	Use:   "show",
	Short: "print the currently cached license, if any",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		st, err := license.OpenStore(opts.License.CachePath)
		if err != nil {
			return fmt.Errorf("open license store: %w", err)
		}
		defer st.Close()
		l, err := st.Load()
		if err != nil {
			return fmt.Errorf("load license: %w", err)
		}
		if l == nil {
			cmd.Println("no license cached")
			return nil
		}
		cmd.Printf("subscription=%s issued_at=%s expires_at=%s max_users=%d max_locations=%d max_user_devices=%d max_network_devices=%d\n",
			l.Subscription, l.IssuedAt, l.ExpiresAt, l.MaxUsers, l.MaxLocations, l.MaxUserDevices, l.MaxNetworkDevices)
		return nil
	},
}

// licenseVerifyCmd is the defguard-certs-equivalent dev tool SPEC_FULL.md §4
// calls for: verify a license payload's ed25519 signature without running
// the full server, useful for debugging a license a customer reports as
// rejected.
var licenseVerifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "verify a signed license payload read from a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		keyRaw, err := base64.StdEncoding.DecodeString(licensePublicKeyB64)
		if err != nil {
			return fmt.Errorf("decode public key: %w", err)
		}
		l, err := license.Verify(raw, ed25519.PublicKey(keyRaw))
		if err != nil {
			return fmt.Errorf("verify: %w", err)
		}
		cmd.Printf("valid license: subscription=%s expires_at=%s\n", l.Subscription, l.ExpiresAt)
		return nil
	},
}
