package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tai/cookiegate/crypt"
	"github.com/tai/cookiegate/ticket"
)

var (
	sealSecret   string
	sealUser     string
	sealPassword string
	sealScheme   string
	sealAt       string
)

var sealCmd = &cobra.Command{
	Use:   "seal",
	Short: "Produce a sealed credential cookie value",
	Long: `Seal a username and password into the encrypted cookie value a logon
page would set. The value is only accepted by the gate within the
verification window of the seal time, so pipe it straight into a request.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sealSecret == "" {
			return errors.New("--secret is required")
		}
		if sealUser == "" {
			return errors.New("--user is required")
		}

		scheme, err := crypt.ParseScheme(sealScheme)
		if err != nil {
			return err
		}

		at := time.Now()
		if sealAt != "" {
			at, err = time.Parse(time.RFC3339, sealAt)
			if err != nil {
				return fmt.Errorf("parsing --at: %w", err)
			}
		}

		cred := ticket.Credential{Username: sealUser, Secret: sealPassword}
		digestHex, cipherHex, err := crypt.Seal(scheme, []byte(sealSecret), []byte(cred.Encode()), at)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "crypt:%s:%s\n", digestHex, cipherHex)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sealCmd)
	sealCmd.Flags().StringVar(&sealSecret, "secret", "", "Shared secret")
	sealCmd.Flags().StringVar(&sealUser, "user", "", "Username to seal")
	sealCmd.Flags().StringVar(&sealPassword, "password", "", "Password to seal")
	sealCmd.Flags().StringVar(&sealScheme, "scheme", "hmac", "Digest scheme (hmac, md5)")
	sealCmd.Flags().StringVar(&sealAt, "at", "", "Seal time as RFC3339 (default: now)")
}
