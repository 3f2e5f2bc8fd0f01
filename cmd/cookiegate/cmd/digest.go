package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tai/cookiegate/crypt"
)

var (
	digestSecret string
	digestCipher string
	digestScheme string
	digestAt     string
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Print candidate window digests for a ciphertext",
	Long: `Print the verification digest for each time window the gate would
accept at the given moment. Useful when debugging why a sealed cookie
from a logon page is rejected (clock skew, wrong secret, wrong scheme).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if digestSecret == "" {
			return errors.New("--secret is required")
		}
		if digestCipher == "" {
			return errors.New("--cipher is required")
		}
		if _, err := hex.DecodeString(digestCipher); err != nil {
			return fmt.Errorf("--cipher is not valid hex: %w", err)
		}

		scheme, err := crypt.ParseScheme(digestScheme)
		if err != nil {
			return err
		}

		at := time.Now()
		if digestAt != "" {
			at, err = time.Parse(time.RFC3339, digestAt)
			if err != nil {
				return fmt.Errorf("parsing --at: %w", err)
			}
		}

		for w := at.Truncate(crypt.WindowQuantum); at.Sub(w) < crypt.WindowTolerance; w = w.Add(-crypt.WindowQuantum) {
			label := strconv.FormatInt(w.Unix(), 10)
			d := crypt.VerificationDigest(scheme, []byte(digestSecret), label, digestCipher)
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", label, hex.EncodeToString(d[:]))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(digestCmd)
	digestCmd.Flags().StringVar(&digestSecret, "secret", "", "Shared secret")
	digestCmd.Flags().StringVar(&digestCipher, "cipher", "", "Ciphertext as hex")
	digestCmd.Flags().StringVar(&digestScheme, "scheme", "hmac", "Digest scheme (hmac, md5)")
	digestCmd.Flags().StringVar(&digestAt, "at", "", "Evaluation time as RFC3339 (default: now)")
}
