package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cookiegate",
	Short: "CookieGate is a cookie based authentication gate",
	Long: `A reverse proxy that authenticates requests from an encrypted credential
cookie, exchanges the credential for a short-lived server-held token, and
injects a Basic Authorization header for the protected backend.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
