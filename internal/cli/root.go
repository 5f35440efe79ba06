// Package cli implements stashctl, a thin command-line client for the
// reconciliation API.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

const (
	envServer = "STASHCTL_SERVER"
	envActor  = "STASHCTL_ACTOR"
)

var rootCmd = &cobra.Command{
	Use:   "stashctl",
	Short: "Inspect and operate a stashledger server",
	Long: `stashctl talks to a running stashledger API.

Every mutating command is sent on behalf of an actor (--actor or
STASHCTL_ACTOR). Administrative commands only succeed for actors the server
lists in ADMIN_ACTORS.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("server", "s", envOr(envServer, "http://localhost:8080"), "API base URL")
	rootCmd.PersistentFlags().StringP("actor", "a", os.Getenv(envActor), "Actor ID sent as X-Actor-ID")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
