package cli

import (
	"net/url"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(forceSetCmd)
	adminCmd.AddCommand(resetCmd)
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Privileged ledger corrections",
}

var forceSetCmd = &cobra.Command{
	Use:   "force-set LABEL VALUE",
	Short: "Overwrite the stored quantity for a category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := clientFrom(cmd)

		err := c.requireActor()
		if err != nil {
			return err
		}

		return c.do(cmd.Context(), cmd.OutOrStdout(), "PUT", "/admin/stock/"+url.PathEscape(args[0]), map[string]string{
			"value": args[1],
		})
	},
}

var resetCmd = &cobra.Command{
	Use:       "reset SCOPE",
	Short:     "Reset part of the ledger",
	Long:      `Reset part of the ledger. SCOPE is one of money, goods, leaderboard, all.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"money", "goods", "leaderboard", "all"},
	RunE: func(cmd *cobra.Command, args []string) error {
		c := clientFrom(cmd)

		err := c.requireActor()
		if err != nil {
			return err
		}

		return c.do(cmd.Context(), cmd.OutOrStdout(), "POST", "/admin/reset", map[string]string{
			"scope": args[0],
		})
	},
}
