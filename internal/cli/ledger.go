package cli

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(actorCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(snapshotCmd)

	journalCmd.Flags().IntP("limit", "n", 50, "Number of entries, newest first")

	submitCmd.Flags().StringP("label", "l", "", "Item label, e.g. \"Clean Money\"")
	submitCmd.Flags().StringP("target", "t", "", "Actor the transaction is on behalf of")

	snapshotCmd.Flags().StringP("file", "f", "", "File with recognized inventory text (- for stdin)")
	snapshotCmd.Flags().StringP("target", "t", "", "Actor the snapshot is on behalf of")
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Show storage, actor statistics and pending credit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return clientFrom(cmd).do(cmd.Context(), cmd.OutOrStdout(), "GET", "/ledger", nil)
	},
}

var actorCmd = &cobra.Command{
	Use:   "actor ACTOR_ID",
	Short: "Show one actor's statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return clientFrom(cmd).do(cmd.Context(), cmd.OutOrStdout(), "GET", "/ledger/actors/"+url.PathEscape(args[0]), nil)
	},
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List recent reconciliation results",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		return clientFrom(cmd).do(cmd.Context(), cmd.OutOrStdout(), "GET", "/journal?limit="+strconv.Itoa(limit), nil)
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit KIND AMOUNT",
	Short: "Submit a manual transaction",
	Long: `Submit a manual transaction.

KIND is one of take_goods, deposit_goods, deposit_funds, withdraw_funds.
AMOUNT accepts thousands separators, e.g. 12,000.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := clientFrom(cmd)

		err := c.requireActor()
		if err != nil {
			return err
		}

		label, _ := cmd.Flags().GetString("label")
		target, _ := cmd.Flags().GetString("target")

		return c.do(cmd.Context(), cmd.OutOrStdout(), "POST", "/transactions", map[string]string{
			"kind":   args[0],
			"amount": args[1],
			"label":  label,
			"target": target,
		})
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Report an inventory snapshot from recognized text",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c := clientFrom(cmd)

		err := c.requireActor()
		if err != nil {
			return err
		}

		path, _ := cmd.Flags().GetString("file")
		target, _ := cmd.Flags().GetString("target")

		text, err := readText(cmd, path)
		if err != nil {
			return err
		}

		return c.do(cmd.Context(), cmd.OutOrStdout(), "POST", "/snapshots/text", map[string]string{
			"text":   text,
			"target": target,
		})
	},
}

func readText(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)

	switch path {
	case "":
		return "", fmt.Errorf("input required: stashctl snapshot -f <file>")
	case "-":
		var sb bytes.Buffer

		_, err = sb.ReadFrom(cmd.InOrStdin())
		data = []byte(sb.String())
	default:
		data, err = os.ReadFile(path)
	}

	if err != nil {
		return "", fmt.Errorf("read snapshot text: %w", err)
	}

	return string(data), nil
}
