package cli

import (
	"github.com/spf13/cobra"

	"smartfollow/internal/app"
)

var (
	showChain  string
	showStatus string
	showLimit  int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show classified addresses",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Show(cmd.Context(), app.ShowOptions{
			Chain:  showChain,
			Status: showStatus,
			Limit:  showLimit,
		})
	},
}

func init() {
	showCmd.Flags().StringVar(&showChain, "chain", app.ChainSolana, "Chain to query (sol or evm)")
	showCmd.Flags().StringVar(&showStatus, "status", "", "Status to list (defaults to WHITE)")
	showCmd.Flags().IntVar(&showLimit, "limit", 50, "Maximum rows to print")
}
