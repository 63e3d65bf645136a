package cli

import (
	"github.com/spf13/cobra"

	"smartfollow/internal/app"
)

var (
	scanChain string
	scanToken string
	scanEarly bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover candidate addresses for a token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Scan(cmd.Context(), app.ScanOptions{
			Chain:       scanChain,
			Token:       scanToken,
			EarlyBuyers: scanEarly,
		})
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanChain, "chain", app.ChainSolana, "Chain to scan (sol or evm)")
	scanCmd.Flags().StringVar(&scanToken, "token", "", "Token mint or contract address")
	scanCmd.Flags().BoolVar(&scanEarly, "early-buyers", false, "Also replay the listing window for early buyers")
	_ = scanCmd.MarkFlagRequired("token")
}
