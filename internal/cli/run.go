package cli

import (
	"github.com/spf13/cobra"

	"smartfollow/internal/app"
)

var runToken string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the periodic watch loop (re-verify, re-score, alert)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context(), app.RunOptions{Token: runToken})
	},
}

func init() {
	runCmd.Flags().StringVar(&runToken, "token", "", "Token mint address to watch")
	_ = runCmd.MarkFlagRequired("token")
}
