package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Run one classification cycle over pending candidates",
	RunE: func(cmd *cobra.Command, args []string) error {
		outcome, err := getApp().Classify(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "processed: %d\n", outcome.Processed)
		for status, count := range outcome.ByStatus {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d\n", status, count)
		}
		return nil
	},
}
