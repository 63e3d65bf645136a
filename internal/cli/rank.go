package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"smartfollow/internal/app"
)

var (
	rankToken  string
	rankStatus string
	rankLimit  int
	rankCSV    string
	rankTXT    string
	rankPNG    string
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Score classified addresses and print the ranked set",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := getApp().Rank(cmd.Context(), app.RankOptions{
			Token:   rankToken,
			Status:  rankStatus,
			Limit:   rankLimit,
			CSVPath: rankCSV,
			TXTPath: rankTXT,
			PNGPath: rankPNG,
		})
		if err != nil {
			return err
		}

		for _, row := range rows {
			m := row.Score.Metrics
			fmt.Fprintf(cmd.OutOrStdout(), "#%-3d %s  win=%.2f rounds=%d pnl=%s bal=%s\n",
				row.Rank, row.Score.Addr, m.WinRate, m.RoundCount, m.TotalPnL.StringFixed(4), row.Score.Balance.StringFixed(3))
		}
		return nil
	},
}

func init() {
	rankCmd.Flags().StringVar(&rankToken, "token", "", "Token mint address")
	rankCmd.Flags().StringVar(&rankStatus, "status", "", "Status set to score (defaults to WHITE)")
	rankCmd.Flags().IntVar(&rankLimit, "limit", 0, "Maximum addresses to score (defaults to config)")
	rankCmd.Flags().StringVar(&rankCSV, "csv", "", "Path to write ranked rows as CSV")
	rankCmd.Flags().StringVar(&rankTXT, "txt", "", "Path to write a readable ranking report")
	rankCmd.Flags().StringVar(&rankPNG, "png", "", "Path to write a win-rate bar chart")
	_ = rankCmd.MarkFlagRequired("token")
}
