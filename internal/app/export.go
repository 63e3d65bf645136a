package app

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
)

func writeRankCSV(path string, rows []RankedRow) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"rank", "addr", "round_count", "win_count", "win_rate", "total_pnl", "avg_pnl", "median_hold_seconds", "max_drawdown", "balance_sol", "dropped_txs"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		m := row.Score.Metrics
		record := []string{
			strconv.Itoa(row.Rank),
			row.Score.Addr,
			strconv.Itoa(m.RoundCount),
			strconv.Itoa(m.WinCount),
			strconv.FormatFloat(m.WinRate, 'f', 4, 64),
			m.TotalPnL.String(),
			m.AvgPnL.String(),
			strconv.FormatInt(m.MedianHoldSeconds, 10),
			m.MaxDrawdown.String(),
			row.Score.Balance.String(),
			strconv.Itoa(row.Detail.DroppedTxs),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return writer.Error()
}

func writeRankTXT(path, token string, rows []RankedRow) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("token: %s\n", token))
	builder.WriteString(fmt.Sprintf("ranked: %d\n\n", len(rows)))
	for _, row := range rows {
		m := row.Score.Metrics
		builder.WriteString(fmt.Sprintf("#%d %s\n", row.Rank, row.Score.Addr))
		builder.WriteString(fmt.Sprintf("  rounds=%d wins=%d win_rate=%.2f\n", m.RoundCount, m.WinCount, m.WinRate))
		builder.WriteString(fmt.Sprintf("  total_pnl=%s avg_pnl=%s drawdown=%s\n", m.TotalPnL.StringFixed(4), m.AvgPnL.StringFixed(4), m.MaxDrawdown.StringFixed(4)))
		builder.WriteString(fmt.Sprintf("  median_hold=%ds balance=%s SOL\n", m.MedianHoldSeconds, row.Score.Balance.StringFixed(3)))
		if len(row.Detail.Buckets) > 0 {
			builder.WriteString("  entries: " + formatBuckets(row.Detail.Buckets) + "\n")
		}
	}
	return os.WriteFile(path, []byte(builder.String()), 0o644)
}

func formatBuckets(buckets map[string]int) string {
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, buckets[k]))
	}
	return strings.Join(parts, " ")
}

const pngMaxBars = 30

func writeRankPNG(path string, rows []RankedRow) error {
	if len(rows) == 0 {
		return nil
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	shown := rows
	if len(shown) > pngMaxBars {
		shown = shown[:pngMaxBars]
	}

	bars := make([]chart.Value, 0, len(shown))
	for _, row := range shown {
		bars = append(bars, chart.Value{
			Label: shortAddr(row.Score.Addr),
			Value: row.Score.Metrics.WinRate * 100,
		})
	}

	graph := chart.BarChart{
		Title:    "Win rate by address (%)",
		Width:    1280,
		Height:   720,
		BarWidth: 30,
		Bars:     bars,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
		},
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func shortAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:4] + ".." + addr[len(addr)-4:]
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
