// Package metrics aggregates per-address round histories into the
// trading quality measures the ranker consumes.
package metrics

import (
	"sort"

	"github.com/shopspring/decimal"

	"smartfollow/internal/rounds"
)

// Metrics summarises one address's round history. The zero value is the
// well-defined result for an empty history.
type Metrics struct {
	RoundCount        int
	WinCount          int
	WinRate           float64
	TotalPnL          decimal.Decimal
	AvgPnL            decimal.Decimal
	MedianHoldSeconds int64
	MaxDrawdown       decimal.Decimal
}

// pnlOf picks the comparison basis for one round: fiat when the round was
// priced, token units otherwise.
func pnlOf(v rounds.Valued) decimal.Decimal {
	if v.PnLUSD != nil {
		return *v.PnLUSD
	}
	return v.PnLTokens
}

// Aggregate computes Metrics over rounds in chronological entry order.
// Wins are rounds with strictly positive realized PnL. Max drawdown is
// the most negative gap between cumulative PnL and its running peak,
// zero when the walk never dips below a prior peak.
func Aggregate(history []rounds.Valued) Metrics {
	var m Metrics
	m.RoundCount = len(history)
	if m.RoundCount == 0 {
		return m
	}

	ordered := make([]rounds.Valued, len(history))
	copy(ordered, history)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EntryTS < ordered[j].EntryTS
	})

	holds := make([]int64, 0, len(ordered))
	cumulative := decimal.Zero
	peak := decimal.Zero
	drawdown := decimal.Zero
	for _, v := range ordered {
		pnl := pnlOf(v)
		if pnl.IsPositive() {
			m.WinCount++
		}
		m.TotalPnL = m.TotalPnL.Add(pnl)

		cumulative = cumulative.Add(pnl)
		if cumulative.GreaterThan(peak) {
			peak = cumulative
		}
		if gap := cumulative.Sub(peak); gap.LessThan(drawdown) {
			drawdown = gap
		}

		holds = append(holds, v.HoldSeconds)
	}

	m.WinRate = float64(m.WinCount) / float64(m.RoundCount)
	m.AvgPnL = m.TotalPnL.Div(decimal.NewFromInt(int64(m.RoundCount)))
	m.MaxDrawdown = drawdown
	m.MedianHoldSeconds = median(holds)
	return m
}

func median(values []int64) int64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
