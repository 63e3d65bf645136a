package metrics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartfollow/internal/rounds"
)

func valued(entryTS, hold int64, pnl float64) rounds.Valued {
	usd := decimal.NewFromFloat(pnl)
	return rounds.Valued{
		Round:  rounds.Round{EntryTS: entryTS, HoldSeconds: hold},
		PnLUSD: &usd,
	}
}

func TestAggregateEmptyHistory(t *testing.T) {
	m := Aggregate(nil)
	assert.Zero(t, m.RoundCount)
	assert.Zero(t, m.WinCount)
	assert.Zero(t, m.WinRate)
	assert.True(t, m.TotalPnL.IsZero())
	assert.True(t, m.AvgPnL.IsZero())
	assert.True(t, m.MaxDrawdown.IsZero())
	assert.Zero(t, m.MedianHoldSeconds)
}

func TestAggregateWinRateAndPnL(t *testing.T) {
	history := []rounds.Valued{
		valued(100, 50, 10),
		valued(200, 150, -4),
		valued(300, 100, 6),
		valued(400, 200, 0),
	}

	m := Aggregate(history)
	assert.Equal(t, 4, m.RoundCount)
	// Zero PnL is not a win.
	assert.Equal(t, 2, m.WinCount)
	assert.InDelta(t, 0.5, m.WinRate, 1e-9)
	assert.True(t, m.TotalPnL.Equal(decimal.NewFromInt(12)))
	assert.True(t, m.AvgPnL.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, int64(125), m.MedianHoldSeconds)
}

func TestAggregateMaxDrawdown(t *testing.T) {
	// Cumulative walk: 10, 4, 12, 3, 7 → peak 12, trough 3.
	history := []rounds.Valued{
		valued(1, 0, 10),
		valued(2, 0, -6),
		valued(3, 0, 8),
		valued(4, 0, -9),
		valued(5, 0, 4),
	}

	m := Aggregate(history)
	assert.True(t, m.MaxDrawdown.Equal(decimal.NewFromInt(-9)), "got %s", m.MaxDrawdown)
}

func TestAggregateDrawdownZeroWhenMonotonic(t *testing.T) {
	history := []rounds.Valued{valued(1, 0, 1), valued(2, 0, 2)}
	m := Aggregate(history)
	assert.True(t, m.MaxDrawdown.IsZero())
}

func TestAggregateDrawdownOrdersByEntry(t *testing.T) {
	// Same rounds, entry order reversed in the slice: the walk must
	// follow chronological order, not slice order.
	history := []rounds.Valued{
		valued(5, 0, 4),
		valued(4, 0, -9),
		valued(3, 0, 8),
		valued(2, 0, -6),
		valued(1, 0, 10),
	}
	m := Aggregate(history)
	assert.True(t, m.MaxDrawdown.Equal(decimal.NewFromInt(-9)))
}

func TestAggregateUnpricedRoundsUseTokenUnits(t *testing.T) {
	history := []rounds.Valued{
		{Round: rounds.Round{EntryTS: 1}, PnLTokens: decimal.NewFromInt(5)},
		{Round: rounds.Round{EntryTS: 2}, PnLTokens: decimal.NewFromInt(-2)},
	}
	m := Aggregate(history)
	assert.Equal(t, 1, m.WinCount)
	assert.True(t, m.TotalPnL.Equal(decimal.NewFromInt(3)))
}

func TestMedianOddAndEven(t *testing.T) {
	assert.Equal(t, int64(3), median([]int64{5, 1, 3}))
	assert.Equal(t, int64(1), median([]int64{1, 3, 2, 1}))
	assert.Equal(t, int64(2), median([]int64{1, 3, 2, 2}))
	assert.Equal(t, int64(0), median(nil))
}

func scored(addr string, winRate float64, roundCount int, totalPnL, balance int64) Scored {
	return Scored{
		Addr: addr,
		Metrics: Metrics{
			RoundCount: roundCount,
			WinRate:    winRate,
			TotalPnL:   decimal.NewFromInt(totalPnL),
			AvgPnL:     decimal.NewFromInt(totalPnL / int64(max(roundCount, 1))),
		},
		Balance: decimal.NewFromInt(balance),
	}
}

func TestFilterAndSortFilters(t *testing.T) {
	input := []Scored{
		scored("a", 0.9, 10, 100, 5),
		scored("few-rounds", 0.9, 1, 100, 5),
		scored("low-win", 0.2, 10, 100, 5),
		scored("poor", 0.9, 10, 100, 0),
		scored("whale", 0.9, 10, 100, 1000),
	}

	out := FilterAndSort(input, RankOptions{
		MinRounds:  3,
		MinWinRate: 0.5,
		MinBalance: decimal.NewFromInt(1),
		MaxBalance: decimal.NewFromInt(100),
		SortBy:     SortByWinRate,
	})

	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].Addr)
}

func TestFilterAndSortZeroMaxBalanceDisablesUpperBound(t *testing.T) {
	input := []Scored{scored("whale", 0.9, 10, 100, 1_000_000)}
	out := FilterAndSort(input, RankOptions{SortBy: SortByWinRate})
	assert.Len(t, out, 1)
}

func TestFilterAndSortPrimaryKeys(t *testing.T) {
	input := []Scored{
		scored("a", 0.5, 5, 300, 10),
		scored("b", 0.9, 5, 100, 20),
		scored("c", 0.7, 5, 200, 30),
	}

	byWin := FilterAndSort(input, RankOptions{SortBy: SortByWinRate})
	assert.Equal(t, []string{"b", "c", "a"}, addrsOf(byWin))

	byPnL := FilterAndSort(input, RankOptions{SortBy: SortByTotalPnL})
	assert.Equal(t, []string{"a", "c", "b"}, addrsOf(byPnL))

	byBalance := FilterAndSort(input, RankOptions{SortBy: SortByBalance})
	assert.Equal(t, []string{"c", "b", "a"}, addrsOf(byBalance))
}

func TestFilterAndSortTieBreaks(t *testing.T) {
	// Equal total PnL: ties resolve by win rate, then round count, then
	// average PnL, then balance, all descending.
	input := []Scored{
		scored("low-win", 0.5, 5, 100, 10),
		scored("high-win", 0.8, 5, 100, 10),
		{
			Addr: "more-rounds",
			Metrics: Metrics{
				RoundCount: 9,
				WinRate:    0.8,
				TotalPnL:   decimal.NewFromInt(100),
				AvgPnL:     decimal.NewFromInt(11),
			},
			Balance: decimal.NewFromInt(10),
		},
	}

	out := FilterAndSort(input, RankOptions{SortBy: SortByTotalPnL})
	assert.Equal(t, []string{"more-rounds", "high-win", "low-win"}, addrsOf(out))
}

func TestFilterAndSortTopK(t *testing.T) {
	input := []Scored{
		scored("a", 0.9, 5, 1, 1),
		scored("b", 0.8, 5, 1, 1),
		scored("c", 0.7, 5, 1, 1),
	}
	out := FilterAndSort(input, RankOptions{SortBy: SortByWinRate, TopK: 2})
	assert.Equal(t, []string{"a", "b"}, addrsOf(out))
}

func addrsOf(scored []Scored) []string {
	out := make([]string, 0, len(scored))
	for _, s := range scored {
		out = append(out, s.Addr)
	}
	return out
}
