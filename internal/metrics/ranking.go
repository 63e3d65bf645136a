package metrics

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Sort keys accepted by RankOptions.SortBy.
const (
	SortByWinRate  = "win_rate"
	SortByBalance  = "balance"
	SortByTotalPnL = "total_pnl"
)

// Scored pairs an address with its aggregated metrics and current native
// balance.
type Scored struct {
	Addr    string
	Metrics Metrics
	Balance decimal.Decimal
}

// RankOptions filters and orders scored addresses. A zero MaxBalance
// disables the upper balance bound.
type RankOptions struct {
	MinRounds  int
	MinWinRate float64
	MinBalance decimal.Decimal
	MaxBalance decimal.Decimal
	SortBy     string
	TopK       int
}

// FilterAndSort drops addresses outside the configured bands, orders the
// survivors by the primary key descending with a fixed tie-break chain
// (win rate, round count, average PnL, balance), and truncates to TopK.
func FilterAndSort(scored []Scored, opts RankOptions) []Scored {
	kept := make([]Scored, 0, len(scored))
	for _, s := range scored {
		if s.Metrics.RoundCount < opts.MinRounds {
			continue
		}
		if s.Metrics.WinRate < opts.MinWinRate {
			continue
		}
		if s.Balance.LessThan(opts.MinBalance) {
			continue
		}
		if !opts.MaxBalance.IsZero() && s.Balance.GreaterThan(opts.MaxBalance) {
			continue
		}
		kept = append(kept, s)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if c := comparePrimary(kept[i], kept[j], opts.SortBy); c != 0 {
			return c > 0
		}
		return compareTieBreak(kept[i], kept[j]) > 0
	})

	if opts.TopK > 0 && len(kept) > opts.TopK {
		kept = kept[:opts.TopK]
	}
	return kept
}

func comparePrimary(a, b Scored, sortBy string) int {
	switch sortBy {
	case SortByBalance:
		return a.Balance.Cmp(b.Balance)
	case SortByTotalPnL:
		return a.Metrics.TotalPnL.Cmp(b.Metrics.TotalPnL)
	default:
		return compareFloat(a.Metrics.WinRate, b.Metrics.WinRate)
	}
}

func compareTieBreak(a, b Scored) int {
	if c := compareFloat(a.Metrics.WinRate, b.Metrics.WinRate); c != 0 {
		return c
	}
	if a.Metrics.RoundCount != b.Metrics.RoundCount {
		if a.Metrics.RoundCount > b.Metrics.RoundCount {
			return 1
		}
		return -1
	}
	if c := a.Metrics.AvgPnL.Cmp(b.Metrics.AvgPnL); c != 0 {
		return c
	}
	return a.Balance.Cmp(b.Balance)
}

func compareFloat(a, b float64) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}
