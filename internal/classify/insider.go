package classify

import (
	"context"

	"smartfollow/internal/chain/solana"
)

// LargestHolderSource exposes the ledger call the insider heuristic needs.
type LargestHolderSource interface {
	GetTokenLargestAccounts(ctx context.Context, mint string) ([]solana.LargestAccount, error)
}

// InsiderChecker flags addresses overlapping the token's largest-holder
// set. A probe failure resolves to false: the heuristic errs toward
// keeping a potentially legitimate address, never toward discarding it.
type InsiderChecker struct {
	source LargestHolderSource
	topN   int
}

func NewInsiderChecker(source LargestHolderSource, topN int) *InsiderChecker {
	return &InsiderChecker{source: source, topN: topN}
}

// IsInsiderLike reports whether addr sits among the token's topN largest
// current holders. Fail-open: any lookup error returns false.
func (ic *InsiderChecker) IsInsiderLike(ctx context.Context, addr, token string) bool {
	accounts, err := ic.source.GetTokenLargestAccounts(ctx, token)
	if err != nil {
		return false
	}
	limit := ic.topN
	if limit > len(accounts) {
		limit = len(accounts)
	}
	for _, account := range accounts[:limit] {
		if account.Address == addr {
			return true
		}
	}
	return false
}
