// Package discovery finds candidate addresses for a token: current
// holder snapshots and early buyers replayed from the listing window.
package discovery

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"smartfollow/internal/chain/solana"
	"smartfollow/internal/gateway"
)

// HolderSource is the ledger surface the holder snapshot needs.
type HolderSource interface {
	GetTokenAccountsByMint(ctx context.Context, mint string) ([]solana.TokenAccount, error)
}

// Options tunes discovery scope.
type Options struct {
	// HolderTopN caps the holder snapshot by current amount.
	HolderTopN int
	// EarlyWindow bounds early-buyer replay to [t0, t0+EarlyWindow].
	EarlyWindow time.Duration
}

// Discoverer produces candidate address sets for one mint.
type Discoverer struct {
	holders  HolderSource
	replayer *gateway.Replayer
	opts     Options
	logger   zerolog.Logger
}

// NewDiscoverer builds a Discoverer. replayer may be nil when only
// holder snapshots are wanted.
func NewDiscoverer(holders HolderSource, replayer *gateway.Replayer, opts Options, logger zerolog.Logger) *Discoverer {
	if opts.HolderTopN <= 0 {
		opts.HolderTopN = 800
	}
	if opts.EarlyWindow <= 0 {
		opts.EarlyWindow = 2 * time.Hour
	}
	return &Discoverer{
		holders:  holders,
		replayer: replayer,
		opts:     opts,
		logger:   logger.With().Str("component", "discovery").Logger(),
	}
}

// HolderSnapshot returns the owners of the mint's largest current token
// accounts, deduplicated and ordered by descending amount. Owners that
// are not well-formed public keys are dropped and counted.
func (d *Discoverer) HolderSnapshot(ctx context.Context, mint string) ([]string, int, error) {
	accounts, err := d.holders.GetTokenAccountsByMint(ctx, mint)
	if err != nil {
		return nil, 0, err
	}

	byOwner := make(map[string]int64)
	malformed := 0
	for _, account := range accounts {
		if account.Amount <= 0 {
			continue
		}
		if !solana.ValidPubkey(account.Owner) {
			malformed++
			continue
		}
		byOwner[account.Owner] += account.Amount
	}

	type holder struct {
		owner  string
		amount int64
	}
	holders := make([]holder, 0, len(byOwner))
	for owner, amount := range byOwner {
		holders = append(holders, holder{owner: owner, amount: amount})
	}
	sort.SliceStable(holders, func(i, j int) bool {
		if holders[i].amount != holders[j].amount {
			return holders[i].amount > holders[j].amount
		}
		return holders[i].owner < holders[j].owner
	})

	limit := d.opts.HolderTopN
	if limit > len(holders) {
		limit = len(holders)
	}
	owners := make([]string, 0, limit)
	for _, h := range holders[:limit] {
		owners = append(owners, h.owner)
	}

	d.logger.Info().
		Str("mint", mint).
		Int("accounts", len(accounts)).
		Int("owners", len(owners)).
		Int("malformed", malformed).
		Msg("holder snapshot complete")
	return owners, malformed, nil
}

// EarlyBuyers replays each snapshot owner's activity inside the listing
// window and keeps the ones whose first observed delta there is a buy.
// Per-owner replay errors skip the owner rather than aborting the pass.
func (d *Discoverer) EarlyBuyers(ctx context.Context, mint string, owners []string, t0 int64) ([]string, error) {
	if d.replayer == nil {
		return nil, nil
	}

	var buyers []string
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return buyers, err
		}

		events, _, err := d.replayer.OwnerEventsWindowed(ctx, owner, mint, t0, d.opts.EarlyWindow)
		if err != nil {
			if ctx.Err() != nil {
				return buyers, err
			}
			d.logger.Warn().Err(err).Str("owner", owner).Msg("early replay failed, skipping owner")
			continue
		}
		if firstBuy(events) {
			buyers = append(buyers, owner)
		}
	}

	d.logger.Info().
		Str("mint", mint).
		Int("checked", len(owners)).
		Int("buyers", len(buyers)).
		Msg("early buyer replay complete")
	return buyers, nil
}

// firstBuy reports whether the first non-zero event is an inflow.
func firstBuy(events []gateway.Event) bool {
	for _, e := range events {
		if e.AmountRaw == 0 {
			continue
		}
		return e.AmountRaw > 0
	}
	return false
}
