package gateway

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"smartfollow/internal/chain/solana"
)

// LedgerSource is the slice of the Solana RPC surface the replayer needs.
type LedgerSource interface {
	GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]string, error)
	GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]solana.SignatureInfo, error)
	GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error)
	GetBlockTime(ctx context.Context, slot int64) (*int64, error)
}

// ReplayOptions tune per-owner transaction replay.
type ReplayOptions struct {
	// MaxTxs caps how many merged signatures are replayed per owner.
	MaxTxs int
	// Limiter throttles every RPC call; nil disables throttling.
	Limiter *rate.Limiter
}

// Replayer reconstructs an owner's balance-delta event stream for one
// mint by replaying the signatures of the owner's token accounts.
type Replayer struct {
	source LedgerSource
	opts   ReplayOptions
	logger zerolog.Logger
}

// NewReplayer builds a replayer over a ledger source.
func NewReplayer(source LedgerSource, opts ReplayOptions, logger zerolog.Logger) *Replayer {
	if opts.MaxTxs <= 0 {
		opts.MaxTxs = 600
	}
	return &Replayer{
		source: source,
		opts:   opts,
		logger: logger.With().Str("component", "gateway_replay").Logger(),
	}
}

func (r *Replayer) wait(ctx context.Context) error {
	if r.opts.Limiter == nil {
		return nil
	}
	return r.opts.Limiter.Wait(ctx)
}

// OwnerEvents replays the owner's recent transactions and returns the
// signed deltas for mint, ordered by ascending timestamp. Transactions
// that cannot be fetched are dropped; the returned count of such drops
// lets callers report gaps.
func (r *Replayer) OwnerEvents(ctx context.Context, owner, mint string) ([]Event, int, error) {
	sigs, err := r.mergedSignatures(ctx, owner, mint, nil)
	if err != nil {
		return nil, 0, err
	}
	return r.replay(ctx, sigs, owner, mint)
}

// OwnerEventsWindowed replays only signatures whose block time falls in
// [t0, t0+window], which cuts the getTransaction fan-out drastically.
func (r *Replayer) OwnerEventsWindowed(ctx context.Context, owner, mint string, t0 int64, window time.Duration) ([]Event, int, error) {
	t1 := t0 + int64(window/time.Second)
	keep := func(blockTime int64) bool { return blockTime >= t0 && blockTime <= t1 }

	sigs, err := r.mergedSignatures(ctx, owner, mint, keep)
	if err != nil {
		return nil, 0, err
	}
	return r.replay(ctx, sigs, owner, mint)
}

// mergedSignatures gathers the deduplicated signatures of every token
// account the owner holds for mint. A keep filter, when given, is applied
// on the provider-reported block time before any transaction fetch.
func (r *Replayer) mergedSignatures(ctx context.Context, owner, mint string, keep func(int64) bool) ([]string, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	accounts, err := r.source.GetTokenAccountsByOwner(ctx, owner, mint)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{})
	var sigs []string
	for _, account := range accounts {
		if err := r.wait(ctx); err != nil {
			return nil, err
		}
		batch, err := r.source.GetSignaturesForAddress(ctx, account, r.opts.MaxTxs)
		if err != nil {
			return nil, err
		}
		for _, s := range batch {
			if s.Signature == "" {
				continue
			}
			if keep != nil {
				if s.BlockTime == nil || !keep(*s.BlockTime) {
					continue
				}
			}
			if _, ok := seen[s.Signature]; ok {
				continue
			}
			seen[s.Signature] = struct{}{}
			sigs = append(sigs, s.Signature)
		}
	}

	if len(sigs) > r.opts.MaxTxs {
		sigs = sigs[:r.opts.MaxTxs]
	}
	return sigs, nil
}

func (r *Replayer) replay(ctx context.Context, sigs []string, owner, mint string) ([]Event, int, error) {
	var (
		events  []Event
		dropped int
	)
	for _, sig := range sigs {
		if err := ctx.Err(); err != nil {
			return events, dropped, err
		}
		if err := r.wait(ctx); err != nil {
			return events, dropped, err
		}

		tx, err := r.source.GetTransaction(ctx, sig)
		if err != nil || tx == nil {
			dropped++
			continue
		}

		ts, ok := r.txTime(ctx, tx)
		if !ok {
			dropped++
			continue
		}

		events = append(events, Event{
			Timestamp: ts,
			AmountRaw: OwnerDelta(tx, owner, mint),
		})
	}

	SortEvents(events)
	return events, dropped, nil
}

func (r *Replayer) txTime(ctx context.Context, tx *solana.Transaction) (int64, bool) {
	if tx.BlockTime != nil {
		return *tx.BlockTime, true
	}
	if tx.Slot == 0 {
		return 0, false
	}
	if err := r.wait(ctx); err != nil {
		return 0, false
	}
	bt, err := r.source.GetBlockTime(ctx, tx.Slot)
	if err != nil || bt == nil {
		return 0, false
	}
	return *bt, true
}

// OwnerDelta computes the owner's holding change for mint across one
// transaction from its pre/post token balance snapshots.
func OwnerDelta(tx *solana.Transaction, owner, mint string) int64 {
	var pre, post int64
	for _, b := range tx.PreTokenBalances {
		if b.Owner == owner && b.Mint == mint {
			pre = b.Amount
			break
		}
	}
	for _, b := range tx.PostTokenBalances {
		if b.Owner == owner && b.Mint == mint {
			post = b.Amount
			break
		}
	}
	return post - pre
}
