// Package epoch estimates a token's listing epoch (T0) and buckets round
// entry times against it.
package epoch

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"smartfollow/internal/chain/solana"
)

// Evidence is the slice of the RPC surface the estimator samples.
type Evidence interface {
	GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]solana.SignatureInfo, error)
	GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error)
	GetBlockTime(ctx context.Context, slot int64) (*int64, error)
	GetTokenLargestAccounts(ctx context.Context, mint string) ([]solana.LargestAccount, error)
	GetTokenAccountsByMint(ctx context.Context, mint string) ([]solana.TokenAccount, error)
	GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]string, error)
}

// Sample sizes per evidence class.
const (
	mintSignatureSample    = 20
	largestAccountSample   = 10
	holderSignatureSample  = 10
	holderUniversePoolSize = 500
)

// Options tune the estimator.
type Options struct {
	// Limiter throttles every RPC call; nil disables throttling.
	Limiter *rate.Limiter
	// Seed fixes holder subsampling for reproducible runs; 0 seeds from
	// the clock.
	Seed int64
}

// Estimator derives a heuristic listing epoch for a mint.
//
// The estimate is a lower bound by construction and is biased downward:
// evidence is drawn from addresses still holding the token today. That
// bias is part of the contract, not a defect to correct.
type Estimator struct {
	source Evidence
	opts   Options
	rng    *rand.Rand
	logger zerolog.Logger
}

// NewEstimator constructs an estimator over an evidence source.
func NewEstimator(source Evidence, opts Options, logger zerolog.Logger) *Estimator {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Estimator{
		source: source,
		opts:   opts,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger.With().Str("component", "epoch_estimator").Logger(),
	}
}

func (e *Estimator) wait(ctx context.Context) {
	if e.opts.Limiter != nil {
		_ = e.opts.Limiter.Wait(ctx)
	}
}

// Estimate samples three evidence classes and returns the minimum
// observed transaction time, or nil when no evidence could be gathered.
// A failing evidence class contributes nothing and never aborts the rest.
func (e *Estimator) Estimate(ctx context.Context, mint string, holderBudget int) *int64 {
	var candidates []int64

	candidates = append(candidates, e.mintEvidence(ctx, mint)...)
	candidates = append(candidates, e.largestHolderEvidence(ctx, mint)...)
	candidates = append(candidates, e.holderSampleEvidence(ctx, mint, holderBudget)...)

	if len(candidates) == 0 {
		e.logger.Debug().Str("mint", mint).Msg("no listing-epoch evidence gathered")
		return nil
	}

	t0 := candidates[0]
	for _, t := range candidates[1:] {
		if t < t0 {
			t0 = t
		}
	}
	return &t0
}

// mintEvidence samples the token account's own earliest observable
// transactions.
func (e *Estimator) mintEvidence(ctx context.Context, mint string) []int64 {
	e.wait(ctx)
	sigs, err := e.source.GetSignaturesForAddress(ctx, mint, mintSignatureSample)
	if err != nil {
		e.logger.Debug().Err(err).Msg("mint signature evidence unavailable")
		return nil
	}
	return e.signatureTimes(ctx, sigs)
}

// largestHolderEvidence samples the earliest transactions of the largest
// current token accounts, which usually include the initial injections.
func (e *Estimator) largestHolderEvidence(ctx context.Context, mint string) []int64 {
	e.wait(ctx)
	largest, err := e.source.GetTokenLargestAccounts(ctx, mint)
	if err != nil {
		e.logger.Debug().Err(err).Msg("largest-account evidence unavailable")
		return nil
	}
	if len(largest) > largestAccountSample {
		largest = largest[:largestAccountSample]
	}

	var times []int64
	for _, acc := range largest {
		if acc.Address == "" {
			continue
		}
		e.wait(ctx)
		sigs, err := e.source.GetSignaturesForAddress(ctx, acc.Address, holderSignatureSample)
		if err != nil {
			continue
		}
		times = append(times, e.signatureTimes(ctx, sigs)...)
	}
	return times
}

// holderSampleEvidence samples a random subset of current holders.
func (e *Estimator) holderSampleEvidence(ctx context.Context, mint string, budget int) []int64 {
	if budget <= 0 {
		return nil
	}

	e.wait(ctx)
	accounts, err := e.source.GetTokenAccountsByMint(ctx, mint)
	if err != nil {
		e.logger.Debug().Err(err).Msg("holder sample evidence unavailable")
		return nil
	}
	if len(accounts) > holderUniversePoolSize {
		accounts = accounts[:holderUniversePoolSize]
	}

	owners := make([]string, 0, len(accounts))
	for _, acc := range accounts {
		if acc.Owner != "" {
			owners = append(owners, acc.Owner)
		}
	}
	e.rng.Shuffle(len(owners), func(i, j int) { owners[i], owners[j] = owners[j], owners[i] })
	if len(owners) > budget {
		owners = owners[:budget]
	}

	var times []int64
	for _, owner := range owners {
		e.wait(ctx)
		accounts, err := e.source.GetTokenAccountsByOwner(ctx, owner, mint)
		if err != nil {
			continue
		}
		for _, account := range accounts {
			e.wait(ctx)
			sigs, err := e.source.GetSignaturesForAddress(ctx, account, holderSignatureSample)
			if err != nil {
				continue
			}
			times = append(times, e.signatureTimes(ctx, sigs)...)
		}
	}
	return times
}

func (e *Estimator) signatureTimes(ctx context.Context, sigs []solana.SignatureInfo) []int64 {
	var times []int64
	for _, s := range sigs {
		if s.BlockTime != nil {
			times = append(times, *s.BlockTime)
			continue
		}
		e.wait(ctx)
		tx, err := e.source.GetTransaction(ctx, s.Signature)
		if err != nil || tx == nil {
			continue
		}
		if tx.BlockTime != nil {
			times = append(times, *tx.BlockTime)
			continue
		}
		if tx.Slot == 0 {
			continue
		}
		e.wait(ctx)
		bt, err := e.source.GetBlockTime(ctx, tx.Slot)
		if err != nil || bt == nil {
			continue
		}
		times = append(times, *bt)
	}
	return times
}
