package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"smartfollow/internal/chain/solana"
	"smartfollow/internal/epoch"
	"smartfollow/internal/gateway"
	"smartfollow/internal/metrics"
	"smartfollow/internal/rounds"
)

// ScoreSource is the extra ledger surface scoring needs beyond replay.
type ScoreSource interface {
	GetTokenSupply(ctx context.Context, mint string) (solana.TokenSupply, error)
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
}

// PriceSource resolves an optional USD price for a token.
type PriceSource interface {
	PriceUSD(ctx context.Context, token string) (*decimal.Decimal, error)
}

// ScorerOptions bound the scoring fan-out.
type ScorerOptions struct {
	Workers      int
	ProgressTick int
	RoundTimeout time.Duration
	EpochBudget  int
	// Limiter throttles all per-address RPC work; nil disables it.
	Limiter *rate.Limiter
}

// AddressScore is one address's scored round history.
type AddressScore struct {
	Addr    string
	Rounds  []rounds.Valued
	Metrics metrics.Metrics
	// Balance is the native balance in whole units (SOL).
	Balance decimal.Decimal
	// Buckets counts rounds by entry-time bucket relative to T0.
	Buckets map[string]int
	// DroppedTxs counts transactions the replay could not fetch.
	DroppedTxs int
}

// Scorer replays, reconstructs, and aggregates per-address round
// histories for one mint.
type Scorer struct {
	replayer  *gateway.Replayer
	estimator *epoch.Estimator
	source    ScoreSource
	prices    PriceSource
	opts      ScorerOptions
	logger    zerolog.Logger
}

// NewScorer builds a scorer. prices may be nil; rounds then stay unpriced.
func NewScorer(replayer *gateway.Replayer, estimator *epoch.Estimator, source ScoreSource, prices PriceSource, opts ScorerOptions, logger zerolog.Logger) *Scorer {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.RoundTimeout <= 0 {
		opts.RoundTimeout = 24 * time.Hour
	}
	return &Scorer{
		replayer:  replayer,
		estimator: estimator,
		source:    source,
		prices:    prices,
		opts:      opts,
		logger:    logger.With().Str("component", "scorer").Logger(),
	}
}

var lamportsPerSOL = decimal.NewFromInt(solana.LamportsPerSOL)

// ScoreAll scores every address against the mint. Shared per-mint inputs
// (decimals, price, T0 estimate) are resolved once; the per-address work
// fans out across a bounded pool. An address whose replay fails is
// skipped and counted, not fatal. Context cancellation returns whatever
// was scored so far.
func (s *Scorer) ScoreAll(ctx context.Context, mint string, addrs []string) ([]AddressScore, error) {
	if len(addrs) == 0 {
		return nil, nil
	}

	supply, err := s.source.GetTokenSupply(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("token supply for %s: %w", mint, err)
	}

	var price *decimal.Decimal
	if s.prices != nil {
		price, err = s.prices.PriceUSD(ctx, mint)
		if err != nil {
			s.logger.Warn().Err(err).Str("mint", mint).Msg("price lookup failed, scoring unpriced")
			price = nil
		}
	}

	var t0 *int64
	if s.estimator != nil {
		t0 = s.estimator.Estimate(ctx, mint, s.opts.EpochBudget)
	}

	meter := NewMeter("score", len(addrs), s.opts.ProgressTick, s.logger)

	var mu sync.Mutex
	scored := make([]AddressScore, 0, len(addrs))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.opts.Workers)
	for _, addr := range addrs {
		group.Go(func() error {
			score, err := s.scoreOne(groupCtx, mint, addr, supply.Decimals, price, t0)
			if err != nil {
				meter.Done(true)
				if groupCtx.Err() != nil {
					return err
				}
				s.logger.Warn().Err(err).Str("addr", addr).Msg("scoring failed, skipping address")
				return nil
			}
			mu.Lock()
			scored = append(scored, *score)
			mu.Unlock()
			meter.Done(false)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return scored, err
	}

	s.logger.Info().
		Str("mint", mint).
		Int("scored", len(scored)).
		Int64("failed", meter.Failed()).
		Bool("priced", price != nil).
		Msg("scoring pass complete")
	return scored, nil
}

func (s *Scorer) scoreOne(ctx context.Context, mint, addr string, decimals int, price *decimal.Decimal, t0 *int64) (*AddressScore, error) {
	events, dropped, err := s.replayer.OwnerEvents(ctx, addr, mint)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", addr, err)
	}

	history := rounds.Reconstruct(events, t0, s.opts.RoundTimeout)
	valued := rounds.Value(history, decimals, price)

	buckets := make(map[string]int)
	for _, r := range history {
		buckets[r.TimeBucket]++
	}

	balance := decimal.Zero
	if s.opts.Limiter != nil {
		if err := s.opts.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	lamports, err := s.source.GetBalance(ctx, addr)
	if err != nil {
		s.logger.Debug().Err(err).Str("addr", addr).Msg("balance probe failed")
	} else {
		balance = decimal.NewFromUint64(lamports).Div(lamportsPerSOL)
	}

	return &AddressScore{
		Addr:       addr,
		Rounds:     valued,
		Metrics:    metrics.Aggregate(valued),
		Balance:    balance,
		Buckets:    buckets,
		DroppedTxs: dropped,
	}, nil
}
