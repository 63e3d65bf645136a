package app

import (
	"context"
	"errors"
	"fmt"

	"smartfollow/internal/storage"
)

// ScanOptions configure one discovery pass.
type ScanOptions struct {
	Chain string
	Token string
	// EarlyBuyers additionally replays the listing window for first
	// buyers (Solana) or scans it for first receivers (EVM).
	EarlyBuyers bool
}

// Scan discovers candidate addresses for a token and upserts them.
func (a *App) Scan(ctx context.Context, opts ScanOptions) error {
	if opts.Token == "" {
		return errors.New("token address is required")
	}

	candidates, _, closeStores, err := a.stores(ctx)
	if err != nil {
		return err
	}
	defer closeStores()

	switch opts.Chain {
	case ChainSolana:
		return a.scanSolana(ctx, opts, candidates)
	case ChainEVM:
		return a.scanEVM(ctx, opts, candidates)
	default:
		return fmt.Errorf("unknown chain %q", opts.Chain)
	}
}

func (a *App) scanSolana(ctx context.Context, opts ScanOptions, candidates storage.CandidateStore) error {
	client := a.newSolanaClient()
	limiter := a.newLimiter()
	disc := a.newDiscoverer(client, limiter)

	owners, malformed, err := disc.HolderSnapshot(ctx, opts.Token)
	if err != nil {
		return fmt.Errorf("holder snapshot: %w", err)
	}
	if malformed > 0 {
		a.Logger.Warn().Int("malformed", malformed).Msg("dropped malformed owner addresses")
	}
	if err := candidates.UpsertCandidates(ctx, ChainSolana, opts.Token, owners, storage.SourceHolderSnapshot); err != nil {
		return fmt.Errorf("store holders: %w", err)
	}

	if !opts.EarlyBuyers {
		return nil
	}

	estimator := a.newEstimator(client, limiter)
	t0 := estimator.Estimate(ctx, opts.Token, a.Config.Discovery.EpochBudget)
	if t0 == nil {
		a.Logger.Warn().Str("token", opts.Token).Msg("no listing epoch evidence; skipping early buyer replay")
		return nil
	}

	sample := owners
	if limit := a.Config.Discovery.EarlyOutTopN; limit > 0 && len(sample) > limit {
		sample = sample[:limit]
	}
	buyers, err := disc.EarlyBuyers(ctx, opts.Token, sample, *t0)
	if err != nil {
		return fmt.Errorf("early buyers: %w", err)
	}
	return candidates.UpsertCandidates(ctx, ChainSolana, opts.Token, buyers, storage.SourceEarlyBuyerReplay)
}

func (a *App) scanEVM(ctx context.Context, opts ScanOptions, candidates storage.CandidateStore) error {
	disc := a.newEVMDiscoverer(a.newEVMClient())

	addrs, stats, err := disc.RecentHolders(ctx, opts.Token)
	if err != nil {
		return fmt.Errorf("recent holders: %w", err)
	}
	a.Logger.Info().
		Int("chunks_ok", stats.ChunksOK).
		Int("chunks_retried", stats.ChunksRetried).
		Int("chunks_skipped", stats.ChunksSkipped).
		Msg("transfer log scan finished")
	if err := candidates.UpsertCandidates(ctx, ChainEVM, opts.Token, addrs, storage.SourceHolderSnapshot); err != nil {
		return fmt.Errorf("store holders: %w", err)
	}

	if !opts.EarlyBuyers {
		return nil
	}

	buyers, err := disc.EarlyBuyers(ctx, opts.Token)
	if err != nil {
		return fmt.Errorf("early buyers: %w", err)
	}
	return candidates.UpsertCandidates(ctx, ChainEVM, opts.Token, buyers, storage.SourceEarlyBuyerReplay)
}
