package app

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"smartfollow/internal/chain/evm"
	"smartfollow/internal/chain/solana"
	"smartfollow/internal/classify"
	"smartfollow/internal/config"
	"smartfollow/internal/discovery"
	"smartfollow/internal/epoch"
	"smartfollow/internal/gateway"
	"smartfollow/internal/pricing"
	"smartfollow/internal/service"
	"smartfollow/internal/storage"
	"smartfollow/internal/storage/memory"
)

// Chain identifiers accepted by the commands.
const (
	ChainSolana = "sol"
	ChainEVM    = "evm"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newSolanaClient() *solana.Client {
	return solana.NewClient(solana.Options{
		RPCURL:  a.Config.Solana.RPCURL,
		Timeout: a.Config.Solana.RequestTimeout,
	}, a.Logger)
}

func (a *App) newEVMClient() *evm.Client {
	return evm.NewClient(evm.Options{
		RPCURL:  a.Config.EVM.RPCURL,
		Timeout: a.Config.EVM.RequestTimeout,
	}, a.Logger)
}

func (a *App) newLimiter() *rate.Limiter {
	rps := a.Config.Scoring.RatePerSec
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

func (a *App) newReplayer(client *solana.Client, limiter *rate.Limiter) *gateway.Replayer {
	return gateway.NewReplayer(client, gateway.ReplayOptions{
		MaxTxs:  a.Config.Gateway.MaxTxs,
		Limiter: limiter,
	}, a.Logger)
}

func (a *App) newEstimator(client *solana.Client, limiter *rate.Limiter) *epoch.Estimator {
	return epoch.NewEstimator(client, epoch.Options{Limiter: limiter}, a.Logger)
}

func (a *App) newPricing() *pricing.Client {
	return pricing.NewClient(pricing.Options{
		BaseURL: a.Config.Pricing.BaseURL,
		Timeout: a.Config.Pricing.RequestTimeout,
	}, a.Logger)
}

func (a *App) newPipeline(client *solana.Client) *classify.Pipeline {
	return classify.NewPipeline(client, client, classify.Options{
		InsiderTopN: a.Config.Classify.InsiderTopN,
	})
}

func (a *App) newDiscoverer(client *solana.Client, limiter *rate.Limiter) *discovery.Discoverer {
	return discovery.NewDiscoverer(client, a.newReplayer(client, limiter), discovery.Options{
		HolderTopN:  a.Config.Discovery.HolderTopN,
		EarlyWindow: a.Config.Discovery.EarlyWindow,
	}, a.Logger)
}

func (a *App) newEVMDiscoverer(client *evm.Client) *discovery.EVMDiscoverer {
	return discovery.NewEVMDiscoverer(client, discovery.EVMOptions{
		LookbackBlocks: a.Config.Discovery.LookbackBlocks,
		WindowBlocks:   a.evmWindowBlocks(),
		Scan: gateway.ScanOptions{
			MaxSpan: int64(a.Config.Gateway.MaxSpan),
			MinSpan: int64(a.Config.Gateway.MinSpan),
			Backoff: a.Config.Gateway.Backoff,
		},
	}, a.Logger)
}

func (a *App) evmWindowBlocks() int64 {
	blockTime := a.Config.EVM.AvgBlockTime
	if blockTime <= 0 {
		return 0
	}
	return int64(a.Config.Discovery.EarlyWindow / blockTime)
}

// stores opens the Postgres-backed repository, or falls back to an
// in-process store when no DSN is configured. The closer is always
// non-nil.
func (a *App) stores(ctx context.Context) (storage.CandidateStore, storage.StatusStore, func(), error) {
	if a.Config.Database.DSN == "" {
		a.Logger.Warn().Msg("database.dsn not configured; using in-memory store, results are not persisted")
		mem := memory.NewStore()
		return mem, mem, func() {}, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, nil, err
	}
	repo := storage.NewRepository(pool)
	return repo, repo, repo.Close, nil
}

func (a *App) newClassifier(pipeline *classify.Pipeline, candidates storage.CandidateStore, statuses storage.StatusStore, limiter *rate.Limiter) *service.Classifier {
	return service.NewClassifier(pipeline, candidates, statuses, service.ClassifierOptions{
		BatchLimit:   a.Config.Classify.BatchLimit,
		Workers:      a.Config.Scoring.Workers,
		ProgressTick: a.Config.Scoring.ProgressTick,
		Limiter:      limiter,
	}, a.Logger)
}

func (a *App) newScorer(client *solana.Client, limiter *rate.Limiter) *service.Scorer {
	return service.NewScorer(
		a.newReplayer(client, limiter),
		a.newEstimator(client, limiter),
		client,
		a.newPricing(),
		service.ScorerOptions{
			Workers:      a.Config.Scoring.Workers,
			ProgressTick: a.Config.Scoring.ProgressTick,
			RoundTimeout: a.Config.Rounds.Timeout,
			EpochBudget:  a.Config.Discovery.EpochBudget,
			Limiter:      limiter,
		}, a.Logger)
}
