package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"smartfollow/internal/metrics"
	"smartfollow/internal/service"
	"smartfollow/internal/storage"
)

// RankOptions configure scoring and ranked output.
type RankOptions struct {
	Token string
	// Status selects which classified set to score; defaults to WHITE.
	Status string
	Limit  int

	CSVPath string
	TXTPath string
	PNGPath string
}

// RankedRow is one exported ranking line.
type RankedRow struct {
	Rank  int
	Score metrics.Scored
	// Detail carries the full per-address result for TXT export.
	Detail service.AddressScore
}

// Score replays and scores every address of the selected status.
func (a *App) Score(ctx context.Context, token, status string, limit int) ([]service.AddressScore, error) {
	if token == "" {
		return nil, errors.New("token address is required")
	}
	if status == "" {
		status = string(storage.StatusWhite)
	}
	if limit <= 0 {
		limit = a.Config.Classify.BatchLimit
	}

	_, statuses, closeStores, err := a.stores(ctx)
	if err != nil {
		return nil, err
	}
	defer closeStores()

	addrs, err := statuses.ListByStatus(ctx, ChainSolana, storage.Status(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list %s addresses: %w", status, err)
	}
	if len(addrs) == 0 {
		a.Logger.Info().Str("status", status).Msg("no addresses to score")
		return nil, nil
	}

	client := a.newSolanaClient()
	limiter := a.newLimiter()
	return a.newScorer(client, limiter).ScoreAll(ctx, token, addrs)
}

// Rank scores, filters, and orders addresses, then writes the requested
// exports.
func (a *App) Rank(ctx context.Context, opts RankOptions) ([]RankedRow, error) {
	scored, err := a.Score(ctx, opts.Token, opts.Status, opts.Limit)
	if err != nil {
		return nil, err
	}

	rows := a.rankScores(scored)
	a.Logger.Info().Int("scored", len(scored)).Int("ranked", len(rows)).Msg("ranking complete")

	if opts.CSVPath != "" {
		if err := writeRankCSV(opts.CSVPath, rows); err != nil {
			return rows, fmt.Errorf("write csv: %w", err)
		}
	}
	if opts.TXTPath != "" {
		if err := writeRankTXT(opts.TXTPath, opts.Token, rows); err != nil {
			return rows, fmt.Errorf("write txt: %w", err)
		}
	}
	if opts.PNGPath != "" {
		if err := writeRankPNG(opts.PNGPath, rows); err != nil {
			return rows, fmt.Errorf("write png: %w", err)
		}
	}
	return rows, nil
}

func (a *App) rankScores(scored []service.AddressScore) []RankedRow {
	byAddr := make(map[string]service.AddressScore, len(scored))
	input := make([]metrics.Scored, 0, len(scored))
	for _, s := range scored {
		byAddr[s.Addr] = s
		input = append(input, metrics.Scored{
			Addr:    s.Addr,
			Metrics: s.Metrics,
			Balance: s.Balance,
		})
	}

	cfg := a.Config.Ranking
	ranked := metrics.FilterAndSort(input, metrics.RankOptions{
		MinRounds:  cfg.MinRounds,
		MinWinRate: cfg.MinWinRate,
		MinBalance: decimal.NewFromFloat(cfg.MinBalance),
		MaxBalance: decimal.NewFromFloat(cfg.MaxBalance),
		SortBy:     cfg.SortBy,
		TopK:       cfg.TopK,
	})

	rows := make([]RankedRow, 0, len(ranked))
	for i, s := range ranked {
		rows = append(rows, RankedRow{
			Rank:   i + 1,
			Score:  s,
			Detail: byAddr[s.Addr],
		})
	}
	return rows
}
