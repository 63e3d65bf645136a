package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"smartfollow/internal/classify"
	"smartfollow/internal/storage"
)

// ClassifierOptions bound one classification cycle.
type ClassifierOptions struct {
	BatchLimit   int
	Workers      int
	ProgressTick int
	// Limiter throttles hard-verify probes; nil disables throttling.
	Limiter *rate.Limiter
}

// ClassifyOutcome summarises one cycle.
type ClassifyOutcome struct {
	Processed int
	ByStatus  map[storage.Status]int
	ByReason  map[string]int
}

// Classifier drives the two-stage pipeline over pending candidates and
// persists each transition. Addresses are independent, so hard verifies
// fan out across a bounded worker pool.
type Classifier struct {
	pipeline   *classify.Pipeline
	candidates storage.CandidateStore
	statuses   storage.StatusStore
	opts       ClassifierOptions
	logger     zerolog.Logger
}

// NewClassifier builds a classification runner.
func NewClassifier(pipeline *classify.Pipeline, candidates storage.CandidateStore, statuses storage.StatusStore, opts ClassifierOptions, logger zerolog.Logger) *Classifier {
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = 200
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Classifier{
		pipeline:   pipeline,
		candidates: candidates,
		statuses:   statuses,
		opts:       opts,
		logger:     logger.With().Str("component", "classifier").Logger(),
	}
}

// Cycle runs soft filtering over CANDIDATE rows and hard verification
// over WATCH rows, one batch. Each address's status write is independent;
// a cancelled context leaves already-written statuses intact.
func (c *Classifier) Cycle(ctx context.Context, chain string) (ClassifyOutcome, error) {
	outcome := ClassifyOutcome{
		ByStatus: make(map[storage.Status]int),
		ByReason: make(map[string]int),
	}

	pending, err := c.candidates.ListPending(ctx, chain, c.opts.BatchLimit)
	if err != nil {
		return outcome, fmt.Errorf("list pending: %w", err)
	}
	if len(pending) == 0 {
		return outcome, nil
	}

	// Soft filter is zero-network; run it inline. Survivors join the
	// WATCH rows for hard verification.
	verify := make([]storage.Pending, 0, len(pending))
	for _, p := range pending {
		if p.Status != storage.StatusCandidate {
			verify = append(verify, p)
			continue
		}
		res := c.pipeline.SoftFilter(p.Addr)
		if err := c.record(ctx, p.Addr, chain, res, &outcome, nil); err != nil {
			return outcome, err
		}
		if res.Status == storage.StatusWatch {
			p.Status = storage.StatusWatch
			verify = append(verify, p)
		}
	}

	meter := NewMeter("hard_verify", len(verify), c.opts.ProgressTick, c.logger)
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.opts.Workers)
	for _, p := range verify {
		group.Go(func() error {
			if c.opts.Limiter != nil {
				if err := c.opts.Limiter.Wait(groupCtx); err != nil {
					return err
				}
			}
			res := c.pipeline.HardVerify(groupCtx, p.Addr, p.Token)
			err := c.record(groupCtx, p.Addr, chain, res, &outcome, &mu)
			meter.Done(err != nil || res.Reason == classify.ReasonRPCErrorRetry)
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return outcome, err
	}

	c.logger.Info().
		Int("processed", outcome.Processed).
		Int("white", outcome.ByStatus[storage.StatusWhite]).
		Int("black", outcome.ByStatus[storage.StatusBlack]).
		Int("watch", outcome.ByStatus[storage.StatusWatch]).
		Msg("classification cycle complete")
	return outcome, nil
}

func (c *Classifier) record(ctx context.Context, addr, chain string, res classify.Result, outcome *ClassifyOutcome, mu *sync.Mutex) error {
	if err := c.statuses.SetStatus(ctx, addr, chain, res.Status, res.Reason); err != nil {
		return fmt.Errorf("set status %s: %w", addr, err)
	}
	if mu != nil {
		mu.Lock()
		defer mu.Unlock()
	}
	outcome.Processed++
	outcome.ByStatus[res.Status]++
	outcome.ByReason[res.Reason]++
	return nil
}
