package app

import (
	"context"
	"fmt"

	"smartfollow/internal/service"
)

// Classify runs one soft-filter plus hard-verify cycle over pending
// Solana candidates.
func (a *App) Classify(ctx context.Context) (service.ClassifyOutcome, error) {
	candidates, statuses, closeStores, err := a.stores(ctx)
	if err != nil {
		return service.ClassifyOutcome{}, err
	}
	defer closeStores()

	client := a.newSolanaClient()
	limiter := a.newLimiter()
	classifier := a.newClassifier(a.newPipeline(client), candidates, statuses, limiter)

	outcome, err := classifier.Cycle(ctx, ChainSolana)
	if err != nil {
		return outcome, fmt.Errorf("classification cycle: %w", err)
	}
	return outcome, nil
}
