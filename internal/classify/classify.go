// Package classify implements the two-stage address classification:
// a zero-network soft filter over structural identifiers, then a
// per-address identity probe against the ledger.
package classify

import (
	"context"
	"fmt"

	"smartfollow/internal/chain/solana"
	"smartfollow/internal/storage"
)

// Classification reasons recorded alongside each status transition.
const (
	ReasonKnownProgram    = "known_program_or_system"
	ReasonPendingVerify   = "pending_verify"
	ReasonNoAccountInfo   = "no_account_info"
	ReasonInsiderLike     = "insider_like_largest"
	ReasonEOANotInsider   = "eoalike_not_insider"
	ReasonRPCErrorRetry   = "rpc_error_retry"
	reasonNonSystemPrefix = "non_system_owner:"
)

// IdentityProber exposes the single ledger call hard verification needs.
type IdentityProber interface {
	GetAccountIdentity(ctx context.Context, addr string) (*solana.AccountIdentity, error)
}

// Result is one address's classification outcome.
type Result struct {
	Addr   string
	Status storage.Status
	Reason string
}

// Options tunes the pipeline. InsiderTopN is the largest-holder cutoff for
// the insider heuristic.
type Options struct {
	InsiderTopN int
}

// Pipeline classifies candidate addresses for one token.
type Pipeline struct {
	prober  IdentityProber
	insider *InsiderChecker
	known   map[string]struct{}
}

// NewPipeline builds a Pipeline over the given probes. holders may equal
// prober when one client serves both.
func NewPipeline(prober IdentityProber, holders LargestHolderSource, opts Options) *Pipeline {
	topN := opts.InsiderTopN
	if topN <= 0 {
		topN = 20
	}
	known := map[string]struct{}{
		solana.SystemProgramID: {},
		solana.TokenProgramID:  {},
	}
	return &Pipeline{
		prober:  prober,
		insider: NewInsiderChecker(holders, topN),
		known:   known,
	}
}

// SoftFilter decides CANDIDATE transitions structurally, without any
// network call. Known system and program identifiers go straight to
// BLACK; everything else is queued for hard verification.
func (p *Pipeline) SoftFilter(addr string) Result {
	if _, ok := p.known[addr]; ok {
		return Result{Addr: addr, Status: storage.StatusBlack, Reason: ReasonKnownProgram}
	}
	return Result{Addr: addr, Status: storage.StatusWatch, Reason: ReasonPendingVerify}
}

// HardVerify resolves a WATCH address via its account identity. Probe
// failures keep the address in WATCH so a later pass can retry; only a
// positive identity reading produces a terminal WHITE or BLACK.
func (p *Pipeline) HardVerify(ctx context.Context, addr, token string) Result {
	identity, err := p.prober.GetAccountIdentity(ctx, addr)
	if err != nil {
		return Result{Addr: addr, Status: storage.StatusWatch, Reason: ReasonRPCErrorRetry}
	}
	if identity == nil {
		return Result{Addr: addr, Status: storage.StatusWatch, Reason: ReasonNoAccountInfo}
	}

	if identity.Executable || identity.Owner != solana.SystemProgramID {
		reason := fmt.Sprintf("%s%s", reasonNonSystemPrefix, identity.Owner)
		return Result{Addr: addr, Status: storage.StatusBlack, Reason: reason}
	}

	if p.insider.IsInsiderLike(ctx, addr, token) {
		return Result{Addr: addr, Status: storage.StatusBlack, Reason: ReasonInsiderLike}
	}
	return Result{Addr: addr, Status: storage.StatusWhite, Reason: ReasonEOANotInsider}
}
