package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartfollow/internal/chain/solana"
	"smartfollow/internal/storage"
)

const (
	eoaAddr   = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
	mintAddr  = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	otherAddr = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
)

type fakeProbes struct {
	identity    *solana.AccountIdentity
	identityErr error
	largest     []solana.LargestAccount
	largestErr  error
}

func (f *fakeProbes) GetAccountIdentity(context.Context, string) (*solana.AccountIdentity, error) {
	return f.identity, f.identityErr
}

func (f *fakeProbes) GetTokenLargestAccounts(context.Context, string) ([]solana.LargestAccount, error) {
	return f.largest, f.largestErr
}

func newPipeline(probes *fakeProbes) *Pipeline {
	return NewPipeline(probes, probes, Options{InsiderTopN: 20})
}

func TestSoftFilterKnownProgram(t *testing.T) {
	p := newPipeline(&fakeProbes{})

	for _, addr := range []string{solana.SystemProgramID, solana.TokenProgramID} {
		res := p.SoftFilter(addr)
		assert.Equal(t, storage.StatusBlack, res.Status)
		assert.Equal(t, ReasonKnownProgram, res.Reason)
	}
}

func TestSoftFilterUnknownAddressGoesToWatch(t *testing.T) {
	p := newPipeline(&fakeProbes{})
	res := p.SoftFilter(eoaAddr)
	assert.Equal(t, storage.StatusWatch, res.Status)
	assert.Equal(t, ReasonPendingVerify, res.Reason)
}

func TestSoftFilterDeterministic(t *testing.T) {
	p := newPipeline(&fakeProbes{})
	first := p.SoftFilter(eoaAddr)
	second := p.SoftFilter(eoaAddr)
	assert.Equal(t, first, second)
}

func TestHardVerifyNoAccountInfoStaysWatch(t *testing.T) {
	p := newPipeline(&fakeProbes{identity: nil})
	res := p.HardVerify(context.Background(), eoaAddr, mintAddr)
	assert.Equal(t, storage.StatusWatch, res.Status)
	assert.Equal(t, ReasonNoAccountInfo, res.Reason)
}

func TestHardVerifyProbeErrorStaysWatch(t *testing.T) {
	p := newPipeline(&fakeProbes{identityErr: errors.New("rpc down")})
	res := p.HardVerify(context.Background(), eoaAddr, mintAddr)
	assert.Equal(t, storage.StatusWatch, res.Status)
	assert.Equal(t, ReasonRPCErrorRetry, res.Reason)
}

func TestHardVerifyPlainAccountNotInsiderIsWhite(t *testing.T) {
	p := newPipeline(&fakeProbes{
		identity: &solana.AccountIdentity{Executable: false, Owner: solana.SystemProgramID},
		largest: []solana.LargestAccount{
			{Address: otherAddr, Amount: 1000},
		},
	})
	res := p.HardVerify(context.Background(), eoaAddr, mintAddr)
	assert.Equal(t, storage.StatusWhite, res.Status)
	assert.Equal(t, ReasonEOANotInsider, res.Reason)
}

func TestHardVerifyInsiderLikeIsBlack(t *testing.T) {
	p := newPipeline(&fakeProbes{
		identity: &solana.AccountIdentity{Executable: false, Owner: solana.SystemProgramID},
		largest: []solana.LargestAccount{
			{Address: eoaAddr, Amount: 1000},
		},
	})
	res := p.HardVerify(context.Background(), eoaAddr, mintAddr)
	assert.Equal(t, storage.StatusBlack, res.Status)
	assert.Equal(t, ReasonInsiderLike, res.Reason)
}

func TestHardVerifyNonSystemOwnerIsBlack(t *testing.T) {
	p := newPipeline(&fakeProbes{
		identity: &solana.AccountIdentity{Executable: false, Owner: solana.TokenProgramID},
	})
	res := p.HardVerify(context.Background(), eoaAddr, mintAddr)
	assert.Equal(t, storage.StatusBlack, res.Status)
	assert.Equal(t, "non_system_owner:"+solana.TokenProgramID, res.Reason)
}

func TestHardVerifyExecutableIsBlack(t *testing.T) {
	p := newPipeline(&fakeProbes{
		identity: &solana.AccountIdentity{Executable: true, Owner: solana.SystemProgramID},
	})
	res := p.HardVerify(context.Background(), eoaAddr, mintAddr)
	assert.Equal(t, storage.StatusBlack, res.Status)
}

func TestInsiderCheckerFailOpen(t *testing.T) {
	ic := NewInsiderChecker(&fakeProbes{largestErr: errors.New("rpc down")}, 20)
	assert.False(t, ic.IsInsiderLike(context.Background(), eoaAddr, mintAddr))
}

func TestInsiderCheckerRespectsTopN(t *testing.T) {
	probes := &fakeProbes{
		largest: []solana.LargestAccount{
			{Address: otherAddr, Amount: 100},
			{Address: eoaAddr, Amount: 50},
		},
	}

	require.True(t, NewInsiderChecker(probes, 2).IsInsiderLike(context.Background(), eoaAddr, mintAddr))
	assert.False(t, NewInsiderChecker(probes, 1).IsInsiderLike(context.Background(), eoaAddr, mintAddr))
}
