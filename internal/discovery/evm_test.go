package discovery

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartfollow/internal/gateway"
)

type fakeEVM struct {
	tip  int64
	logs []types.Log
}

func (f *fakeEVM) BlockNumber(context.Context) (int64, error) { return f.tip, nil }

func (f *fakeEVM) TransferLogs(_ context.Context, _ string, fromBlock, toBlock int64) ([]types.Log, error) {
	var out []types.Log
	for _, lg := range f.logs {
		if int64(lg.BlockNumber) >= fromBlock && int64(lg.BlockNumber) <= toBlock {
			out = append(out, lg)
		}
	}
	return out, nil
}

func (f *fakeEVM) HeaderTime(_ context.Context, blockNumber int64) (int64, error) {
	return blockNumber * 12, nil
}

func addrTopic(hex string) common.Hash {
	return common.BytesToHash(common.HexToAddress(hex).Bytes())
}

func transfer(block uint64, from, to string) types.Log {
	return types.Log{
		BlockNumber: block,
		Topics: []common.Hash{
			common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"),
			addrTopic(from),
			addrTopic(to),
		},
	}
}

func newFakeDiscoverer(source *fakeEVM, lookback, window int64) *EVMDiscoverer {
	return NewEVMDiscoverer(source, EVMOptions{
		LookbackBlocks: lookback,
		WindowBlocks:   window,
		Scan:           gateway.ScanOptions{MaxSpan: 1000, MinSpan: 10},
	}, zerolog.Nop())
}

func TestRecentHoldersDeduplicates(t *testing.T) {
	source := &fakeEVM{
		tip: 1000,
		logs: []types.Log{
			transfer(900, "0x1111111111111111111111111111111111111111", "0x2222222222222222222222222222222222222222"),
			transfer(950, "0x2222222222222222222222222222222222222222", "0x3333333333333333333333333333333333333333"),
		},
	}

	d := newFakeDiscoverer(source, 500, 100)
	addrs, stats, err := d.RecentHolders(context.Background(), "0xtoken")
	require.NoError(t, err)
	assert.Len(t, addrs, 3)
	assert.Positive(t, stats.ChunksOK)
}

func TestEstimateListingFindsFirstTransfer(t *testing.T) {
	source := &fakeEVM{
		tip: 1000,
		logs: []types.Log{
			transfer(700, "0x1111111111111111111111111111111111111111", "0x2222222222222222222222222222222222222222"),
			transfer(600, "0x1111111111111111111111111111111111111111", "0x3333333333333333333333333333333333333333"),
		},
	}

	d := newFakeDiscoverer(source, 500, 100)
	block, ts, found, err := d.EstimateListing(context.Background(), "0xtoken")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(600), block)
	assert.Equal(t, int64(600*12), ts)
}

func TestEstimateListingNoTransfers(t *testing.T) {
	d := newFakeDiscoverer(&fakeEVM{tip: 1000}, 500, 100)
	_, _, found, err := d.EstimateListing(context.Background(), "0xtoken")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEarlyBuyersCollectsWindowReceivers(t *testing.T) {
	source := &fakeEVM{
		tip: 1000,
		logs: []types.Log{
			transfer(600, "0x1111111111111111111111111111111111111111", "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
			transfer(650, "0x1111111111111111111111111111111111111111", "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"),
			// Repeat receiver inside the window.
			transfer(660, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"),
			// Past the window.
			transfer(900, "0x1111111111111111111111111111111111111111", "0xcccccccccccccccccccccccccccccccccccccccc"),
		},
	}

	d := newFakeDiscoverer(source, 500, 100)
	buyers, err := d.EarlyBuyers(context.Background(), "0xtoken")
	require.NoError(t, err)
	assert.Equal(t, []string{
		common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa").Hex(),
		common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb").Hex(),
	}, buyers)
}
