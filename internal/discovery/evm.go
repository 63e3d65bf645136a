package discovery

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"smartfollow/internal/chain/evm"
	"smartfollow/internal/gateway"
)

// EVMSource is the log-scan surface EVM discovery needs.
type EVMSource interface {
	BlockNumber(ctx context.Context) (int64, error)
	TransferLogs(ctx context.Context, token string, fromBlock, toBlock int64) ([]types.Log, error)
	HeaderTime(ctx context.Context, blockNumber int64) (int64, error)
}

// EVMOptions tunes EVM-side discovery.
type EVMOptions struct {
	// LookbackBlocks bounds the recent-holder scan behind the tip.
	LookbackBlocks int64
	// WindowBlocks bounds early-buyer collection after the first transfer.
	WindowBlocks int64
	// Scan controls the adaptive chunk walk over eth_getLogs.
	Scan gateway.ScanOptions
}

// EVMDiscoverer scans ERC-20 Transfer logs for candidates.
type EVMDiscoverer struct {
	source EVMSource
	opts   EVMOptions
	logger zerolog.Logger
}

// NewEVMDiscoverer builds an EVM discoverer.
func NewEVMDiscoverer(source EVMSource, opts EVMOptions, logger zerolog.Logger) *EVMDiscoverer {
	if opts.LookbackBlocks <= 0 {
		opts.LookbackBlocks = 120_000
	}
	if opts.WindowBlocks <= 0 {
		opts.WindowBlocks = 600
	}
	return &EVMDiscoverer{
		source: source,
		opts:   opts,
		logger: logger.With().Str("component", "evm_discovery").Logger(),
	}
}

func (d *EVMDiscoverer) scanLogs(ctx context.Context, token string, r gateway.Range) ([]types.Log, gateway.ScanStats, error) {
	scanner := gateway.NewScanner(d.opts.Scan, func(ctx context.Context, from, to int64) ([]types.Log, error) {
		return d.source.TransferLogs(ctx, token, from, to)
	}, d.logger)
	return scanner.Scan(ctx, r)
}

// RecentHolders collects every address that sent or received the token
// inside the lookback window behind the chain tip.
func (d *EVMDiscoverer) RecentHolders(ctx context.Context, token string) ([]string, gateway.ScanStats, error) {
	tip, err := d.source.BlockNumber(ctx)
	if err != nil {
		return nil, gateway.ScanStats{}, err
	}
	from := tip - d.opts.LookbackBlocks
	if from < 0 {
		from = 0
	}

	logs, stats, err := d.scanLogs(ctx, token, gateway.Range{From: from, To: tip})
	if err != nil {
		return nil, stats, err
	}

	seen := make(map[string]struct{})
	addrs := make([]string, 0)
	add := func(addr string) {
		key := strings.ToLower(addr)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		addrs = append(addrs, addr)
	}
	for _, lg := range logs {
		if len(lg.Topics) < 3 {
			continue
		}
		add(evm.TopicAddress(lg.Topics[1]))
		add(evm.TopicAddress(lg.Topics[2]))
	}

	d.logger.Info().
		Str("token", token).
		Int64("from", from).
		Int64("to", tip).
		Int("logs", len(logs)).
		Int("addrs", len(addrs)).
		Msg("recent holder scan complete")
	return addrs, stats, nil
}

// EstimateListing finds the token's first observed Transfer inside the
// lookback window and returns its block number and header timestamp.
// Found reports false when no transfer is observed at all.
func (d *EVMDiscoverer) EstimateListing(ctx context.Context, token string) (block int64, ts int64, found bool, err error) {
	tip, err := d.source.BlockNumber(ctx)
	if err != nil {
		return 0, 0, false, err
	}
	from := tip - d.opts.LookbackBlocks
	if from < 0 {
		from = 0
	}

	logs, _, err := d.scanLogs(ctx, token, gateway.Range{From: from, To: tip})
	if err != nil {
		return 0, 0, false, err
	}
	if len(logs) == 0 {
		return 0, 0, false, nil
	}

	first := logs[0].BlockNumber
	for _, lg := range logs[1:] {
		if lg.BlockNumber < first {
			first = lg.BlockNumber
		}
	}
	headerTime, err := d.source.HeaderTime(ctx, int64(first))
	if err != nil {
		return int64(first), 0, false, err
	}
	return int64(first), headerTime, true, nil
}

// EarlyBuyers collects receivers of the token during the first
// WindowBlocks after its first observed transfer, in first-seen order.
func (d *EVMDiscoverer) EarlyBuyers(ctx context.Context, token string) ([]string, error) {
	firstBlock, _, found, err := d.EstimateListing(ctx, token)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	logs, _, err := d.scanLogs(ctx, token, gateway.Range{From: firstBlock, To: firstBlock + d.opts.WindowBlocks})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	buyers := make([]string, 0, len(logs))
	for _, lg := range logs {
		if len(lg.Topics) < 3 {
			continue
		}
		addr := evm.TopicAddress(lg.Topics[2])
		key := strings.ToLower(addr)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		buyers = append(buyers, addr)
	}

	d.logger.Info().
		Str("token", token).
		Int64("first_block", firstBlock).
		Int("buyers", len(buyers)).
		Msg("early buyer scan complete")
	return buyers, nil
}
