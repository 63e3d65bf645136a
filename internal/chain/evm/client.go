package evm

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

// TransferTopic is the keccak hash of the ERC-20 Transfer event signature.
const TransferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

// Options parameterise the EVM client.
type Options struct {
	RPCURL  string
	Timeout time.Duration
}

// Client wraps an ethclient connection for log-based token scans.
type Client struct {
	opts      Options
	logger    zerolog.Logger
	client    *ethclient.Client
	clientMux sync.Mutex
}

// NewClient builds a lazily-dialled EVM client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	return &Client{opts: opts, logger: logger.With().Str("component", "evm_rpc").Logger()}
}

func (c *Client) getClient(ctx context.Context) (*ethclient.Client, error) {
	c.clientMux.Lock()
	defer c.clientMux.Unlock()

	if c.client != nil {
		return c.client, nil
	}
	if c.opts.RPCURL == "" {
		return nil, errors.New("evm rpc url not configured")
	}

	client, err := ethclient.DialContext(ctx, c.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	c.client = client
	return client, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// BlockNumber returns the chain tip.
func (c *Client) BlockNumber(ctx context.Context) (int64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return 0, err
	}
	tip, err := client.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	return int64(tip), nil
}

// TransferLogs fetches ERC-20 Transfer logs for a token over one block range.
// A single call, no chunking; oversized ranges are for the caller to manage.
func (c *Client) TransferLogs(ctx context.Context, token string, fromBlock, toBlock int64) ([]types.Log, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	query := ethereum.FilterQuery{
		FromBlock: big.NewInt(fromBlock),
		ToBlock:   big.NewInt(toBlock),
		Addresses: []common.Address{common.HexToAddress(token)},
		Topics:    [][]common.Hash{{common.HexToHash(TransferTopic)}},
	}
	return client.FilterLogs(ctx, query)
}

// Balance returns the native balance in wei.
func (c *Client) Balance(ctx context.Context, address string) (*big.Int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.BalanceAt(ctx, common.HexToAddress(address), nil)
}

// HeaderTime returns the timestamp of a block header.
func (c *Client) HeaderTime(ctx context.Context, blockNumber int64) (int64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return 0, err
	}
	header, err := client.HeaderByNumber(ctx, big.NewInt(blockNumber))
	if err != nil {
		return 0, err
	}
	return int64(header.Time), nil
}

// TopicAddress extracts the 20-byte address packed into an indexed topic.
func TopicAddress(topic common.Hash) string {
	return common.BytesToAddress(topic.Bytes()[12:]).Hex()
}
