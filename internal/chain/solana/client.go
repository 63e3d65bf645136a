package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
	defaultMaxDelay   = 10 * time.Second
)

// Options parameterise the RPC client.
type Options struct {
	RPCURL     string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	HTTPClient *http.Client
}

// Client talks JSON-RPC 2.0 to a Solana node.
type Client struct {
	endpoint   string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
	logger     zerolog.Logger
	requestID  atomic.Uint64
}

// NewClient constructs a Solana RPC client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	return &Client{
		endpoint:   opts.RPCURL,
		client:     httpClient,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		maxDelay:   defaultMaxDelay,
		logger:     logger.With().Str("component", "solana_rpc").Logger(),
	}
}

// ValidPubkey reports whether s decodes to a 32-byte ed25519 key.
func ValidPubkey(s string) bool {
	raw, err := base58.Decode(s)
	return err == nil && len(raw) == 32
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call, retrying transport failures with
// exponential backoff. Node-side errors are returned immediately.
func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	if c.endpoint == "" {
		return errors.New("solana rpc url not configured")
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}
		if rpcResp.Error != nil {
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("%s: max retries exceeded: %w", method, lastErr)
}

// GetSignaturesForAddress lists recent signatures touching an address,
// newest first.
func (c *Client) GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]SignatureInfo, error) {
	params := []any{address, map[string]any{"limit": limit}}

	var raw []struct {
		Signature string `json:"signature"`
		Slot      int64  `json:"slot"`
		BlockTime *int64 `json:"blockTime"`
	}
	if err := c.call(ctx, "getSignaturesForAddress", params, &raw); err != nil {
		return nil, err
	}

	sigs := make([]SignatureInfo, len(raw))
	for i, r := range raw {
		sigs[i] = SignatureInfo{Signature: r.Signature, Slot: r.Slot, BlockTime: r.BlockTime}
	}
	return sigs, nil
}

type txBalanceEntry struct {
	Owner         string `json:"owner"`
	Mint          string `json:"mint"`
	UITokenAmount struct {
		Amount string `json:"amount"`
	} `json:"uiTokenAmount"`
}

// GetTransaction fetches a confirmed transaction. Returns nil if the node
// does not know the signature.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	params := []any{signature, map[string]any{
		"encoding":                       "json",
		"maxSupportedTransactionVersion": 0,
	}}

	var raw struct {
		Slot      int64  `json:"slot"`
		BlockTime *int64 `json:"blockTime"`
		Meta      *struct {
			PreTokenBalances  []txBalanceEntry `json:"preTokenBalances"`
			PostTokenBalances []txBalanceEntry `json:"postTokenBalances"`
		} `json:"meta"`
	}
	if err := c.call(ctx, "getTransaction", params, &raw); err != nil {
		return nil, err
	}
	if raw.Slot == 0 && raw.BlockTime == nil {
		return nil, nil
	}

	tx := &Transaction{Signature: signature, Slot: raw.Slot, BlockTime: raw.BlockTime}
	if raw.Meta != nil {
		tx.PreTokenBalances = convertBalances(raw.Meta.PreTokenBalances)
		tx.PostTokenBalances = convertBalances(raw.Meta.PostTokenBalances)
	}
	return tx, nil
}

func convertBalances(entries []txBalanceEntry) []TokenBalance {
	out := make([]TokenBalance, 0, len(entries))
	for _, e := range entries {
		amount, err := strconv.ParseInt(e.UITokenAmount.Amount, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, TokenBalance{Owner: e.Owner, Mint: e.Mint, Amount: amount})
	}
	return out
}

// GetBlockTime returns the estimated production time of a slot, nil when
// the node has no estimate.
func (c *Client) GetBlockTime(ctx context.Context, slot int64) (*int64, error) {
	var result *int64
	if err := c.call(ctx, "getBlockTime", []any{slot}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetAccountIdentity resolves executable/owner for a pubkey. A nil result
// with nil error means the account does not exist.
func (c *Client) GetAccountIdentity(ctx context.Context, pubkey string) (*AccountIdentity, error) {
	params := []any{pubkey, map[string]any{"encoding": "jsonParsed"}}

	var raw struct {
		Value *struct {
			Executable bool   `json:"executable"`
			Owner      string `json:"owner"`
			Lamports   uint64 `json:"lamports"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getAccountInfo", params, &raw); err != nil {
		return nil, err
	}
	if raw.Value == nil {
		return nil, nil
	}
	return &AccountIdentity{
		Executable: raw.Value.Executable,
		Owner:      raw.Value.Owner,
		Lamports:   raw.Value.Lamports,
	}, nil
}

// GetBalance returns the native balance in lamports.
func (c *Client) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	params := []any{pubkey, map[string]any{"commitment": "confirmed"}}

	var raw struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", params, &raw); err != nil {
		return 0, err
	}
	return raw.Value, nil
}

// GetTokenLargestAccounts lists the largest token accounts of a mint.
func (c *Client) GetTokenLargestAccounts(ctx context.Context, mint string) ([]LargestAccount, error) {
	var raw struct {
		Value []struct {
			Address string `json:"address"`
			Amount  string `json:"amount"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getTokenLargestAccounts", []any{mint}, &raw); err != nil {
		return nil, err
	}

	out := make([]LargestAccount, 0, len(raw.Value))
	for _, v := range raw.Value {
		amount, _ := strconv.ParseInt(v.Amount, 10, 64)
		out = append(out, LargestAccount{Address: v.Address, Amount: amount})
	}
	return out, nil
}

// GetTokenSupply returns mint supply and decimals.
func (c *Client) GetTokenSupply(ctx context.Context, mint string) (TokenSupply, error) {
	var raw struct {
		Value struct {
			Amount   string `json:"amount"`
			Decimals int    `json:"decimals"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getTokenSupply", []any{mint}, &raw); err != nil {
		return TokenSupply{}, err
	}
	if raw.Value.Decimals < 0 {
		// A negative scale factor indicates a broken data source, not a
		// recoverable condition.
		return TokenSupply{}, fmt.Errorf("token supply for %s reports negative decimals %d", mint, raw.Value.Decimals)
	}
	return TokenSupply{Amount: raw.Value.Amount, Decimals: raw.Value.Decimals}, nil
}

// GetTokenAccountsByOwner lists the owner's token account pubkeys for a mint.
func (c *Client) GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]string, error) {
	params := []any{owner, map[string]any{"mint": mint}, map[string]any{"encoding": "jsonParsed"}}

	var raw struct {
		Value []struct {
			Pubkey string `json:"pubkey"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getTokenAccountsByOwner", params, &raw); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(raw.Value))
	for _, v := range raw.Value {
		if v.Pubkey != "" {
			out = append(out, v.Pubkey)
		}
	}
	return out, nil
}

const splTokenAccountSize = 165

// GetTokenAccountsByMint scans the token program for accounts of a mint.
// Accounts whose data is not jsonParsed are skipped.
func (c *Client) GetTokenAccountsByMint(ctx context.Context, mint string) ([]TokenAccount, error) {
	params := []any{TokenProgramID, map[string]any{
		"encoding": "jsonParsed",
		"filters": []any{
			map[string]any{"dataSize": splTokenAccountSize},
			map[string]any{"memcmp": map[string]any{"offset": 0, "bytes": mint}},
		},
	}}

	var raw []struct {
		Pubkey  string `json:"pubkey"`
		Account struct {
			Data struct {
				Parsed struct {
					Info struct {
						Owner       string `json:"owner"`
						Mint        string `json:"mint"`
						TokenAmount struct {
							Amount string `json:"amount"`
						} `json:"tokenAmount"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"account"`
	}
	if err := c.call(ctx, "getProgramAccounts", params, &raw); err != nil {
		return nil, err
	}

	out := make([]TokenAccount, 0, len(raw))
	for _, it := range raw {
		info := it.Account.Data.Parsed.Info
		if info.Owner == "" {
			continue
		}
		amount, _ := strconv.ParseInt(info.TokenAmount.Amount, 10, 64)
		out = append(out, TokenAccount{Pubkey: it.Pubkey, Owner: info.Owner, Amount: amount})
	}
	return out, nil
}
