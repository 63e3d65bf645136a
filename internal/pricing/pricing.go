// Package pricing resolves current USD token prices. A token with no
// quoted market resolves to an absent price, never to zero.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.dexscreener.com"

// Options parameterise the price client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client fetches spot prices from the DexScreener pairs API.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs a price client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "pricing").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type pairsResponse struct {
	Pairs []struct {
		PriceUSD  string `json:"priceUsd"`
		Liquidity struct {
			USD float64 `json:"usd"`
		} `json:"liquidity"`
	} `json:"pairs"`
}

// PriceUSD returns the USD price of a token, or nil when no market
// quotes it. Among multiple pairs the deepest liquidity wins.
func (c *Client) PriceUSD(ctx context.Context, token string) (*decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "smartfollow/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed pairsResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Pairs) == 0 {
		c.logger.Debug().Str("token", token).Msg("no market pairs for token")
		return nil, nil
	}

	best := parsed.Pairs[0]
	for _, pair := range parsed.Pairs[1:] {
		if pair.Liquidity.USD > best.Liquidity.USD {
			best = pair
		}
	}
	if best.PriceUSD == "" {
		return nil, nil
	}

	price, err := decimal.NewFromString(best.PriceUSD)
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	return &price, nil
}
