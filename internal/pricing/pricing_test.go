package pricing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestPriceUSDPicksDeepestPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"pairs": []map[string]any{
				{"priceUsd": "0.90", "liquidity": map[string]any{"usd": 1000.0}},
				{"priceUsd": "1.25", "liquidity": map[string]any{"usd": 50000.0}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	price, err := c.PriceUSD(context.Background(), "mint")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price == nil {
		t.Fatal("expected a price")
	}
	if price.String() != "1.25" {
		t.Fatalf("expected 1.25, got %s", price.String())
	}
}

func TestPriceUSDNoPairsReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"pairs": []map[string]any{}})
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	price, err := c.PriceUSD(context.Background(), "mint")
	if err != nil {
		t.Fatalf("absence of a market must not error: %v", err)
	}
	if price != nil {
		t.Fatalf("expected nil price, got %s", price.String())
	}
}

func TestPriceUSDHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := c.PriceUSD(context.Background(), "mint"); err == nil {
		t.Fatal("HTTP 429 must surface as an error")
	}
}
