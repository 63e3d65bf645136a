package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestClient(url string) *Client {
	return NewClient(Options{
		RPCURL:     url,
		Timeout:    time.Second,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}, noopLogger())
}

func rpcResult(t *testing.T, w http.ResponseWriter, result any) {
	t.Helper()
	if err := json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": result}); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestClientMissingURL(t *testing.T) {
	c := NewClient(Options{}, noopLogger())
	if _, err := c.GetBlockTime(context.Background(), 1); err == nil {
		t.Fatal("missing RPC URL must error")
	}
}

func TestClientRetriesRateLimit(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		rpcResult(t, w, 1234)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	bt, err := c.GetBlockTime(context.Background(), 1)
	if err != nil {
		t.Fatalf("retry should have recovered: %v", err)
	}
	if bt == nil || *bt != 1234 {
		t.Fatalf("unexpected block time: %v", bt)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestClientDoesNotRetryRPCError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": 1,
			"error": map[string]any{"code": -32602, "message": "invalid params"},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.GetBlockTime(context.Background(), 1)
	if err == nil || !strings.Contains(err.Error(), "invalid params") {
		t.Fatalf("expected node-side error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("node-side errors must not be retried; got %d calls", calls)
	}
}

func TestClientExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.GetBlockTime(context.Background(), 1); err == nil {
		t.Fatal("persistent transport failure must surface")
	}
}

func TestGetAccountIdentityMissingAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rpcResult(t, w, map[string]any{"value": nil})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	identity, err := c.GetAccountIdentity(context.Background(), "missing")
	if err != nil {
		t.Fatalf("missing account is not an error: %v", err)
	}
	if identity != nil {
		t.Fatalf("expected nil identity, got %+v", identity)
	}
}

func TestGetAccountIdentityParsesValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rpcResult(t, w, map[string]any{"value": map[string]any{
			"executable": false,
			"owner":      SystemProgramID,
			"lamports":   5000,
		}})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	identity, err := c.GetAccountIdentity(context.Background(), "addr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if identity == nil || identity.Executable || identity.Owner != SystemProgramID || identity.Lamports != 5000 {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestGetTokenSupplyRejectsNegativeDecimals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rpcResult(t, w, map[string]any{"value": map[string]any{"amount": "100", "decimals": -1}})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.GetTokenSupply(context.Background(), "mint"); err == nil {
		t.Fatal("negative decimals must be rejected")
	}
}

func TestValidPubkey(t *testing.T) {
	valid := []string{
		"11111111111111111111111111111111",
		"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
		"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
	}
	for _, s := range valid {
		if !ValidPubkey(s) {
			t.Fatalf("%s should be a valid pubkey", s)
		}
	}

	invalid := []string{"", "0xdeadbeef", "not-base58!!", "abc"}
	for _, s := range invalid {
		if ValidPubkey(s) {
			t.Fatalf("%s should be rejected", s)
		}
	}
}
