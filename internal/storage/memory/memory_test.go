package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartfollow/internal/storage"
)

func TestUpsertCandidatesIdempotent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.UpsertCandidates(ctx, "sol", "mint", []string{"a", "b"}, storage.SourceHolderSnapshot))
	require.NoError(t, store.UpsertCandidates(ctx, "sol", "mint", []string{"a"}, storage.SourceHolderSnapshot))

	pending, err := store.ListPending(ctx, "sol", 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestListPendingExcludesTerminalStatuses(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.UpsertCandidates(ctx, "sol", "mint", []string{"a", "b", "c"}, storage.SourceManual))
	require.NoError(t, store.SetStatus(ctx, "a", "sol", storage.StatusWhite, "eoalike_not_insider"))
	require.NoError(t, store.SetStatus(ctx, "b", "sol", storage.StatusWatch, "pending_verify"))

	pending, err := store.ListPending(ctx, "sol", 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	statuses := map[string]storage.Status{}
	for _, p := range pending {
		statuses[p.Addr] = p.Status
	}
	assert.Equal(t, storage.StatusWatch, statuses["b"])
	assert.Equal(t, storage.StatusCandidate, statuses["c"])
	assert.NotContains(t, statuses, "a")
}

func TestListPendingRespectsChainAndLimit(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.UpsertCandidates(ctx, "sol", "mint", []string{"a", "b", "c"}, storage.SourceManual))
	require.NoError(t, store.UpsertCandidates(ctx, "evm", "token", []string{"x"}, storage.SourceManual))

	pending, err := store.ListPending(ctx, "sol", 2)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	pending, err = store.ListPending(ctx, "evm", 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "x", pending[0].Addr)
}

func TestSetStatusLastWriteWins(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.SetStatus(ctx, "a", "sol", storage.StatusWatch, "pending_verify"))
	require.NoError(t, store.SetStatus(ctx, "a", "sol", storage.StatusWhite, "eoalike_not_insider"))

	entry, err := store.GetStatus(ctx, "a", "sol")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, storage.StatusWhite, entry.Status)
	assert.Equal(t, "eoalike_not_insider", entry.Reason)
}

func TestGetStatusMissingReturnsNil(t *testing.T) {
	store := NewStore()
	entry, err := store.GetStatus(context.Background(), "missing", "sol")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestListByStatusOrdersByRecency(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { now = now.Add(time.Second); return now }

	require.NoError(t, store.SetStatus(ctx, "older", "sol", storage.StatusWhite, ""))
	require.NoError(t, store.SetStatus(ctx, "newer", "sol", storage.StatusWhite, ""))
	require.NoError(t, store.SetStatus(ctx, "black", "sol", storage.StatusBlack, ""))

	addrs, err := store.ListByStatus(ctx, "sol", storage.StatusWhite, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"newer", "older"}, addrs)

	addrs, err = store.ListByStatus(ctx, "sol", storage.StatusWhite, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"newer"}, addrs)
}
