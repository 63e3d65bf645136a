package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type chunkRecord struct {
	from, to int64
}

func TestScannerCoversRangeOnSuccess(t *testing.T) {
	var chunks []chunkRecord
	scanner := NewScanner(ScanOptions{MaxSpan: 100, MinSpan: 10}, func(_ context.Context, from, to int64) ([]int64, error) {
		chunks = append(chunks, chunkRecord{from, to})
		out := make([]int64, 0, to-from+1)
		for b := from; b <= to; b++ {
			out = append(out, b)
		}
		return out, nil
	}, testLogger())

	items, stats, err := scanner.Scan(context.Background(), Range{From: 0, To: 249})
	require.NoError(t, err)
	assert.Len(t, items, 250)
	assert.Equal(t, 3, stats.ChunksOK)
	assert.Zero(t, stats.ChunksRetried)
	assert.Zero(t, stats.ChunksSkipped)

	// Contiguous, non-overlapping coverage.
	next := int64(0)
	for _, c := range chunks {
		assert.Equal(t, next, c.from)
		next = c.to + 1
	}
	assert.Equal(t, int64(250), next)
}

func TestScannerShrinksAndRecovers(t *testing.T) {
	fail := map[int64]bool{0: true}
	var spans []int64
	scanner := NewScanner(ScanOptions{MaxSpan: 64, MinSpan: 4}, func(_ context.Context, from, to int64) ([]int64, error) {
		spans = append(spans, to-from+1)
		if fail[from] && to-from+1 > 8 {
			return nil, errors.New("provider rejected range")
		}
		return []int64{from}, nil
	}, testLogger())

	_, stats, err := scanner.Scan(context.Background(), Range{From: 0, To: 200})
	require.NoError(t, err)
	assert.Positive(t, stats.ChunksRetried)
	assert.Zero(t, stats.ChunksSkipped)

	for _, span := range spans {
		assert.GreaterOrEqual(t, span, int64(1))
		assert.LessOrEqual(t, span, int64(64))
	}
	// The span grew back to the maximum after the failing region.
	assert.Contains(t, spans, int64(64))
}

func TestScannerAllChunksFailingTerminates(t *testing.T) {
	calls := 0
	scanner := NewScanner(ScanOptions{MaxSpan: 32, MinSpan: 8}, func(_ context.Context, from, to int64) ([]int64, error) {
		calls++
		return nil, errors.New("always failing")
	}, testLogger())

	items, stats, err := scanner.Scan(context.Background(), Range{From: 0, To: 1000})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, stats.ChunksOK)
	assert.Positive(t, stats.ChunksSkipped)
	// Bounded work: halving to the floor then skipping forward.
	assert.Less(t, calls, 1000)
}

func TestScannerSpanFloor(t *testing.T) {
	var minSeen int64 = 1 << 62
	scanner := NewScanner(ScanOptions{MaxSpan: 40, MinSpan: 5}, func(_ context.Context, from, to int64) ([]int64, error) {
		span := to - from + 1
		if span < minSeen {
			minSeen = span
		}
		return nil, errors.New("rejected")
	}, testLogger())

	_, _, err := scanner.Scan(context.Background(), Range{From: 0, To: 100})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, minSeen, int64(5))
}

func TestScannerCancellationReturnsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	scanner := NewScanner(ScanOptions{MaxSpan: 10, MinSpan: 10}, func(_ context.Context, from, to int64) ([]int64, error) {
		calls++
		if calls == 3 {
			cancel()
		}
		return []int64{from}, nil
	}, testLogger())

	items, _, err := scanner.Scan(ctx, Range{From: 0, To: 10_000})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, items, 3)
}

func TestScannerEmptyRange(t *testing.T) {
	scanner := NewScanner(ScanOptions{MaxSpan: 10, MinSpan: 1}, func(_ context.Context, from, to int64) ([]int64, error) {
		t.Fatal("fetch must not be called for an inverted range")
		return nil, nil
	}, testLogger())

	items, stats, err := scanner.Scan(context.Background(), Range{From: 10, To: 5})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, ScanStats{}, stats)
}
