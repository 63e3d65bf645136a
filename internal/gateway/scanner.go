package gateway

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// FetchFunc retrieves one chunk of provider data for [from, to].
type FetchFunc[T any] func(ctx context.Context, from, to int64) ([]T, error)

// ScanOptions tune the adaptive chunk walk.
type ScanOptions struct {
	// MaxSpan is the initial and largest chunk width.
	MaxSpan int64
	// MinSpan is the floor below which a failing chunk is skipped instead
	// of shrunk further.
	MinSpan int64
	// Backoff is slept before every retry or skip.
	Backoff time.Duration
}

// ScanStats reports the per-chunk outcome counts of a scan.
type ScanStats struct {
	ChunksOK      int
	ChunksRetried int
	ChunksSkipped int
}

// Scanner walks a block range left to right in adaptively sized chunks.
// Each Scanner owns its own cursor and span; it must not be shared across
// concurrent scans.
type Scanner[T any] struct {
	opts   ScanOptions
	fetch  FetchFunc[T]
	logger zerolog.Logger
}

// NewScanner builds a scanner over the given chunk fetcher.
func NewScanner[T any](opts ScanOptions, fetch FetchFunc[T], logger zerolog.Logger) *Scanner[T] {
	if opts.MinSpan <= 0 {
		opts.MinSpan = 1
	}
	if opts.MaxSpan < opts.MinSpan {
		opts.MaxSpan = opts.MinSpan
	}
	return &Scanner[T]{
		opts:   opts,
		fetch:  fetch,
		logger: logger.With().Str("component", "gateway_scanner").Logger(),
	}
}

// Scan fetches r chunk by chunk. A successful chunk advances the cursor
// and grows the span back toward MaxSpan; a failing chunk halves the span
// and retries the same sub-range, until the span hits MinSpan, at which
// point the sub-range is dropped so the walk always makes progress. The
// returned slice holds whatever was gathered; per-chunk failures never
// surface as an error. Only context cancellation aborts the walk, and the
// partial result is still returned.
func (s *Scanner[T]) Scan(ctx context.Context, r Range) ([]T, ScanStats, error) {
	var (
		out   []T
		stats ScanStats
	)
	if r.To < r.From {
		return out, stats, nil
	}

	start := r.From
	span := s.opts.MaxSpan

	for start <= r.To {
		if err := ctx.Err(); err != nil {
			return out, stats, err
		}

		end := start + span - 1
		if end > r.To {
			end = r.To
		}

		items, err := s.fetch(ctx, start, end)
		if err == nil {
			out = append(out, items...)
			stats.ChunksOK++
			start = end + 1
			if span < s.opts.MaxSpan {
				span *= 2
				if span > s.opts.MaxSpan {
					span = s.opts.MaxSpan
				}
			}
			continue
		}

		if span <= s.opts.MinSpan {
			// Span is already at the floor: give up on this sub-range. A
			// gap in the event stream beats a livelocked scan.
			stats.ChunksSkipped++
			s.logger.Warn().
				Int64("from", start).
				Int64("to", end).
				Err(err).
				Msg("chunk skipped at minimum span")
			start = end + 1
		} else {
			stats.ChunksRetried++
			span /= 2
			if span < s.opts.MinSpan {
				span = s.opts.MinSpan
			}
			s.logger.Debug().
				Int64("from", start).
				Int64("span", span).
				Err(err).
				Msg("chunk rejected, shrinking span")
		}

		if s.opts.Backoff > 0 {
			select {
			case <-ctx.Done():
				return out, stats, ctx.Err()
			case <-time.After(s.opts.Backoff):
			}
		}
	}

	return out, stats, nil
}
