package service

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Meter logs fan-out progress at a fixed item interval: completed count,
// throughput, remaining-time estimate, and failures so far. Safe for
// concurrent Done calls.
type Meter struct {
	logger zerolog.Logger
	total  int64
	tick   int64
	start  time.Time
	done   atomic.Int64
	failed atomic.Int64
}

// NewMeter starts a meter over total items, logging every tick items.
func NewMeter(label string, total, tick int, logger zerolog.Logger) *Meter {
	if tick <= 0 {
		tick = 20
	}
	return &Meter{
		logger: logger.With().Str("stage", label).Logger(),
		total:  int64(total),
		tick:   int64(tick),
		start:  time.Now(),
	}
}

// Done records one completed item and emits a progress line on tick
// boundaries and at the end.
func (m *Meter) Done(failed bool) {
	if failed {
		m.failed.Add(1)
	}
	done := m.done.Add(1)
	if done%m.tick != 0 && done != m.total {
		return
	}

	elapsed := time.Since(m.start).Seconds()
	rps := 0.0
	if elapsed > 0 {
		rps = float64(done) / elapsed
	}
	eta := time.Duration(0)
	if rps > 0 && done < m.total {
		eta = time.Duration(float64(m.total-done)/rps) * time.Second
	}

	m.logger.Info().
		Int64("done", done).
		Int64("total", m.total).
		Float64("rps", rps).
		Dur("eta", eta).
		Int64("errors", m.failed.Load()).
		Msg("progress")
}

// Failed returns the failure count so far.
func (m *Meter) Failed() int64 { return m.failed.Load() }
