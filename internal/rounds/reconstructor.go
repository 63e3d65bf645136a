// Package rounds reconstructs discrete trading rounds from an address's
// balance-delta event stream.
package rounds

import (
	"time"

	"smartfollow/internal/epoch"
	"smartfollow/internal/gateway"
)

// ClosedReason explains how a round ended.
type ClosedReason string

const (
	// ReasonDrained: tracked quantity fell to zero or below on a sell.
	ReasonDrained ClosedReason = "drained"
	// ReasonTimeout: position was still open past the hold timeout.
	ReasonTimeout ClosedReason = "timeout"
	// ReasonEndOfStreamOpen: the event stream ended with the position open.
	ReasonEndOfStreamOpen ClosedReason = "end_of_stream_open"
)

// Round is one open-to-closed position cycle. Immutable once emitted.
type Round struct {
	EntryTS        int64
	ExitTS         int64
	HoldSeconds    int64
	BuyRaw         int64
	SellRaw        int64
	NetRaw         int64
	RealizedPnLRaw int64
	TimeBucket     string
	ClosedReason   ClosedReason
}

type accumulator struct {
	entryTS int64
	buy     int64
	sell    int64
	net     int64
	open    bool
}

// Reconstruct replays events in ascending timestamp order (stable for
// equal timestamps) and emits the address's rounds. A positive delta in
// the idle state opens a round; a sell that drains the tracked position
// closes it realised; a zero-delta observation past the timeout while the
// position is still held force-closes it with the net position marked as
// the loss. A round left open at end of stream is emitted as such.
func Reconstruct(events []gateway.Event, t0 *int64, timeout time.Duration) []Round {
	if len(events) == 0 {
		return nil
	}

	ordered := make([]gateway.Event, len(events))
	copy(ordered, events)
	gateway.SortEvents(ordered)

	timeoutSec := int64(timeout / time.Second)

	var (
		out []Round
		cur accumulator
		pos int64
	)

	close := func(exitTS, pnl int64, reason ClosedReason) {
		out = append(out, Round{
			EntryTS:        cur.entryTS,
			ExitTS:         exitTS,
			HoldSeconds:    exitTS - cur.entryTS,
			BuyRaw:         cur.buy,
			SellRaw:        cur.sell,
			NetRaw:         cur.net,
			RealizedPnLRaw: pnl,
			TimeBucket:     epoch.Bucket(cur.entryTS, t0),
			ClosedReason:   reason,
		})
		cur = accumulator{}
		pos = 0
	}

	for _, ev := range ordered {
		d := ev.AmountRaw
		switch {
		case d == 0:
			if cur.open && pos > 0 && ev.Timestamp-cur.entryTS >= timeoutSec {
				// No fair-value pricing at timeout: the remaining net
				// position is marked as the realized loss.
				close(ev.Timestamp, -cur.net, ReasonTimeout)
			}

		case d > 0:
			if !cur.open {
				cur = accumulator{entryTS: ev.Timestamp, open: true}
			}
			cur.buy += d
			cur.net += d
			pos += d

		default: // d < 0
			if !cur.open {
				// A sell with no tracked position: nothing to drain.
				continue
			}
			cur.sell += -d
			cur.net += d
			pos += d
			if pos <= 0 {
				close(ev.Timestamp, cur.sell-cur.buy, ReasonDrained)
			}
		}
	}

	if cur.open && pos > 0 {
		last := ordered[len(ordered)-1].Timestamp
		close(last, -cur.net, ReasonEndOfStreamOpen)
	}

	return out
}
