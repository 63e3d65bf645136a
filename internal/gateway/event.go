// Package gateway turns an unbounded, partially reliable transaction
// history into a bounded, ordered stream of balance-delta events.
package gateway

import "sort"

// Event is a signed raw balance delta for one address at one timestamp,
// derived from pre/post balance snapshots of a single transaction.
type Event struct {
	Timestamp int64
	AmountRaw int64
}

// Range is a half-open-free block or slot interval, inclusive both ends.
type Range struct {
	From int64
	To   int64
}

// SortEvents orders events by ascending timestamp. The sort is stable so
// provider ordering breaks ties.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})
}
