package storage

import "time"

// Status is the single mutable classification state of an address.
type Status string

const (
	StatusCandidate Status = "CANDIDATE"
	StatusWatch     Status = "WATCH"
	StatusWhite     Status = "WHITE"
	StatusBlack     Status = "BLACK"
)

// Discovery sources recorded on candidates.
const (
	SourceHolderSnapshot   = "holder-snapshot"
	SourceEarlyBuyerReplay = "early-buyer-replay"
	SourceManual           = "manual"
)

// Candidate is an (address, token, chain) discovery record. Created
// idempotently; never deleted, only refreshed.
type Candidate struct {
	Addr      string
	Token     string
	Chain     string
	Source    string
	FirstSeen time.Time
	LastSeen  time.Time
}

// ListEntry is an address's classification record. Later writes overwrite
// earlier ones; no history is retained.
type ListEntry struct {
	Addr      string
	Chain     string
	Status    Status
	Reason    string
	UpdatedAt time.Time
}

// Pending is a candidate joined with its effective status, as consumed by
// the classification pipeline.
type Pending struct {
	Addr   string
	Chain  string
	Token  string
	Status Status
}
