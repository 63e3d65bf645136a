// Package memory provides in-process implementations of the storage
// interfaces, used by tests and by runs without a database DSN.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"smartfollow/internal/storage"
)

type candidateKey struct {
	addr  string
	token string
	chain string
}

type listKey struct {
	addr  string
	chain string
}

// Store keeps candidates and classification state in maps guarded by a
// single mutex. Safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	candidates map[candidateKey]*storage.Candidate
	entries    map[listKey]*storage.ListEntry
	now        func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		candidates: make(map[candidateKey]*storage.Candidate),
		entries:    make(map[listKey]*storage.ListEntry),
		now:        time.Now,
	}
}

// UpsertCandidates inserts new discovery records and refreshes last_seen
// on existing ones.
func (s *Store) UpsertCandidates(_ context.Context, chain, token string, addrs []string, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	for _, addr := range addrs {
		key := candidateKey{addr: addr, token: token, chain: chain}
		if existing, ok := s.candidates[key]; ok {
			existing.LastSeen = ts
			continue
		}
		s.candidates[key] = &storage.Candidate{
			Addr:      addr,
			Token:     token,
			Chain:     chain,
			Source:    source,
			FirstSeen: ts,
			LastSeen:  ts,
		}
	}
	return nil
}

// ListPending returns candidates whose effective status is CANDIDATE or
// WATCH, newest first.
func (s *Store) ListPending(_ context.Context, chain string, limit int) ([]storage.Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	all := make([]*storage.Candidate, 0, len(s.candidates))
	for _, c := range s.candidates {
		if c.Chain == chain {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].FirstSeen.After(all[j].FirstSeen)
	})

	pending := make([]storage.Pending, 0)
	for _, c := range all {
		if seen[c.Addr] {
			continue
		}
		seen[c.Addr] = true

		status := storage.StatusCandidate
		if entry, ok := s.entries[listKey{addr: c.Addr, chain: c.Chain}]; ok {
			status = entry.Status
		}
		if status != storage.StatusCandidate && status != storage.StatusWatch {
			continue
		}

		pending = append(pending, storage.Pending{
			Addr:   c.Addr,
			Chain:  c.Chain,
			Token:  c.Token,
			Status: status,
		})
		if limit > 0 && len(pending) >= limit {
			break
		}
	}
	return pending, nil
}

// SetStatus overwrites the classification record for an address.
func (s *Store) SetStatus(_ context.Context, addr, chain string, status storage.Status, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[listKey{addr: addr, chain: chain}] = &storage.ListEntry{
		Addr:      addr,
		Chain:     chain,
		Status:    status,
		Reason:    reason,
		UpdatedAt: s.now(),
	}
	return nil
}

// ListByStatus lists addresses in the given status, most recently updated
// first.
func (s *Store) ListByStatus(_ context.Context, chain string, status storage.Status, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*storage.ListEntry, 0)
	for _, entry := range s.entries {
		if entry.Chain == chain && entry.Status == status {
			matched = append(matched, entry)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	addrs := make([]string, 0, len(matched))
	for _, entry := range matched {
		addrs = append(addrs, entry.Addr)
		if limit > 0 && len(addrs) >= limit {
			break
		}
	}
	return addrs, nil
}

// GetStatus fetches the classification record, nil when none exists.
func (s *Store) GetStatus(_ context.Context, addr, chain string) (*storage.ListEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[listKey{addr: addr, chain: chain}]
	if !ok {
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

var (
	_ storage.CandidateStore = (*Store)(nil)
	_ storage.StatusStore    = (*Store)(nil)
)
