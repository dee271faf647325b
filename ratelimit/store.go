package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store tracks per-identity request timestamps.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Pruning: Count must discard entries at or before cutoff before counting,
//   so a history never retains entries older than the window at the moment
//   of inspection.
type Store interface {
	// Count prunes entries at or before cutoff and returns how many remain.
	Count(ctx context.Context, identifier string, cutoff time.Time) (int, error)

	// Record appends a request timestamp to the identity's history.
	Record(ctx context.Context, identifier string, at time.Time) error
}

// MemoryStore is the in-process Store. Per-identity state grows with the
// number of distinct identifiers seen; there is no eviction, which is a
// known scaling limit of a single-process deployment.
type MemoryStore struct {
	mu      sync.Mutex
	history map[string][]time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		history: make(map[string][]time.Time),
	}
}

// Count prunes the identity's history to entries after cutoff and returns
// the remaining count.
func (s *MemoryStore) Count(_ context.Context, identifier string, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.history[identifier]
	if len(entries) == 0 {
		return 0, nil
	}

	// Entries are appended in order; find the first one still inside the
	// window and drop everything before it.
	keep := 0
	for keep < len(entries) && !entries[keep].After(cutoff) {
		keep++
	}
	if keep > 0 {
		entries = append(entries[:0:0], entries[keep:]...)
		if len(entries) == 0 {
			delete(s.history, identifier)
		} else {
			s.history[identifier] = entries
		}
	}

	return len(entries), nil
}

// Record appends a request timestamp for the identity.
func (s *MemoryStore) Record(_ context.Context, identifier string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[identifier] = append(s.history[identifier], at)
	return nil
}

// Identities reports how many identities currently have history.
func (s *MemoryStore) Identities() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
