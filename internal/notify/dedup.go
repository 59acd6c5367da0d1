// Package notify turns hazard feed events into at-most-once, radius-gated
// notification intents for a single user session.
package notify

import (
	"context"
	"sync"
)

// Lifecycle event kinds tracked by the dedup gate. Create and resolve are
// deduplicated independently.
const (
	KindCreated  = "created"
	KindResolved = "resolved"
)

// EventKey builds the dedup key for a (hazard id, lifecycle kind) pair.
func EventKey(hazardID, kind string) string {
	return hazardID + ":" + kind
}

// SeenStore is the at-most-once gate behind notification surfacing.
// MarkSurfaced returns true exactly once per key; every later call with the
// same key returns false.
type SeenStore interface {
	MarkSurfaced(ctx context.Context, key string) (bool, error)
}

// MemorySeenStore is the in-process SeenStore. It grows without eviction for
// the session lifetime, which is the accepted tradeoff for a bounded-lifetime
// session; shared or long-running deployments use the Redis-backed store.
type MemorySeenStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemorySeenStore creates an empty in-memory seen set.
func NewMemorySeenStore() *MemorySeenStore {
	return &MemorySeenStore{seen: make(map[string]struct{})}
}

func (s *MemorySeenStore) MarkSurfaced(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = struct{}{}
	return true, nil
}

// Len reports the number of recorded keys.
func (s *MemorySeenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
