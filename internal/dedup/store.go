// Package dedup tracks which logical events have already produced a
// notification. It is the only mutable shared state in the engine and is
// safe for concurrent use from the ingest path and the evaluation tick.
package dedup

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Store holds notified keys with the time they were first marked.
type Store struct {
	mu     sync.Mutex
	marked map[string]time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{marked: make(map[string]time.Time)}
}

// PassKey is the dedup key gating the one-time blacklist alert for a sighting.
func PassKey(sightingID string) string {
	return "pass:" + sightingID
}

// AvoidanceKey is the dedup key gating the one-time checkpoint-avoidance
// alert for a (vehicle, checkpoint) pair. The checkpoint key leads so that
// clearing a checkpoint is a prefix operation.
func AvoidanceKey(checkpointKey string, vehicleID int64) string {
	return fmt.Sprintf("checkpoint:%s:%d", checkpointKey, vehicleID)
}

// AvoidancePrefix matches every vehicle's avoidance key for one checkpoint.
func AvoidancePrefix(checkpointKey string) string {
	return "checkpoint:" + checkpointKey + ":"
}

// MarkIfAbsent atomically records key and reports whether this was the first
// time it was marked. The caller supplies the tick's authoritative now so
// retention is judged against the same instant as the alert itself.
func (s *Store) MarkIfAbsent(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.marked[key]; exists {
		return false
	}
	s.marked[key] = now
	return true
}

// Marked reports whether key has been marked.
func (s *Store) Marked(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.marked[key]
	return exists
}

// Prune removes entries first marked before the cutoff and returns how many
// were removed.
func (s *Store) Prune(olderThan time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, at := range s.marked {
		if at.Before(olderThan) {
			delete(s.marked, key)
			removed++
		}
	}
	return removed
}

// ClearPrefix removes every entry whose key starts with prefix. Used when an
// operator removes or edits a checkpoint, so its suppression window ends with
// the placement.
func (s *Store) ClearPrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key := range s.marked {
		if strings.HasPrefix(key, prefix) {
			delete(s.marked, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of marked keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.marked)
}
