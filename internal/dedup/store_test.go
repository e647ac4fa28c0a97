package dedup

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMarkIfAbsentFirstWins(t *testing.T) {
	s := NewStore()
	now := time.Now()

	assert.True(t, s.MarkIfAbsent(PassKey("abc"), now))
	assert.False(t, s.MarkIfAbsent(PassKey("abc"), now))
	assert.True(t, s.Marked(PassKey("abc")))
	assert.False(t, s.Marked(PassKey("other")))
}

func TestMarkIfAbsentConcurrent(t *testing.T) {
	s := NewStore()
	now := time.Now()

	const workers = 32
	var wg sync.WaitGroup
	firsts := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			firsts <- s.MarkIfAbsent("contended", now)
		}()
	}
	wg.Wait()
	close(firsts)

	won := 0
	for first := range firsts {
		if first {
			won++
		}
	}
	assert.Equal(t, 1, won, "exactly one marker may win")
}

func TestPruneRemovesOldEntries(t *testing.T) {
	s := NewStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.MarkIfAbsent("old", base.Add(-25*time.Hour))
	s.MarkIfAbsent("fresh", base.Add(-time.Hour))

	removed := s.Prune(base.Add(-24 * time.Hour))
	assert.Equal(t, 1, removed)
	assert.False(t, s.Marked("old"))
	assert.True(t, s.Marked("fresh"))
}

func TestClearPrefixEndsSuppressionForOneCheckpoint(t *testing.T) {
	s := NewStore()
	now := time.Now()
	cpA := "16.860000,100.210000"
	cpB := "16.900000,100.250000"

	for v := int64(1); v <= 3; v++ {
		s.MarkIfAbsent(AvoidanceKey(cpA, v), now)
	}
	s.MarkIfAbsent(AvoidanceKey(cpB, 1), now)
	s.MarkIfAbsent(PassKey("sighting-1"), now)

	removed := s.ClearPrefix(AvoidancePrefix(cpA))
	assert.Equal(t, 3, removed)
	assert.Equal(t, 2, s.Len())

	// A cleared vehicle may alert again for the same checkpoint key.
	assert.True(t, s.MarkIfAbsent(AvoidanceKey(cpA, 2), now))
	// Unrelated keys are untouched.
	assert.True(t, s.Marked(AvoidanceKey(cpB, 1)))
	assert.True(t, s.Marked(PassKey("sighting-1")))
}

func TestAvoidanceKeyShape(t *testing.T) {
	key := AvoidanceKey("16.860000,100.210000", 42)
	assert.Equal(t, fmt.Sprintf("checkpoint:%s:%d", "16.860000,100.210000", 42), key)
}
