package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClockNow(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	assert.False(t, now.Before(before))
	assert.False(t, now.After(after))
}

func TestMockClockSetAndAdvance(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	assert.True(t, clock.Now().Equal(start))

	clock.Advance(11 * time.Second)
	assert.True(t, clock.Now().Equal(start.Add(11*time.Second)))

	later := start.Add(time.Hour)
	clock.Set(later)
	assert.True(t, clock.Now().Equal(later))
}
