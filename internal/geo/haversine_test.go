package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

const distEps = 0.5 // meters

func TestDistanceIdenticalPoints(t *testing.T) {
	points := []orb.Point{
		{100.2100, 16.8600},
		{0, 0},
		{-180, 90},
	}
	for _, p := range points {
		assert.Zero(t, Distance(p, p))
	}
}

func TestDistanceSymmetry(t *testing.T) {
	a := orb.Point{100.2100, 16.8600}
	b := orb.Point{100.2170, 16.8540}
	assert.Equal(t, Distance(a, b), Distance(b, a))
}

func TestDistanceKnownValues(t *testing.T) {
	checkpoint := orb.Point{100.2100, 16.8600}

	tests := []struct {
		name string
		to   orb.Point
		want float64
	}{
		{"near camera", orb.Point{100.2101, 16.8605}, 56.607},
		{"far camera", orb.Point{100.2170, 16.8540}, 1000.010},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Distance(checkpoint, tt.to), distEps)
		})
	}
}

func TestDistanceNearAntipodal(t *testing.T) {
	a := orb.Point{0, 0}
	b := orb.Point{180, 0}
	d := Distance(a, b)
	assert.False(t, d != d, "distance must not be NaN")
	// Half the earth's circumference.
	assert.InDelta(t, 20015086, d, 1000)
}
