package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance_SamePoint(t *testing.T) {
	assert.Zero(t, Distance(28.6139, 77.2090, 28.6139, 77.2090))
}

func TestDistance_KnownPair(t *testing.T) {
	// New Delhi to Mumbai, roughly 1150 km.
	d := Distance(28.6139, 77.2090, 19.0760, 72.8777)
	assert.InDelta(t, 1150000, d, 20000)
}

func TestDistance_ShortRange(t *testing.T) {
	// ~0.00045 degrees of latitude is about 50 m.
	d := Distance(28.6139, 77.2090, 28.61435, 77.2090)
	assert.InDelta(t, 50, d, 1)
}

func TestWithinRadius(t *testing.T) {
	assert.True(t, WithinRadius(28.6139, 77.2090, 28.61435, 77.2090, 51))
	assert.False(t, WithinRadius(28.6139, 77.2090, 28.61435, 77.2090, 49))
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(0, 0))
	assert.True(t, ValidCoordinates(-90, 180))
	assert.False(t, ValidCoordinates(90.1, 0))
	assert.False(t, ValidCoordinates(0, -180.1))
}
