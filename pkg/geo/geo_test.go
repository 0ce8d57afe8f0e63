package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Accra job site used across the tests.
var accra = Point{Latitude: 5.6037, Longitude: -0.1870}

func TestDistance(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Point
		minMeters float64
		maxMeters float64
	}{
		{
			name:      "same point is zero",
			a:         accra,
			b:         accra,
			minMeters: 0,
			maxMeters: 0,
		},
		{
			name:      "one street over is tens of meters",
			a:         accra,
			b:         Point{Latitude: 5.6038, Longitude: -0.1871},
			minMeters: 1,
			maxMeters: 100,
		},
		{
			name:      "~5km north",
			a:         accra,
			b:         Point{Latitude: 5.6487, Longitude: -0.1870},
			minMeters: 4900,
			maxMeters: 5100,
		},
		{
			name:      "across the equator",
			a:         Point{Latitude: 1, Longitude: 0},
			b:         Point{Latitude: -1, Longitude: 0},
			minMeters: 222000,
			maxMeters: 223000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Distance(tt.a, tt.b)
			assert.GreaterOrEqual(t, d, tt.minMeters)
			assert.LessOrEqual(t, d, tt.maxMeters)
		})
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a := accra
	b := Point{Latitude: 5.6487, Longitude: -0.2100}

	assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
}

func TestVerify(t *testing.T) {
	t.Run("nearby position verifies", func(t *testing.T) {
		v := Verify(accra, Point{Latitude: 5.6038, Longitude: -0.1871}, 100)
		assert.True(t, v.Verified)
		assert.Less(t, v.DistanceMeters, 100)
		assert.Greater(t, v.DistanceMeters, 0)
	})

	t.Run("5km away does not verify", func(t *testing.T) {
		v := Verify(accra, Point{Latitude: 5.6487, Longitude: -0.1870}, 100)
		assert.False(t, v.Verified)
		assert.Greater(t, v.DistanceMeters, 4000)
	})

	t.Run("distance exactly at radius verifies", func(t *testing.T) {
		v := Verify(accra, accra, 0)
		assert.True(t, v.Verified)
		assert.Equal(t, 0, v.DistanceMeters)
	})
}

func TestBoundingBox(t *testing.T) {
	minLat, maxLat, minLng, maxLng := BoundingBox(accra, 10000)

	assert.Less(t, minLat, accra.Latitude)
	assert.Greater(t, maxLat, accra.Latitude)
	assert.Less(t, minLng, accra.Longitude)
	assert.Greater(t, maxLng, accra.Longitude)

	// Corners of the box must be at least radius away from the center
	// along each axis.
	assert.GreaterOrEqual(t, Distance(accra, Point{Latitude: maxLat, Longitude: accra.Longitude}), 9999.0)
	assert.GreaterOrEqual(t, Distance(accra, Point{Latitude: accra.Latitude, Longitude: maxLng}), 9999.0)
}

func TestBoundingBox_NearPole(t *testing.T) {
	pole := Point{Latitude: 89.9999, Longitude: 0}
	_, _, minLng, maxLng := BoundingBox(pole, 1000)
	assert.False(t, math.IsNaN(minLng))
	assert.False(t, math.IsInf(maxLng, 0))
}
