package geo

import (
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundsFromShape_Polygon(t *testing.T) {
	poly := &shp.Polygon{
		NumParts: 1,
		Parts:    []int32{0},
		Points: []shp.Point{
			{X: -98.17, Y: 30.02},
			{X: -98.17, Y: 30.63},
			{X: -97.37, Y: 30.63},
			{X: -97.37, Y: 30.02},
			{X: -98.17, Y: 30.02}, // closed ring
		},
	}

	rect, ok := boundsFromShape(poly)
	require.True(t, ok)
	assert.InDelta(t, 30.02, rect.LowLat, 1e-9)
	assert.InDelta(t, -98.17, rect.LowLong, 1e-9)
	assert.InDelta(t, 30.63, rect.HighLat, 1e-9)
	assert.InDelta(t, -97.37, rect.HighLong, 1e-9)
}

func TestBoundsFromShape_MultiPartPolygon(t *testing.T) {
	// Bounds must cover every part, not just the first.
	poly := &shp.Polygon{
		NumParts: 2,
		Parts:    []int32{0, 5},
		Points: []shp.Point{
			// Ring 1
			{X: -98.0, Y: 30.0},
			{X: -98.0, Y: 30.5},
			{X: -97.5, Y: 30.5},
			{X: -97.5, Y: 30.0},
			{X: -98.0, Y: 30.0},
			// Ring 2, further west and north
			{X: -99.0, Y: 31.0},
			{X: -99.0, Y: 31.5},
			{X: -98.5, Y: 31.5},
			{X: -98.5, Y: 31.0},
			{X: -99.0, Y: 31.0},
		},
	}

	rect, ok := boundsFromShape(poly)
	require.True(t, ok)
	assert.InDelta(t, 30.0, rect.LowLat, 1e-9)
	assert.InDelta(t, -99.0, rect.LowLong, 1e-9)
	assert.InDelta(t, 31.5, rect.HighLat, 1e-9)
	assert.InDelta(t, -97.5, rect.HighLong, 1e-9)
}

func TestBoundsFromShape_PolyLine(t *testing.T) {
	pl := &shp.PolyLine{
		NumParts: 1,
		Parts:    []int32{0},
		Points: []shp.Point{
			{X: -97.9, Y: 30.1},
			{X: -97.6, Y: 30.3},
			{X: -97.4, Y: 30.4},
		},
	}

	rect, ok := boundsFromShape(pl)
	require.True(t, ok)
	assert.InDelta(t, 30.1, rect.LowLat, 1e-9)
	assert.InDelta(t, -97.9, rect.LowLong, 1e-9)
	assert.InDelta(t, 30.4, rect.HighLat, 1e-9)
	assert.InDelta(t, -97.4, rect.HighLong, 1e-9)
}

func TestBoundsFromShape_Point(t *testing.T) {
	// A point has no area, so it cannot make a search rectangle.
	p := &shp.Point{X: -97.74, Y: 30.27}

	_, ok := boundsFromShape(p)
	assert.False(t, ok)
}

func TestBoundsFromShape_NilShape(t *testing.T) {
	_, ok := boundsFromShape(nil)
	assert.False(t, ok)
}

func TestBoundsFromShape_EmptyPolygon(t *testing.T) {
	poly := &shp.Polygon{
		NumParts: 0,
		Parts:    nil,
		Points:   nil,
	}

	_, ok := boundsFromShape(poly)
	assert.False(t, ok)
}

func TestBoundsFromShape_EmptyPolyLine(t *testing.T) {
	pl := &shp.PolyLine{
		NumParts: 0,
		Parts:    nil,
		Points:   nil,
	}

	_, ok := boundsFromShape(pl)
	assert.False(t, ok)
}
