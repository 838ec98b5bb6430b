package model

import "time"

// Rect is a geographic bounding rectangle in degrees.
type Rect struct {
	LowLat   float64 `json:"low_lat"`
	LowLong  float64 `json:"low_long"`
	HighLat  float64 `json:"high_lat"`
	HighLong float64 `json:"high_long"`
}

// Valid reports whether the rectangle is non-degenerate and within
// lat/long bounds. Every persisted cell must satisfy this.
func (r Rect) Valid() bool {
	if r.LowLat >= r.HighLat || r.LowLong >= r.HighLong {
		return false
	}
	if r.LowLat < -90 || r.HighLat > 90 {
		return false
	}
	if r.LowLong < -180 || r.HighLong > 180 {
		return false
	}
	return true
}

// GeoCell is a geographic tile (an administrative county), the unit of
// ingestion scheduling. Cells are created by the boundary loader and
// mutated only by the driver's mark-ingested step.
type GeoCell struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Rect           Rect       `json:"rect"`
	LastIngestedAt *time.Time `json:"last_ingested_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
