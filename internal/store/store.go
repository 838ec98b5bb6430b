// Package store persists geographic cells, normalized locations, and run
// history. Two backends implement the same interface: Postgres via pgxpool
// for shared deployments and SQLite via modernc.org/sqlite for local runs.
package store

import (
	"context"
	"time"

	"github.com/inkdex/ingest-cli/internal/model"
)

// Store is the persistence boundary for the ingestion pipeline.
type Store interface {
	// Cell inventory.
	UpsertCells(ctx context.Context, cells []model.GeoCell) (int64, error)
	SelectDueCells(ctx context.Context, limit int, window time.Duration) ([]model.GeoCell, error)
	MarkIngested(ctx context.Context, cellID int64) error
	CellStats(ctx context.Context, window time.Duration) (*CellStats, error)

	// Locations.
	UpsertLocations(ctx context.Context, locs []model.Location) (int64, error)
	CountLocations(ctx context.Context) (int64, error)

	// Run history.
	CreateRun(ctx context.Context, action string) (*model.IngestRun, error)
	FinishRun(ctx context.Context, run *model.IngestRun) error
	ListRuns(ctx context.Context, limit int) ([]model.IngestRun, error)

	// Migrate applies the schema. Idempotent.
	Migrate(ctx context.Context) error
	Close() error
}

// CellStats summarizes cell freshness relative to an ingestion window.
type CellStats struct {
	Total         int64
	NeverIngested int64
	Stale         int64
	Fresh         int64
}

// Due returns the number of cells eligible for the next run.
func (s CellStats) Due() int64 {
	return s.NeverIngested + s.Stale
}
