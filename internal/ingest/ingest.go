// Package ingest drives geo-partitioned ingestion: due cells come out of
// the store, each cell's rectangle is searched through the places API page
// by page, and the filtered results are written back as locations. Cell
// failures are isolated; one bad cell never aborts a run.
package ingest

import (
	"context"
	"time"

	"github.com/inkdex/ingest-cli/internal/model"
)

// Store defines the persistence operations the ingestion driver needs.
type Store interface {
	SelectDueCells(ctx context.Context, limit int, window time.Duration) ([]model.GeoCell, error)
	MarkIngested(ctx context.Context, cellID int64) error
	UpsertLocations(ctx context.Context, locs []model.Location) (int64, error)
	CreateRun(ctx context.Context, action string) (*model.IngestRun, error)
	FinishRun(ctx context.Context, run *model.IngestRun) error
}
