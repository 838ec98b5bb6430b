package ingest

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/inkdex/ingest-cli/internal/config"
	"github.com/inkdex/ingest-cli/internal/model"
	"github.com/inkdex/ingest-cli/pkg/places"
)

// Driver is the places ingestion action: select due cells, search each
// cell's rectangle, normalize, and upsert the results.
type Driver struct {
	cfg     *config.Config
	store   Store
	client  places.Client
	profile Profile
	limiter *rate.Limiter
}

var _ Action = (*Driver)(nil)

// NewDriver creates a Driver with the given dependencies. A nil profile
// selects the default profile.
func NewDriver(cfg *config.Config, st Store, client places.Client, profile *Profile) *Driver {
	p := DefaultProfile()
	if profile != nil {
		p = *profile
	}
	rateLimit := cfg.Places.RateLimit
	if rateLimit <= 0 {
		rateLimit = 5
	}
	return &Driver{
		cfg:     cfg,
		store:   st,
		client:  client,
		profile: p,
		limiter: rate.NewLimiter(rate.Limit(rateLimit), 1),
	}
}

// Name implements Action.
func (d *Driver) Name() string { return "places" }

// Run implements Action. Cell failures are logged and isolated; the run
// itself fails only when cell selection or run bookkeeping fails.
func (d *Driver) Run(ctx context.Context) (*model.IngestRun, error) {
	log := zap.L().With(zap.String("component", "ingest.driver"))
	start := time.Now()

	cells, err := d.store.SelectDueCells(ctx, d.cfg.Ingest.CellLimit, d.cfg.Ingest.FreshnessWindow())
	if err != nil {
		return nil, eris.Wrap(err, "ingest: select due cells")
	}
	if len(cells) == 0 {
		log.Info("no cells due, exiting")
		now := time.Now().UTC()
		return &model.IngestRun{
			Action:      d.Name(),
			Status:      model.RunStatusComplete,
			StartedAt:   start.UTC(),
			CompletedAt: &now,
		}, nil
	}
	log.Info("selected due cells", zap.Int("count", len(cells)))

	run, err := d.store.CreateRun(ctx, d.Name())
	if err != nil {
		return nil, eris.Wrap(err, "ingest: create run")
	}

	var processed, failed, upserted, dropped, apiCalls atomic.Int64

	workers := d.cfg.Ingest.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, cell := range cells {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			cLog := log.With(zap.Int64("cell_id", cell.ID), zap.String("cell", cell.Name))

			stats, cellErr := d.ingestCell(gctx, cLog, cell)
			processed.Add(1)
			upserted.Add(stats.upserted)
			dropped.Add(stats.dropped)
			apiCalls.Add(stats.calls)

			if cellErr != nil {
				failed.Add(1)
				cLog.Warn("cell ingestion failed", zap.Error(cellErr))
				if !d.cfg.Ingest.MarkFailed {
					return nil // leave the cell due for the next run
				}
			}

			if err := d.store.MarkIngested(gctx, cell.ID); err != nil {
				cLog.Warn("mark ingested failed", zap.Error(err))
			}
			return nil // cell failures never abort the run
		})
	}

	if err := g.Wait(); err != nil {
		run.Status = model.RunStatusFailed
		run.Error = err.Error()
	} else {
		run.Status = model.RunStatusComplete
	}
	run.CellsProcessed = int(processed.Load())
	run.CellsFailed = int(failed.Load())
	run.LocationsUpserted = int(upserted.Load())
	run.RecordsDropped = int(dropped.Load())
	run.APICalls = int(apiCalls.Load())

	if err := d.store.FinishRun(ctx, run); err != nil {
		log.Error("finish run failed", zap.Error(err))
	}

	log.Info("ingestion run complete",
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Int("cells_processed", run.CellsProcessed),
		zap.Int("cells_failed", run.CellsFailed),
		zap.Int("locations_upserted", run.LocationsUpserted),
		zap.Int("records_dropped", run.RecordsDropped),
		zap.Int("api_calls", run.APICalls),
		zap.Duration("elapsed", time.Since(start)),
	)
	return run, nil
}

type cellStats struct {
	upserted int64
	dropped  int64
	calls    int64
}

// ingestCell pages through one cell's rectangle and persists each page's
// surviving records. The page loop stops at the first client error; pages
// already persisted stay persisted.
func (d *Driver) ingestCell(ctx context.Context, log *zap.Logger, cell model.GeoCell) (cellStats, error) {
	var stats cellStats

	req := places.SearchRequest{
		Query: d.profile.Query,
		Rect: places.Rect{
			LowLat:   cell.Rect.LowLat,
			LowLong:  cell.Rect.LowLong,
			HighLat:  cell.Rect.HighLat,
			HighLong: cell.Rect.HighLong,
		},
		PageSize: d.cfg.Places.PageSize,
	}

	pg := newPager(d.client, d.limiter, req, d.cfg.Ingest.MaxPages)
	page := 0
	for pg.Next(ctx) {
		page++
		locs, droppedN := Normalize(pg.Page().Places, &d.profile)
		stats.dropped += int64(droppedN)
		if droppedN > 0 {
			log.Debug("filtered records", zap.Int("page", page), zap.Int("dropped", droppedN))
		}

		n, err := d.store.UpsertLocations(ctx, locs)
		if err != nil {
			log.Warn("upsert locations failed", zap.Int("page", page), zap.Error(err))
			continue
		}
		stats.upserted += n
	}
	stats.calls = int64(pg.Calls())

	if err := pg.Err(); err != nil {
		return stats, eris.Wrapf(err, "ingest: search %s page %d", cell.Name, page+1)
	}
	return stats, nil
}
