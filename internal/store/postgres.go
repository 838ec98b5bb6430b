package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/inkdex/ingest-cli/internal/db"
	"github.com/inkdex/ingest-cli/internal/model"
)

// PostgresStore implements Store on top of a pgx connection pool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres wraps an existing pool. The caller owns pool construction
// so tests can substitute a mock.
func NewPostgres(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS geo_cells (
	id               BIGSERIAL PRIMARY KEY,
	name             TEXT NOT NULL UNIQUE,
	low_lat          DOUBLE PRECISION NOT NULL,
	low_long         DOUBLE PRECISION NOT NULL,
	high_lat         DOUBLE PRECISION NOT NULL,
	high_long        DOUBLE PRECISION NOT NULL,
	last_ingested_at TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK (low_lat < high_lat AND low_long < high_long)
);

CREATE INDEX IF NOT EXISTS idx_geo_cells_last_ingested ON geo_cells(last_ingested_at ASC NULLS FIRST);

CREATE TABLE IF NOT EXISTS locations (
	external_id   TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	category      TEXT NOT NULL DEFAULT '',
	address       TEXT NOT NULL DEFAULT '',
	city          TEXT NOT NULL DEFAULT '',
	county        TEXT NOT NULL DEFAULT '',
	state         TEXT NOT NULL DEFAULT '',
	country_code  TEXT NOT NULL DEFAULT '',
	postal_code   TEXT NOT NULL DEFAULT '',
	is_open       BOOLEAN NOT NULL DEFAULT true,
	lat           DOUBLE PRECISION NOT NULL,
	long          DOUBLE PRECISION NOT NULL,
	website_uri   TEXT NOT NULL DEFAULT '',
	first_seen_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_seen_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_locations_category ON locations(category);
CREATE INDEX IF NOT EXISTS idx_locations_state ON locations(state);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id                 TEXT PRIMARY KEY,
	action             TEXT NOT NULL,
	status             TEXT NOT NULL DEFAULT 'running',
	started_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at       TIMESTAMPTZ,
	cells_processed    INTEGER NOT NULL DEFAULT 0,
	cells_failed       INTEGER NOT NULL DEFAULT 0,
	locations_upserted INTEGER NOT NULL DEFAULT 0,
	records_dropped    INTEGER NOT NULL DEFAULT 0,
	api_calls          INTEGER NOT NULL DEFAULT 0,
	error              TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_ingest_runs_started_at ON ingest_runs(started_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var cellColumns = []string{"name", "low_lat", "low_long", "high_lat", "high_long"}

func (s *PostgresStore) UpsertCells(ctx context.Context, cells []model.GeoCell) (int64, error) {
	if len(cells) == 0 {
		return 0, nil
	}
	rows := make([][]any, 0, len(cells))
	for _, c := range cells {
		rows = append(rows, []any{c.Name, c.Rect.LowLat, c.Rect.LowLong, c.Rect.HighLat, c.Rect.HighLong})
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "geo_cells",
		Columns:      cellColumns,
		ConflictKeys: []string{"name"},
	}, rows)
	return n, eris.Wrap(err, "postgres: upsert cells")
}

const selectDueCellsSQL = `
SELECT id, name, low_lat, low_long, high_lat, high_long, last_ingested_at, created_at
FROM geo_cells
WHERE last_ingested_at IS NULL OR last_ingested_at < $1
ORDER BY last_ingested_at ASC NULLS FIRST, id
LIMIT $2`

// SelectDueCells returns cells never ingested or last ingested before the
// freshness window, stalest first.
func (s *PostgresStore) SelectDueCells(ctx context.Context, limit int, window time.Duration) ([]model.GeoCell, error) {
	cutoff := time.Now().UTC().Add(-window)
	rows, err := s.pool.Query(ctx, selectDueCellsSQL, cutoff, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: select due cells")
	}
	defer rows.Close()

	var cells []model.GeoCell
	for rows.Next() {
		var c model.GeoCell
		err := rows.Scan(&c.ID, &c.Name, &c.Rect.LowLat, &c.Rect.LowLong,
			&c.Rect.HighLat, &c.Rect.HighLong, &c.LastIngestedAt, &c.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan cell")
		}
		cells = append(cells, c)
	}
	return cells, eris.Wrap(rows.Err(), "postgres: select due cells iterate")
}

func (s *PostgresStore) MarkIngested(ctx context.Context, cellID int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE geo_cells SET last_ingested_at = now() WHERE id = $1`, cellID)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark cell %d", cellID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("cell not found: %d", cellID)
	}
	return nil
}

const cellStatsSQL = `
SELECT
	count(*),
	count(*) FILTER (WHERE last_ingested_at IS NULL),
	count(*) FILTER (WHERE last_ingested_at IS NOT NULL AND last_ingested_at < $1),
	count(*) FILTER (WHERE last_ingested_at >= $1)
FROM geo_cells`

func (s *PostgresStore) CellStats(ctx context.Context, window time.Duration) (*CellStats, error) {
	cutoff := time.Now().UTC().Add(-window)
	var st CellStats
	err := s.pool.QueryRow(ctx, cellStatsSQL, cutoff).
		Scan(&st.Total, &st.NeverIngested, &st.Stale, &st.Fresh)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: cell stats")
	}
	return &st, nil
}

var locationColumns = []string{
	"external_id", "name", "category", "address", "city", "county", "state",
	"country_code", "postal_code", "is_open", "lat", "long", "website_uri",
	"first_seen_at", "last_seen_at",
}

// locationUpdateColumns excludes external_id (the conflict key) and
// first_seen_at so re-ingesting keeps the earliest sighting.
var locationUpdateColumns = []string{
	"name", "category", "address", "city", "county", "state",
	"country_code", "postal_code", "is_open", "lat", "long", "website_uri",
	"last_seen_at",
}

func (s *PostgresStore) UpsertLocations(ctx context.Context, locs []model.Location) (int64, error) {
	if len(locs) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	rows := make([][]any, 0, len(locs))
	for _, l := range locs {
		rows = append(rows, []any{
			l.ExternalID, l.Name, l.Category, l.Address, l.City, l.County, l.State,
			l.CountryCode, l.PostalCode, l.IsOpen, l.Lat, l.Long, l.WebsiteURI,
			now, now,
		})
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "locations",
		Columns:      locationColumns,
		ConflictKeys: []string{"external_id"},
		UpdateCols:   locationUpdateColumns,
	}, rows)
	return n, eris.Wrap(err, "postgres: upsert locations")
}

func (s *PostgresStore) CountLocations(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM locations`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count locations")
}

func (s *PostgresStore) CreateRun(ctx context.Context, action string) (*model.IngestRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingest_runs (id, action, status, started_at) VALUES ($1, $2, $3, $4)`,
		id, action, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.IngestRun{
		ID:        id,
		Action:    action,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}, nil
}

const finishRunSQL = `
UPDATE ingest_runs
SET status = $1, completed_at = $2, cells_processed = $3, cells_failed = $4,
    locations_upserted = $5, records_dropped = $6, api_calls = $7, error = $8
WHERE id = $9`

func (s *PostgresStore) FinishRun(ctx context.Context, run *model.IngestRun) error {
	if run.CompletedAt == nil {
		now := time.Now().UTC()
		run.CompletedAt = &now
	}

	tag, err := s.pool.Exec(ctx, finishRunSQL,
		string(run.Status), *run.CompletedAt, run.CellsProcessed, run.CellsFailed,
		run.LocationsUpserted, run.RecordsDropped, run.APICalls, run.Error, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", run.ID)
	}
	return nil
}

const listRunsSQL = `
SELECT id, action, status, started_at, completed_at, cells_processed, cells_failed,
       locations_upserted, records_dropped, api_calls, error
FROM ingest_runs
ORDER BY started_at DESC
LIMIT $1`

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.IngestRun, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, listRunsSQL, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.IngestRun
	for rows.Next() {
		var r model.IngestRun
		err := rows.Scan(&r.ID, &r.Action, &r.Status, &r.StartedAt, &r.CompletedAt,
			&r.CellsProcessed, &r.CellsFailed, &r.LocationsUpserted,
			&r.RecordsDropped, &r.APICalls, &r.Error)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}
