package store

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/inkdex/ingest-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS geo_cells (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	name             TEXT NOT NULL UNIQUE,
	low_lat          REAL NOT NULL,
	low_long         REAL NOT NULL,
	high_lat         REAL NOT NULL,
	high_long        REAL NOT NULL,
	last_ingested_at DATETIME,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	CHECK (low_lat < high_lat AND low_long < high_long)
);

CREATE INDEX IF NOT EXISTS idx_geo_cells_last_ingested ON geo_cells(last_ingested_at);

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
	is_open       INTEGER NOT NULL DEFAULT 1,
	lat           REAL NOT NULL,
	long          REAL NOT NULL,
	website_uri   TEXT NOT NULL DEFAULT '',
	first_seen_at DATETIME NOT NULL,
	last_seen_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_locations_category ON locations(category);
CREATE INDEX IF NOT EXISTS idx_locations_state ON locations(state);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id                 TEXT PRIMARY KEY,
	action             TEXT NOT NULL,
	status             TEXT NOT NULL DEFAULT 'running',
	started_at         DATETIME NOT NULL,
	completed_at       DATETIME,
	cells_processed    INTEGER NOT NULL DEFAULT 0,
	cells_failed       INTEGER NOT NULL DEFAULT 0,
	locations_upserted INTEGER NOT NULL DEFAULT 0,
	records_dropped    INTEGER NOT NULL DEFAULT 0,
	api_calls          INTEGER NOT NULL DEFAULT 0,
	error              TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_ingest_runs_started_at ON ingest_runs(started_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteUpsertCell = `
INSERT INTO geo_cells (name, low_lat, low_long, high_lat, high_long)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	low_lat = excluded.low_lat,
	low_long = excluded.low_long,
	high_lat = excluded.high_lat,
	high_long = excluded.high_long`

func (s *SQLiteStore) UpsertCells(ctx context.Context, cells []model.GeoCell) (int64, error) {
	if len(cells) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	var n int64
	for _, c := range cells {
		_, err := tx.ExecContext(ctx, sqliteUpsertCell,
			c.Name, c.Rect.LowLat, c.Rect.LowLong, c.Rect.HighLat, c.Rect.HighLong)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert cell %s", c.Name)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit cells")
	}
	return n, nil
}

const sqliteSelectDueCells = `
SELECT id, name, low_lat, low_long, high_lat, high_long, last_ingested_at, created_at
FROM geo_cells
WHERE last_ingested_at IS NULL OR last_ingested_at < ?
ORDER BY last_ingested_at ASC NULLS FIRST, id
LIMIT ?`

// SelectDueCells returns cells never ingested or last ingested before the
// freshness window, stalest first.
func (s *SQLiteStore) SelectDueCells(ctx context.Context, limit int, window time.Duration) ([]model.GeoCell, error) {
	cutoff := time.Now().UTC().Add(-window)
	rows, err := s.db.QueryContext(ctx, sqliteSelectDueCells, cutoff, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: select due cells")
	}
	defer rows.Close()

	var cells []model.GeoCell
	for rows.Next() {
		var c model.GeoCell
		var last sql.NullTime
		err := rows.Scan(&c.ID, &c.Name, &c.Rect.LowLat, &c.Rect.LowLong,
			&c.Rect.HighLat, &c.Rect.HighLong, &last, &c.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cell")
		}
		if last.Valid {
			t := last.Time
			c.LastIngestedAt = &t
		}
		cells = append(cells, c)
	}
	return cells, eris.Wrap(rows.Err(), "sqlite: select due cells iterate")
}

func (s *SQLiteStore) MarkIngested(ctx context.Context, cellID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE geo_cells SET last_ingested_at = ? WHERE id = ?`,
		time.Now().UTC(), cellID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark cell %d", cellID)
	}
	return checkRowsAffected(res, "cell", strconv.FormatInt(cellID, 10))
}

const sqliteCellStats = `
SELECT
	count(*),
	coalesce(sum(CASE WHEN last_ingested_at IS NULL THEN 1 ELSE 0 END), 0),
	coalesce(sum(CASE WHEN last_ingested_at IS NOT NULL AND last_ingested_at < ? THEN 1 ELSE 0 END), 0),
	coalesce(sum(CASE WHEN last_ingested_at >= ? THEN 1 ELSE 0 END), 0)
FROM geo_cells`

func (s *SQLiteStore) CellStats(ctx context.Context, window time.Duration) (*CellStats, error) {
	cutoff := time.Now().UTC().Add(-window)
	var st CellStats
	err := s.db.QueryRowContext(ctx, sqliteCellStats, cutoff, cutoff).
		Scan(&st.Total, &st.NeverIngested, &st.Stale, &st.Fresh)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: cell stats")
	}
	return &st, nil
}

const sqliteUpsertLocation = `
INSERT INTO locations (
	external_id, name, category, address, city, county, state,
	country_code, postal_code, is_open, lat, long, website_uri,
	first_seen_at, last_seen_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(external_id) DO UPDATE SET
	name = excluded.name,
	category = excluded.category,
	address = excluded.address,
	city = excluded.city,
	county = excluded.county,
	state = excluded.state,
	country_code = excluded.country_code,
	postal_code = excluded.postal_code,
	is_open = excluded.is_open,
	lat = excluded.lat,
	long = excluded.long,
	website_uri = excluded.website_uri,
	last_seen_at = excluded.last_seen_at`

// UpsertLocations writes locations keyed by external id. first_seen_at is
// preserved across re-ingestion.
func (s *SQLiteStore) UpsertLocations(ctx context.Context, locs []model.Location) (int64, error) {
	if len(locs) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	var n int64
	for _, l := range locs {
		_, err := tx.ExecContext(ctx, sqliteUpsertLocation,
			l.ExternalID, l.Name, l.Category, l.Address, l.City, l.County, l.State,
			l.CountryCode, l.PostalCode, l.IsOpen, l.Lat, l.Long, l.WebsiteURI,
			now, now)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert location %s", l.ExternalID)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit locations")
	}
	return n, nil
}

func (s *SQLiteStore) CountLocations(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM locations`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count locations")
}

func (s *SQLiteStore) CreateRun(ctx context.Context, action string) (*model.IngestRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, action, status, started_at) VALUES (?, ?, ?, ?)`,
		id, action, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.IngestRun{
		ID:        id,
		Action:    action,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}, nil
}

const sqliteFinishRun = `
UPDATE ingest_runs
SET status = ?, completed_at = ?, cells_processed = ?, cells_failed = ?,
    locations_upserted = ?, records_dropped = ?, api_calls = ?, error = ?
WHERE id = ?`

func (s *SQLiteStore) FinishRun(ctx context.Context, run *model.IngestRun) error {
	if run.CompletedAt == nil {
		now := time.Now().UTC()
		run.CompletedAt = &now
	}

	res, err := s.db.ExecContext(ctx, sqliteFinishRun,
		string(run.Status), *run.CompletedAt, run.CellsProcessed, run.CellsFailed,
		run.LocationsUpserted, run.RecordsDropped, run.APICalls, run.Error, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", run.ID)
	}
	return checkRowsAffected(res, "run", run.ID)
}

const sqliteListRuns = `
SELECT id, action, status, started_at, completed_at, cells_processed, cells_failed,
       locations_upserted, records_dropped, api_calls, error
FROM ingest_runs
ORDER BY started_at DESC
LIMIT ?`

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.IngestRun, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, sqliteListRuns, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.IngestRun
	for rows.Next() {
		var r model.IngestRun
		var completed sql.NullTime
		err := rows.Scan(&r.ID, &r.Action, &r.Status, &r.StartedAt, &completed,
			&r.CellsProcessed, &r.CellsFailed, &r.LocationsUpserted,
			&r.RecordsDropped, &r.APICalls, &r.Error)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if completed.Valid {
			t := completed.Time
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
