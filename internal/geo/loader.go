// Package geo loads county boundary sources into geo cells.
package geo

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/inkdex/ingest-cli/internal/fetcher"
	"github.com/inkdex/ingest-cli/internal/model"
)

// DefaultCountySource is the nationwide county shapefile loaded when no
// source is given.
const DefaultCountySource = "https://www2.census.gov/geo/tiger/TIGER2024/COUNTY/tl_2024_us_county.zip"

// Source formats.
const (
	FormatShapefile = "shapefile"
	FormatCSV       = "csv"
	FormatXLSX      = "xlsx"
)

// Default attribute fields for TIGER county shapefiles. NAMELSAD repeats
// across states ("Washington County" appears thirty times), so the state
// FIPS code is appended to keep cell names unique.
const (
	defaultNameField  = "NAMELSAD"
	defaultStateField = "STATEFP"
)

// CellWriter is the slice of the store the loader needs.
type CellWriter interface {
	UpsertCells(ctx context.Context, cells []model.GeoCell) (int64, error)
}

// LoadOptions configures a boundary load.
type LoadOptions struct {
	Source     string // http(s)/ftp URL or local path
	Format     string // shapefile, csv, or xlsx; empty means detect from the extension
	NameField  string // shapefile attribute holding the cell name
	StateField string // shapefile attribute appended to disambiguate names across states
	Charset    string // CSV source encoding; empty means UTF-8
	Sheet      string // XLSX sheet name; empty means the first sheet
}

// Summary reports what a load did.
type Summary struct {
	Read     int   // records seen in the source
	Skipped  int   // records dropped
	Upserted int64 // cells written
}

// Loader reads boundary sources and upserts geo cells.
type Loader struct {
	store CellWriter
}

// NewLoader returns a Loader writing through the given store.
func NewLoader(store CellWriter) *Loader {
	return &Loader{store: store}
}

// Load fetches a boundary source, parses it, and upserts the resulting
// cells. Records without a usable name or rectangle are skipped, not fatal.
func (l *Loader) Load(ctx context.Context, opts LoadOptions) (*Summary, error) {
	log := zap.L().With(zap.String("component", "geo.loader"))

	format, err := resolveFormat(opts)
	if err != nil {
		return nil, err
	}

	tempDir, err := os.MkdirTemp("", "boundaries-")
	if err != nil {
		return nil, eris.Wrap(err, "geo: create temp dir")
	}
	defer os.RemoveAll(tempDir) //nolint:errcheck

	path, err := fetcher.Materialize(ctx, opts.Source, tempDir)
	if err != nil {
		return nil, eris.Wrap(err, "geo: fetch boundary source")
	}

	log.Info("loading boundary source",
		zap.String("source", opts.Source),
		zap.String("format", format),
	)

	summary := &Summary{}
	var cells []model.GeoCell
	switch format {
	case FormatShapefile:
		cells, err = l.readShapefile(log, path, opts, tempDir, summary)
	case FormatCSV:
		cells, err = l.readCSV(ctx, log, path, opts, summary)
	case FormatXLSX:
		cells, err = l.readXLSX(log, path, opts, summary)
	}
	if err != nil {
		return nil, err
	}

	upserted, err := l.store.UpsertCells(ctx, cells)
	if err != nil {
		return nil, eris.Wrap(err, "geo: upsert cells")
	}
	summary.Upserted = upserted

	log.Info("boundary load complete",
		zap.Int("read", summary.Read),
		zap.Int("skipped", summary.Skipped),
		zap.Int64("upserted", upserted),
	)
	return summary, nil
}

// resolveFormat picks the source format from the option or the extension.
func resolveFormat(opts LoadOptions) (string, error) {
	if opts.Format != "" {
		switch opts.Format {
		case FormatShapefile, FormatCSV, FormatXLSX:
			return opts.Format, nil
		}
		return "", eris.Errorf("geo: unknown format %q (valid: shapefile, csv, xlsx)", opts.Format)
	}

	switch strings.ToLower(filepath.Ext(opts.Source)) {
	case ".zip", ".shp":
		return FormatShapefile, nil
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", eris.Errorf("geo: cannot detect format of %s, pass one explicitly", opts.Source)
}

func (l *Loader) readShapefile(log *zap.Logger, path string, opts LoadOptions, tempDir string, sum *Summary) ([]model.GeoCell, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		extractDir := filepath.Join(tempDir, "shp")
		if err := os.MkdirAll(extractDir, 0o755); err != nil {
			return nil, eris.Wrap(err, "geo: create extract dir")
		}
		if _, err := fetcher.ExtractZIP(path, extractDir); err != nil {
			return nil, eris.Wrap(err, "geo: extract boundary archive")
		}
		var err error
		path, err = findFileByExt(extractDir, ".shp")
		if err != nil {
			return nil, eris.Wrap(err, "geo: find .shp file")
		}
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "geo: open shapefile")
	}
	defer func() { _ = reader.Close() }()

	nameField := opts.NameField
	if nameField == "" {
		nameField = defaultNameField
	}
	stateField := opts.StateField
	if stateField == "" {
		stateField = defaultStateField
	}

	nameIdx := fieldIndex(reader, nameField)
	if nameIdx < 0 {
		return nil, eris.Errorf("geo: field %q not found in shapefile", nameField)
	}
	// The state field is optional: without it, names are taken as-is.
	stateIdx := fieldIndex(reader, stateField)

	var cells []model.GeoCell
	index := make(map[string]int)
	for reader.Next() {
		_, shape := reader.Shape()
		sum.Read++

		name := strings.TrimSpace(reader.Attribute(nameIdx))
		if name == "" {
			sum.Skipped++
			continue
		}
		if stateIdx >= 0 {
			if state := strings.TrimSpace(reader.Attribute(stateIdx)); state != "" {
				name = name + " (" + state + ")"
			}
		}

		rect, ok := boundsFromShape(shape)
		if !ok {
			log.Warn("skipping record with unusable geometry", zap.String("cell", name))
			sum.Skipped++
			continue
		}

		cells = appendCell(cells, index, model.GeoCell{Name: name, Rect: rect}, log, sum)
	}

	return cells, nil
}

func (l *Loader) readCSV(ctx context.Context, log *zap.Logger, path string, opts LoadOptions, sum *Summary) ([]model.GeoCell, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "geo: open csv")
	}
	defer f.Close() //nolint:errcheck

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
		Charset:   opts.Charset,
	})

	// Boundary tables are small; drain before touching the header so the
	// stream is fully settled by the time we look for it.
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "geo: read csv")
	}

	var header []string
	select {
	case header = <-headerCh:
	default:
		return nil, eris.New("geo: csv source is empty")
	}

	return l.cellsFromRows(log, header, rows, sum)
}

func (l *Loader) readXLSX(log *zap.Logger, path string, opts LoadOptions, sum *Summary) ([]model.GeoCell, error) {
	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{SheetName: opts.Sheet})
	if err != nil {
		return nil, eris.Wrap(err, "geo: read xlsx")
	}
	if len(rows) == 0 {
		return nil, eris.New("geo: xlsx sheet is empty")
	}
	return l.cellsFromRows(log, rows[0], rows[1:], sum)
}

// cellsFromRows converts tabular records into cells using a header row to
// locate columns.
func (l *Loader) cellsFromRows(log *zap.Logger, header []string, rows [][]string, sum *Summary) ([]model.GeoCell, error) {
	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var cells []model.GeoCell
	index := make(map[string]int)
	for i, row := range rows {
		sum.Read++

		cell, err := cellFromRow(row, cols)
		if err != nil {
			// Row numbers are 1-based and count the header.
			log.Warn("skipping boundary record", zap.Int("row", i+2), zap.Error(err))
			sum.Skipped++
			continue
		}

		cells = appendCell(cells, index, cell, log, sum)
	}

	return cells, nil
}

// appendCell adds a cell, replacing any earlier cell with the same name.
// Last wins, matching what sequential upserts would do.
func appendCell(cells []model.GeoCell, index map[string]int, c model.GeoCell, log *zap.Logger, sum *Summary) []model.GeoCell {
	if i, ok := index[c.Name]; ok {
		log.Warn("duplicate cell name, keeping last", zap.String("cell", c.Name))
		sum.Skipped++
		cells[i] = c
		return cells
	}
	index[c.Name] = len(cells)
	return append(cells, c)
}

// columnMap locates the boundary table columns by header name.
type columnMap struct {
	name     int
	lowLat   int
	lowLong  int
	highLat  int
	highLong int
}

func mapColumns(header []string) (columnMap, error) {
	cols := columnMap{name: -1, lowLat: -1, lowLong: -1, highLat: -1, highLong: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name":
			cols.name = i
		case "low_lat":
			cols.lowLat = i
		case "low_long":
			cols.lowLong = i
		case "high_lat":
			cols.highLat = i
		case "high_long":
			cols.highLong = i
		}
	}

	var missing []string
	for _, c := range []struct {
		idx   int
		label string
	}{
		{cols.name, "name"},
		{cols.lowLat, "low_lat"},
		{cols.lowLong, "low_long"},
		{cols.highLat, "high_lat"},
		{cols.highLong, "high_long"},
	} {
		if c.idx < 0 {
			missing = append(missing, c.label)
		}
	}
	if len(missing) > 0 {
		return cols, eris.Errorf("geo: source is missing columns: %s", strings.Join(missing, ", "))
	}

	return cols, nil
}

// cellFromRow builds a cell from one tabular record.
func cellFromRow(row []string, cols columnMap) (model.GeoCell, error) {
	if cols.name >= len(row) {
		return model.GeoCell{}, eris.New("missing name field")
	}
	name := strings.TrimSpace(row[cols.name])
	if name == "" {
		return model.GeoCell{}, eris.New("empty name")
	}

	lowLat, err := parseCoord(row, cols.lowLat, "low_lat")
	if err != nil {
		return model.GeoCell{}, err
	}
	lowLong, err := parseCoord(row, cols.lowLong, "low_long")
	if err != nil {
		return model.GeoCell{}, err
	}
	highLat, err := parseCoord(row, cols.highLat, "high_lat")
	if err != nil {
		return model.GeoCell{}, err
	}
	highLong, err := parseCoord(row, cols.highLong, "high_long")
	if err != nil {
		return model.GeoCell{}, err
	}

	rect := model.Rect{LowLat: lowLat, LowLong: lowLong, HighLat: highLat, HighLong: highLong}
	if !rect.Valid() {
		return model.GeoCell{}, eris.Errorf("degenerate rectangle for %s", name)
	}

	return model.GeoCell{Name: name, Rect: rect}, nil
}

func parseCoord(row []string, idx int, col string) (float64, error) {
	if idx >= len(row) {
		return 0, eris.Errorf("missing %s field", col)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parse %s", col)
	}
	return v, nil
}

// findFileByExt finds the first file with the given extension in a directory.
func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("no %s file found in %s", ext, dir)
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
