package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/inkdex/ingest-cli/internal/model"
	"github.com/inkdex/ingest-cli/pkg/places"
)

// mockStore implements Store for testing.
type mockStore struct {
	mu sync.Mutex

	dueCells     []model.GeoCell
	selectErr    error
	upserted     []model.Location
	upsertErr    error
	upsertCalls  int
	markedIDs    []int64
	markErr      error
	createRunErr error
	finishedRun  *model.IngestRun
}

func (m *mockStore) SelectDueCells(_ context.Context, limit int, _ time.Duration) ([]model.GeoCell, error) {
	if m.selectErr != nil {
		return nil, m.selectErr
	}
	if limit > 0 && limit < len(m.dueCells) {
		return m.dueCells[:limit], nil
	}
	return m.dueCells, nil
}

func (m *mockStore) MarkIngested(_ context.Context, cellID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	m.markedIDs = append(m.markedIDs, cellID)
	return nil
}

func (m *mockStore) UpsertLocations(_ context.Context, locs []model.Location) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	if m.upsertErr != nil {
		return 0, m.upsertErr
	}
	m.upserted = append(m.upserted, locs...)
	return int64(len(locs)), nil
}

func (m *mockStore) CreateRun(_ context.Context, action string) (*model.IngestRun, error) {
	if m.createRunErr != nil {
		return nil, m.createRunErr
	}
	return &model.IngestRun{
		ID:        "run-test",
		Action:    action,
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}, nil
}

func (m *mockStore) FinishRun(_ context.Context, run *model.IngestRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finishedRun = run
	return nil
}

// mockPlacesClient implements places.Client. Pages are keyed by the
// requesting rectangle's low latitude plus the page token, so multi-page
// sequences and per-cell failures can both be scripted.
type mockPlacesClient struct {
	mu       sync.Mutex
	pages    map[string]*places.SearchPage
	errs     map[string]error
	requests []places.SearchRequest
}

func pageKey(lowLat float64, token string) string {
	return fmt.Sprintf("%.2f|%s", lowLat, token)
}

func (m *mockPlacesClient) SearchRectangle(_ context.Context, req places.SearchRequest) (*places.SearchPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	k := pageKey(req.Rect.LowLat, req.PageToken)
	if err, ok := m.errs[k]; ok {
		return nil, err
	}
	if page, ok := m.pages[k]; ok {
		return page, nil
	}
	return &places.SearchPage{}, nil
}

func (m *mockPlacesClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// testPlace builds a minimal valid place that the default profile keeps.
func testPlace(id, name string) places.Place {
	return places.Place{
		ID:             id,
		DisplayName:    places.DisplayName{Text: name},
		Location:       &places.LatLng{Latitude: 30.2, Longitude: -97.7},
		PrimaryType:    "tattoo_shop",
		BusinessStatus: "OPERATIONAL",
	}
}

func testPlaces(ids ...string) []places.Place {
	out := make([]places.Place, 0, len(ids))
	for _, id := range ids {
		out = append(out, testPlace(id, "Shop "+id))
	}
	return out
}

func testCell(id int64, name string, lowLat float64) model.GeoCell {
	return model.GeoCell{
		ID:   id,
		Name: name,
		Rect: model.Rect{LowLat: lowLat, LowLong: -98, HighLat: lowLat + 0.5, HighLong: -97},
	}
}
