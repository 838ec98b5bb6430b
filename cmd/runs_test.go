package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/inkdex/ingest-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	started := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	finished := started.Add(42 * time.Minute)

	runs := []model.IngestRun{
		{
			ID:                "a3f8c2d1-0000-0000-0000-000000000000",
			Action:            "places",
			Status:            model.RunStatusComplete,
			StartedAt:         started,
			CompletedAt:       &finished,
			CellsProcessed:    3500,
			CellsFailed:       4,
			LocationsUpserted: 51234,
			APICalls:          9102,
		},
		{
			ID:        "b7e1d905-0000-0000-0000-000000000000",
			Action:    "places",
			Status:    model.RunStatusRunning,
			StartedAt: started.Add(time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "ACTION")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "a3f8c2d1")
	assert.Contains(t, output, "places")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "3500")
	assert.Contains(t, output, "51234")
	assert.Contains(t, output, "2026-03-10 06:00")
	assert.Contains(t, output, "42m0s")
	assert.Contains(t, output, "b7e1d905")
	assert.Contains(t, output, "running")
}

func TestFormatRunsList_FailedRun(t *testing.T) {
	started := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)

	runs := []model.IngestRun{
		{
			ID:          "c2d90001-0000-0000-0000-000000000000",
			Action:      "places",
			Status:      model.RunStatusFailed,
			StartedAt:   started,
			CompletedAt: &finished,
			Error:       "select due cells: connection refused",
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "c2d90001")
	assert.Contains(t, output, "failed")
	assert.Contains(t, output, "1m30s")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "a3f8c2d1", truncateID("a3f8c2d1-0000-0000-0000-000000000000"))
	assert.Equal(t, "short", truncateID("short"))
}
