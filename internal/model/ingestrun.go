package model

import "time"

// RunStatus represents the current state of an ingestion run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// IngestRun records one invocation of an ingestion action: which action
// ran, when, and what it accomplished. Rows outlive the run and feed the
// runs subcommand.
type IngestRun struct {
	ID                string     `json:"id"`
	Action            string     `json:"action"`
	Status            RunStatus  `json:"status"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CellsProcessed    int        `json:"cells_processed"`
	CellsFailed       int        `json:"cells_failed"`
	LocationsUpserted int        `json:"locations_upserted"`
	RecordsDropped    int        `json:"records_dropped"`
	APICalls          int        `json:"api_calls"`
	Error             string     `json:"error,omitempty"`
}

// Duration returns the run's elapsed time, using now for runs that have
// not completed.
func (r IngestRun) Duration(now time.Time) time.Duration {
	if r.CompletedAt != nil {
		return r.CompletedAt.Sub(r.StartedAt)
	}
	return now.Sub(r.StartedAt)
}
