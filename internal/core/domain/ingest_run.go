package domain

import "time"

type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// IngestRun records one fire-and-forget ingestion run. The trigger only
// creates the row; the worker owns every later transition.
type IngestRun struct {
	ID              string    `json:"id"`
	Status          RunStatus `json:"status"`
	DocumentsLoaded int       `json:"documents_loaded"`
	ChunksIndexed   int       `json:"chunks_indexed"`
	FilesSkipped    int       `json:"files_skipped"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RunCounts carries the aggregate outcome of one run.
type RunCounts struct {
	DocumentsLoaded int
	ChunksIndexed   int
	FilesSkipped    int
}
