package sink

import (
	"context"
	"time"

	"movement-tracker/pipeline/internal/model"
	"movement-tracker/pipeline/internal/postprocess"
)

// Sink is the minimal interface all sinks must implement.
type Sink interface {
	Name() string
	Push(ctx context.Context, events []model.Event) error
}

// RunInfo describes the batch that produced a Push.
type RunInfo struct {
	ID         string             `json:"run_id"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Documents  int                `json:"documents"`
	Skipped    int                `json:"documents_skipped"`
	Detected   int                `json:"detected"`
	Post       postprocess.Report `json:"postprocess"`
}

// RunAware sinks receive batch metadata before Push.
type RunAware interface {
	SetRun(RunInfo)
}
