package fixpoint

import (
	"context"
	"time"
)

// RunInfo describes a run when it starts.
type RunInfo struct {
	ID        string
	Project   string
	Depth     int
	KeepStyle bool
	StartedAt time.Time
}

// Recorder persists the progress of runs. Recording errors are logged and
// never stop a run.
type Recorder interface {
	BeginRun(ctx context.Context, info RunInfo) error
	RecordPass(ctx context.Context, runID string, pass PassReport) error
	FinishRun(ctx context.Context, runID string, final State, runErr error) error
}
