package storage

import (
	"context"
	"time"

	"nullfix/internal/fixpoint"
)

// ReportStore persists run reports. Reports are output artifacts; nothing
// reads them back to drive an analysis.
type ReportStore interface {
	fixpoint.Recorder

	// LoadRun returns a recorded run with its passes and decisions.
	LoadRun(ctx context.Context, id string) (*RunRecord, error)

	// ListRuns returns the most recent runs first, without passes.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)

	Close() error
}

type RunRecord struct {
	ID         string
	Project    string
	Depth      int
	KeepStyle  bool
	StartedAt  time.Time
	FinishedAt time.Time
	Final      string
	Error      string
	Passes     []PassRecord
}

type PassRecord struct {
	Number     int
	Candidates int
	Duration   time.Duration
	Decisions  []DecisionRecord
}

// Outcomes stored in the decisions table.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeApplied  = "applied"
	OutcomeFailed   = "failed"
)

type DecisionRecord struct {
	Outcome    string
	Fix        string // human readable fix, e.g. "@nullable on Foo#get()"
	Kind       string
	Class      string
	Member     string
	Index      int
	Path       string
	Annotation string
	Detail     string // rejection reason or patch error
}
