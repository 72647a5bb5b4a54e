// Package fixpoint drives the checker-rerun loop: every pass runs the
// checker, loads its facts, computes blast radii, decides which fixes are
// safe together and patches them, until nothing more is accepted or the
// depth budget runs out.
package fixpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"nullfix/internal/checker"
	"nullfix/internal/facts"
	"nullfix/internal/fix"
	"nullfix/internal/logging"
	"nullfix/internal/patcher"
	"nullfix/internal/policy"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
)

type State int

const (
	Idle State = iota
	CheckerRunning
	FactsLoaded
	RegionsComputed
	DecisionMade
	Applied
	Rejected
	Exhausted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CheckerRunning:
		return "checker_running"
	case FactsLoaded:
		return "facts_loaded"
	case RegionsComputed:
		return "regions_computed"
	case DecisionMade:
		return "decision_made"
	case Applied:
		return "applied"
	case Rejected:
		return "rejected"
	case Exhausted:
		return "exhausted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether the loop stops in s.
func (s State) Terminal() bool { return s == Rejected || s == Exhausted }

// FactLoader builds the stores of one pass from a checker output directory.
type FactLoader interface {
	Load(ctx context.Context, dir string) (*facts.Snapshot, error)
}

// Options are the run parameters. They do not change during a run.
type Options struct {
	Project        string
	OutputDir      string
	Depth          int
	KeepStyle      bool
	CheckerRetries int
}

// Collaborators are the components the engine drives. Recorder and Logger
// are optional.
type Collaborators struct {
	Checker  checker.Checker
	Loader   FactLoader
	Policy   policy.Policy
	Patcher  patcher.Patcher
	Recorder Recorder
	Logger   *slog.Logger
}

// PassReport summarizes one pass.
type PassReport struct {
	Number     int
	Candidates int
	Accepted   []fix.Fix
	Rejected   []policy.Rejection
	Applied    []fix.Fix
	Failed     []patcher.Result
	Duration   time.Duration
}

// Result is the outcome of a run.
type Result struct {
	RunID       string
	Final       State
	Passes      []PassReport
	Accepted    []fix.Fix // every fix applied during the run, in order
	LastApplied []fix.Fix // fixes applied by the last pass that applied any
}

// Engine runs the fixpoint loop for one module. An Engine may be reused for
// several runs but not concurrently.
type Engine struct {
	opts Options
	deps Collaborators
}

func New(opts Options, deps Collaborators) (*Engine, error) {
	switch {
	case deps.Checker == nil:
		return nil, errors.New("fixpoint: checker is required")
	case deps.Loader == nil:
		return nil, errors.New("fixpoint: fact loader is required")
	case deps.Policy == nil:
		return nil, errors.New("fixpoint: policy is required")
	case deps.Patcher == nil:
		return nil, errors.New("fixpoint: patcher is required")
	case opts.Depth < 0:
		return nil, fmt.Errorf("fixpoint: negative depth %d", opts.Depth)
	case opts.OutputDir == "":
		return nil, errors.New("fixpoint: output directory is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if opts.CheckerRetries < 0 {
		opts.CheckerRetries = 0
	}
	return &Engine{opts: opts, deps: deps}, nil
}

// run is the mutable state of a single Run call.
type run struct {
	id     string
	state  State
	budget int
	ledger *Ledger

	pass       PassReport
	passStart  time.Time
	dir        string
	snapshot   *facts.Snapshot
	candidates []policy.Candidate
	decision   policy.Decision

	result *Result
}

// Run drives the loop until it reaches Rejected or Exhausted. Checker
// failures after the configured retries, fact parse errors and context
// cancellation end the run with an error; the partial Result is returned
// alongside it.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	r := &run{
		id:     uuid.NewString(),
		state:  Idle,
		budget: e.opts.Depth,
		ledger: NewLedger(),
	}
	r.result = &Result{RunID: r.id}
	log := e.deps.Logger.With("run_id", r.id)

	if e.deps.Recorder != nil {
		if err := e.deps.Recorder.BeginRun(ctx, RunInfo{
			ID:        r.id,
			Project:   e.opts.Project,
			Depth:     e.opts.Depth,
			KeepStyle: e.opts.KeepStyle,
			StartedAt: time.Now(),
		}); err != nil {
			log.Warn("failed to record run start", "error", err)
		}
	}

	err := e.loop(ctx, r, log)
	r.result.Final = r.state
	r.result.Accepted = r.ledger.Fixes()

	if e.deps.Recorder != nil {
		if rerr := e.deps.Recorder.FinishRun(ctx, r.id, r.state, err); rerr != nil {
			log.Warn("failed to record run end", "error", rerr)
		}
	}
	if err != nil {
		log.Error("run failed", "state", r.state, "error", err)
		return r.result, err
	}
	log.Info("run finished", "state", r.state, "passes", len(r.result.Passes), "accepted", len(r.result.Accepted))
	return r.result, nil
}

func (e *Engine) loop(ctx context.Context, r *run, log *slog.Logger) error {
	for {
		switch r.state {
		case Idle:
			if r.budget == 0 {
				r.state = Exhausted
				continue
			}
			r.state = CheckerRunning

		case CheckerRunning:
			r.pass = PassReport{Number: r.pass.Number + 1}
			r.passStart = time.Now()
			dir, err := e.runChecker(ctx, r, log)
			if err != nil {
				return err
			}
			r.dir = dir
			r.state = FactsLoaded

		case FactsLoaded:
			snap, err := e.deps.Loader.Load(ctx, r.dir)
			if err != nil {
				return err
			}
			r.snapshot = snap
			r.state = RegionsComputed

		case RegionsComputed:
			candidates, err := e.computeRegions(ctx, r)
			if err != nil {
				return err
			}
			r.candidates = candidates
			r.pass.Candidates = len(candidates)
			r.state = DecisionMade

		case DecisionMade:
			r.decision = e.deps.Policy.Decide(r.candidates)
			r.pass.Accepted = r.decision.Accepted
			r.pass.Rejected = r.decision.Rejected
			// The pass's stores are not needed past this point.
			r.snapshot, r.candidates = nil, nil
			if len(r.decision.Accepted) == 0 {
				r.state = Rejected
				e.finishPass(ctx, r, log)
				continue
			}
			r.state = Applied

		case Applied:
			e.apply(ctx, r, log)
			r.budget--
			e.finishPass(ctx, r, log)
			if r.budget == 0 {
				r.state = Exhausted
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			r.state = CheckerRunning

		case Rejected, Exhausted:
			return nil

		default:
			return fmt.Errorf("fixpoint: unknown state %v", r.state)
		}
	}
}

// runChecker runs the checker into a fresh directory for the current pass,
// retrying failed invocations.
func (e *Engine) runChecker(ctx context.Context, r *run, log *slog.Logger) (string, error) {
	dir := filepath.Join(e.opts.OutputDir, fmt.Sprintf("pass-%03d", r.pass.Number))

	attempts := 1 + e.opts.CheckerRetries
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		// Facts of an earlier attempt or run must never leak into this pass.
		if err := os.RemoveAll(dir); err != nil {
			return "", fmt.Errorf("failed to clear %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", dir, err)
		}

		ctx, span := startCheckerSpan(ctx, r.id, r.pass.Number, attempt)
		err := e.deps.Checker.Run(ctx, dir)
		if err == nil {
			span.End()
			log.Debug("checker finished", "pass", r.pass.Number, "attempt", attempt, "dir", dir)
			return dir, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()

		lastErr = err
		log.Warn("checker failed", "pass", r.pass.Number, "attempt", attempt, "error", err)
	}

	var inv *checker.InvocationError
	if errors.As(lastErr, &inv) {
		inv.Attempt = attempts
		return "", inv
	}
	return "", &checker.InvocationError{Attempt: attempts, Err: lastErr}
}

// computeRegions filters out fixes whose location is already settled and
// computes the blast radius of the rest.
func (e *Engine) computeRegions(ctx context.Context, r *run) ([]policy.Candidate, error) {
	var pending []fix.Fix
	for _, f := range r.snapshot.Fixes {
		if r.ledger.Contains(f.Location) {
			continue
		}
		f.Pass = r.pass.Number
		pending = append(pending, f)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	reports, err := r.snapshot.Analyzer.AnalyzeAll(ctx, pending)
	if err != nil {
		return nil, err
	}
	candidates := make([]policy.Candidate, 0, len(pending))
	for _, f := range pending {
		candidates = append(candidates, policy.Candidate{Fix: f, Radius: reports[f.Key()].All()})
	}
	return candidates, nil
}

func (e *Engine) apply(ctx context.Context, r *run, log *slog.Logger) {
	results := e.deps.Patcher.Apply(ctx, r.decision.Accepted, e.opts.KeepStyle)
	var applied []fix.Fix
	for _, res := range results {
		if res.Err != nil {
			r.pass.Failed = append(r.pass.Failed, res)
			log.Warn("fix not applied", "pass", r.pass.Number, "fix", res.Fix.String(), "error", res.Err)
			continue
		}
		r.ledger.Add(res.Fix)
		applied = append(applied, res.Fix)
	}
	r.pass.Applied = applied
	// A pass where every patch failed keeps the previous applied set.
	if len(applied) > 0 {
		r.result.LastApplied = applied
	}
}

func (e *Engine) finishPass(ctx context.Context, r *run, log *slog.Logger) {
	r.pass.Duration = time.Since(r.passStart)
	r.result.Passes = append(r.result.Passes, r.pass)
	recordPassMetrics(ctx, r.pass, r.state)

	log.Info("pass finished",
		"pass", r.pass.Number,
		"candidates", r.pass.Candidates,
		"accepted", len(r.pass.Accepted),
		"rejected", len(r.pass.Rejected),
		"applied", len(r.pass.Applied),
		"failed", len(r.pass.Failed),
		"budget", r.budget,
	)
	if e.deps.Recorder != nil {
		if err := e.deps.Recorder.RecordPass(ctx, r.id, r.pass); err != nil {
			log.Warn("failed to record pass", "pass", r.pass.Number, "error", err)
		}
	}
}
