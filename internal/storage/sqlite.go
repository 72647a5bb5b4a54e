package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nullfix/internal/fix"
	"nullfix/internal/fixpoint"

	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned by LoadRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

type SQLiteStore struct {
	db *sql.DB
}

var _ ReportStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			project TEXT,
			depth INTEGER,
			keep_style INTEGER,
			started_at INTEGER,
			finished_at INTEGER,
			final_state TEXT,
			error TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS passes (
			run_id TEXT,
			number INTEGER,
			candidates INTEGER,
			duration_ms INTEGER,
			PRIMARY KEY (run_id, number)
		);`,
		`CREATE TABLE IF NOT EXISTS decisions (
			run_id TEXT,
			pass INTEGER,
			seq INTEGER,
			outcome TEXT,
			fix TEXT,
			kind TEXT,
			class TEXT,
			member TEXT,
			idx INTEGER,
			path TEXT,
			annotation TEXT,
			detail TEXT,
			PRIMARY KEY (run_id, pass, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_class ON decisions(class);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// --- fixpoint.Recorder Implementation ---

func (s *SQLiteStore) BeginRun(ctx context.Context, info fixpoint.RunInfo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, project, depth, keep_style, started_at, final_state, error)
		VALUES (?, ?, ?, ?, ?, ?, '')
		ON CONFLICT(id) DO UPDATE SET
			project=excluded.project,
			depth=excluded.depth,
			keep_style=excluded.keep_style,
			started_at=excluded.started_at
	`, info.ID, info.Project, info.Depth, info.KeepStyle, info.StartedAt.UnixMilli(), fixpoint.Idle.String())
	return err
}

func (s *SQLiteStore) RecordPass(ctx context.Context, runID string, pass fixpoint.PassReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO passes (run_id, number, candidates, duration_ms) VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, number) DO UPDATE SET candidates=excluded.candidates, duration_ms=excluded.duration_ms
	`, runID, pass.Number, pass.Candidates, pass.Duration.Milliseconds()); err != nil {
		return err
	}

	// Re-recording a pass replaces its decisions.
	if _, err := tx.ExecContext(ctx, "DELETE FROM decisions WHERE run_id = ? AND pass = ?", runID, pass.Number); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO decisions (run_id, pass, seq, outcome, fix, kind, class, member, idx, path, annotation, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, d := range decisionsOf(pass) {
		if _, err := stmt.ExecContext(ctx, runID, pass.Number, i, d.Outcome, d.Fix, d.Kind, d.Class, d.Member, d.Index, d.Path, d.Annotation, d.Detail); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, final fixpoint.State, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, final_state = ?, error = ? WHERE id = ?
	`, time.Now().UnixMilli(), final.String(), msg, runID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

func decisionsOf(pass fixpoint.PassReport) []DecisionRecord {
	var out []DecisionRecord
	for _, f := range pass.Accepted {
		out = append(out, decisionOf(OutcomeAccepted, f, ""))
	}
	for _, r := range pass.Rejected {
		out = append(out, decisionOf(OutcomeRejected, r.Fix, string(r.Reason)))
	}
	for _, f := range pass.Applied {
		out = append(out, decisionOf(OutcomeApplied, f, ""))
	}
	for _, r := range pass.Failed {
		detail := ""
		if r.Err != nil {
			detail = r.Err.Error()
		}
		out = append(out, decisionOf(OutcomeFailed, r.Fix, detail))
	}
	return out
}

func decisionOf(outcome string, f fix.Fix, detail string) DecisionRecord {
	return DecisionRecord{
		Outcome:    outcome,
		Fix:        f.String(),
		Kind:       string(f.Location.Kind),
		Class:      f.Location.Class,
		Member:     f.Location.Member,
		Index:      f.Location.Index,
		Path:       f.Location.Path,
		Annotation: string(f.Annotation),
		Detail:     detail,
	}
}

// --- Report queries ---

const runColumns = "id, project, depth, keep_style, started_at, COALESCE(finished_at, 0), final_state, error"

func scanRun(row interface{ Scan(...any) error }) (RunRecord, error) {
	var (
		r                 RunRecord
		started, finished int64
	)
	if err := row.Scan(&r.ID, &r.Project, &r.Depth, &r.KeepStyle, &started, &finished, &r.Final, &r.Error); err != nil {
		return RunRecord{}, err
	}
	r.StartedAt = time.UnixMilli(started)
	if finished > 0 {
		r.FinishedAt = time.UnixMilli(finished)
	}
	return r, nil
}

func (s *SQLiteStore) LoadRun(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT number, candidates, duration_ms FROM passes WHERE run_id = ? ORDER BY number", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query passes: %w", err)
	}
	defer rows.Close()

	byNumber := make(map[int]int)
	for rows.Next() {
		var p PassRecord
		var ms int64
		if err := rows.Scan(&p.Number, &p.Candidates, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan pass: %w", err)
		}
		p.Duration = time.Duration(ms) * time.Millisecond
		byNumber[p.Number] = len(run.Passes)
		run.Passes = append(run.Passes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	decRows, err := s.db.QueryContext(ctx, `
		SELECT pass, outcome, fix, kind, class, member, idx, path, annotation, detail
		FROM decisions WHERE run_id = ? ORDER BY pass, seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer decRows.Close()

	for decRows.Next() {
		var pass int
		var d DecisionRecord
		if err := decRows.Scan(&pass, &d.Outcome, &d.Fix, &d.Kind, &d.Class, &d.Member, &d.Index, &d.Path, &d.Annotation, &d.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		if i, ok := byNumber[pass]; ok {
			run.Passes[i].Decisions = append(run.Passes[i].Decisions, d)
		}
	}
	return &run, decRows.Err()
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
