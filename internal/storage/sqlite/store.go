// Package sqlite is the SQLite implementation of the run store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/relgate/relgate/internal/pipeline"
	"github.com/relgate/relgate/internal/storage"
)

// Store persists runs in a SQLite database.
type Store struct {
	db *sql.DB
}

var _ storage.RunStore = (*Store)(nil)

// New opens (or creates) the database at dbPath and initializes the
// schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			params TEXT NOT NULL,
			verdict_message TEXT NOT NULL,
			verdict_success INTEGER NOT NULL,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS stage_outcomes (
			run_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			status TEXT NOT NULL,
			reason TEXT,
			diagnostics TEXT,
			duration_ns INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, stage),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_event_type ON runs(event_type)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun stores a completed run and all of its stage outcomes in one
// transaction.
func (s *Store) SaveRun(ctx context.Context, run *pipeline.Run) error {
	params, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, event_type, params, verdict_message, verdict_success, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Params.EventType), string(params),
		run.Verdict.Message, boolToInt(run.Verdict.Success),
		run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, stage := range pipeline.StageOrder {
		out, ok := run.Outcomes[stage]
		if !ok {
			continue
		}
		var diag []byte
		if out.Diagnostics != nil {
			if diag, err = json.Marshal(out.Diagnostics); err != nil {
				return fmt.Errorf("marshal diagnostics: %w", err)
			}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO stage_outcomes (run_id, stage, status, reason, diagnostics, duration_ns)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, string(stage), string(out.Status), out.Reason, nullableString(diag), int64(out.Duration))
		if err != nil {
			return fmt.Errorf("insert outcome for %s: %w", stage, err)
		}
	}

	return tx.Commit()
}

// GetRun loads one run with all stage outcomes.
func (s *Store) GetRun(ctx context.Context, id string) (*pipeline.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, params, verdict_message, verdict_success, started_at, finished_at
		 FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, status, reason, diagnostics, duration_ns
		 FROM stage_outcomes WHERE run_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stage, status string
		var reason, diag sql.NullString
		var durationNS int64
		if err := rows.Scan(&stage, &status, &reason, &diag, &durationNS); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}

		out := pipeline.Outcome{
			Status:   pipeline.Status(status),
			Reason:   reason.String,
			Duration: time.Duration(durationNS),
		}
		if diag.Valid && diag.String != "" {
			var d pipeline.Diagnostics
			if err := json.Unmarshal([]byte(diag.String), &d); err != nil {
				return nil, fmt.Errorf("unmarshal diagnostics: %w", err)
			}
			out.Diagnostics = &d
		}
		run.Outcomes[pipeline.Stage(stage)] = out
	}
	return run, rows.Err()
}

// ListRuns returns the most recent runs, newest first, without their
// per-stage outcomes.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*pipeline.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, params, verdict_message, verdict_success, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*pipeline.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*pipeline.Run, error) {
	var run pipeline.Run
	var params string
	var success int
	if err := row.Scan(&run.ID, &params, &run.Verdict.Message, &success,
		&run.StartedAt, &run.FinishedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(params), &run.Params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	run.Verdict.Success = success != 0
	run.Outcomes = make(map[pipeline.Stage]pipeline.Outcome)
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
