// Package store keeps a SQLite history of evaluation runs and the
// hypotheses each run scored.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned by lookups of an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS eval_runs (
		id TEXT PRIMARY KEY,
		task TEXT NOT NULL,
		engine TEXT,
		valid_src TEXT NOT NULL,
		valid_tgt TEXT,
		source_lang TEXT,
		target_lang TEXT,
		bpe_symbol TEXT,
		lowercase BOOLEAN DEFAULT FALSE,
		hypotheses INTEGER NOT NULL,
		refs INTEGER NOT NULL,
		score REAL,
		report TEXT,
		ref_fingerprint TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- run_hypotheses stores the exact lines a run scored, in order
	CREATE TABLE IF NOT EXISTS run_hypotheses (
		run_id TEXT NOT NULL,
		line_idx INTEGER NOT NULL,
		text TEXT NOT NULL,
		PRIMARY KEY (run_id, line_idx),
		FOREIGN KEY (run_id) REFERENCES eval_runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_fingerprint ON eval_runs(ref_fingerprint);
	CREATE INDEX IF NOT EXISTS idx_runs_task ON eval_runs(task, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Run is one row of eval_runs. Score is only meaningful when HasScore is set;
// runs without references are recorded too.
type Run struct {
	ID             string
	Task           string
	Engine         string
	ValidSrc       string
	ValidTgt       string
	SourceLang     string
	TargetLang     string
	BPESymbol      string
	Lower          bool
	Hypotheses     int
	References     int
	Score          float64
	HasScore       bool
	Report         string
	RefFingerprint string
	CreatedAt      time.Time
}

// SaveRun inserts run and its hypotheses in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run, hypotheses []string) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var score sql.NullFloat64
	if run.HasScore {
		score = sql.NullFloat64{Float64: run.Score, Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO eval_runs (id, task, engine, valid_src, valid_tgt, source_lang, target_lang, bpe_symbol, lowercase, hypotheses, refs, score, report, ref_fingerprint, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Task, run.Engine, run.ValidSrc, run.ValidTgt, run.SourceLang, run.TargetLang,
		run.BPESymbol, run.Lower, run.Hypotheses, run.References, score, run.Report, run.RefFingerprint, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_hypotheses (run_id, line_idx, text) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, h := range hypotheses {
		if _, err := stmt.ExecContext(ctx, run.ID, i, h); err != nil {
			return fmt.Errorf("failed to insert hypothesis %d: %w", i, err)
		}
	}

	return tx.Commit()
}

const runColumns = `id, task, COALESCE(engine, ''), valid_src, COALESCE(valid_tgt, ''), COALESCE(source_lang, ''), COALESCE(target_lang, ''),
	COALESCE(bpe_symbol, ''), lowercase, hypotheses, refs, score, COALESCE(report, ''), COALESCE(ref_fingerprint, ''), created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var score sql.NullFloat64
	err := row.Scan(&r.ID, &r.Task, &r.Engine, &r.ValidSrc, &r.ValidTgt, &r.SourceLang, &r.TargetLang,
		&r.BPESymbol, &r.Lower, &r.Hypotheses, &r.References, &score, &r.Report, &r.RefFingerprint, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.Score, r.HasScore = score.Float64, score.Valid
	return &r, nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM eval_runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// RunFilter narrows ListRuns. Zero values match everything.
type RunFilter struct {
	Task           string
	RefFingerprint string
	Limit          int
}

// ListRuns returns runs ordered from newest to oldest.
func (s *Store) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM eval_runs`
	var where []string
	var args []interface{}

	if filter.Task != "" {
		where = append(where, `task = ?`)
		args = append(args, filter.Task)
	}
	if filter.RefFingerprint != "" {
		where = append(where, `ref_fingerprint = ?`)
		args = append(args, filter.RefFingerprint)
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// Hypotheses returns the stored lines of a run in their original order.
func (s *Store) Hypotheses(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT text FROM run_hypotheses WHERE run_id = ? ORDER BY line_idx`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		lines = append(lines, text)
	}
	return lines, rows.Err()
}

// DeleteRun removes a run and its hypotheses.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_hypotheses WHERE run_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM eval_runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return tx.Commit()
}

// ClearRuns removes every run and returns how many were deleted.
func (s *Store) ClearRuns(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_hypotheses`); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM eval_runs`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// Stats summarises the run history. Best and Mean only consider scored runs.
type Stats struct {
	TotalRuns  int
	ScoredRuns int
	BestScore  float64
	MeanScore  float64
	Hypotheses int
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(score),
			COALESCE(MAX(score), 0),
			COALESCE(AVG(score), 0),
			COALESCE(SUM(hypotheses), 0)
		FROM eval_runs`).Scan(
		&stats.TotalRuns,
		&stats.ScoredRuns,
		&stats.BestScore,
		&stats.MeanScore,
		&stats.Hypotheses,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
