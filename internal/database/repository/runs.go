package repository

import (
	"context"
	"database/sql"
	"errors"
)

// RunRepo handles match runs.
type RunRepo struct{ db DBTX }

func NewRunRepo(db DBTX) *RunRepo { return &RunRepo{db: db} }

func (r *RunRepo) Insert(ctx context.Context, run MatchRun) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO match_runs(id, source_path, target_path, threshold, min_score, total, matched, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.SourcePath, run.TargetPath, run.Threshold, run.MinScore, run.Total, run.Matched, run.CreatedAt)
	return err
}

const runColumns = `id, source_path, target_path, threshold, min_score, total, matched, created_at`

func scanRun(row interface{ Scan(...any) error }) (MatchRun, error) {
	var run MatchRun
	err := row.Scan(&run.ID, &run.SourcePath, &run.TargetPath, &run.Threshold, &run.MinScore, &run.Total, &run.Matched, &run.CreatedAt)
	return run, err
}

// Get returns nil when the run does not exist.
func (r *RunRepo) Get(ctx context.Context, id string) (*MatchRun, error) {
	run, err := scanRun(r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM match_runs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// Latest returns the most recent run, or nil when none exist.
func (r *RunRepo) Latest(ctx context.Context) (*MatchRun, error) {
	run, err := scanRun(r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM match_runs ORDER BY created_at DESC, rowid DESC LIMIT 1`))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// List returns up to limit runs, newest first.
func (r *RunRepo) List(ctx context.Context, limit int) ([]MatchRun, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+runColumns+` FROM match_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MatchRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
