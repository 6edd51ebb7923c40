package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ReviewRepo handles the queue of fuzzy outcomes awaiting a decision.
type ReviewRepo struct{ db DBTX }

func NewReviewRepo(db DBTX) *ReviewRepo { return &ReviewRepo{db: db} }

// ListPending returns pending outcomes of a run in source order. An empty
// runID lists pending outcomes across all runs.
func (r *ReviewRepo) ListPending(ctx context.Context, runID string) ([]MatchOutcome, error) {
	q := `SELECT ` + outcomeColumns + ` FROM match_outcomes WHERE review_status = ?`
	args := []any{ReviewPending}
	if runID != "" {
		q += ` AND run_id = ?`
		args = append(args, runID)
	}
	q += ` ORDER BY run_id, source_index ASC`
	return (&OutcomeRepo{db: r.db}).list(ctx, q, args...)
}

// Decide records an accept or reject for a pending outcome.
func (r *ReviewRepo) Decide(ctx context.Context, id, status string, at time.Time) error {
	if status != ReviewAccepted && status != ReviewRejected {
		return fmt.Errorf("invalid review status %q", status)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE match_outcomes SET review_status = ?, reviewed_at = ? WHERE id = ? AND review_status = ?`,
		status, at, id, ReviewPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("outcome %s is not pending", id)
	}
	return nil
}

func (r *ReviewRepo) Get(ctx context.Context, id string) (*MatchOutcome, error) {
	o, err := scanOutcome(r.db.QueryRowContext(ctx, `SELECT `+outcomeColumns+` FROM match_outcomes WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}
