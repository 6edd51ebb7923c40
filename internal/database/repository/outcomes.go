package repository

import (
	"context"
)

// OutcomeRepo handles per-record match outcomes.
type OutcomeRepo struct{ db DBTX }

func NewOutcomeRepo(db DBTX) *OutcomeRepo { return &OutcomeRepo{db: db} }

func (r *OutcomeRepo) Insert(ctx context.Context, o MatchOutcome) error {
	if o.ReviewStatus == "" {
		o.ReviewStatus = ReviewNone
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO match_outcomes(
	 id, run_id, source_index, source_label, target_index, target_id, target_label,
	 match_type, score, reason, review_status)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.RunID, o.SourceIndex, o.SourceLabel, o.TargetIndex, o.TargetID, o.TargetLabel,
		o.MatchType, o.Score, o.Reason, o.ReviewStatus)
	return err
}

const outcomeColumns = `id, run_id, source_index, source_label, target_index, target_id, target_label,
 match_type, score, reason, review_status, reviewed_at`

func scanOutcome(row interface{ Scan(...any) error }) (MatchOutcome, error) {
	var o MatchOutcome
	err := row.Scan(&o.ID, &o.RunID, &o.SourceIndex, &o.SourceLabel, &o.TargetIndex, &o.TargetID, &o.TargetLabel,
		&o.MatchType, &o.Score, &o.Reason, &o.ReviewStatus, &o.ReviewedAt)
	return o, err
}

// ListByRun returns a run's outcomes in source order.
func (r *OutcomeRepo) ListByRun(ctx context.Context, runID string) ([]MatchOutcome, error) {
	return r.list(ctx, `SELECT `+outcomeColumns+` FROM match_outcomes WHERE run_id = ? ORDER BY source_index ASC`, runID)
}

// CountByReview tallies a run's outcomes by review status.
func (r *OutcomeRepo) CountByReview(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT review_status, COUNT(*) FROM match_outcomes WHERE run_id = ? GROUP BY review_status`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

func (r *OutcomeRepo) list(ctx context.Context, query string, args ...any) ([]MatchOutcome, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MatchOutcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
