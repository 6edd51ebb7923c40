package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jask/panelmatch/internal/database"
	"github.com/jask/panelmatch/internal/database/repository"
	"github.com/jask/panelmatch/internal/table"
)

// ReasonRejected marks a row whose match was rejected in review.
const ReasonRejected = "rejected in review"

var (
	// ErrNoRun is returned when no crosscheck has been recorded.
	ErrNoRun = errors.New("no crosscheck run recorded")
	// ErrRunMismatch is returned when the crosschecked file does not hold
	// the rows of the latest run.
	ErrRunMismatch = errors.New("crosschecked file does not match the latest run")
)

// ReviewService serves the queue of fuzzy matches awaiting a decision.
type ReviewService struct {
	Runs    *repository.RunRepo
	Reviews *repository.ReviewRepo
}

// Pending returns the latest run and its pending outcomes. run is nil when
// no crosscheck has been recorded.
func (s *ReviewService) Pending(ctx context.Context) (*repository.MatchRun, []repository.MatchOutcome, error) {
	run, err := s.Runs.Latest(ctx)
	if err != nil || run == nil {
		return nil, nil, err
	}
	pending, err := s.Reviews.ListPending(ctx, run.ID)
	if err != nil {
		return run, nil, fmt.Errorf("list pending: %w", err)
	}
	return run, pending, nil
}

// Decide accepts or rejects a pending outcome.
func (s *ReviewService) Decide(ctx context.Context, outcomeID string, accept bool) error {
	status := repository.ReviewRejected
	if accept {
		status = repository.ReviewAccepted
	}
	if err := s.Reviews.Decide(ctx, outcomeID, status, database.Now()); err != nil {
		return fmt.Errorf("decide %s: %w", outcomeID, err)
	}
	return nil
}

// ApplyReviewsResult counts the decisions applied to the crosschecked files.
type ApplyReviewsResult struct {
	RunID    string
	Accepted int
	Rejected int
	Pending  int
}

// Stats lists the review figures.
func (r ApplyReviewsResult) Stats() []Stat {
	return []Stat{
		{"run", r.RunID},
		{"accepted", itoa(r.Accepted)},
		{"rejected", itoa(r.Rejected)},
		{"still pending", itoa(r.Pending)},
	}
}

// ApplyReviews rewrites the crosschecked, matched and unmatched files of the
// latest run so that rejected matches become unmatched rows. Accepted and
// pending matches are left as they are. Applying twice is harmless.
func (p *Pipeline) ApplyReviews(ctx context.Context) (ApplyReviewsResult, error) {
	run, err := repository.NewRunRepo(p.DB).Latest(ctx)
	if err != nil {
		return ApplyReviewsResult{}, fmt.Errorf("latest run: %w", err)
	}
	if run == nil {
		return ApplyReviewsResult{}, ErrNoRun
	}
	outcomes, err := repository.NewOutcomeRepo(p.DB).ListByRun(ctx, run.ID)
	if err != nil {
		return ApplyReviewsResult{}, fmt.Errorf("list outcomes: %w", err)
	}
	path := p.Config.Path(p.Config.Paths.Crosschecked)
	t, err := table.ReadCSVFile(path, table.ReadOptions{})
	if err != nil {
		return ApplyReviewsResult{}, fmt.Errorf("load crosschecked: %w", err)
	}
	if t.Len() != run.Total || !t.Has(ColMatchType) {
		return ApplyReviewsResult{}, fmt.Errorf("%w: %d rows, run %s has %d", ErrRunMismatch, t.Len(), run.ID, run.Total)
	}
	if !t.Has(ColMatchReason) {
		t.AddColumn(ColMatchReason, func(int, table.Record) string { return "" })
	}

	res := ApplyReviewsResult{RunID: run.ID}
	for _, o := range outcomes {
		switch o.ReviewStatus {
		case repository.ReviewAccepted:
			res.Accepted++
		case repository.ReviewPending:
			res.Pending++
		case repository.ReviewRejected:
			res.Rejected++
			if o.SourceIndex < 0 || o.SourceIndex >= t.Len() {
				return res, fmt.Errorf("%w: outcome %s points at row %d", ErrRunMismatch, o.ID, o.SourceIndex)
			}
			r := t.Rows[o.SourceIndex]
			r[ColMatchKey] = ""
			r[ColMatchID] = ""
			r[ColMatchType] = unmatchedType
			r[ColMatchConfidence] = "0"
			r[ColMatchReason] = ReasonRejected
		}
	}
	if res.Pending > 0 {
		p.Log.Warn("undecided matches kept as matched", slog.Int("pending", res.Pending), slog.String("run", run.ID))
	}
	if err := p.writeCrossChecked(t); err != nil {
		return res, err
	}
	p.Log.Info("review decisions applied", slog.String("run", run.ID), slog.Int("rejected", res.Rejected))
	return res, nil
}
