package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/google/uuid"

	"github.com/jask/panelmatch/internal/database"
	"github.com/jask/panelmatch/internal/database/repository"
	"github.com/jask/panelmatch/internal/match"
	"github.com/jask/panelmatch/internal/normalize"
	"github.com/jask/panelmatch/internal/table"
)

// Annotation columns added by the crosscheck.
const (
	ColMatchKey        = "match_key"
	ColMatchType       = "match_type"
	ColMatchConfidence = "match_confidence"
	ColMatchID         = "match_id"
	ColMatchReason     = "match_reason"

	unmatchedType = "unmatched"
)

// CrossCheckResult summarizes step 2.
type CrossCheckResult struct {
	RunID   string
	Source  int
	Target  int
	Summary match.Summary
	Pending int
}

// Annotate writes one outcome per row into the match columns. outcomes must
// be in row order.
func Annotate(t *table.Table, outcomes []match.Outcome) {
	t.AddColumn(ColMatchKey, func(i int, _ table.Record) string { return outcomes[i].TargetID })
	t.AddColumn(ColMatchType, func(i int, _ table.Record) string {
		if !outcomes[i].Matched {
			return unmatchedType
		}
		return string(outcomes[i].Type)
	})
	t.AddColumn(ColMatchConfidence, func(i int, _ table.Record) string {
		if !outcomes[i].Matched {
			return "0"
		}
		return formatScore(outcomes[i].Score)
	})
	t.AddColumn(ColMatchID, func(i int, _ table.Record) string { return outcomes[i].TargetID })
	// empty for matched rows
	t.AddColumn(ColMatchReason, func(i int, _ table.Record) string {
		if outcomes[i].Matched {
			return ""
		}
		return outcomes[i].Reason
	})
}

func formatScore(s float64) string {
	return strconv.FormatFloat(math.Round(s*100)/100, 'f', -1, 64)
}

// CrossCheck runs step 2: match the integrated panel against the registry,
// write the annotated files and record the run in the ledger.
func (p *Pipeline) CrossCheck(ctx context.Context) (CrossCheckResult, error) {
	srcPath := p.Config.Path(p.Config.Paths.Integrated)
	tgtPath := p.Config.Path(p.Config.Paths.Registry)
	src, err := table.ReadCSVFile(srcPath, table.ReadOptions{})
	if err != nil {
		return CrossCheckResult{}, fmt.Errorf("load integrated: %w", err)
	}
	tgt, err := table.ReadCSVFile(tgtPath, table.ReadOptions{})
	if err != nil {
		return CrossCheckResult{}, fmt.Errorf("load registry: %w", err)
	}

	opts := p.matchOptions()
	outcomes := match.New(opts).Match(src.Rows, tgt.Rows)
	res := CrossCheckResult{Source: src.Len(), Target: tgt.Len(), Summary: match.Summarize(outcomes)}
	p.Log.Info("crosscheck matched",
		slog.Int("source", res.Source),
		slog.Int("target", res.Target),
		slog.Int("matched", res.Summary.Matched))

	Annotate(src, outcomes)
	if err := p.writeCrossChecked(src); err != nil {
		return res, err
	}

	run := repository.MatchRun{
		ID:         uuid.NewString(),
		SourcePath: srcPath,
		TargetPath: tgtPath,
		Threshold:  opts.Threshold,
		MinScore:   opts.MinScore,
		Total:      res.Summary.Total,
		Matched:    res.Summary.Matched,
		CreatedAt:  database.Now(),
	}
	pending, err := p.recordRun(ctx, run, outcomes, src.Rows, tgt.Rows, opts)
	if err != nil {
		return res, fmt.Errorf("record run: %w", err)
	}
	res.RunID = run.ID
	res.Pending = pending
	if pending > 0 {
		p.Log.Info("fuzzy matches queued for review", slog.Int("pending", pending), slog.String("run", run.ID))
	}
	return res, nil
}

// writeCrossChecked writes the annotated table and its matched and unmatched
// splits.
func (p *Pipeline) writeCrossChecked(t *table.Table) error {
	if err := table.WriteCSVFile(p.Config.Path(p.Config.Paths.Crosschecked), t, true); err != nil {
		return fmt.Errorf("write crosschecked: %w", err)
	}
	matched := t.Filter(func(r table.Record) bool { return r[ColMatchType] != unmatchedType })
	if err := table.WriteCSVFile(p.Config.Path(p.Config.Paths.Matched), matched, true); err != nil {
		return fmt.Errorf("write matched: %w", err)
	}
	unmatched := t.Filter(func(r table.Record) bool { return r[ColMatchType] == unmatchedType })
	if err := table.WriteCSVFile(p.Config.Path(p.Config.Paths.Unmatched), unmatched, true); err != nil {
		return fmt.Errorf("write unmatched: %w", err)
	}
	return nil
}

// recordRun stores the run and its outcomes in one transaction. Fuzzy
// outcomes enter the review queue; it returns how many.
func (p *Pipeline) recordRun(ctx context.Context, run repository.MatchRun, outcomes []match.Outcome, src, tgt []table.Record, opts match.Options) (int, error) {
	pending := 0
	err := database.WithTx(ctx, p.DB, func(tx *sql.Tx) error {
		if err := repository.NewRunRepo(tx).Insert(ctx, run); err != nil {
			return err
		}
		repo := repository.NewOutcomeRepo(tx)
		for _, o := range outcomes {
			row := repository.MatchOutcome{
				ID:           uuid.NewString(),
				RunID:        run.ID,
				SourceIndex:  o.Source,
				SourceLabel:  label(src[o.Source], opts.Source),
				TargetIndex:  o.Target,
				TargetID:     o.TargetID,
				MatchType:    string(o.Type),
				Score:        o.Score,
				Reason:       o.Reason,
				ReviewStatus: repository.ReviewNone,
			}
			if o.Matched {
				row.TargetLabel = label(tgt[o.Target], opts.Target)
			}
			if o.Fuzzy() {
				row.ReviewStatus = repository.ReviewPending
				pending++
			}
			if err := repo.Insert(ctx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return pending, err
}

// label is the human-readable identity shown in the review screen.
func label(r table.Record, f match.Fields) string {
	name := r.Get(f.Name...)
	contact := ""
	for _, col := range f.Email {
		if contact = normalize.Email(r[col]); contact != "" {
			break
		}
	}
	if contact == "" {
		contact = r.Get(f.Phone...)
	}
	switch {
	case name == "":
		return contact
	case contact == "":
		return name
	}
	return name + " <" + contact + ">"
}
