package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	"github.com/jask/panelmatch/internal/config"
	"github.com/jask/panelmatch/internal/match"
)

// ErrLocked is returned when another run holds the workspace lock.
var ErrLocked = errors.New("workspace is locked by another run")

// Stat is one labelled figure of a step summary.
type Stat struct {
	Label string
	Value string
}

// StepReport is handed to Pipeline.OnStep after each completed step.
type StepReport struct {
	Num      int
	Name     string
	Duration time.Duration
	Stats    []Stat
}

// Pipeline runs the panel processing steps against one workspace.
type Pipeline struct {
	Config  config.Config
	Mapping config.Mapping
	DB      *sql.DB
	Log     *slog.Logger
	// OnStep, when set, receives each step's summary as it completes.
	OnStep func(StepReport)
}

type step struct {
	num    int
	name   string
	inputs func(c config.Config) []string
	run    func(ctx context.Context) ([]Stat, error)
}

func (p *Pipeline) steps() []step {
	return []step{
		{1, "merge", func(c config.Config) []string { return c.Paths.Panels }, func(ctx context.Context) ([]Stat, error) {
			res, err := p.Merge(ctx)
			return res.Stats(), err
		}},
		{2, "crosscheck", func(c config.Config) []string { return []string{c.Paths.Integrated, c.Paths.Registry} }, func(ctx context.Context) ([]Stat, error) {
			res, err := p.CrossCheck(ctx)
			return res.Stats(), err
		}},
		{3, "rename", func(c config.Config) []string { return []string{c.Paths.Crosschecked} }, func(ctx context.Context) ([]Stat, error) {
			res, err := p.Rename(ctx)
			return res.Stats(), err
		}},
		{4, "normalize", func(c config.Config) []string { return []string{c.Paths.Renamed} }, func(ctx context.Context) ([]Stat, error) {
			res, err := p.Normalize(ctx)
			return res.Stats(), err
		}},
	}
}

// StepCount is the number of pipeline steps.
const StepCount = 4

// Run executes every step in order, or only step `only` when it is 1..4.
// Inputs not produced by an earlier selected step must exist before anything
// runs. The workspace is locked for the duration.
func (p *Pipeline) Run(ctx context.Context, only int) error {
	if only < 0 || only > StepCount {
		return fmt.Errorf("step must be 1-%d, got %d", StepCount, only)
	}
	all := p.steps()
	selected := all
	if only > 0 {
		selected = all[only-1 : only]
	}
	if err := p.checkInputs(selected); err != nil {
		return err
	}

	release, err := p.lock()
	if err != nil {
		return err
	}
	defer release()

	for _, s := range selected {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.Log.Info("step started", slog.Int("step", s.num), slog.String("name", s.name))
		start := time.Now()
		stats, err := s.run(ctx)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", s.num, s.name, err)
		}
		dur := time.Since(start)
		p.Log.Info("step finished", slog.Int("step", s.num), slog.String("name", s.name), slog.Duration("took", dur))
		if p.OnStep != nil {
			p.OnStep(StepReport{Num: s.num, Name: s.name, Duration: dur, Stats: stats})
		}
	}
	return nil
}

// checkInputs fails with ErrMissingInput for the first absent input that no
// earlier selected step writes.
func (p *Pipeline) checkInputs(selected []step) error {
	produced := map[string]bool{}
	outputs := map[int][]string{
		1: {p.Config.Paths.Integrated},
		2: {p.Config.Paths.Crosschecked},
		3: {p.Config.Paths.Renamed},
		4: {p.Config.Paths.Normalized},
	}
	for _, s := range selected {
		for _, in := range s.inputs(p.Config) {
			if produced[in] {
				continue
			}
			if _, err := os.Stat(p.Config.Path(in)); err != nil {
				return fmt.Errorf("step %d (%s): %w: %s", s.num, s.name, ErrMissingInput, p.Config.Path(in))
			}
		}
		for _, out := range outputs[s.num] {
			produced[out] = true
		}
	}
	return nil
}

func (p *Pipeline) lock() (func(), error) {
	dir := p.Config.Paths.Workdir
	if dir == "" {
		dir = "."
	}
	l := flock.New(filepath.Join(dir, ".panelmatch.lock"))
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock workspace: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() { _ = l.Unlock() }, nil
}

func (p *Pipeline) matchOptions() match.Options {
	c := p.Config.Match
	o := match.DefaultOptions()
	if len(c.SourceName)+len(c.SourcePhone)+len(c.SourceEmail) > 0 {
		o.Source = match.Fields{Name: c.SourceName, Phone: c.SourcePhone, Email: c.SourceEmail}
	}
	if len(c.TargetName)+len(c.TargetPhone)+len(c.TargetEmail) > 0 {
		o.Target = match.Fields{Name: c.TargetName, Phone: c.TargetPhone, Email: c.TargetEmail}
	}
	o.Target.ID = c.TargetID
	if c.Threshold > 0 {
		o.Threshold = c.Threshold
	}
	if c.EmailSimilarity > 0 {
		o.EmailSimilarity = c.EmailSimilarity
	}
	o.MinScore = c.MinScore
	if c.IDPrefix != "" {
		o.IDPrefix = c.IDPrefix
	}
	o.Blocking = c.Blocking
	return o
}

func itoa(n int) string { return strconv.Itoa(n) }

// Stats lists the merge figures.
func (r MergeResult) Stats() []Stat {
	out := make([]Stat, 0, len(r.PerFile)+6)
	for i, n := range r.PerFile {
		out = append(out, Stat{fmt.Sprintf("file %d rows", i+1), itoa(n)})
	}
	return append(out,
		Stat{"combined rows", itoa(r.Combined)},
		Stat{"duplicates removed", itoa(r.Duplicates)},
		Stat{"final rows", itoa(r.Rows)},
		Stat{"columns", itoa(r.Columns)},
		Stat{"rows with email", itoa(r.WithEmail)},
		Stat{"rows with phone", itoa(r.WithPhone)},
	)
}

// Stats lists the crosscheck figures, including counts by type and score.
func (r CrossCheckResult) Stats() []Stat {
	out := []Stat{
		{"source records", itoa(r.Source)},
		{"target records", itoa(r.Target)},
		{"matched", itoa(r.Summary.Matched)},
		{"unmatched", itoa(r.Summary.Unmatched)},
	}
	for _, t := range []match.Type{match.TypeBoth, match.TypeEmail, match.TypePhone, match.TypeExact, match.TypeFuzzyName} {
		if n := r.Summary.ByType[t]; n > 0 {
			out = append(out, Stat{"type " + string(t), itoa(n)})
		}
	}
	if r.Summary.Total > 0 {
		rate := float64(r.Summary.Matched) / float64(r.Summary.Total) * 100
		out = append(out, Stat{"match rate", fmt.Sprintf("%.1f%%", rate)})
	}
	out = append(out, Stat{"pending review", itoa(r.Pending)})
	if r.RunID != "" {
		out = append(out, Stat{"run", r.RunID})
	}
	return out
}

// Stats lists the rename figures.
func (r RenameResult) Stats() []Stat {
	return []Stat{
		{"rows", itoa(r.Rows)},
		{"columns", itoa(r.Columns)},
		{"columns renamed", itoa(len(r.Renamed))},
	}
}

// Stats lists per-column normalization changes.
func (r NormalizeResult) Stats() []Stat {
	out := []Stat{{"rows", itoa(r.Rows)}}
	for _, c := range r.Columns {
		out = append(out, Stat{c.Column, fmt.Sprintf("%d changed, %d -> %d filled", c.Changed, c.Before, c.After)})
	}
	return out
}

// Stats lists the participation figures.
func (r ParticipationResult) Stats() []Stat {
	out := []Stat{
		{"base records", itoa(r.BaseRows)},
		{"update rows considered", itoa(r.Considered)},
		{"matched exact", itoa(r.Exact)},
		{"matched fuzzy", itoa(r.Fuzzy)},
		{"rows updated", itoa(r.Updated)},
	}
	if r.Unmatched != nil {
		out = append(out, Stat{"unmatched", itoa(r.Unmatched.Len())})
	}
	for _, s := range []string{StatusCompleted, StatusWaiting, StatusConfirmed, StatusApplied, StatusCancelled} {
		out = append(out, Stat{"status " + s, itoa(r.Status[s])})
	}
	return out
}
