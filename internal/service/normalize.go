package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jask/panelmatch/internal/normalize"
	"github.com/jask/panelmatch/internal/table"
)

// Columns cleaned by step 4, in the order they are processed.
var valueNormalizers = []struct {
	Column string
	Fn     func(string) string
}{
	{"gender", normalize.Gender},
	{"birth_year", normalize.BirthDate},
	{"reservation_location", normalize.Location},
	{"reservation_date", normalize.ReservationDate},
	{"reservation_time", normalize.ReservationTime},
}

// ColumnChange counts non-empty values before and after a normalizer ran.
type ColumnChange struct {
	Column  string
	Before  int
	After   int
	Changed int
}

// NormalizeResult summarizes step 4.
type NormalizeResult struct {
	Rows    int
	Columns []ColumnChange
}

// NormalizeValues cleans the known value columns in place. Absent columns are
// skipped.
func NormalizeValues(t *table.Table) []ColumnChange {
	var out []ColumnChange
	for _, n := range valueNormalizers {
		if !t.Has(n.Column) {
			continue
		}
		c := ColumnChange{Column: n.Column, Before: t.NonEmpty(n.Column)}
		c.Changed = t.Apply(n.Column, n.Fn)
		c.After = t.NonEmpty(n.Column)
		out = append(out, c)
	}
	return out
}

// Normalize runs step 4.
func (p *Pipeline) Normalize(ctx context.Context) (NormalizeResult, error) {
	if err := ctx.Err(); err != nil {
		return NormalizeResult{}, err
	}
	t, err := table.ReadCSVFile(p.Config.Path(p.Config.Paths.Renamed), table.ReadOptions{})
	if err != nil {
		return NormalizeResult{}, fmt.Errorf("load renamed: %w", err)
	}
	changes := NormalizeValues(t)
	for _, c := range changes {
		p.Log.Info("column normalized",
			slog.String("column", c.Column),
			slog.Int("changed", c.Changed),
			slog.Int("before", c.Before),
			slog.Int("after", c.After))
	}
	if err := table.WriteCSVFile(p.Config.Path(p.Config.Paths.Normalized), t, true); err != nil {
		return NormalizeResult{}, fmt.Errorf("write normalized: %w", err)
	}
	return NormalizeResult{Rows: t.Len(), Columns: changes}, nil
}
