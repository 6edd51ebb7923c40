package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jask/panelmatch/internal/config"
	"github.com/jask/panelmatch/internal/table"
)

// RenameResult summarizes step 3.
type RenameResult struct {
	Rows    int
	Columns int
	Renamed map[string]string
}

// RenameColumns applies the English field mapping. Unmapped "Unnamed: N"
// columns become field_1, field_2, ... in header order. Priority columns are
// moved to the front.
func RenameColumns(t *table.Table, m config.Mapping) map[string]string {
	final := make(map[string]string)
	n := 1
	for _, h := range t.Headers {
		if to, ok := m.Rename[h]; ok {
			final[h] = to
			continue
		}
		if strings.HasPrefix(h, "Unnamed:") {
			final[h] = fmt.Sprintf("field_%d", n)
			n++
		}
	}
	t.Rename(final)
	t.Reorder(m.Priority...)
	return final
}

// Rename runs step 3.
func (p *Pipeline) Rename(ctx context.Context) (RenameResult, error) {
	if err := ctx.Err(); err != nil {
		return RenameResult{}, err
	}
	t, err := table.ReadCSVFile(p.Config.Path(p.Config.Paths.Crosschecked), table.ReadOptions{})
	if err != nil {
		return RenameResult{}, fmt.Errorf("load crosschecked: %w", err)
	}
	renamed := RenameColumns(t, p.Mapping)
	for from, to := range renamed {
		if from != to {
			p.Log.Debug("column renamed", slog.String("from", from), slog.String("to", to))
		}
	}
	if err := table.WriteCSVFile(p.Config.Path(p.Config.Paths.Renamed), t, true); err != nil {
		return RenameResult{}, fmt.Errorf("write renamed: %w", err)
	}
	return RenameResult{Rows: t.Len(), Columns: len(t.Headers), Renamed: renamed}, nil
}
