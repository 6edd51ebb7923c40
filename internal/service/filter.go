package service

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/jask/panelmatch/internal/config"
	"github.com/jask/panelmatch/internal/table"
)

// FilterResult summarizes a panel filter.
type FilterResult struct {
	Before              int
	Rows                int
	ConfirmationColumn  string
	ParticipationColumn string
	ByConfirmation      map[string]int
	ByParticipation     map[string]int
}

// Removed is the number of rows dropped.
func (r FilterResult) Removed() int { return r.Before - r.Rows }

// FilterPanel drops rows whose confirmation value is in c.ExcludeConfirmation
// (case-insensitive) or whose participation result is in
// c.ExcludeParticipation. The confirmation rule runs first, so a row failing
// both counts there. A missing column disables its rule.
func FilterPanel(t *table.Table, c config.FilterConfig) (*table.Table, FilterResult) {
	res := FilterResult{
		Before:              t.Len(),
		ConfirmationColumn:  firstPresent(t, c.ConfirmationColumns),
		ParticipationColumn: firstPresent(t, c.ParticipationColumns),
		ByConfirmation:      map[string]int{},
		ByParticipation:     map[string]int{},
	}
	kept := t.Filter(func(r table.Record) bool {
		if col := res.ConfirmationColumn; col != "" {
			v := strings.TrimSpace(r[col])
			if v != "" && slices.ContainsFunc(c.ExcludeConfirmation, func(x string) bool { return strings.EqualFold(x, v) }) {
				res.ByConfirmation[v]++
				return false
			}
		}
		if col := res.ParticipationColumn; col != "" {
			v := strings.TrimSpace(r[col])
			if v != "" && slices.Contains(c.ExcludeParticipation, v) {
				res.ByParticipation[v]++
				return false
			}
		}
		return true
	})
	res.Rows = kept.Len()
	return kept, res
}

// Stats lists the filter figures with the dropped values.
func (r FilterResult) Stats() []Stat {
	out := []Stat{
		{"rows before", itoa(r.Before)},
		{"rows removed", itoa(r.Removed())},
	}
	for _, v := range slices.Sorted(maps.Keys(r.ByConfirmation)) {
		out = append(out, Stat{r.ConfirmationColumn + " " + v, itoa(r.ByConfirmation[v])})
	}
	for _, v := range slices.Sorted(maps.Keys(r.ByParticipation)) {
		out = append(out, Stat{r.ParticipationColumn + " " + v, itoa(r.ByParticipation[v])})
	}
	return append(out, Stat{"final rows", itoa(r.Rows)})
}

func firstPresent(t *table.Table, cols []string) string {
	for _, c := range cols {
		if t.Has(c) {
			return c
		}
	}
	return ""
}

// Filter reads the filter input, drops withdrawn panelists and writes the
// remainder as CSV.
func (p *Pipeline) Filter(ctx context.Context) (FilterResult, error) {
	if err := ctx.Err(); err != nil {
		return FilterResult{}, err
	}
	c := p.Config.Filter
	in, err := table.ReadCSVFile(p.Config.Path(c.Input), table.ReadOptions{})
	if err != nil {
		return FilterResult{}, fmt.Errorf("load filter input: %w", err)
	}
	kept, res := FilterPanel(in, c)
	if res.ConfirmationColumn == "" && res.ParticipationColumn == "" {
		p.Log.Warn("no filter columns present, copying input unchanged")
	}
	p.Log.Info("panel filtered",
		slog.Int("before", res.Before),
		slog.Int("removed", res.Removed()),
		slog.Int("rows", res.Rows))
	if err := table.WriteCSVFile(p.Config.Path(c.Output), kept, true); err != nil {
		return res, fmt.Errorf("write filtered panel: %w", err)
	}
	return res, nil
}
