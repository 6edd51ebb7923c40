package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/jask/panelmatch/internal/config"
	"github.com/jask/panelmatch/internal/match"
	"github.com/jask/panelmatch/internal/table"
)

// ErrMissingInput is returned when a step's input file does not exist.
var ErrMissingInput = errors.New("missing input file")

// MergeResult summarizes the merge step.
type MergeResult struct {
	PerFile    []int
	Combined   int
	Duplicates int
	Rows       int
	Columns    int
	Renamed    map[string]string
	WithEmail  int
	WithPhone  int
}

// MergePanels stacks the panel exports, removes repeated registrants and
// canonicalizes headers. The first occurrence of a person is kept.
func MergePanels(panels []*table.Table, m config.Mapping, dedupe match.Fields, emailSimilarity float64) (*table.Table, MergeResult) {
	res := MergeResult{}
	for _, p := range panels {
		res.PerFile = append(res.PerFile, p.Len())
	}
	merged := table.Concat(panels...)
	res.Combined = merged.Len()

	dups := match.FindDuplicates(merged.Rows, dedupe, emailSimilarity)
	merged.Drop(dups)
	res.Duplicates = len(dups)

	res.Renamed = AliasColumns(merged.Headers, m.Aliases)
	merged.Rename(res.Renamed)
	merged.Reorder(m.Important...)

	res.Rows = merged.Len()
	res.Columns = len(merged.Headers)
	res.WithEmail = merged.NonEmpty("이메일")
	res.WithPhone = merged.NonEmpty("전화번호")
	return merged, res
}

// AliasColumns maps headers to canonical names. Headers already named after a
// canonical column keep it; for each remaining alias, in order, the first
// unclaimed header containing one of its names is taken.
func AliasColumns(headers []string, aliases []config.Alias) map[string]string {
	claimed := make(map[string]bool, len(headers))
	out := make(map[string]string)
	for _, a := range aliases {
		if slices.Contains(headers, a.Column) {
			claimed[a.Column] = true
		}
	}
	for _, a := range aliases {
		if claimed[a.Column] {
			continue
		}
		for _, h := range headers {
			if !claimed[h] && containsAny(h, a.Names) {
				claimed[h] = true
				out[h] = a.Column
				break
			}
		}
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Merge runs step 1: read the panel exports, merge, write the integrated CSV.
func (p *Pipeline) Merge(ctx context.Context) (MergeResult, error) {
	var panels []*table.Table
	for _, path := range p.Config.Paths.Panels {
		if err := ctx.Err(); err != nil {
			return MergeResult{}, err
		}
		t, err := table.ReadCSVFile(p.Config.Path(path), table.ReadOptions{SkipRows: p.Config.Paths.PanelSkipRows})
		if err != nil {
			return MergeResult{}, fmt.Errorf("load panel: %w", err)
		}
		p.Log.Info("panel loaded", slog.String("path", path), slog.Int("rows", t.Len()), slog.Int("columns", len(t.Headers)))
		panels = append(panels, t)
	}

	merged, res := MergePanels(panels, p.Mapping, p.matchOptions().Source, p.Config.Match.DedupeEmailSimilarity)
	p.Log.Info("panels merged",
		slog.Int("combined", res.Combined),
		slog.Int("duplicates", res.Duplicates),
		slog.Int("rows", res.Rows))

	out := p.Config.Path(p.Config.Paths.Integrated)
	if err := table.WriteCSVFile(out, merged, true); err != nil {
		return res, fmt.Errorf("write integrated: %w", err)
	}
	return res, nil
}
