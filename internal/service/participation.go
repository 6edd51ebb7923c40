package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/jask/panelmatch/internal/config"
	"github.com/jask/panelmatch/internal/match"
	"github.com/jask/panelmatch/internal/normalize"
	"github.com/jask/panelmatch/internal/table"
)

// Participation statuses derived for every base row.
const (
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
	StatusApplied   = "applied"
	StatusConfirmed = "confirmed"
	StatusWaiting   = "waiting"
)

// ColStatus holds the derived status.
const ColStatus = "status"

const participated = "참여"

var (
	cancelledResults = []string{"취소", "불가", "거부"}
	appliedResults   = []string{"불참", "중복", "변경", "보류"}
)

// ParticipationResult summarizes a participation update.
type ParticipationResult struct {
	BaseRows   int
	UpdateRows int
	Considered int
	Exact      int
	Fuzzy      int
	Updated    int
	Unmatched  *table.Table
	Status     map[string]int
}

// UpdateParticipation copies participation results and reservation details
// from update rows onto base rows with the same normalized name. The Korean
// name is tried before the English one; with no exact hit the closest base
// name at or above c.Threshold is used. A recorded participation is never
// downgraded by a later row for the same person.
func UpdateParticipation(base, update *table.Table, c config.ParticipationConfig) ParticipationResult {
	res := ParticipationResult{BaseRows: base.Len(), UpdateRows: update.Len()}

	names := make([]string, base.Len())
	byName := make(map[string][]int, base.Len())
	for i, r := range base.Rows {
		n := normalize.Name(r[c.BaseName])
		names[i] = n
		if n != "" {
			byName[n] = append(byName[n], i)
		}
	}

	res.Unmatched = table.New("uid", "name", "reservation_date", "result", "group", "reason")
	cols := []string{c.BaseResult, c.BaseDate, c.BaseTime}
	if c.Group != "" {
		cols = append(cols, c.GroupColumn)
	}
	for _, col := range cols {
		if col != "" && !base.Has(col) {
			base.AddColumn(col, func(int, table.Record) string { return "" })
		}
	}

	for _, u := range update.Rows {
		if !inGroup(u, c) {
			continue
		}
		var keys []string
		for _, col := range c.UpdateNames {
			if n := normalize.Name(u[col]); n != "" {
				keys = append(keys, n)
			}
		}
		if len(keys) == 0 {
			continue
		}
		res.Considered++

		var hits []int
		for _, k := range keys {
			if rows := byName[k]; len(rows) > 0 {
				hits = rows
				res.Exact++
				break
			}
		}
		if hits == nil {
			if j := closestName(keys, names, c.Threshold); j >= 0 {
				hits = []int{j}
				res.Fuzzy++
			}
		}
		if hits == nil {
			res.Unmatched.Append(table.Record{
				"uid":              u[c.UpdateUID],
				"name":             u.Get(c.UpdateNames...),
				"reservation_date": u[c.UpdateDate],
				"result":           u[c.UpdateResult],
				"group":            u[c.GroupColumn],
				"reason":           "no base record with this name",
			})
			continue
		}
		for _, i := range hits {
			if applyUpdate(base.Rows[i], u, c) {
				res.Updated++
			}
		}
	}

	base.AddColumn(ColStatus, func(_ int, r table.Record) string { return DeriveStatus(r, c) })
	res.Status = base.Counts(ColStatus)
	return res
}

func inGroup(u table.Record, c config.ParticipationConfig) bool {
	if c.Group == "" || c.GroupColumn == "" {
		return true
	}
	g := strings.TrimSpace(u[c.GroupColumn])
	if g == "" {
		return c.IncludeEmptyGroup
	}
	return strings.TrimSuffix(g, "?") == c.Group
}

// closestName returns the base row whose name is most similar to any key,
// or -1. Ties keep the earlier row.
func closestName(keys, names []string, threshold float64) int {
	best, bestSim := -1, 0.0
	for i, n := range names {
		if n == "" {
			continue
		}
		for _, k := range keys {
			sim := match.NameSimilarity(k, n, match.DefaultWeights().Containment)
			if sim >= threshold && sim > bestSim {
				best, bestSim = i, sim
			}
		}
	}
	return best
}

// applyUpdate reports whether the base row changed.
func applyUpdate(b, u table.Record, c config.ParticipationConfig) bool {
	changed := false
	set := func(col, v string) {
		v = strings.TrimSpace(v)
		if col == "" || v == "" || b[col] == v {
			return
		}
		b[col] = v
		changed = true
	}
	if result := strings.TrimSpace(u[c.UpdateResult]); result != "" {
		if strings.TrimSpace(b[c.BaseResult]) != participated || result == participated {
			set(c.BaseResult, result)
		}
	}
	set(c.BaseDate, u[c.UpdateDate])
	set(c.BaseTime, u[c.UpdateTime])
	if c.Group != "" && c.GroupColumn != "" {
		set(c.GroupColumn, c.Group)
	}
	return changed
}

// DeriveStatus classifies a base row from its participation result,
// confirmation flag and reservation slot.
func DeriveStatus(r table.Record, c config.ParticipationConfig) string {
	result := strings.TrimSpace(r[c.BaseResult])
	switch {
	case strings.EqualFold(strings.TrimSpace(r[c.Confirmation]), "x") || slices.Contains(cancelledResults, result):
		return StatusCancelled
	case result == participated:
		return StatusCompleted
	case slices.Contains(appliedResults, result):
		return StatusApplied
	case strings.TrimSpace(r[c.BaseDate]) != "" && strings.TrimSpace(r[c.BaseTime]) != "":
		return StatusConfirmed
	}
	return StatusWaiting
}

// statsTable lays out the counts written to the stats sheet.
func statsTable(res ParticipationResult) *table.Table {
	t := table.New("item", "count")
	add := func(item string, n int) {
		t.Rows = append(t.Rows, table.Record{"item": item, "count": strconv.Itoa(n)})
	}
	add("base records", res.BaseRows)
	add("update rows considered", res.Considered)
	add("matched exact", res.Exact)
	add("matched fuzzy", res.Fuzzy)
	add("unmatched", res.Unmatched.Len())
	add("rows updated", res.Updated)
	for _, s := range []string{StatusCompleted, StatusWaiting, StatusConfirmed, StatusApplied, StatusCancelled} {
		add(s, res.Status[s])
	}
	return t
}

// Participation loads the base and update files, applies the update and
// writes the workbook (matched, unmatched, stats) plus the base as CSV.
func (p *Pipeline) Participation(ctx context.Context) (ParticipationResult, error) {
	if err := ctx.Err(); err != nil {
		return ParticipationResult{}, err
	}
	c := p.Config.Participation
	base, err := table.ReadCSVFile(p.Config.Path(c.Base), table.ReadOptions{})
	if err != nil {
		return ParticipationResult{}, fmt.Errorf("load base: %w", err)
	}
	updatePath := p.Config.Path(c.Update)
	var update *table.Table
	if strings.EqualFold(filepath.Ext(updatePath), ".xlsx") {
		update, err = table.ReadXLSX(updatePath, c.UpdateSheet)
	} else {
		update, err = table.ReadCSVFile(updatePath, table.ReadOptions{SkipRows: c.UpdateSkipRows})
	}
	if err != nil {
		return ParticipationResult{}, fmt.Errorf("load update: %w", err)
	}
	if err := base.Require(c.BaseName); err != nil {
		return ParticipationResult{}, fmt.Errorf("base: %w", err)
	}

	res := UpdateParticipation(base, update, c)
	p.Log.Info("participation updated",
		slog.Int("considered", res.Considered),
		slog.Int("exact", res.Exact),
		slog.Int("fuzzy", res.Fuzzy),
		slog.Int("unmatched", res.Unmatched.Len()))

	out := p.Config.Path(c.Output)
	err = table.WriteXLSX(out,
		table.Sheet{Name: "matched", Table: base},
		table.Sheet{Name: "unmatched", Table: res.Unmatched},
		table.Sheet{Name: "stats", Table: statsTable(res)},
	)
	if err != nil {
		return res, fmt.Errorf("write workbook: %w", err)
	}
	csvOut := strings.TrimSuffix(out, filepath.Ext(out)) + ".csv"
	if err := table.WriteCSVFile(csvOut, base, true); err != nil {
		return res, fmt.Errorf("write base csv: %w", err)
	}
	return res, nil
}
