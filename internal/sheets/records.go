package sheets

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/jask/panelmatch/internal/normalize"
	"github.com/jask/panelmatch/internal/table"
)

// Columns added to every fetched row.
const (
	ColUID   = "uid"
	ColSheet = "sheet_name"
)

// Participation and confirmation values written by NormalizeValue.
const (
	Participated    = "participated"
	NotParticipated = "not_participated"
	Pending         = "pending"
	Cancelled       = "cancelled"
	Confirmed       = "confirmed"
	NotConfirmed    = "not_confirmed"
)

// Parse reads a fetched CSV body, maps headers to field names and normalizes
// values. Rows without any value are dropped.
func Parse(body []byte, mapping map[string]string) (*table.Table, error) {
	t, err := table.ReadCSV(bytes.NewReader(body), table.ReadOptions{})
	if err != nil {
		return nil, err
	}
	t.DropEmptyRows()
	MapFields(t, mapping)
	for _, h := range t.Headers {
		t.Apply(h, func(v string) string { return NormalizeValue(h, v) })
	}
	t.AddColumn(ColUID, func(_ int, r table.Record) string {
		if uid := strings.TrimSpace(r[ColUID]); uid != "" {
			return uid
		}
		return UID(r["name"], r["phone"])
	})
	return t, nil
}

// MapFields renames headers through mapping. When several headers map to the
// same field the first keeps it.
func MapFields(t *table.Table, mapping map[string]string) {
	rename := make(map[string]string)
	for _, h := range t.Headers {
		if to, ok := mapping[strings.TrimSpace(h)]; ok {
			rename[h] = to
		}
	}
	t.Rename(rename)
}

// NormalizeValue cleans one value of a mapped field. Unknown fields and
// unrecognized values are returned trimmed.
func NormalizeValue(field, v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	switch field {
	case "gender":
		return normalize.Gender(v)
	case "reservation_location":
		return normalize.LocationCity(v)
	case "participation_result":
		return participation(v)
	case "confirmation_status":
		return confirmation(v)
	case "reservation_date":
		if d := normalize.ReservationDate(v); d != "" {
			return d
		}
	case "phone":
		return PhoneDisplay(v)
	}
	return v
}

func participation(v string) string {
	lower := strings.ToLower(v)
	switch {
	case strings.Contains(v, "미참여") || strings.Contains(lower, "not") || v == "X":
		return NotParticipated
	case strings.Contains(v, "참여") || strings.Contains(lower, "participated") || v == "O" || v == "✓":
		return Participated
	case strings.Contains(v, "대기") || strings.Contains(lower, "pending"):
		return Pending
	case strings.Contains(v, "취소") || strings.Contains(lower, "cancel"):
		return Cancelled
	}
	return v
}

func confirmation(v string) string {
	lower := strings.ToLower(v)
	switch {
	case strings.Contains(v, "미확정") || strings.Contains(lower, "not") || v == "X":
		return NotConfirmed
	case strings.Contains(v, "확정") || strings.Contains(lower, "confirmed") || v == "O":
		return Confirmed
	}
	return v
}

// PhoneDisplay formats 10 and 11 digit numbers with dashes.
func PhoneDisplay(v string) string {
	d := normalize.Digits(v)
	switch len(d) {
	case 11:
		return d[:3] + "-" + d[3:7] + "-" + d[7:]
	case 10:
		return d[:3] + "-" + d[3:6] + "-" + d[6:]
	}
	return strings.TrimSpace(v)
}

// UID builds the participant key from the name and the last four phone
// digits. Without a name there is no key.
func UID(name, phone string) string {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" || phone == "" {
		return ""
	}
	if d := normalize.Digits(phone); len(d) >= 4 {
		return name + "_" + d[len(d)-4:]
	}
	return name + "_" + phone
}

// FetchAll fetches every tab (name -> gid) in one round, parses it and
// stacks the rows in tab name order with the tab recorded in sheet_name. A
// failed tab is logged and skipped; an error is returned only when no tab
// could be read.
func FetchAll(ctx context.Context, f *Fetcher, tabs map[string]string, mapping map[string]string, force bool) (*table.Table, error) {
	if len(tabs) == 0 {
		return nil, fmt.Errorf("sheets: no tabs configured")
	}
	names := slices.Sorted(maps.Keys(tabs))
	gids := make([]string, len(names))
	for i, n := range names {
		gids[i] = tabs[n]
	}
	results, err := f.FetchTabs(ctx, gids, force)
	if err != nil {
		return nil, err
	}

	var parts []*table.Table
	var firstErr error
	for i, res := range results {
		name := names[i]
		err := res.Err
		if err == nil {
			var t *table.Table
			if t, err = Parse(res.Body, mapping); err == nil {
				t.AddColumn(ColSheet, func(int, table.Record) string { return name })
				parts = append(parts, t)
				f.log.Info("sheet parsed", slog.String("sheet", name), slog.Int("rows", t.Len()), slog.Bool("cached", res.Cached))
				continue
			}
		}
		f.log.Warn("sheet skipped", slog.String("sheet", name), slog.String("error", err.Error()))
		if firstErr == nil {
			firstErr = fmt.Errorf("sheet %s: %w", name, err)
		}
	}
	if len(parts) == 0 {
		return nil, firstErr
	}
	return table.Concat(parts...), nil
}
