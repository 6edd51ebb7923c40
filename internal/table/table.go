package table

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrMissingColumn is returned when a required column is absent.
var ErrMissingColumn = errors.New("missing column")

// Record is one row keyed by column name. Absent values are "".
type Record map[string]string

// Get returns the first non-empty value among cols.
func (r Record) Get(cols ...string) string {
	for _, c := range cols {
		if v := strings.TrimSpace(r[c]); v != "" {
			return v
		}
	}
	return ""
}

// Table is an ordered set of records sharing a header.
type Table struct {
	Headers []string
	Rows    []Record
}

// New returns an empty table with the given header.
func New(headers ...string) *Table {
	return &Table{Headers: slices.Clone(headers)}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Has reports whether col is part of the header.
func (t *Table) Has(col string) bool {
	return slices.Contains(t.Headers, col)
}

// Require returns ErrMissingColumn naming the first absent column.
func (t *Table) Require(cols ...string) error {
	for _, c := range cols {
		if !t.Has(c) {
			return fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}
	return nil
}

// Append adds a row, extending the header with unseen columns in sorted order.
func (t *Table) Append(r Record) {
	var extra []string
	for k := range r {
		if !t.Has(k) {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	t.Headers = append(t.Headers, extra...)
	t.Rows = append(t.Rows, r)
}

// AddColumn appends col to the header if missing and sets every row's value
// with fn.
func (t *Table) AddColumn(col string, fn func(i int, r Record) string) {
	if !t.Has(col) {
		t.Headers = append(t.Headers, col)
	}
	for i, r := range t.Rows {
		r[col] = fn(i, r)
	}
}

// Apply replaces the values of col in place and returns how many values changed.
func (t *Table) Apply(col string, fn func(string) string) int {
	changed := 0
	for _, r := range t.Rows {
		before := r[col]
		after := fn(before)
		if after != before {
			changed++
		}
		r[col] = after
	}
	return changed
}

// Column returns every value of col in row order.
func (t *Table) Column(col string) []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[col]
	}
	return out
}

// NonEmpty counts rows with a non-blank value in col.
func (t *Table) NonEmpty(col string) int {
	n := 0
	for _, r := range t.Rows {
		if strings.TrimSpace(r[col]) != "" {
			n++
		}
	}
	return n
}

// Counts tallies the non-blank values of col.
func (t *Table) Counts(col string) map[string]int {
	out := map[string]int{}
	for _, r := range t.Rows {
		if v := strings.TrimSpace(r[col]); v != "" {
			out[v]++
		}
	}
	return out
}

// Filter returns a table sharing this header holding rows where keep is true.
func (t *Table) Filter(keep func(Record) bool) *Table {
	out := New(t.Headers...)
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// Concat stacks tables; the header is the union in first-seen order.
func Concat(tables ...*Table) *Table {
	out := New()
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, h := range t.Headers {
			if !out.Has(h) {
				out.Headers = append(out.Headers, h)
			}
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out
}

// DedupeByKey keeps the first row for each key. Rows whose key is "" are kept.
// It returns the number of rows removed.
func (t *Table) DedupeByKey(key func(Record) string) int {
	seen := make(map[string]struct{}, len(t.Rows))
	kept := t.Rows[:0]
	removed := 0
	for _, r := range t.Rows {
		k := key(r)
		if k != "" {
			if _, dup := seen[k]; dup {
				removed++
				continue
			}
			seen[k] = struct{}{}
		}
		kept = append(kept, r)
	}
	t.Rows = kept
	return removed
}

// Drop removes rows by index.
func (t *Table) Drop(indices map[int]struct{}) {
	if len(indices) == 0 {
		return
	}
	kept := make([]Record, 0, len(t.Rows)-len(indices))
	for i, r := range t.Rows {
		if _, drop := indices[i]; !drop {
			kept = append(kept, r)
		}
	}
	t.Rows = kept
}

// DropColumns removes cols from the header and from every row.
func (t *Table) DropColumns(cols ...string) {
	t.Headers = slices.DeleteFunc(t.Headers, func(h string) bool { return slices.Contains(cols, h) })
	for _, r := range t.Rows {
		for _, c := range cols {
			delete(r, c)
		}
	}
}

// Rename renames columns per mapping (old -> new). When two columns map to
// the same name the first keeps it and later ones are left unchanged.
func (t *Table) Rename(mapping map[string]string) {
	taken := make(map[string]bool, len(t.Headers))
	for _, h := range t.Headers {
		if _, moving := mapping[h]; !moving {
			taken[h] = true
		}
	}
	final := make(map[string]string, len(mapping))
	for i, h := range t.Headers {
		to, ok := mapping[h]
		if !ok || to == h {
			taken[h] = true
			continue
		}
		if taken[to] {
			taken[h] = true
			continue
		}
		taken[to] = true
		final[h] = to
		t.Headers[i] = to
	}
	if len(final) == 0 {
		return
	}
	// two phases so chained renames (a->b, b->c) do not clobber each other
	pending := make(map[string]string, len(final))
	for _, r := range t.Rows {
		clear(pending)
		for from, to := range final {
			if v, ok := r[from]; ok {
				pending[to] = v
			}
		}
		for from := range final {
			delete(r, from)
		}
		for to, v := range pending {
			r[to] = v
		}
	}
}

// Reorder moves the priority columns that exist to the front, in the given
// order; the remaining columns keep their relative order.
func (t *Table) Reorder(priority ...string) {
	out := make([]string, 0, len(t.Headers))
	for _, p := range priority {
		if t.Has(p) && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	for _, h := range t.Headers {
		if !slices.Contains(out, h) {
			out = append(out, h)
		}
	}
	t.Headers = out
}

// DropEmptyRows removes rows where every value is blank.
func (t *Table) DropEmptyRows() int {
	before := len(t.Rows)
	t.Rows = slices.DeleteFunc(t.Rows, func(r Record) bool {
		for _, v := range r {
			if strings.TrimSpace(v) != "" {
				return false
			}
		}
		return true
	})
	return before - len(t.Rows)
}
