package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SheetRepo handles the Google Sheets cache and fetch history.
type SheetRepo struct{ db DBTX }

func NewSheetRepo(db DBTX) *SheetRepo { return &SheetRepo{db: db} }

// GetCache returns nil when the tab was never cached.
func (r *SheetRepo) GetCache(ctx context.Context, spreadsheetID, gid string) (*SheetCache, error) {
	row := r.db.QueryRowContext(ctx, `SELECT spreadsheet_id, gid, body, fetched_at FROM sheet_cache WHERE spreadsheet_id = ? AND gid = ?`, spreadsheetID, gid)
	var c SheetCache
	if err := row.Scan(&c.SpreadsheetID, &c.GID, &c.Body, &c.FetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *SheetRepo) PutCache(ctx context.Context, c SheetCache) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO sheet_cache(spreadsheet_id, gid, body, fetched_at) VALUES(?, ?, ?, ?)
	ON CONFLICT(spreadsheet_id, gid) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at
	`, c.SpreadsheetID, c.GID, c.Body, c.FetchedAt)
	return err
}

// RecordFetch appends to the fetch history used for rate limiting.
func (r *SheetRepo) RecordFetch(ctx context.Context, spreadsheetID, gid string, ok bool, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO sheet_fetches(spreadsheet_id, gid, ok, fetched_at) VALUES(?, ?, ?, ?)`,
		spreadsheetID, gid, ok, at)
	return err
}

// FetchesSince returns fetch times at or after since, oldest first.
func (r *SheetRepo) FetchesSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT fetched_at FROM sheet_fetches WHERE fetched_at >= ? ORDER BY fetched_at ASC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// LastFetch returns the most recent fetch time, or nil.
func (r *SheetRepo) LastFetch(ctx context.Context) (*time.Time, error) {
	var t time.Time
	err := r.db.QueryRowContext(ctx, `SELECT fetched_at FROM sheet_fetches ORDER BY fetched_at DESC, id DESC LIMIT 1`).Scan(&t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
