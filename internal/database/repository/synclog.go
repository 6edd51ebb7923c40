package repository

import (
	"context"
	"database/sql"
	"errors"
)

// SyncLogRepo handles Airtable sync history.
type SyncLogRepo struct{ db DBTX }

func NewSyncLogRepo(db DBTX) *SyncLogRepo { return &SyncLogRepo{db: db} }

func (r *SyncLogRepo) Insert(ctx context.Context, l SyncLog) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO sync_log(id, table_name, input_path, total, created, updated, failed, started_at, finished_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.Table, l.InputPath, l.Total, l.Created, l.Updated, l.Failed, l.StartedAt, l.FinishedAt)
	return err
}

// Latest returns the newest sync for table, or nil.
func (r *SyncLogRepo) Latest(ctx context.Context, table string) (*SyncLog, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, table_name, input_path, total, created, updated, failed, started_at, finished_at
	FROM sync_log WHERE table_name = ? ORDER BY finished_at DESC, rowid DESC LIMIT 1`, table)
	var l SyncLog
	if err := row.Scan(&l.ID, &l.Table, &l.InputPath, &l.Total, &l.Created, &l.Updated, &l.Failed, &l.StartedAt, &l.FinishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}
