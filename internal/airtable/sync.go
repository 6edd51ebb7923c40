package airtable

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jask/panelmatch/internal/database/repository"
	"github.com/jask/panelmatch/internal/table"
)

// SyncDateField is stamped on every record written by a sync.
const SyncDateField = "sync_date"

// SyncOptions selects what a sync sends.
type SyncOptions struct {
	// UIDField identifies a participant both locally and in Airtable.
	UIDField string
	// Fields are the only columns sent. Local columns are matched without
	// regard to case.
	Fields []string
	// InputPath is recorded in the sync log.
	InputPath string
	// Now defaults to time.Now.
	Now func() time.Time
}

// SyncResult counts one sync.
type SyncResult struct {
	Total      int
	Duplicates int
	Existing   int
	Created    int
	Updated    int
	Failed     int
	Errors     []error
}

// Syncer uploads local rows to a table and records each sync.
type Syncer struct {
	Client *Client
	Log    *repository.SyncLogRepo
	Logger *slog.Logger
}

// Sync creates rows whose uid is unknown to Airtable and updates the rest.
// Rows are planned against the uid -> record id map of the existing records.
// Of rows sharing a uid only the first is sent; rows is not modified.
func (s *Syncer) Sync(ctx context.Context, tableName string, rows *table.Table, opts SyncOptions) (SyncResult, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	started := now().UTC()
	logger := s.Logger
	if logger == nil {
		logger = s.Client.log
	}

	existing, err := s.Client.List(ctx, tableName)
	if err != nil {
		return SyncResult{}, fmt.Errorf("fetch existing records: %w", err)
	}
	ids := UIDMap(existing, opts.UIDField)
	res := SyncResult{Total: rows.Len(), Existing: len(existing)}

	rows = rows.Filter(func(table.Record) bool { return true })
	res.Duplicates = rows.DedupeByKey(func(r table.Record) string { return lookup(r, opts.UIDField) })
	if res.Duplicates > 0 {
		logger.Warn("duplicate uids skipped", slog.Int("rows", res.Duplicates))
	}

	stamp := started.Format(time.RFC3339)
	var create, update []Record
	for _, r := range rows.Rows {
		rec := Record{Fields: PrepareFields(r, opts.Fields)}
		rec.Fields[SyncDateField] = stamp
		if id, ok := ids[lookup(r, opts.UIDField)]; ok {
			rec.ID = id
			update = append(update, rec)
			continue
		}
		create = append(create, rec)
	}
	logger.Info("airtable sync planned",
		slog.String("table", tableName),
		slog.Int("existing", len(existing)),
		slog.Int("create", len(create)),
		slog.Int("update", len(update)))

	if len(create) > 0 {
		br, err := s.Client.CreateBatch(ctx, tableName, create)
		res.Created, res.Failed = br.Succeeded, res.Failed+br.Failed
		res.Errors = append(res.Errors, br.Errors...)
		if err != nil {
			return res, err
		}
	}
	if len(update) > 0 {
		br, err := s.Client.UpdateBatch(ctx, tableName, update)
		res.Updated, res.Failed = br.Succeeded, res.Failed+br.Failed
		res.Errors = append(res.Errors, br.Errors...)
		if err != nil {
			return res, err
		}
	}

	if s.Log != nil {
		entry := repository.SyncLog{
			ID:         uuid.NewString(),
			Table:      tableName,
			InputPath:  opts.InputPath,
			Total:      res.Total,
			Created:    res.Created,
			Updated:    res.Updated,
			Failed:     res.Failed,
			StartedAt:  started.Truncate(time.Second),
			FinishedAt: now().UTC().Truncate(time.Second),
		}
		if err := s.Log.Insert(ctx, entry); err != nil {
			return res, fmt.Errorf("record sync: %w", err)
		}
	}
	logger.Info("airtable sync finished",
		slog.Int("created", res.Created),
		slog.Int("updated", res.Updated),
		slog.Int("failed", res.Failed))
	return res, nil
}

// UIDMap maps each record's uid field to its record id. Records without a
// uid are skipped; a repeated uid keeps the first record.
func UIDMap(records []Record, uidField string) map[string]string {
	out := make(map[string]string, len(records))
	for _, r := range records {
		uid := strings.TrimSpace(fmt.Sprint(r.Fields[uidField]))
		if r.Fields[uidField] == nil || uid == "" {
			continue
		}
		if _, seen := out[uid]; !seen {
			out[uid] = r.ID
		}
	}
	return out
}

// PrepareFields keeps the listed fields that have a value in r.
func PrepareFields(r table.Record, fields []string) Fields {
	out := make(Fields, len(fields)+1)
	for _, f := range fields {
		if v := lookup(r, f); v != "" {
			out[f] = v
		}
	}
	return out
}

func lookup(r table.Record, field string) string {
	if v, ok := r[field]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range r {
		if strings.EqualFold(k, field) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
