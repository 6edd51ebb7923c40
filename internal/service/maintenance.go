package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jask/panelmatch/internal/database"
)

// MaintenanceService houses destructive ledger actions.
type MaintenanceService struct {
	DB *sql.DB
}

// ledgerTables are cleared child first.
var ledgerTables = []string{
	"match_outcomes",
	"match_runs",
	"sheet_fetches",
	"sheet_cache",
	"sync_log",
}

// Reset wipes runs, review decisions, the sheet cache and sync history.
// The schema is kept.
func (s *MaintenanceService) Reset(ctx context.Context) error {
	if s.DB == nil {
		return fmt.Errorf("maintenance: db not configured")
	}
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		for _, t := range ledgerTables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("reset table %s: %w", t, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	_, _ = s.DB.ExecContext(ctx, "VACUUM")
	return nil
}

// ClearSheetCache drops cached sheet bodies so the next fetch downloads.
// Fetch history is kept because it feeds the rate limits.
func (s *MaintenanceService) ClearSheetCache(ctx context.Context) (int64, error) {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM sheet_cache")
	if err != nil {
		return 0, fmt.Errorf("clear sheet cache: %w", err)
	}
	return res.RowsAffected()
}
