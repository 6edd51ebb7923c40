package repository

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx so a repo can join a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Review statuses of a match outcome.
const (
	ReviewNone     = "none"
	ReviewPending  = "pending"
	ReviewAccepted = "accepted"
	ReviewRejected = "rejected"
)

// MatchRun is one crosscheck execution.
type MatchRun struct {
	ID         string
	SourcePath string
	TargetPath string
	Threshold  float64
	MinScore   float64
	Total      int
	Matched    int
	CreatedAt  time.Time
}

// MatchOutcome is the stored result for one source record of a run.
type MatchOutcome struct {
	ID           string
	RunID        string
	SourceIndex  int
	SourceLabel  string
	TargetIndex  int
	TargetID     string
	TargetLabel  string
	MatchType    string
	Score        float64
	Reason       string
	ReviewStatus string
	ReviewedAt   *time.Time
}

// SheetCache is the last body fetched for one sheet tab.
type SheetCache struct {
	SpreadsheetID string
	GID           string
	Body          []byte
	FetchedAt     time.Time
}

// SyncLog records one Airtable sync.
type SyncLog struct {
	ID         string
	Table      string
	InputPath  string
	Total      int
	Created    int
	Updated    int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}
