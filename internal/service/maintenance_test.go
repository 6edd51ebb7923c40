package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/panelmatch/internal/database/repository"
)

func TestMaintenanceReset(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeWorkspace(t, dir)
	p := newPipeline(t, dir)
	db := p.DB
	ctx := context.Background()
	require.NoError(t, p.Run(ctx, 0))

	sheets := repository.NewSheetRepo(db)
	at := time.Date(2025, 9, 22, 1, 0, 0, 0, time.UTC)
	require.NoError(t, sheets.PutCache(ctx, repository.SheetCache{SpreadsheetID: "s", GID: "0", Body: []byte("a,b\n"), FetchedAt: at}))
	require.NoError(t, sheets.RecordFetch(ctx, "s", "0", true, at))

	m := &MaintenanceService{DB: db}
	n, err := m.ClearSheetCache(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	fetches, err := sheets.FetchesSince(ctx, at.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, fetches, 1)

	require.NoError(t, m.Reset(ctx))
	latest, err := repository.NewRunRepo(db).Latest(ctx)
	require.NoError(t, err)
	require.Nil(t, latest)
	last, err := sheets.LastFetch(ctx)
	require.NoError(t, err)
	require.Nil(t, last)
}
