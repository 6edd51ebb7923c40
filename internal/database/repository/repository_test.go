package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jask/panelmatch/internal/database"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Setup(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunsAndOutcomes(t *testing.T) {
	t.Parallel()
	db := setupDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := database.Now()
	first := MatchRun{ID: uuid.NewString(), SourcePath: "a.csv", TargetPath: "b.csv", Threshold: 0.8, Total: 2, Matched: 1, CreatedAt: now.Add(-time.Hour)}
	second := MatchRun{ID: uuid.NewString(), SourcePath: "a.csv", TargetPath: "b.csv", Threshold: 0.8, Total: 3, Matched: 2, CreatedAt: now}

	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		runs, outcomes := NewRunRepo(tx), NewOutcomeRepo(tx)
		for _, r := range []MatchRun{first, second} {
			if err := runs.Insert(ctx, r); err != nil {
				return err
			}
		}
		if err := outcomes.Insert(ctx, MatchOutcome{ID: uuid.NewString(), RunID: second.ID, SourceIndex: 1, TargetIndex: 4, TargetID: "FAM_00004", MatchType: "fuzzy-name", Score: 44.4, ReviewStatus: ReviewPending}); err != nil {
			return err
		}
		return outcomes.Insert(ctx, MatchOutcome{ID: uuid.NewString(), RunID: second.ID, SourceIndex: 0, TargetIndex: -1, Reason: "no signal"})
	})
	require.NoError(t, err)

	latest, err := NewRunRepo(db).Latest(ctx)
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)
	require.True(t, latest.CreatedAt.Equal(now))

	missing, err := NewRunRepo(db).Get(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)

	list, err := NewOutcomeRepo(db).ListByRun(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, 0, list[0].SourceIndex)
	require.Equal(t, ReviewNone, list[0].ReviewStatus)
	require.Nil(t, list[0].ReviewedAt)

	counts, err := NewOutcomeRepo(db).CountByReview(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, map[string]int{ReviewNone: 1, ReviewPending: 1}, counts)
}

func TestWithTxRollsBack(t *testing.T) {
	t.Parallel()
	db := setupDB(t)
	ctx := context.Background()

	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := NewRunRepo(tx).Insert(ctx, MatchRun{ID: "r1", CreatedAt: database.Now()}); err != nil {
			return err
		}
		return NewOutcomeRepo(tx).Insert(ctx, MatchOutcome{ID: "o1", RunID: "missing-run"})
	})
	require.Error(t, err, "foreign key must reject an orphan outcome")

	run, err := NewRunRepo(db).Get(ctx, "r1")
	require.NoError(t, err)
	require.Nil(t, run)
}

func TestReviewDecide(t *testing.T) {
	t.Parallel()
	db := setupDB(t)
	ctx := context.Background()

	require.NoError(t, NewRunRepo(db).Insert(ctx, MatchRun{ID: "r1", CreatedAt: database.Now()}))
	outcomes := NewOutcomeRepo(db)
	require.NoError(t, outcomes.Insert(ctx, MatchOutcome{ID: "p1", RunID: "r1", SourceIndex: 0, ReviewStatus: ReviewPending}))
	require.NoError(t, outcomes.Insert(ctx, MatchOutcome{ID: "p2", RunID: "r1", SourceIndex: 1, ReviewStatus: ReviewPending}))

	reviews := NewReviewRepo(db)
	pending, err := reviews.ListPending(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, pending, 2)

	at := database.Now()
	require.NoError(t, reviews.Decide(ctx, "p1", ReviewAccepted, at))
	require.Error(t, reviews.Decide(ctx, "p1", ReviewRejected, at), "already decided")
	require.Error(t, reviews.Decide(ctx, "p2", "maybe", at))

	got, err := reviews.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, ReviewAccepted, got.ReviewStatus)
	require.NotNil(t, got.ReviewedAt)

	pending, err = reviews.ListPending(ctx, "")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "p2", pending[0].ID)
}

func TestSheetCacheAndFetches(t *testing.T) {
	t.Parallel()
	db := setupDB(t)
	ctx := context.Background()
	repo := NewSheetRepo(db)

	c, err := repo.GetCache(ctx, "sid", "0")
	require.NoError(t, err)
	require.Nil(t, c)

	now := database.Now()
	require.NoError(t, repo.PutCache(ctx, SheetCache{SpreadsheetID: "sid", GID: "0", Body: []byte("a,b\n"), FetchedAt: now.Add(-time.Minute)}))
	require.NoError(t, repo.PutCache(ctx, SheetCache{SpreadsheetID: "sid", GID: "0", Body: []byte("a,b\n1,2\n"), FetchedAt: now}))
	c, err = repo.GetCache(ctx, "sid", "0")
	require.NoError(t, err)
	require.Equal(t, "a,b\n1,2\n", string(c.Body))
	require.True(t, c.FetchedAt.Equal(now))

	last, err := repo.LastFetch(ctx)
	require.NoError(t, err)
	require.Nil(t, last)

	for _, d := range []time.Duration{-2 * time.Hour, -30 * time.Minute, -time.Minute} {
		require.NoError(t, repo.RecordFetch(ctx, "sid", "0", true, now.Add(d)))
	}
	since, err := repo.FetchesSince(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, since, 2)

	last, err = repo.LastFetch(ctx)
	require.NoError(t, err)
	require.True(t, last.Equal(now.Add(-time.Minute)))
}

func TestSyncLog(t *testing.T) {
	t.Parallel()
	db := setupDB(t)
	ctx := context.Background()
	repo := NewSyncLogRepo(db)

	now := database.Now()
	require.NoError(t, repo.Insert(ctx, SyncLog{ID: "s1", Table: "Panel", Total: 12, Created: 10, Updated: 2, StartedAt: now.Add(-time.Hour), FinishedAt: now.Add(-time.Hour)}))
	require.NoError(t, repo.Insert(ctx, SyncLog{ID: "s2", Table: "Panel", Total: 5, Updated: 5, StartedAt: now, FinishedAt: now}))

	l, err := repo.Latest(ctx, "Panel")
	require.NoError(t, err)
	require.Equal(t, "s2", l.ID)
	require.Equal(t, 5, l.Updated)

	l, err = repo.Latest(ctx, "Other")
	require.NoError(t, err)
	require.Nil(t, l)
}
