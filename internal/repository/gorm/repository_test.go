package gormrepository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/MattewMattew/ManagmentBoard/internal/config"
	"github.com/MattewMattew/ManagmentBoard/internal/db"
	"github.com/MattewMattew/ManagmentBoard/internal/models"
	"github.com/MattewMattew/ManagmentBoard/internal/repository"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	handle, err := db.Open(config.DBConfig{
		Driver: db.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "board.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(handle) })
	require.NoError(t, db.AutoMigrate(handle))
	return New(handle.Gorm)
}

func upsert(t *testing.T, s *Store, items ...models.Issue) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.InTx(ctx, func(tx *gorm.DB) error {
		return s.UpsertIssuesTx(ctx, tx, items)
	}))
}

func TestUpsertIssues_Idempotent(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()
	batch := []models.Issue{
		{RemoteID: 1, Payload: []byte(`{"id":1}`), UpdatedAt: now},
		{RemoteID: 2, Payload: []byte(`{"id":2}`), UpdatedAt: now},
	}
	upsert(t, s, batch...)
	upsert(t, s, batch...)

	n, err := s.CountIssues(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestUpsertIssues_PreservesCreatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	first := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	upsert(t, s, models.Issue{RemoteID: 7, Payload: []byte(`{"id":7,"subject":"old"}`), CreatedAt: &created, UpdatedAt: first})

	later := first.Add(time.Hour)
	other := created.Add(48 * time.Hour)
	upsert(t, s, models.Issue{RemoteID: 7, Payload: []byte(`{"id":7,"subject":"new"}`), CreatedAt: &other, UpdatedAt: later})

	got, err := s.GetIssueByRemoteID(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.JSONEq(t, `{"id":7,"subject":"new"}`, string(got.Payload))
	require.NotNil(t, got.CreatedAt)
	assert.WithinDuration(t, created, *got.CreatedAt, time.Millisecond)
	assert.WithinDuration(t, later, got.UpdatedAt, time.Millisecond)
}

func TestUpsertIssues_RollbackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx *gorm.DB) error {
		if err := s.UpsertIssuesTx(ctx, tx, []models.Issue{{RemoteID: 1, Payload: []byte(`{}`), UpdatedAt: time.Now()}}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := s.CountIssues(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListIssues_OrderedByRemoteID(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()
	upsert(t, s,
		models.Issue{RemoteID: 30, Payload: []byte(`{"id":30}`), UpdatedAt: now},
		models.Issue{RemoteID: 10, Payload: []byte(`{"id":10}`), UpdatedAt: now},
		models.Issue{RemoteID: 20, Payload: []byte(`{"id":20}`), UpdatedAt: now},
	)

	all, err := s.ListIssues(context.Background(), repository.ListIssuesParams{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{10, 20, 30}, []int64{all[0].RemoteID, all[1].RemoteID, all[2].RemoteID})

	page, err := s.ListIssues(context.Background(), repository.ListIssuesParams{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(20), page[0].RemoteID)
}

func TestGetIssueByRemoteID_Missing(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetIssueByRemoteID(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveSyncRun_InsertThenFinish(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := &models.SyncRun{
		ID:        "3f1c8c1e-0000-4000-8000-000000000001",
		Trigger:   "cli",
		Status:    models.SyncRunRunning,
		StartedAt: time.Now().UTC(),
	}
	require.NoError(t, s.SaveSyncRun(ctx, run))

	finished := time.Now().UTC()
	run.Status = models.SyncRunSucceeded
	run.Fetched = 250
	run.Committed = 250
	run.Batches = 3
	run.FinishedAt = &finished
	require.NoError(t, s.SaveSyncRun(ctx, run))

	runs, err := s.ListSyncRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.SyncRunSucceeded, runs[0].Status)
	assert.Equal(t, 250, runs[0].Committed)
	assert.NotNil(t, runs[0].FinishedAt)
}

func TestUpsertIssues_NilCreatedAtStaysNull(t *testing.T) {
	s := newTestStore(t)
	upsert(t, s, models.Issue{RemoteID: 1, Payload: []byte(`{"id":1}`), CreatedAt: nil, UpdatedAt: time.Now().UTC()})

	got, err := s.GetIssueByRemoteID(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.CreatedAt)
}
