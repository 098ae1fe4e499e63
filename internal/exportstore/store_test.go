package exportstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hochfrequenz/booking-export/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNew_CreatesParentDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), ".booking-export", "nested", "export.db")

	store, err := New(dbPath)
	require.NoError(t, err)
	defer store.Close()

	assert.FileExists(t, dbPath)
	require.NoError(t, store.Ping(context.Background()))
}

func TestStore_CreateAndGetJob(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job := domain.NewBatchJob(time.Now())
	id, err := store.CreateJob(ctx, job)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, id, job.ID)

	got, err := store.GetJob(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, domain.ExportBatch, got.ExportType)
	assert.Equal(t, "N/A", got.SheetID)
	assert.Equal(t, domain.JobPending, got.Status)
	assert.Equal(t, 0, got.RowsExported)
	assert.Nil(t, got.CompletedAt)
}

func TestStore_GetJobNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_CompleteJob(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateJob(ctx, domain.NewBatchJob(time.Now()))
	require.NoError(t, err)

	done := time.Now()
	require.NoError(t, store.CompleteJob(ctx, id, 19, done))

	got, err := store.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, got.Status)
	assert.Equal(t, 19, got.RowsExported)
	require.NotNil(t, got.CompletedAt)
	assert.WithinDuration(t, done, *got.CompletedAt, time.Second)

	// a finished job cannot be completed twice
	err = store.CompleteJob(ctx, id, 3, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_CompleteJobOnlyTouchesItsRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.CreateJob(ctx, domain.NewBatchJob(time.Now()))
	require.NoError(t, err)
	second, err := store.CreateJob(ctx, domain.NewBatchJob(time.Now()))
	require.NoError(t, err)

	require.NoError(t, store.CompleteJob(ctx, second, 4, time.Now()))

	got, err := store.GetJob(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, domain.JobPending, got.Status)
}

func TestStore_FailJob(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateJob(ctx, domain.NewBatchJob(time.Now()))
	require.NoError(t, err)

	require.NoError(t, store.FailJob(ctx, id, "database is locked", time.Now()))

	got, err := store.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, got.Status)
	assert.Equal(t, "database is locked", got.Error)
	assert.NotNil(t, got.CompletedAt)
}

func TestStore_FailStalePending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	stale, err := store.CreateJob(ctx, domain.NewBatchJob(now.Add(-2*time.Hour)))
	require.NoError(t, err)
	fresh, err := store.CreateJob(ctx, domain.NewBatchJob(now))
	require.NoError(t, err)
	_, err = store.CreateJob(ctx, domain.NewSheetJob(domain.ExportContacts, "contacts", now.Add(-2*time.Hour)))
	require.NoError(t, err)

	n, err := store.FailStalePending(ctx, domain.ExportBatch, now.Add(-time.Hour), "abandoned", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, _ := store.GetJob(ctx, stale)
	assert.Equal(t, domain.JobFailed, got.Status)
	got, _ = store.GetJob(ctx, fresh)
	assert.Equal(t, domain.JobPending, got.Status)
}

func TestStore_ListJobs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	jobs := []*domain.ExportJob{
		domain.NewBatchJob(base),
		domain.NewSheetJob(domain.ExportContacts, "contacts", base.Add(time.Minute)),
		domain.NewSheetJob(domain.ExportPayments, "payments", base.Add(2*time.Minute)),
		domain.NewBatchJob(base.Add(3 * time.Minute)),
	}
	for _, job := range jobs {
		_, err := store.CreateJob(ctx, job)
		require.NoError(t, err)
	}
	require.NoError(t, store.CompleteJob(ctx, jobs[0].ID, 7, time.Now()))

	// List all, newest first
	all, err := store.ListJobs(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, jobs[3].ID, all[0].ID)

	// Filter by type
	batches, err := store.ListJobs(ctx, ListOptions{ExportType: domain.ExportBatch})
	require.NoError(t, err)
	assert.Len(t, batches, 2)

	// Filter by status
	completed, err := store.ListJobs(ctx, ListOptions{Status: domain.JobCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, 7, completed[0].RowsExported)

	// Limit
	limited, err := store.ListJobs(ctx, ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	latest, err := store.LatestJob(ctx, domain.ExportBatch)
	require.NoError(t, err)
	assert.Equal(t, jobs[3].ID, latest.ID)
}

func TestStore_LatestJobEmpty(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LatestJob(context.Background(), domain.ExportBatch)
	assert.ErrorIs(t, err, ErrNotFound)
}
