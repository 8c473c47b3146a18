package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/client/repositories/repotest"
	"github.com/dmitrijs2005/fieldmate/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, r *SQLiteRepository) {
	t.Helper()
	base := time.Date(2026, 10, 5, 8, 0, 0, 0, time.UTC)
	require.NoError(t, r.ReplaceAll(context.Background(), "u1", []models.Notification{
		{ID: "n1", UserID: "u1", Type: "job_assigned", Title: "New job", CreatedAt: base},
		{ID: "n2", UserID: "u1", Type: "reminder", Title: "Timesheet", Read: true, CreatedAt: base.Add(time.Hour)},
		{ID: "n3", UserID: "u1", Type: "job_updated", Title: "Moved", CreatedAt: base.Add(2 * time.Hour)},
	}))
}

func TestListAndUnreadCount(t *testing.T) {
	r := NewSQLiteRepository(repotest.NewDB(t))
	ctx := context.Background()
	seed(t, r)

	list, err := r.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "n3", list[0].ID)
	assert.True(t, list[1].Read)

	count, err := r.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	other, err := r.List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSetReadSetAllReadDelete(t *testing.T) {
	r := NewSQLiteRepository(repotest.NewDB(t))
	ctx := context.Background()
	seed(t, r)

	require.NoError(t, r.SetRead(ctx, "n1", true))
	n, err := r.GetByID(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, n.Read)

	changed, err := r.SetAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"n3"}, changed)

	changed, err = r.SetAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, changed)

	require.NoError(t, r.Delete(ctx, "n2"))
	assert.ErrorIs(t, r.Delete(ctx, "n2"), common.ErrorNotFound)
	assert.ErrorIs(t, r.SetRead(ctx, "nope", true), common.ErrorNotFound)
}

func TestReplaceAll_FailedInsertKeepsCache(t *testing.T) {
	db := repotest.NewDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	seed(t, r)

	_, err := db.ExecContext(ctx, `CREATE TRIGGER fail_notification_insert BEFORE INSERT ON notifications
		WHEN NEW.id = 'broken' BEGIN SELECT RAISE(ABORT, 'disk I/O error'); END`)
	require.NoError(t, err)

	err = r.ReplaceAll(ctx, "u1", []models.Notification{
		{ID: "n9", UserID: "u1", Title: "Fresh", CreatedAt: time.Now()},
		{ID: "broken", UserID: "u1", Title: "Never stored", CreatedAt: time.Now()},
	})
	require.Error(t, err)

	list, err := r.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 3)
}
