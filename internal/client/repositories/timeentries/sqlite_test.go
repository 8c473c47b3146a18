package timeentries

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

var t0 = time.Date(2026, 10, 5, 8, 0, 0, 0, time.UTC)

func entry(id string, start time.Time) models.TimeEntry {
	return models.TimeEntry{ID: id, UserID: "u1", JobID: "j1", StartTime: start, UpdatedAt: start}
}

func TestInsert_RejectsSecondActiveEntry(t *testing.T) {
	r := NewSQLiteRepository(repotest.NewDB(t))
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, entry("a", t0)))
	err := r.Insert(ctx, entry("b", t0.Add(time.Minute)))
	assert.ErrorIs(t, err, common.ErrActiveEntryExists)

	other := entry("c", t0)
	other.UserID = "u2"
	require.NoError(t, r.Insert(ctx, other), "other users are independent")
}

func TestActive_FinishAndList(t *testing.T) {
	r := NewSQLiteRepository(repotest.NewDB(t))
	ctx := context.Background()

	none, err := r.Active(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, none)

	e := entry("a", t0)
	require.NoError(t, r.Insert(ctx, e))

	active, err := r.Active(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "a", active.ID)
	assert.True(t, active.Active())

	e.Finish(t0.Add(90 * time.Minute))
	require.NoError(t, r.Upsert(ctx, e))
	require.NoError(t, r.Insert(ctx, entry("b", t0.Add(2*time.Hour))))

	list, err := r.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, int64(5400), list[1].DurationSeconds)
	require.NotNil(t, list[1].FinishTime)
}

func TestUnsyncedAndMarkSynced(t *testing.T) {
	r := NewSQLiteRepository(repotest.NewDB(t))
	ctx := context.Background()

	e := entry("a", t0)
	e.Finish(t0.Add(time.Hour))
	require.NoError(t, r.Insert(ctx, e))

	pending, err := r.ListUnsynced(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, r.MarkSynced(ctx, "a"))
	pending, err = r.ListUnsynced(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.ErrorIs(t, r.MarkSynced(ctx, "missing"), common.ErrorNotFound)
	_, err = r.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMergeRemote_KeepsUnsyncedLocalRows(t *testing.T) {
	r := NewSQLiteRepository(repotest.NewDB(t))
	ctx := context.Background()

	oldSynced := entry("old", t0.Add(-48*time.Hour))
	oldSynced.Finish(t0.Add(-47 * time.Hour))
	oldSynced.Synced = true
	require.NoError(t, r.Insert(ctx, oldSynced))

	localActive := entry("local", t0)
	require.NoError(t, r.Insert(ctx, localActive))

	remoteDone := entry("remote", t0.Add(-24*time.Hour))
	remoteDone.Finish(t0.Add(-23 * time.Hour))
	remoteActive := entry("remote-active", t0.Add(-time.Hour))
	remoteCopyOfLocal := entry("local", t0)
	remoteCopyOfLocal.Notes = "server"

	require.NoError(t, r.MergeRemote(ctx, "u1", []models.TimeEntry{remoteDone, remoteActive, remoteCopyOfLocal}))

	list, err := r.ListByUser(ctx, "u1")
	require.NoError(t, err)
	ids := map[string]models.TimeEntry{}
	for _, e := range list {
		ids[e.ID] = e
	}
	assert.NotContains(t, ids, "old", "synced rows absent remotely are dropped")
	assert.NotContains(t, ids, "remote-active", "local active entry wins")
	require.Contains(t, ids, "remote")
	assert.True(t, ids["remote"].Synced)
	require.Contains(t, ids, "local")
	assert.False(t, ids["local"].Synced)
	assert.Equal(t, "", ids["local"].Notes)
}

func TestMergeRemote_FailedInsertKeepsSyncedRows(t *testing.T) {
	db := repotest.NewDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	done := entry("done", t0.Add(-48*time.Hour))
	done.Finish(t0.Add(-47 * time.Hour))
	done.Synced = true
	require.NoError(t, r.Insert(ctx, done))

	_, err := db.ExecContext(ctx, `CREATE TRIGGER fail_entry_insert BEFORE INSERT ON time_entries
		WHEN NEW.id = 'broken' BEGIN SELECT RAISE(ABORT, 'disk I/O error'); END`)
	require.NoError(t, err)

	fresh := entry("fresh", t0.Add(-24*time.Hour))
	fresh.Finish(t0.Add(-23 * time.Hour))
	broken := entry("broken", t0.Add(-12*time.Hour))
	broken.Finish(t0.Add(-11 * time.Hour))
	require.Error(t, r.MergeRemote(ctx, "u1", []models.TimeEntry{fresh, broken}))

	list, err := r.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "done", list[0].ID)
}
