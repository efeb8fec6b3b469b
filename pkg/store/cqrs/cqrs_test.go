package cqrs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/notekeeper/notekeeper/pkg/models"
	"github.com/notekeeper/notekeeper/pkg/store"
	"github.com/notekeeper/notekeeper/pkg/store/cqrs"
	"github.com/notekeeper/notekeeper/pkg/store/memory"
	"github.com/notekeeper/notekeeper/pkg/store/storetest"
)

func TestCQRSStoreConformance(t *testing.T) {
	for _, mode := range []cqrs.MigrationMode{cqrs.ModeSingle, cqrs.ModeReversed} {
		t.Run(string(mode), func(t *testing.T) {
			suite.Run(t, &storetest.Suite{
				NewStore: func() store.Store {
					return cqrs.NewCQRSStore(memory.New(), memory.New(), mode)
				},
			})
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := cqrs.ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, cqrs.ModeSingle, m)

	m, err = cqrs.ParseMode("switching")
	require.NoError(t, err)
	assert.Equal(t, cqrs.ModeSwitching, m)

	_, err = cqrs.ParseMode("dual_write")
	assert.Error(t, err)
}

func TestRouting(t *testing.T) {
	ctx := context.Background()
	primary, secondary := memory.New(), memory.New()
	c := cqrs.NewCQRSStore(primary, secondary, cqrs.ModeSingle)
	owner := models.NewUserID()

	note, err := c.CreateNote(ctx, owner, "In primary", "body")
	require.NoError(t, err)
	_, err = primary.GetNote(ctx, owner, note.ID.String())
	require.NoError(t, err)
	_, err = secondary.GetNote(ctx, owner, note.ID.String())
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, c.SetMode(cqrs.ModeSwitching))
	_, err = c.GetNote(ctx, owner, note.ID.String())
	assert.ErrorIs(t, err, store.ErrNotFound, "switching mode reads from secondary")

	written, err := c.CreateNote(ctx, owner, "Still primary", "body")
	require.NoError(t, err)
	_, err = primary.GetNote(ctx, owner, written.ID.String())
	assert.NoError(t, err, "switching mode writes to primary")

	require.NoError(t, c.SetMode(cqrs.ModeReversed))
	reversed, err := c.CreateNote(ctx, owner, "In secondary", "body")
	require.NoError(t, err)
	_, err = secondary.GetNote(ctx, owner, reversed.ID.String())
	assert.NoError(t, err)
}

func TestReadOnlyMode(t *testing.T) {
	ctx := context.Background()
	c := cqrs.NewCQRSStore(memory.New(), memory.New(), cqrs.ModeSingle)
	owner := models.NewUserID()

	note, err := c.CreateNote(ctx, owner, "Kept", "body")
	require.NoError(t, err)

	require.NoError(t, c.SetMode(cqrs.ModeReadOnly))
	assert.Equal(t, cqrs.ModeReadOnly, c.GetMode())

	_, err = c.CreateNote(ctx, owner, "Rejected", "body")
	assert.ErrorIs(t, err, store.ErrReadOnly)
	_, err = c.UpdateNote(ctx, owner, note.ID.String(), "Rejected", "body")
	assert.ErrorIs(t, err, store.ErrReadOnly)
	assert.ErrorIs(t, c.DeleteNote(ctx, owner, note.ID.String()), store.ErrReadOnly)
	assert.ErrorIs(t, c.CreateUser(ctx, &models.User{Email: "x@example.com"}), store.ErrReadOnly)
	assert.ErrorIs(t, c.DeleteUser(ctx, owner), store.ErrReadOnly)

	got, err := c.GetNote(ctx, owner, note.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Kept", got.Title)

	assert.Error(t, c.SetMode(cqrs.ModeReversed), "read_only may only move to switching or single")
	require.NoError(t, c.SetMode(cqrs.ModeSwitching))
}

func TestSyncAndSwap(t *testing.T) {
	ctx := context.Background()
	primary, secondary := memory.New(), memory.New()
	c := cqrs.NewCQRSStore(primary, secondary, cqrs.ModeSingle)

	since := time.Now().Add(-time.Minute)
	user := &models.User{Email: "dana@example.com", Name: "Dana", PasswordHash: "hash"}
	require.NoError(t, c.CreateUser(ctx, user))
	note, err := c.CreateNote(ctx, user.ID, "Migrated", "body")
	require.NoError(t, err)

	stats, err := c.SyncMissedUpdates(ctx, since, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, cqrs.SyncStats{Users: 1, Notes: 1}, stats)

	copied, err := secondary.GetNote(ctx, user.ID, note.ID.String())
	require.NoError(t, err)
	assert.Equal(t, note.Title, copied.Title)
	assert.True(t, note.CreatedAt.Equal(copied.CreatedAt))

	copiedUser, err := secondary.GetUserByEmail(ctx, "dana@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, copiedUser.ID)

	// Running the same window again is idempotent.
	_, err = c.SyncMissedUpdates(ctx, since, time.Now().Add(time.Minute))
	require.NoError(t, err)
	page, err := secondary.ListNotes(ctx, user.ID, store.ListQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	c.SwapStores()
	got, err := c.GetNote(ctx, user.ID, note.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Migrated", got.Title)

	// After the swap, new writes land in the old secondary.
	fresh, err := c.CreateNote(ctx, user.ID, "After swap", "body")
	require.NoError(t, err)
	_, err = secondary.GetNote(ctx, user.ID, fresh.ID.String())
	assert.NoError(t, err)
}

func TestReverseSync(t *testing.T) {
	ctx := context.Background()
	primary, secondary := memory.New(), memory.New()
	c := cqrs.NewCQRSStore(primary, secondary, cqrs.ModeReversed)
	owner := models.NewUserID()

	since := time.Now().Add(-time.Minute)
	note, err := c.CreateNote(ctx, owner, "Written in reversed mode", "body")
	require.NoError(t, err)

	stats, err := c.ReverseSyncMissedUpdates(ctx, since, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Notes)

	_, err = primary.GetNote(ctx, owner, note.ID.String())
	assert.NoError(t, err)
}

func TestSyncPropagatesDeletes(t *testing.T) {
	ctx := context.Background()
	primary, secondary := memory.New(), memory.New()
	c := cqrs.NewCQRSStore(primary, secondary, cqrs.ModeSingle)

	since := time.Now().Add(-time.Minute)
	user := &models.User{Email: "erin@example.com", Name: "Erin", PasswordHash: "hash"}
	require.NoError(t, c.CreateUser(ctx, user))
	gone, err := c.CreateNote(ctx, user.ID, "Deleted later", "body")
	require.NoError(t, err)
	kept, err := c.CreateNote(ctx, user.ID, "Kept", "body")
	require.NoError(t, err)

	_, err = c.SyncMissedUpdates(ctx, since, time.Now().Add(time.Minute))
	require.NoError(t, err)
	_, err = secondary.GetNote(ctx, user.ID, gone.ID.String())
	require.NoError(t, err)

	require.NoError(t, c.DeleteNote(ctx, user.ID, gone.ID.String()))
	stats, err := c.SyncMissedUpdates(ctx, since, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, cqrs.SyncStats{Users: 1, Notes: 1, Deleted: 1}, stats)

	require.NoError(t, c.SetMode(cqrs.ModeSwitching))
	_, err = c.GetNote(ctx, user.ID, gone.ID.String())
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = c.GetNote(ctx, user.ID, kept.ID.String())
	assert.NoError(t, err)

	require.NoError(t, c.DeleteUser(ctx, user.ID))
	stats, err = c.SyncMissedUpdates(ctx, since, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, cqrs.SyncStats{Notes: 1, Deleted: 2}, stats)

	_, err = c.GetUser(ctx, user.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = c.GetUserByEmail(ctx, "erin@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestContinuousSync(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	primary, secondary := memory.New(), memory.New()
	c := cqrs.NewCQRSStore(primary, secondary, cqrs.ModeSingle)
	owner := models.NewUserID()

	done := c.StartContinuousSync(ctx, 10*time.Millisecond)

	note, err := c.CreateNote(ctx, owner, "Live", "body")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, err := secondary.GetNote(ctx, owner, note.ID.String())
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, c.DeleteNote(ctx, owner, note.ID.String()))
	require.Eventually(t, func() bool {
		_, err := secondary.GetNote(ctx, owner, note.ID.String())
		return errors.Is(err, store.ErrNotFound)
	}, 2*time.Second, 5*time.Millisecond)

	// Reversed mode writes to the secondary, so sync runs the other way.
	require.NoError(t, c.SetMode(cqrs.ModeReversed))
	reversed, err := c.CreateNote(ctx, owner, "Reversed", "body")
	require.NoError(t, err)
	_, err = secondary.GetNote(ctx, owner, reversed.ID.String())
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, err := primary.GetNote(ctx, owner, reversed.ID.String())
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("continuous sync did not stop after cancel")
	}
}

type plainStore struct{ store.Store }

func TestSyncRequiresReplicator(t *testing.T) {
	c := cqrs.NewCQRSStore(plainStore{memory.New()}, memory.New(), cqrs.ModeSingle)
	_, err := c.SyncMissedUpdates(context.Background(), time.Time{}, time.Now())
	assert.ErrorContains(t, err, "does not support replication")
}

func TestSyncSeesThroughReadOnlyWrapper(t *testing.T) {
	ctx := context.Background()
	primary := memory.New()
	wrapped := store.NewReadOnlyStore(primary, func() bool { return true })
	secondary := memory.New()
	owner := models.NewUserID()

	note, err := primary.CreateNote(ctx, owner, "Frozen", "body")
	require.NoError(t, err)

	c := cqrs.NewCQRSStore(wrapped, secondary, cqrs.ModeSingle)
	_, err = c.SyncMissedUpdates(ctx, time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	require.NoError(t, err)

	_, err = secondary.GetNote(ctx, owner, note.ID.String())
	assert.NoError(t, err)
}
