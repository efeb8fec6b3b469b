package cqrs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/notekeeper/notekeeper/pkg/store"
)

// SyncMissedUpdates copies records modified in [since, until] from primary to secondary.
func (c *CQRSStore) SyncMissedUpdates(ctx context.Context, since, until time.Time) (SyncStats, error) {
	c.mu.RLock()
	from, to := c.primary, c.secondary
	c.mu.RUnlock()
	return syncMissedUpdates(ctx, c.logger, from, to, since, until)
}

// ReverseSyncMissedUpdates copies records modified in [since, until] from secondary to primary.
func (c *CQRSStore) ReverseSyncMissedUpdates(ctx context.Context, since, until time.Time) (SyncStats, error) {
	c.mu.RLock()
	from, to := c.secondary, c.primary
	c.mu.RUnlock()
	return syncMissedUpdates(ctx, c.logger, from, to, since, until)
}

// SyncStats counts what one sync pass copied or deleted.
type SyncStats struct {
	Users   int
	Notes   int
	Deleted int
	Failed  int
}

func replicator(s store.Store) (store.Replicator, error) {
	if ro, ok := s.(*store.ReadOnlyStore); ok {
		s = ro.Unwrap()
	}
	r, ok := s.(store.Replicator)
	if !ok {
		return nil, fmt.Errorf("store %T does not support replication", s)
	}
	return r, nil
}

// syncMissedUpdates copies users before notes so owners exist first, then
// replays the deletions recorded in the window. A record that fails to save
// or purge is logged and counted; listing or loading failures abort the pass.
func syncMissedUpdates(ctx context.Context, logger zerolog.Logger, from, to store.Store, since, until time.Time) (SyncStats, error) {
	var stats SyncStats

	src, err := replicator(from)
	if err != nil {
		return stats, err
	}
	dst, err := replicator(to)
	if err != nil {
		return stats, err
	}

	userIDs, err := src.ListModifiedUserIDs(ctx, since, until)
	if err != nil {
		return stats, fmt.Errorf("failed to list modified users: %w", err)
	}
	for _, id := range userIDs {
		user, err := from.GetUser(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("failed to get user %s: %w", id, err)
		}
		if err := dst.SaveUser(ctx, user); err != nil {
			logger.Warn().Err(err).Str("user_id", id.String()).Msg("failed to sync user")
			stats.Failed++
			continue
		}
		stats.Users++
	}

	noteIDs, err := src.ListModifiedNoteIDs(ctx, since, until)
	if err != nil {
		return stats, fmt.Errorf("failed to list modified notes: %w", err)
	}
	for _, id := range noteIDs {
		note, err := src.LoadNote(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("failed to get note %s: %w", id, err)
		}
		if err := dst.SaveNote(ctx, note); err != nil {
			logger.Warn().Err(err).Str("note_id", id.String()).Msg("failed to sync note")
			stats.Failed++
			continue
		}
		stats.Notes++
	}

	deletedNotes, err := src.ListDeletedNoteIDs(ctx, since, until)
	if err != nil {
		return stats, fmt.Errorf("failed to list deleted notes: %w", err)
	}
	for _, id := range deletedNotes {
		if err := dst.PurgeNote(ctx, id); err != nil {
			logger.Warn().Err(err).Str("note_id", id.String()).Msg("failed to sync note deletion")
			stats.Failed++
			continue
		}
		stats.Deleted++
	}

	deletedUsers, err := src.ListDeletedUserIDs(ctx, since, until)
	if err != nil {
		return stats, fmt.Errorf("failed to list deleted users: %w", err)
	}
	for _, id := range deletedUsers {
		if err := dst.PurgeUser(ctx, id); err != nil {
			logger.Warn().Err(err).Str("user_id", id.String()).Msg("failed to sync user deletion")
			stats.Failed++
			continue
		}
		stats.Deleted++
	}

	return stats, nil
}

// syncFromWriter copies from the store taking writes in the current mode to
// the other one: secondary to primary in reversed mode, primary to secondary
// otherwise.
func (c *CQRSStore) syncFromWriter(ctx context.Context, since, until time.Time) (SyncStats, error) {
	c.mu.RLock()
	from, to := c.primary, c.secondary
	if c.mode == ModeReversed {
		from, to = to, from
	}
	c.mu.RUnlock()
	return syncMissedUpdates(ctx, c.logger, from, to, since, until)
}

// StartContinuousSync runs a sync pass every interval until ctx is done and
// closes the returned channel when it stops. Each window starts one interval
// before the previous pass ended, so a write stamped just before a pass but
// committed after it is still copied.
func (c *CQRSStore) StartContinuousSync(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	lastSync := time.Now()
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := time.Now()
				stats, err := c.syncFromWriter(ctx, lastSync.Add(-interval), now)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					c.logger.Error().Err(err).Msg("continuous sync failed")
					continue
				}
				c.logger.Debug().
					Str("mode", string(c.GetMode())).
					Int("users", stats.Users).
					Int("notes", stats.Notes).
					Int("deleted", stats.Deleted).
					Int("failed", stats.Failed).
					Msg("continuous sync pass")
				lastSync = now
			}
		}
	}()
	return done
}
