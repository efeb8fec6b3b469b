package notekeeper

import (
	"context"
	"fmt"
	"time"

	"github.com/notekeeper/notekeeper/pkg/store/cqrs"
)

// Sync copies records modified in [since, until] between the stores of the
// cqrs backend and replays the deletions recorded in that window.
func (a *App) Sync(ctx context.Context, direction string, since, until time.Time) error {
	if a.config.Store.ReadOnly {
		return fmt.Errorf("sync cannot run in read-only mode as it needs write access to databases")
	}

	cqrsStore, ok := a.cqrsStore()
	if !ok {
		return fmt.Errorf("sync requires the cqrs backend, configured backend is %s", a.config.Store.Backend)
	}

	var (
		stats cqrs.SyncStats
		err   error
	)
	log := a.logger.With().
		Str("direction", direction).
		Time("since", since).
		Time("until", until).
		Logger()

	switch direction {
	case "forward":
		log.Info().Msgf("Performing forward sync (%s -> %s)", a.config.Store.Primary, a.config.Store.Secondary)
		stats, err = cqrsStore.SyncMissedUpdates(ctx, since, until)
	case "reverse":
		log.Info().Msgf("Performing reverse sync (%s -> %s)", a.config.Store.Secondary, a.config.Store.Primary)
		stats, err = cqrsStore.ReverseSyncMissedUpdates(ctx, since, until)
	default:
		return fmt.Errorf("invalid sync direction: %s (must be 'forward' or 'reverse')", direction)
	}
	if err != nil {
		return fmt.Errorf("%s sync failed: %w", direction, err)
	}

	log.Info().
		Int("users", stats.Users).
		Int("notes", stats.Notes).
		Int("deleted", stats.Deleted).
		Int("failed", stats.Failed).
		Msg("Sync completed")
	if stats.Failed > 0 {
		return fmt.Errorf("%d records failed to sync", stats.Failed)
	}
	return nil
}
