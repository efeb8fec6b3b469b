package notekeeper

import (
	"context"
	"fmt"
)

// Migrate applies the schema of the configured backend.
func (a *App) Migrate(ctx context.Context, cmd *MigrateCommand) error {
	a.logger.Info().Str("backend", a.config.Store.Backend).Msg("Running database migrations...")
	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	a.logger.Info().Msg("Migrations completed successfully")
	return nil
}
