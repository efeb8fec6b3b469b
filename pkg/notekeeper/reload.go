package notekeeper

import "fmt"

// Reload applies the parts of next that can change while serving: read-only,
// the cqrs migration mode and a swap of the cqrs primary and secondary.
// Any other difference is logged and waits for a restart.
func (a *App) Reload(next *Config) error {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	cur := &a.config.Store
	want := next.Store

	if c, ok := a.cqrsStore(); ok {
		if want.Mode != c.GetMode() {
			if err := c.SetMode(want.Mode); err != nil {
				return fmt.Errorf("failed to change migration mode: %w", err)
			}
			a.logger.Info().
				Str("from", string(cur.Mode)).
				Str("to", string(want.Mode)).
				Msg("Migration mode changed")
			cur.Mode = want.Mode
		}

		switch {
		case want.Primary == cur.Primary && want.Secondary == cur.Secondary:
		case want.Primary == cur.Secondary && want.Secondary == cur.Primary:
			c.SwapStores()
			cur.Primary, cur.Secondary = want.Primary, want.Secondary
			a.logger.Info().
				Str("primary", cur.Primary).
				Str("secondary", cur.Secondary).
				Msg("Swapped primary and secondary stores")
		default:
			a.logger.Warn().
				Str("primary", want.Primary).
				Str("secondary", want.Secondary).
				Msg("Changing cqrs backends needs a restart")
		}
	} else if want.Mode != cur.Mode || want.Primary != cur.Primary || want.Secondary != cur.Secondary {
		a.logger.Warn().Msg("Migration settings are ignored without the cqrs backend")
	}

	if want.ReadOnly != a.IsReadOnly() {
		a.SetReadOnly(want.ReadOnly)
		cur.ReadOnly = want.ReadOnly
	}

	if want.Backend != cur.Backend || want.SyncInterval != cur.SyncInterval || next.Server.Port != a.config.Server.Port {
		a.logger.Warn().Msg("Some changed settings only apply after a restart")
	}
	return nil
}

// reloadWith loads a fresh configuration and applies it, logging failures so
// the server keeps running on the old settings.
func (a *App) reloadWith(load func() (*Config, error)) {
	a.logger.Info().Msg("Reloading configuration")
	next, err := load()
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to reload configuration")
		return
	}
	if err := a.Reload(next); err != nil {
		a.logger.Error().Err(err).Msg("Failed to apply configuration")
	}
}
