package notekeeper

// Command is a parsed sub-command. Name matches the CLI word.
type Command interface {
	Name() string
}

// RunCommand starts the HTTP server.
type RunCommand struct {
	// Reload re-reads the configuration on SIGHUP. Nil disables reloading.
	Reload func() (*Config, error)
}

func (c *RunCommand) Name() string {
	return "run"
}

// MigrateCommand applies the store schema.
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string {
	return "migrate"
}

// SyncCommand copies records modified in a window between the two stores of a
// cqrs backend.
type SyncCommand struct {
	// Direction is "forward" (primary to secondary) or "reverse".
	Direction string

	// Since and Until bound the window in RFC3339. Empty Since means 24 hours
	// ago; empty Until means now.
	Since string
	Until string
}

func (c *SyncCommand) Name() string {
	return "sync"
}
