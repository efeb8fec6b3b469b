package notekeeper

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/notekeeper/notekeeper/pkg/store/cqrs"
)

const usage = `Usage: notekeeper [flags] <command>

Commands:
  run       Start the notekeeper server
  migrate   Create tables, indexes and constraints
  sync      Copy recent changes between the stores of a cqrs backend

Examples:
  notekeeper run                                   # in-memory store
  notekeeper --backend postgres run
  notekeeper --backend cqrs --mode switching run
  notekeeper --backend cqrs --sync-interval 30s run   # kill -HUP reloads mode and read-only
  notekeeper --backend cqrs sync --sync-direction reverse --sync-since 2025-01-01T00:00:00Z
  notekeeper --config notekeeper.yaml migrate

Flags:
`

// ErrHelp is returned when help was requested.
var ErrHelp = pflag.ErrHelp

// Parse parses command line arguments, layering defaults, the optional
// config file, the environment and flags in that order.
func Parse(args []string) (Command, *Config, error) {
	return ParseWithEnv(args, os.LookupEnv)
}

// ParseWithEnv is Parse with an explicit environment.
func ParseWithEnv(args []string, lookup LookupEnv) (Command, *Config, error) {
	flagSet := pflag.NewFlagSet("notekeeper", pflag.ContinueOnError)
	flagSet.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flagSet.PrintDefaults()
	}

	var (
		configPath = flagSet.StringP("config", "c", "", "Path to a YAML config file (env NOTEKEEPER_CONFIG)")
		port       = flagSet.StringP("port", "p", "", "Server port")
		backend    = flagSet.String("backend", "", "Store backend: memory, postgres, surrealdb, neo4j, cqrs")
		primary    = flagSet.String("primary", "", "Primary backend of the cqrs store")
		secondary  = flagSet.String("secondary", "", "Secondary backend of the cqrs store")
		mode       = flagSet.String("mode", "", "Migration mode: single, read_only, switching, reversed")
		readOnly   = flagSet.Bool("read-only", false, "Reject all writes")
		syncEvery  = flagSet.Duration("sync-interval", 0, "Background cqrs sync period while serving, 0 disables")
		dsn        = flagSet.String("postgres-dsn", "", "PostgreSQL DSN")
		surrealURL = flagSet.String("surrealdb-url", "", "SurrealDB endpoint")
		neo4jURI   = flagSet.String("neo4j-uri", "", "Neo4j bolt URI")
		tokenTTL   = flagSet.Duration("token-ttl", 0, "Lifetime of issued tokens")
		logLevel   = flagSet.String("log-level", "", "Log level: debug, info, warn, error")
		logFormat  = flagSet.String("log-format", "", "Log format: json, console")
		logPath    = flagSet.String("log-path", "", "Append logs to this file instead of stderr")
		syncDir    = flagSet.String("sync-direction", "forward", "Sync direction: forward (primary to secondary) or reverse")
		syncSince  = flagSet.String("sync-since", "", "Sync changes since this time (RFC3339)")
		syncUntil  = flagSet.String("sync-until", "", "Sync changes until this time (RFC3339)")
	)

	if err := flagSet.Parse(args); err != nil {
		return nil, nil, err
	}

	remainingArgs := flagSet.Args()
	if len(remainingArgs) == 0 {
		return nil, nil, errors.New("subcommand required\n\n" + usage + flagSet.FlagUsages())
	}

	var cmd Command
	switch remainingArgs[0] {
	case "run":
		cmd = &RunCommand{}
	case "migrate":
		cmd = &MigrateCommand{}
	case "sync":
		if *syncDir != "forward" && *syncDir != "reverse" {
			return nil, nil, fmt.Errorf("invalid sync direction: %s (must be 'forward' or 'reverse')", *syncDir)
		}
		if _, err := ParseTime(*syncSince, time.Time{}); err != nil {
			return nil, nil, fmt.Errorf("invalid sync-since: %w", err)
		}
		if _, err := ParseTime(*syncUntil, time.Time{}); err != nil {
			return nil, nil, fmt.Errorf("invalid sync-until: %w", err)
		}
		cmd = &SyncCommand{
			Direction: *syncDir,
			Since:     *syncSince,
			Until:     *syncUntil,
		}
	default:
		return nil, nil, fmt.Errorf("unknown command: %s\n\nValid commands: run, migrate, sync", remainingArgs[0])
	}

	config := DefaultConfig()

	path := *configPath
	if path == "" {
		path, _ = lookup("NOTEKEEPER_CONFIG")
	}
	if path != "" {
		if err := config.LoadFile(path); err != nil {
			return nil, nil, err
		}
	}

	if err := config.ApplyEnv(lookup); err != nil {
		return nil, nil, err
	}

	set := func(name string, dst *string, value string) {
		if flagSet.Changed(name) {
			*dst = value
		}
	}
	set("port", &config.Server.Port, *port)
	set("backend", &config.Store.Backend, *backend)
	set("primary", &config.Store.Primary, *primary)
	set("secondary", &config.Store.Secondary, *secondary)
	set("postgres-dsn", &config.Postgres.DSN, *dsn)
	set("surrealdb-url", &config.SurrealDB.URL, *surrealURL)
	set("neo4j-uri", &config.Neo4j.URI, *neo4jURI)
	set("log-level", &config.Log.Level, *logLevel)
	set("log-format", &config.Log.Format, *logFormat)
	set("log-path", &config.Log.Path, *logPath)
	if flagSet.Changed("mode") {
		config.Store.Mode = cqrs.MigrationMode(*mode)
	}
	if flagSet.Changed("read-only") {
		config.Store.ReadOnly = *readOnly
	}
	if flagSet.Changed("sync-interval") {
		config.Store.SyncInterval = *syncEvery
	}
	if flagSet.Changed("token-ttl") {
		config.Auth.TokenTTL = *tokenTTL
	}

	if err := config.Validate(); err != nil {
		return nil, nil, err
	}

	return cmd, config, nil
}

// ParseTime parses an RFC3339 time, returning defaultTime for an empty string.
func ParseTime(timeStr string, defaultTime time.Time) (time.Time, error) {
	if timeStr == "" {
		return defaultTime, nil
	}
	return time.Parse(time.RFC3339, timeStr)
}
