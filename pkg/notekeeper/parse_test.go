package notekeeper

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notekeeper/notekeeper/pkg/store/cqrs"
)

func env(vars map[string]string) LookupEnv {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestParseDefaults(t *testing.T) {
	cmd, config, err := ParseWithEnv([]string{"run"}, env(nil))
	require.NoError(t, err)
	assert.IsType(t, &RunCommand{}, cmd)
	assert.Equal(t, DefaultConfig(), config)
}

func TestParseCommands(t *testing.T) {
	cmd, _, err := ParseWithEnv([]string{"migrate"}, env(nil))
	require.NoError(t, err)
	assert.Equal(t, "migrate", cmd.Name())

	cmd, _, err = ParseWithEnv([]string{"sync", "--sync-direction", "reverse", "--sync-since", "2025-01-01T00:00:00Z"}, env(nil))
	require.NoError(t, err)
	assert.Equal(t, &SyncCommand{Direction: "reverse", Since: "2025-01-01T00:00:00Z"}, cmd)

	_, _, err = ParseWithEnv([]string{"sync", "--sync-direction", "sideways"}, env(nil))
	assert.ErrorContains(t, err, "invalid sync direction")

	_, _, err = ParseWithEnv([]string{"sync", "--sync-until", "yesterday"}, env(nil))
	assert.ErrorContains(t, err, "invalid sync-until")

	_, _, err = ParseWithEnv(nil, env(nil))
	assert.ErrorContains(t, err, "subcommand required")

	_, _, err = ParseWithEnv([]string{"serve"}, env(nil))
	assert.ErrorContains(t, err, "unknown command")
}

func TestParseLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notekeeper.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
store:
  backend: postgres
postgres:
  dsn: postgres://file
auth:
  secret: from-file
  token_ttl: 2h
log:
  level: debug
`), 0o600))

	_, config, err := ParseWithEnv(
		[]string{"--config", path, "--port", "9100", "run"},
		env(map[string]string{
			"POSTGRES_DSN": "postgres://env",
			"JWT_SECRET":   "from-env",
		}),
	)
	require.NoError(t, err)

	assert.Equal(t, "9100", config.Server.Port, "flag beats file")
	assert.Equal(t, BackendPostgres, config.Store.Backend, "file beats default")
	assert.Equal(t, "postgres://env", config.Postgres.DSN, "env beats file")
	assert.Equal(t, "from-env", config.Auth.Secret)
	assert.Equal(t, 2*time.Hour, config.Auth.TokenTTL)
	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format, "untouched keys keep defaults")
	assert.Equal(t, "ws://localhost:8000/rpc", config.SurrealDB.URL)
}

func TestParseConfigFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notekeeper.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: neo4j\n"), 0o600))

	_, config, err := ParseWithEnv([]string{"migrate"}, env(map[string]string{
		"NOTEKEEPER_CONFIG": path,
		"NEO4J_URI":         "bolt://graph:7687",
	}))
	require.NoError(t, err)
	assert.Equal(t, BackendNeo4j, config.Store.Backend)
	assert.Equal(t, "bolt://graph:7687", config.Neo4j.URI)
}

func TestParseCQRS(t *testing.T) {
	_, config, err := ParseWithEnv(
		[]string{"--backend", "cqrs", "--mode", "switching", "--read-only", "run"},
		env(map[string]string{"NOTEKEEPER_SECONDARY": "neo4j"}),
	)
	require.NoError(t, err)
	assert.Equal(t, BackendCQRS, config.Store.Backend)
	assert.Equal(t, cqrs.ModeSwitching, config.Store.Mode)
	assert.Equal(t, BackendPostgres, config.Store.Primary)
	assert.Equal(t, BackendNeo4j, config.Store.Secondary)
	assert.True(t, config.Store.ReadOnly)
}

func TestParseSyncInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notekeeper.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: cqrs\n  sync_interval: 1m\n"), 0o600))

	_, config, err := ParseWithEnv([]string{"--config", path, "run"}, env(nil))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, config.Store.SyncInterval)

	_, config, err = ParseWithEnv([]string{"--config", path, "run"},
		env(map[string]string{"NOTEKEEPER_SYNC_INTERVAL": "30s"}))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, config.Store.SyncInterval)

	_, config, err = ParseWithEnv([]string{"--config", path, "--sync-interval", "0s", "run"},
		env(map[string]string{"NOTEKEEPER_SYNC_INTERVAL": "30s"}))
	require.NoError(t, err)
	assert.Zero(t, config.Store.SyncInterval)
}

func TestParseInvalid(t *testing.T) {
	cases := map[string]struct {
		args []string
		env  map[string]string
	}{
		"backend":       {args: []string{"--backend", "mongo", "run"}},
		"mode":          {args: []string{"--mode", "dual", "run"}},
		"cqrs of cqrs":  {args: []string{"--backend", "cqrs", "--primary", "cqrs", "run"}},
		"same backends": {args: []string{"--backend", "cqrs", "--primary", "memory", "--secondary", "memory", "run"}},
		"read only env": {args: []string{"run"}, env: map[string]string{"NOTEKEEPER_READ_ONLY": "maybe"}},
		"ttl env":       {args: []string{"run"}, env: map[string]string{"NOTEKEEPER_TOKEN_TTL": "forever"}},
		"sync env":      {args: []string{"run"}, env: map[string]string{"NOTEKEEPER_SYNC_INTERVAL": "often"}},
		"negative sync": {args: []string{"--sync-interval", "-1s", "run"}},
		"zero ttl":      {args: []string{"--token-ttl", "0s", "run"}},
		"missing file":  {args: []string{"--config", "/nonexistent/notekeeper.yaml", "run"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseWithEnv(tc.args, env(tc.env))
			assert.Error(t, err)
		})
	}
}
