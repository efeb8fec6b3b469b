// Package notekeeper wires configuration, the store backend, authentication
// and the HTTP API into the notekeeper application.
package notekeeper

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/notekeeper/notekeeper/pkg/auth"
	"github.com/notekeeper/notekeeper/pkg/logger"
	"github.com/notekeeper/notekeeper/pkg/notes"
	"github.com/notekeeper/notekeeper/pkg/store"
	"github.com/notekeeper/notekeeper/pkg/store/cqrs"
	"github.com/notekeeper/notekeeper/pkg/store/memory"
	neo4jstore "github.com/notekeeper/notekeeper/pkg/store/neo4j"
	"github.com/notekeeper/notekeeper/pkg/store/postgres"
	"github.com/notekeeper/notekeeper/pkg/store/surrealdb"
)

type App struct {
	config   *Config
	reloadMu sync.Mutex
	store    store.Store
	readOnly atomic.Bool
	logger   zerolog.Logger
	logData  *logger.LogData

	notes         *notes.Service
	authn         *auth.Authenticator
	issuer        *auth.Issuer
	checkPassword func(hash, password string) error
}

// New builds the logger and opens the configured store.
func New(ctx context.Context, config *Config) (*App, error) {
	logData, err := logger.New().
		FromPath(config.Log.Path).
		WithLevel(config.Log.Level).
		WithFormat(config.Log.Format).
		Make()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	log := logData.Logger

	appStore, err := openStore(ctx, config, config.Store.Backend, log)
	if err != nil {
		logData.Close()
		return nil, err
	}

	app := NewWithStore(config, appStore, log)
	app.logData = logData
	return app, nil
}

// NewWithStore builds an App around an already opened store.
func NewWithStore(config *Config, appStore store.Store, log zerolog.Logger) *App {
	app := &App{
		config: config,
		logger: log,
	}
	app.readOnly.Store(config.Store.ReadOnly)
	app.store = store.NewReadOnlyStore(appStore, app.IsReadOnly)

	secret := []byte(config.Auth.Secret)
	app.notes = notes.NewService(app.store, log.With().Str("component", "notes").Logger())
	app.authn = auth.NewAuthenticator(secret, app.store, nil)
	app.issuer = auth.NewIssuer(secret, config.Auth.TokenTTL, nil)
	app.checkPassword = auth.CheckPassword
	return app
}

func openStore(ctx context.Context, config *Config, backend string, log zerolog.Logger) (store.Store, error) {
	switch backend {
	case BackendMemory:
		log.Info().Msg("Using in-memory store")
		return memory.New(), nil

	case BackendPostgres:
		s, err := postgres.New(config.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		log.Info().Msg("Connected to PostgreSQL")
		return s, nil

	case BackendSurrealDB:
		s, err := surrealdb.New(ctx, surrealdb.Config{
			URL:        config.SurrealDB.URL,
			Namespace:  config.SurrealDB.Namespace,
			Database:   config.SurrealDB.Database,
			Username:   config.SurrealDB.Username,
			Password:   config.SurrealDB.Password,
			Connection: config.SurrealDB.Connection,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
		}
		log.Info().Str("url", config.SurrealDB.URL).Msg("Connected to SurrealDB with surrealcbor")
		return s, nil

	case BackendNeo4j:
		s, err := neo4jstore.New(ctx, neo4jstore.Config{
			URI:      config.Neo4j.URI,
			Username: config.Neo4j.Username,
			Password: config.Neo4j.Password,
			Database: config.Neo4j.Database,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Neo4j: %w", err)
		}
		log.Info().Str("uri", config.Neo4j.URI).Msg("Connected to Neo4j")
		return s, nil

	case BackendCQRS:
		primary, err := openStore(ctx, config, config.Store.Primary, log)
		if err != nil {
			return nil, err
		}
		secondary, err := openStore(ctx, config, config.Store.Secondary, log)
		if err != nil {
			primary.Close()
			return nil, err
		}
		log.Info().
			Str("primary", config.Store.Primary).
			Str("secondary", config.Store.Secondary).
			Str("mode", string(config.Store.Mode)).
			Msg("Using CQRS store")
		return cqrs.NewCQRSStore(primary, secondary, config.Store.Mode,
			cqrs.WithLogger(log.With().Str("component", "cqrs").Logger())), nil

	default:
		return nil, fmt.Errorf("unknown store backend: %s", backend)
	}
}

func (a *App) Close() error {
	var err error
	if a.store != nil {
		err = a.store.Close()
	}
	if a.logData != nil {
		if cerr := a.logData.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Store returns the application store, wrapped with read-only protection.
func (a *App) Store() store.Store {
	return a.store
}

// SetReadOnly toggles rejection of writes at runtime.
func (a *App) SetReadOnly(readOnly bool) {
	a.readOnly.Store(readOnly)
	a.logger.Info().Bool("read_only", readOnly).Msg("Application read-only mode changed")
}

func (a *App) IsReadOnly() bool {
	return a.readOnly.Load()
}

// cqrsStore returns the cqrs store under the read-only wrapper, if any.
func (a *App) cqrsStore() (*cqrs.CQRSStore, bool) {
	s := a.store
	if ro, ok := s.(*store.ReadOnlyStore); ok {
		s = ro.Unwrap()
	}
	c, ok := s.(*cqrs.CQRSStore)
	return c, ok
}
