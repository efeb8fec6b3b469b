//go:build integration

package surrealdb_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/notekeeper/notekeeper/pkg/store"
	"github.com/notekeeper/notekeeper/pkg/store/storetest"
	"github.com/notekeeper/notekeeper/pkg/store/surrealdb"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// TestSurrealDBStore expects a running server at SURREALDB_URL
// (default ws://localhost:8000/rpc). Each test gets its own database.
func TestSurrealDBStore(t *testing.T) {
	suite.Run(t, &storetest.Suite{
		NewStore: func() store.Store {
			ctx := context.Background()
			s, err := surrealdb.New(ctx, surrealdb.Config{
				URL:        getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
				Namespace:  "notekeeper_test",
				Database:   "t_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
				Username:   getEnv("SURREALDB_USER", "root"),
				Password:   getEnv("SURREALDB_PASS", "root"),
				Connection: os.Getenv("SURREALDB_CONNECTION_IMPL"),
			})
			if err != nil {
				t.Fatalf("connect: %v", err)
			}
			if err := s.Migrate(ctx); err != nil {
				t.Fatalf("migrate: %v", err)
			}
			return s
		},
	})
}
