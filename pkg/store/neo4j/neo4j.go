// Package neo4j implements [github.com/notekeeper/notekeeper/pkg/store.Store] on Neo4j.
//
// Notes are (:Note) nodes and users are (:User) nodes. Ownership is the
// userId property on the note, matched in the same pattern as the note id,
// so a note owned by someone else simply does not match.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/notekeeper/notekeeper/pkg/models"
	"github.com/notekeeper/notekeeper/pkg/store"
)

// Config describes how to reach Neo4j.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Store implements store.Store on Neo4j.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
}

var (
	_ store.Store      = (*Store)(nil)
	_ store.Replicator = (*Store)(nil)
)

// New creates a driver and verifies connectivity.
func New(ctx context.Context, cfg Config) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}
	return &Store{driver: driver, database: cfg.Database}, nil
}

// NewFromDriver wraps an existing driver.
func NewFromDriver(driver neo4j.DriverWithContext, database string) *Store {
	return &Store{driver: driver, database: database}
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

var schema = []string{
	"CREATE CONSTRAINT note_id IF NOT EXISTS FOR (n:Note) REQUIRE n.id IS UNIQUE",
	"CREATE CONSTRAINT user_id IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE",
	"CREATE CONSTRAINT user_email IF NOT EXISTS FOR (u:User) REQUIRE u.emailKey IS UNIQUE",
	"CREATE INDEX note_owner_created IF NOT EXISTS FOR (n:Note) ON (n.userId, n.createdAt)",
	"CREATE CONSTRAINT tombstone_key IF NOT EXISTS FOR (t:Tombstone) REQUIRE (t.kind, t.id) IS UNIQUE",
	"CREATE INDEX tombstone_deleted IF NOT EXISTS FOR (t:Tombstone) ON (t.deletedAt)",
}

// Migrate creates constraints and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range schema {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return fmt.Errorf("failed to apply %q: %w", stmt, err)
		}
		if _, err := res.Consume(ctx); err != nil {
			return fmt.Errorf("failed to apply %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.driver.Close(context.Background())
}

const constraintViolation = "Neo.ClientError.Schema.ConstraintValidationFailed"

func isConstraintViolation(err error) bool {
	var nerr *neo4j.Neo4jError
	return errors.As(err, &nerr) && nerr.Code == constraintViolation
}

func noteFromRecord(record *neo4j.Record) (*models.Note, error) {
	node, _, err := neo4j.GetRecordValue[neo4j.Node](record, "n")
	if err != nil {
		return nil, err
	}
	rawID, err := neo4j.GetProperty[string](node, "id")
	if err != nil {
		return nil, err
	}
	id, err := models.ParseNoteID(rawID)
	if err != nil {
		return nil, err
	}
	rawOwner, err := neo4j.GetProperty[string](node, "userId")
	if err != nil {
		return nil, err
	}
	owner, err := models.ParseUserID(rawOwner)
	if err != nil {
		return nil, err
	}
	title, err := neo4j.GetProperty[string](node, "title")
	if err != nil {
		return nil, err
	}
	content, err := neo4j.GetProperty[string](node, "content")
	if err != nil {
		return nil, err
	}
	createdAt, err := neo4j.GetProperty[time.Time](node, "createdAt")
	if err != nil {
		return nil, err
	}
	updatedAt, err := neo4j.GetProperty[time.Time](node, "updatedAt")
	if err != nil {
		return nil, err
	}
	return &models.Note{
		ID:        id,
		Title:     title,
		Content:   content,
		OwnerID:   owner,
		CreatedAt: createdAt.UTC(),
		UpdatedAt: updatedAt.UTC(),
	}, nil
}

// singleNote runs a query expected to yield zero or one note in column n.
func singleNote(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]any) (*models.Note, error) {
	res, err := tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, store.ErrNotFound
	}
	return noteFromRecord(records[0])
}

func (s *Store) CreateNote(ctx context.Context, owner models.UserID, title, content string) (*models.Note, error) {
	if err := store.CheckNote(title, content); err != nil {
		return nil, err
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	now := time.Now().UTC()
	note, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (*models.Note, error) {
		return singleNote(ctx, tx, `
			CREATE (n:Note {
				id: $id,
				title: $title,
				content: $content,
				userId: $owner,
				createdAt: $now,
				updatedAt: $now
			})
			RETURN n`,
			map[string]any{
				"id":      models.NewNoteID().String(),
				"title":   title,
				"content": content,
				"owner":   owner.String(),
				"now":     now,
			})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return note, nil
}

func (s *Store) GetNote(ctx context.Context, owner models.UserID, id string) (*models.Note, error) {
	noteID, err := store.ParseNoteID(id)
	if err != nil {
		return nil, err
	}

	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	note, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) (*models.Note, error) {
		return singleNote(ctx, tx, "MATCH (n:Note {id: $id, userId: $owner}) RETURN n",
			map[string]any{"id": noteID.String(), "owner": owner.String()})
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return note, nil
}

const searchPredicate = `(size($terms) = 0 OR any(t IN $terms WHERE toLower(n.title) CONTAINS t OR toLower(n.content) CONTAINS t))`

func (s *Store) ListNotes(ctx context.Context, owner models.UserID, q store.ListQuery) (*store.NotePage, error) {
	q = q.Normalize()
	if q.Unsearchable() {
		return &store.NotePage{Notes: []*models.Note{}}, nil
	}
	terms := store.SearchTerms(q.Search)
	if terms == nil {
		terms = []string{}
	}
	params := map[string]any{
		"owner": owner.String(),
		"terms": terms,
		"skip":  q.Offset(),
		"limit": q.PageSize,
	}

	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	page, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) (*store.NotePage, error) {
		countRes, err := tx.Run(ctx, `
			MATCH (n:Note {userId: $owner})
			WHERE `+searchPredicate+`
			RETURN count(n) AS total`, params)
		if err != nil {
			return nil, err
		}
		countRecord, err := countRes.Single(ctx)
		if err != nil {
			return nil, err
		}
		total, _, err := neo4j.GetRecordValue[int64](countRecord, "total")
		if err != nil {
			return nil, err
		}

		res, err := tx.Run(ctx, `
			MATCH (n:Note {userId: $owner})
			WHERE `+searchPredicate+`
			RETURN n
			ORDER BY n.createdAt DESC, n.id DESC
			SKIP $skip LIMIT $limit`, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		page := &store.NotePage{Notes: make([]*models.Note, 0, len(records)), Total: total}
		for _, record := range records {
			note, err := noteFromRecord(record)
			if err != nil {
				return nil, err
			}
			page.Notes = append(page.Notes, note)
		}
		return page, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return page, nil
}

func (s *Store) UpdateNote(ctx context.Context, owner models.UserID, id, title, content string) (*models.Note, error) {
	noteID, err := store.ParseNoteID(id)
	if err != nil {
		return nil, err
	}
	if err := store.CheckNote(title, content); err != nil {
		return nil, err
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	note, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (*models.Note, error) {
		return singleNote(ctx, tx, `
			MATCH (n:Note {id: $id, userId: $owner})
			SET n.title = $title, n.content = $content, n.updatedAt = $now
			RETURN n`,
			map[string]any{
				"id":      noteID.String(),
				"owner":   owner.String(),
				"title":   title,
				"content": content,
				"now":     time.Now().UTC(),
			})
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	return note, nil
}

func (s *Store) DeleteNote(ctx context.Context, owner models.UserID, id string) error {
	noteID, err := store.ParseNoteID(id)
	if err != nil {
		return err
	}

	deleted, err := s.deleteNode(ctx, "MATCH (n:Note {id: $id, userId: $owner}) DELETE n", models.NotesTable,
		map[string]any{"id": noteID.String(), "owner": owner.String()})
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	if deleted == 0 {
		return store.ErrNotFound
	}
	return nil
}

// tombstoned completes a MATCH ... DELETE statement. When a node was deleted
// it upserts a (:Tombstone {kind, id}) in the same transaction.
const tombstoned = `
	WITH count(*) AS deleted
	FOREACH (_ IN CASE WHEN deleted > 0 THEN [1] ELSE [] END |
		MERGE (t:Tombstone {kind: $kind, id: $id})
		SET t.deletedAt = $now)
	RETURN deleted`

// deleteNode runs match, which must bind $id, and returns how many nodes it deleted.
func (s *Store) deleteNode(ctx context.Context, match, kind string, params map[string]any) (int64, error) {
	params["kind"] = kind
	params["now"] = time.Now().UTC()

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	return neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (int64, error) {
		res, err := tx.Run(ctx, match+tombstoned, params)
		if err != nil {
			return 0, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return 0, err
		}
		n, _, err := neo4j.GetRecordValue[int64](record, "deleted")
		return n, err
	})
}
