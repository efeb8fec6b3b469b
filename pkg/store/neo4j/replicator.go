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

const modifiedWindow = `WHERE (x.createdAt >= $since AND x.createdAt <= $until)
	OR (x.updatedAt >= $since AND x.updatedAt <= $until)
	RETURN x.id AS id`

const deletedWindow = `MATCH (x:Tombstone {kind: $kind})
	WHERE x.deletedAt >= $since AND x.deletedAt <= $until
	RETURN x.id AS id`

func (s *Store) modifiedIDs(ctx context.Context, label string, since, until time.Time) ([]string, error) {
	return s.collectIDs(ctx, "MATCH (x:"+label+") "+modifiedWindow, map[string]any{
		"since": since.UTC(),
		"until": until.UTC(),
	})
}

func (s *Store) deletedIDs(ctx context.Context, kind string, since, until time.Time) ([]string, error) {
	return s.collectIDs(ctx, deletedWindow, map[string]any{
		"kind":  kind,
		"since": since.UTC(),
		"until": until.UTC(),
	})
}

// collectIDs runs a read query whose rows carry a string id column.
func (s *Store) collectIDs(ctx context.Context, cypher string, params map[string]any) ([]string, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	return neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) ([]string, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(records))
		for _, record := range records {
			id, _, err := neo4j.GetRecordValue[string](record, "id")
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	})
}

func (s *Store) ListModifiedNoteIDs(ctx context.Context, since, until time.Time) ([]models.NoteID, error) {
	raw, err := s.modifiedIDs(ctx, "Note", since, until)
	if err != nil {
		return nil, fmt.Errorf("failed to list modified note IDs: %w", err)
	}
	ids := make([]models.NoteID, 0, len(raw))
	for _, r := range raw {
		id, err := models.ParseNoteID(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) ListModifiedUserIDs(ctx context.Context, since, until time.Time) ([]models.UserID, error) {
	raw, err := s.modifiedIDs(ctx, "User", since, until)
	if err != nil {
		return nil, fmt.Errorf("failed to list modified user IDs: %w", err)
	}
	ids := make([]models.UserID, 0, len(raw))
	for _, r := range raw {
		id, err := models.ParseUserID(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) LoadNote(ctx context.Context, id models.NoteID) (*models.Note, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	note, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) (*models.Note, error) {
		return singleNote(ctx, tx, "MATCH (n:Note {id: $id}) RETURN n", map[string]any{"id": id.String()})
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load note: %w", err)
	}
	return note, nil
}

func (s *Store) SaveNote(ctx context.Context, note *models.Note) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (*models.Note, error) {
		return singleNote(ctx, tx, `
			MERGE (n:Note {id: $id})
			SET n.title = $title,
				n.content = $content,
				n.userId = $owner,
				n.createdAt = $createdAt,
				n.updatedAt = $updatedAt
			RETURN n`,
			map[string]any{
				"id":        note.ID.String(),
				"title":     note.Title,
				"content":   note.Content,
				"owner":     note.OwnerID.String(),
				"createdAt": note.CreatedAt.UTC(),
				"updatedAt": note.UpdatedAt.UTC(),
			})
	})
	if err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}
	return nil
}

func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MERGE (u:User {id: $id})
			SET u.email = $email,
				u.emailKey = $emailKey,
				u.name = $name,
				u.passwordHash = $passwordHash,
				u.createdAt = $createdAt,
				u.updatedAt = $updatedAt`, userParams(user))
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (s *Store) ListDeletedNoteIDs(ctx context.Context, since, until time.Time) ([]models.NoteID, error) {
	raw, err := s.deletedIDs(ctx, models.NotesTable, since, until)
	if err != nil {
		return nil, fmt.Errorf("failed to list deleted note IDs: %w", err)
	}
	ids := make([]models.NoteID, 0, len(raw))
	for _, r := range raw {
		id, err := models.ParseNoteID(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) ListDeletedUserIDs(ctx context.Context, since, until time.Time) ([]models.UserID, error) {
	raw, err := s.deletedIDs(ctx, models.UsersTable, since, until)
	if err != nil {
		return nil, fmt.Errorf("failed to list deleted user IDs: %w", err)
	}
	ids := make([]models.UserID, 0, len(raw))
	for _, r := range raw {
		id, err := models.ParseUserID(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) PurgeNote(ctx context.Context, id models.NoteID) error {
	_, err := s.deleteNode(ctx, "MATCH (n:Note {id: $id}) DELETE n", models.NotesTable,
		map[string]any{"id": id.String()})
	if err != nil {
		return fmt.Errorf("failed to purge note: %w", err)
	}
	return nil
}

func (s *Store) PurgeUser(ctx context.Context, id models.UserID) error {
	_, err := s.deleteNode(ctx, "MATCH (u:User {id: $id}) DELETE u", models.UsersTable,
		map[string]any{"id": id.String()})
	if err != nil {
		return fmt.Errorf("failed to purge user: %w", err)
	}
	return nil
}
