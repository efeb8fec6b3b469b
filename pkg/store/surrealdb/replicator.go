package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/notekeeper/notekeeper/pkg/models"
	"github.com/notekeeper/notekeeper/pkg/store"
)

const modifiedWindow = `WHERE (createdAt >= $since AND createdAt <= $until)
	OR (updatedAt >= $since AND updatedAt <= $until)`

func (s *Store) ListModifiedNoteIDs(ctx context.Context, since, until time.Time) ([]models.NoteID, error) {
	res, err := surrealdb.Query[[]struct {
		ID models.NoteID `json:"id"`
	}](ctx, s.db, "SELECT id FROM notes "+modifiedWindow, map[string]any{
		"since": since.UTC(),
		"until": until.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list modified note IDs: %w", err)
	}

	var ids []models.NoteID
	if res != nil && len(*res) > 0 {
		for _, record := range (*res)[0].Result {
			ids = append(ids, record.ID)
		}
	}
	return ids, nil
}

func (s *Store) ListModifiedUserIDs(ctx context.Context, since, until time.Time) ([]models.UserID, error) {
	res, err := surrealdb.Query[[]struct {
		ID models.UserID `json:"id"`
	}](ctx, s.db, "SELECT id FROM users "+modifiedWindow, map[string]any{
		"since": since.UTC(),
		"until": until.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list modified user IDs: %w", err)
	}

	var ids []models.UserID
	if res != nil && len(*res) > 0 {
		for _, record := range (*res)[0].Result {
			ids = append(ids, record.ID)
		}
	}
	return ids, nil
}

func (s *Store) LoadNote(ctx context.Context, id models.NoteID) (*models.Note, error) {
	res, err := surrealdb.Query[[]models.Note](ctx, s.db, "SELECT * FROM $id",
		map[string]any{"id": id.RecordID()})
	if err != nil {
		return nil, fmt.Errorf("failed to load note: %w", err)
	}
	note := first(res)
	if note == nil {
		return nil, store.ErrNotFound
	}
	return note, nil
}

func (s *Store) SaveNote(ctx context.Context, note *models.Note) error {
	_, err := surrealdb.Query[any](ctx, s.db, "UPSERT $id CONTENT $record",
		map[string]any{"id": note.ID.RecordID(), "record": note})
	if err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}
	return nil
}

func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	_, err := surrealdb.Query[any](ctx, s.db, "UPSERT $id CONTENT $record",
		map[string]any{"id": user.ID.RecordID(), "record": user})
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

const deletedWindow = `WHERE deletedAt >= $since AND deletedAt <= $until`

// listDeleted returns the record keys of the tombstones in table.
func (s *Store) listDeleted(ctx context.Context, table string, since, until time.Time) ([]string, error) {
	res, err := surrealdb.Query[[]string](ctx, s.db,
		"SELECT VALUE record::id(id) FROM type::table($table) "+deletedWindow,
		map[string]any{"table": table, "since": since, "until": until})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	if res == nil || len(*res) == 0 {
		return nil, nil
	}
	return (*res)[0].Result, nil
}

func (s *Store) ListDeletedNoteIDs(ctx context.Context, since, until time.Time) ([]models.NoteID, error) {
	keys, err := s.listDeleted(ctx, "deleted_notes", since, until)
	if err != nil {
		return nil, err
	}
	ids := make([]models.NoteID, 0, len(keys))
	for _, key := range keys {
		id, err := models.ParseNoteID(key)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) ListDeletedUserIDs(ctx context.Context, since, until time.Time) ([]models.UserID, error) {
	keys, err := s.listDeleted(ctx, "deleted_users", since, until)
	if err != nil {
		return nil, err
	}
	ids := make([]models.UserID, 0, len(keys))
	for _, key := range keys {
		id, err := models.ParseUserID(key)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) PurgeNote(ctx context.Context, id models.NoteID) error {
	if _, err := surrealdb.Query[any](ctx, s.db, "DELETE $id", map[string]any{"id": id.RecordID()}); err != nil {
		return fmt.Errorf("failed to purge note: %w", err)
	}
	return nil
}

func (s *Store) PurgeUser(ctx context.Context, id models.UserID) error {
	if _, err := surrealdb.Query[any](ctx, s.db, "DELETE $id", map[string]any{"id": id.RecordID()}); err != nil {
		return fmt.Errorf("failed to purge user: %w", err)
	}
	return nil
}
