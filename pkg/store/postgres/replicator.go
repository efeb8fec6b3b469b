package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/notekeeper/notekeeper/pkg/models"
	"github.com/notekeeper/notekeeper/pkg/store"
)

// Timestamp-based catch-up methods for migration sync

func (s *Store) ListModifiedNoteIDs(ctx context.Context, since, until time.Time) ([]models.NoteID, error) {
	var ids []models.NoteID
	err := s.getDB(ctx).
		Model(&models.Note{}).
		Where("created_at >= ? AND created_at <= ?", since, until).
		Or("updated_at >= ? AND updated_at <= ?", since, until).
		Pluck("id", &ids).Error
	return ids, err
}

func (s *Store) ListModifiedUserIDs(ctx context.Context, since, until time.Time) ([]models.UserID, error) {
	var ids []models.UserID
	err := s.getDB(ctx).
		Model(&models.User{}).
		Where("created_at >= ? AND created_at <= ?", since, until).
		Or("updated_at >= ? AND updated_at <= ?", since, until).
		Pluck("id", &ids).Error
	return ids, err
}

func (s *Store) LoadNote(ctx context.Context, id models.NoteID) (*models.Note, error) {
	var note models.Note
	if err := s.getDB(ctx).First(&note, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load note: %w", err)
	}
	return &note, nil
}

func (s *Store) SaveNote(ctx context.Context, note *models.Note) error {
	return s.getDB(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(note).Error
}

func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	return s.getDB(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(user).Error
}

// tombstone records that a note or user was deleted. Kind is the table name.
type tombstone struct {
	Kind      string    `gorm:"primaryKey;size:16"`
	RecordID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	RemovedAt time.Time `gorm:"index;not null"`
}

// bury upserts the tombstone for a deleted record.
func bury(tx *gorm.DB, kind string, id uuid.UUID) error {
	t := &tombstone{Kind: kind, RecordID: id, RemovedAt: time.Now().UTC()}
	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(t).Error; err != nil {
		return fmt.Errorf("failed to record deletion: %w", err)
	}
	return nil
}

func (s *Store) listDeleted(ctx context.Context, kind string, since, until time.Time, dest any) error {
	return s.getDB(ctx).
		Model(&tombstone{}).
		Where("kind = ? AND removed_at >= ? AND removed_at <= ?", kind, since, until).
		Pluck("record_id", dest).Error
}

func (s *Store) ListDeletedNoteIDs(ctx context.Context, since, until time.Time) ([]models.NoteID, error) {
	var ids []models.NoteID
	err := s.listDeleted(ctx, models.NotesTable, since, until, &ids)
	return ids, err
}

func (s *Store) ListDeletedUserIDs(ctx context.Context, since, until time.Time) ([]models.UserID, error) {
	var ids []models.UserID
	err := s.listDeleted(ctx, models.UsersTable, since, until, &ids)
	return ids, err
}

func (s *Store) PurgeNote(ctx context.Context, id models.NoteID) error {
	return s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Note{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to purge note: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return bury(tx, models.NotesTable, id.UUID())
	})
}

func (s *Store) PurgeUser(ctx context.Context, id models.UserID) error {
	return s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to purge user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return bury(tx, models.UsersTable, id.UUID())
	})
}
