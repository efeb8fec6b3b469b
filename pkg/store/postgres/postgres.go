// Package postgres implements [github.com/notekeeper/notekeeper/pkg/store.Store]
// on PostgreSQL through GORM.
//
// Every note statement carries `user_id = ?` next to its other predicates.
// Update and delete are single statements whose affected-row count tells
// absence (or foreign ownership) apart from success, so no read-modify-write
// window exists.
//
// Search combines a full-text match over title and content with a
// case-insensitive substring match on each search term:
//
//	to_tsvector('simple', title || ' ' || content) @@ plainto_tsquery('simple', ?)
//	OR title ILIKE ? OR content ILIKE ? ...
//
// [Store.Migrate] creates the tables with AutoMigrate and adds a GIN index for
// the full-text expression. Deletes write a row to the tombstones table in the
// same transaction so migration sync can replay them.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/notekeeper/notekeeper/pkg/models"
	"github.com/notekeeper/notekeeper/pkg/store"
)

// Store implements store.Store using PostgreSQL with GORM.
type Store struct {
	db *gorm.DB
}

var (
	_ store.Store      = (*Store)(nil)
	_ store.Replicator = (*Store)(nil)
)

// New opens a connection pool for dsn.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Store{db: db}, nil
}

// NewFromDB wraps an already opened GORM handle.
func NewFromDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) getDB(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

const searchIndex = `CREATE INDEX IF NOT EXISTS idx_notes_search ON notes
	USING GIN (to_tsvector('simple', title || ' ' || content))`

// Migrate creates the users, notes and tombstones tables and their indexes.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.getDB(ctx)
	if err := db.AutoMigrate(&models.User{}, &models.Note{}, &tombstone{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	if err := db.Exec(searchIndex).Error; err != nil {
		return fmt.Errorf("failed to create search index: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) CreateNote(ctx context.Context, owner models.UserID, title, content string) (*models.Note, error) {
	if err := store.CheckNote(title, content); err != nil {
		return nil, err
	}
	note := &models.Note{
		Title:   title,
		Content: content,
		OwnerID: owner,
	}
	if err := s.getDB(ctx).Create(note).Error; err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return note, nil
}

func (s *Store) GetNote(ctx context.Context, owner models.UserID, id string) (*models.Note, error) {
	noteID, err := store.ParseNoteID(id)
	if err != nil {
		return nil, err
	}

	var note models.Note
	err = s.getDB(ctx).First(&note, "id = ? AND user_id = ?", noteID, owner).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return &note, nil
}

// ownedMatching scopes a notes query to the owner and, when present, the search text.
func ownedMatching(owner models.UserID, search string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		tx = tx.Where("user_id = ?", owner)
		if search == "" {
			return tx
		}

		conds := []string{"to_tsvector('simple', title || ' ' || content) @@ plainto_tsquery('simple', ?)"}
		args := []any{search}
		for _, term := range store.SearchTerms(search) {
			pattern := "%" + escapeLike(term) + "%"
			conds = append(conds, "title ILIKE ?", "content ILIKE ?")
			args = append(args, pattern, pattern)
		}
		return tx.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (s *Store) ListNotes(ctx context.Context, owner models.UserID, q store.ListQuery) (*store.NotePage, error) {
	q = q.Normalize()
	if q.Unsearchable() {
		return &store.NotePage{Notes: []*models.Note{}}, nil
	}
	scope := ownedMatching(owner, q.Search)

	var total int64
	if err := s.getDB(ctx).Model(&models.Note{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count notes: %w", err)
	}

	notes := []*models.Note{}
	err := s.getDB(ctx).
		Scopes(scope).
		Order("created_at DESC").
		Order("id DESC").
		Offset(q.Offset()).
		Limit(q.PageSize).
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return &store.NotePage{Notes: notes, Total: total}, nil
}

func (s *Store) UpdateNote(ctx context.Context, owner models.UserID, id, title, content string) (*models.Note, error) {
	noteID, err := store.ParseNoteID(id)
	if err != nil {
		return nil, err
	}
	if err := store.CheckNote(title, content); err != nil {
		return nil, err
	}

	var note models.Note
	res := s.getDB(ctx).
		Model(&note).
		Clauses(clause.Returning{}).
		Where("id = ? AND user_id = ?", noteID, owner).
		Updates(map[string]any{
			"title":      title,
			"content":    content,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update note: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return &note, nil
}

func (s *Store) DeleteNote(ctx context.Context, owner models.UserID, id string) error {
	noteID, err := store.ParseNoteID(id)
	if err != nil {
		return err
	}

	return s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", noteID, owner).Delete(&models.Note{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete note: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return bury(tx, models.NotesTable, noteID.UUID())
	})
}

// User operations
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.getDB(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: email %s already registered", store.ErrConflict, user.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	var user models.User
	err := s.getDB(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.getDB(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

func (s *Store) DeleteUser(ctx context.Context, id models.UserID) error {
	return s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return bury(tx, models.UsersTable, id.UUID())
	})
}
