// Package store defines the persistence contract for notekeeper.
//
// Every note operation is scoped by the owning user. Implementations must
// conjoin the owner filter with every other predicate, so a note owned by
// someone else is indistinguishable from a note that does not exist: both
// yield [ErrNotFound].
//
// Implementations:
//
//   - [github.com/notekeeper/notekeeper/pkg/store/memory.Store]: in-process maps, for tests and local runs
//   - [github.com/notekeeper/notekeeper/pkg/store/postgres.Store]: PostgreSQL through GORM
//   - [github.com/notekeeper/notekeeper/pkg/store/surrealdb.Store]: SurrealDB through the Go SDK and surrealql
//   - [github.com/notekeeper/notekeeper/pkg/store/neo4j.Store]: Neo4j through the official driver
//   - [github.com/notekeeper/notekeeper/pkg/store/cqrs.CQRSStore]: routes reads and writes between two of the above during a migration
//
// Errors other than [ErrNotFound], [ErrInvalidID], [ErrConflict] and
// [ErrReadOnly] are persistence failures. They are returned wrapped and never
// retried here.
package store

import (
	"context"
	"time"

	"github.com/notekeeper/notekeeper/pkg/models"
)

// NoteStore persists notes on behalf of their owners.
type NoteStore interface {
	// CreateNote stores a new note with a fresh ID and timestamps.
	CreateNote(ctx context.Context, owner models.UserID, title, content string) (*models.Note, error)

	// GetNote returns the note with the given raw id if owner owns it.
	// Fails with ErrInvalidID for a malformed id and ErrNotFound otherwise.
	GetNote(ctx context.Context, owner models.UserID, id string) (*models.Note, error)

	// ListNotes returns one page of the owner's notes, newest first,
	// optionally restricted to notes matching q.Search.
	ListNotes(ctx context.Context, owner models.UserID, q ListQuery) (*NotePage, error)

	// UpdateNote replaces title and content and refreshes UpdatedAt.
	UpdateNote(ctx context.Context, owner models.UserID, id, title, content string) (*models.Note, error)

	// DeleteNote removes the note permanently.
	DeleteNote(ctx context.Context, owner models.UserID, id string) error
}

// UserStore persists accounts.
type UserStore interface {
	// CreateUser fails with ErrConflict if the email is taken.
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id models.UserID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// DeleteUser removes the account. Its notes are left in place and become
	// unreachable, since no token can resolve to the deleted owner.
	DeleteUser(ctx context.Context, id models.UserID) error
}

// Store is the full backend contract used by the application.
type Store interface {
	NoteStore
	UserStore

	// Migrate creates tables, indexes and constraints. Safe to run repeatedly.
	Migrate(ctx context.Context) error
	Close() error
}

// Replicator is implemented by backends that can take part in a
// migration sync. Its methods are not owner-scoped.
type Replicator interface {
	// ListModifiedNoteIDs returns ids of notes created or updated in [since, until].
	ListModifiedNoteIDs(ctx context.Context, since, until time.Time) ([]models.NoteID, error)
	ListModifiedUserIDs(ctx context.Context, since, until time.Time) ([]models.UserID, error)

	// LoadNote returns the note or ErrNotFound regardless of owner.
	LoadNote(ctx context.Context, id models.NoteID) (*models.Note, error)

	// SaveNote upserts the note as-is, keeping its timestamps.
	SaveNote(ctx context.Context, note *models.Note) error
	// SaveUser upserts the user as-is, keeping its timestamps.
	SaveUser(ctx context.Context, user *models.User) error

	// ListDeletedNoteIDs returns ids of notes deleted in [since, until].
	// Every successful DeleteNote or PurgeNote leaves such a tombstone.
	ListDeletedNoteIDs(ctx context.Context, since, until time.Time) ([]models.NoteID, error)
	ListDeletedUserIDs(ctx context.Context, since, until time.Time) ([]models.UserID, error)

	// PurgeNote deletes the note regardless of owner, leaving a tombstone
	// as DeleteNote does. A missing note is not an error.
	PurgeNote(ctx context.Context, id models.NoteID) error
	// PurgeUser deletes the user the same way. A missing user is not an error.
	PurgeUser(ctx context.Context, id models.UserID) error
}
