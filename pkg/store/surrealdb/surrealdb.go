// Package surrealdb implements [github.com/notekeeper/notekeeper/pkg/store.Store]
// on SurrealDB using the Go SDK.
//
// Records are the shared [github.com/notekeeper/notekeeper/pkg/models] structs
// encoded with surrealcbor. Typed IDs marshal to record ids, so a note lives at
// notes:⟨uuid⟩ and its userId field holds users:⟨uuid⟩.
//
// Deleting a note or user fires an event that upserts a tombstone into
// deleted_notes or deleted_users within the same transaction.
//
// List queries are assembled with the surrealql builder; single-record
// mutations are one parameterized statement each, guarded by
// `WHERE userId = $owner`, which makes them atomic per note and blind to
// foreign ownership.
package surrealdb

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/surrealql"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gws"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/notekeeper/notekeeper/pkg/models"
	"github.com/notekeeper/notekeeper/pkg/store"
)

// Config describes how to reach SurrealDB.
type Config struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
	// Connection selects the WebSocket implementation: "gorillaws" (default) or "gws".
	Connection string
}

// Store implements store.Store on SurrealDB.
type Store struct {
	db *surrealdb.DB
}

var (
	_ store.Store      = (*Store)(nil)
	_ store.Replicator = (*Store)(nil)
)

// New connects, signs in when credentials are given, and selects the namespace and database.
func New(ctx context.Context, cfg Config) (*Store, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	conf := connection.NewConfig(u)

	// surrealcbor is required for time.Time and record id round trips
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec

	var conn connection.Connection
	switch cfg.Connection {
	case "", "gorillaws":
		conn = gorillaws.New(conf)
	case "gws":
		conn = gws.New(conf)
	default:
		return nil, fmt.Errorf("unknown SurrealDB connection implementation: %s", cfg.Connection)
	}

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if cfg.Username != "" && cfg.Password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": cfg.Username,
			"pass": cfg.Password,
		}); err != nil {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}

	return &Store{db: db}, nil
}

// NewFromDB wraps an already connected client.
func NewFromDB(db *surrealdb.DB) *Store {
	return &Store{db: db}
}

const schema = `
DEFINE TABLE IF NOT EXISTS notes SCHEMALESS;
DEFINE INDEX IF NOT EXISTS notes_owner_created ON notes FIELDS userId, createdAt;
DEFINE TABLE IF NOT EXISTS users SCHEMALESS;
DEFINE INDEX IF NOT EXISTS users_email ON users FIELDS email UNIQUE;
DEFINE TABLE IF NOT EXISTS deleted_notes SCHEMALESS;
DEFINE INDEX IF NOT EXISTS deleted_notes_at ON deleted_notes FIELDS deletedAt;
DEFINE TABLE IF NOT EXISTS deleted_users SCHEMALESS;
DEFINE INDEX IF NOT EXISTS deleted_users_at ON deleted_users FIELDS deletedAt;
DEFINE EVENT IF NOT EXISTS notes_tombstone ON notes WHEN $event = "DELETE" THEN {
	UPSERT type::thing("deleted_notes", record::id($before.id)) SET deletedAt = time::now();
};
DEFINE EVENT IF NOT EXISTS users_tombstone ON users WHEN $event = "DELETE" THEN {
	UPSERT type::thing("deleted_users", record::id($before.id)) SET deletedAt = time::now();
};
`

// Migrate defines the tables, indexes and the events that record deletions.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := surrealdb.Query[any](ctx, s.db, schema, nil); err != nil {
		return fmt.Errorf("failed to define schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close(context.Background())
}

// first returns the first row of the first statement, or nil.
func first[T any](res *[]surrealdb.QueryResult[[]T]) *T {
	if res == nil || len(*res) == 0 || len((*res)[0].Result) == 0 {
		return nil
	}
	return &(*res)[0].Result[0]
}

// isNotFound matches the errors the SDK returns when selecting a missing record.
func isNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Expected a single or multiple results but got 0") ||
		strings.Contains(msg, "cannot unmarshal array into Go value")
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "already contains")
}

func (s *Store) CreateNote(ctx context.Context, owner models.UserID, title, content string) (*models.Note, error) {
	if err := store.CheckNote(title, content); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	note := &models.Note{
		ID:        models.NewNoteID(),
		Title:     title,
		Content:   content,
		OwnerID:   owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := surrealdb.Create[models.Note](ctx, s.db, note.ID.RecordID(), note); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return note, nil
}

func (s *Store) GetNote(ctx context.Context, owner models.UserID, id string) (*models.Note, error) {
	noteID, err := store.ParseNoteID(id)
	if err != nil {
		return nil, err
	}

	res, err := surrealdb.Query[[]models.Note](ctx, s.db,
		"SELECT * FROM $id WHERE userId = $owner",
		map[string]any{"id": noteID.RecordID(), "owner": owner.RecordID()})
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	note := first(res)
	if note == nil {
		return nil, store.ErrNotFound
	}
	return note, nil
}

// matching returns the WHERE condition and its arguments for an owner and search text.
func matching(owner models.UserID, search string) (string, []any) {
	cond := "userId = ?"
	args := []any{owner.RecordID()}

	terms := store.SearchTerms(search)
	if len(terms) == 0 {
		return cond, args
	}
	ors := make([]string, 0, len(terms)*2)
	for _, term := range terms {
		ors = append(ors, "string::lowercase(title) CONTAINS ?", "string::lowercase(content) CONTAINS ?")
		args = append(args, term, term)
	}
	return cond + " AND (" + strings.Join(ors, " OR ") + ")", args
}

type countRow struct {
	Count int64 `json:"count"`
}

// countNotesQuery counts the notes matching cond in a single group.
func countNotesQuery(cond string, args []any) *surrealql.SelectQuery {
	return surrealql.SelectFrom(surrealmodels.Table(models.NotesTable)).
		FieldRaw("count()").
		Where(cond, args...).
		GroupAll()
}

// listNotesQuery selects one page of the notes matching cond, newest first.
func listNotesQuery(cond string, args []any, q store.ListQuery) *surrealql.SelectQuery {
	return surrealql.SelectFrom(surrealmodels.Table(models.NotesTable)).
		Where(cond, args...).
		OrderByDesc("createdAt").
		OrderByDesc("id").
		Limit(q.PageSize).
		Start(q.Offset())
}

func (s *Store) ListNotes(ctx context.Context, owner models.UserID, q store.ListQuery) (*store.NotePage, error) {
	q = q.Normalize()
	if q.Unsearchable() {
		return &store.NotePage{Notes: []*models.Note{}}, nil
	}
	cond, args := matching(owner, q.Search)

	countSQL, countVars := countNotesQuery(cond, args).Build()
	counted, err := surrealdb.Query[[]countRow](ctx, s.db, countSQL, countVars)
	if err != nil {
		return nil, fmt.Errorf("failed to count notes: %w", err)
	}
	var total int64
	if row := first(counted); row != nil {
		total = row.Count
	}

	listSQL, listVars := listNotesQuery(cond, args, q).Build()
	res, err := surrealdb.Query[[]models.Note](ctx, s.db, listSQL, listVars)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	page := &store.NotePage{Notes: []*models.Note{}, Total: total}
	if res != nil && len(*res) > 0 {
		for i := range (*res)[0].Result {
			page.Notes = append(page.Notes, &(*res)[0].Result[i])
		}
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

	res, err := surrealdb.Query[[]models.Note](ctx, s.db,
		`UPDATE $id SET title = $title, content = $content, updatedAt = $now
		WHERE userId = $owner RETURN AFTER`,
		map[string]any{
			"id":      noteID.RecordID(),
			"owner":   owner.RecordID(),
			"title":   title,
			"content": content,
			"now":     time.Now().UTC(),
		})
	if err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	note := first(res)
	if note == nil {
		return nil, store.ErrNotFound
	}
	return note, nil
}

func (s *Store) DeleteNote(ctx context.Context, owner models.UserID, id string) error {
	noteID, err := store.ParseNoteID(id)
	if err != nil {
		return err
	}

	res, err := surrealdb.Query[[]models.Note](ctx, s.db,
		"DELETE $id WHERE userId = $owner RETURN BEFORE",
		map[string]any{"id": noteID.RecordID(), "owner": owner.RecordID()})
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	if first(res) == nil {
		return store.ErrNotFound
	}
	return nil
}

// User operations
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = models.NewUserID()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	if _, err := surrealdb.Create[models.User](ctx, s.db, user.ID.RecordID(), user); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email %s already registered", store.ErrConflict, user.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	user, err := surrealdb.Select[models.User](ctx, s.db, id.RecordID())
	if err != nil {
		if isNotFound(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.ID.IsZero() {
		return nil, store.ErrNotFound
	}
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	res, err := surrealdb.Query[[]models.User](ctx, s.db,
		"SELECT * FROM users WHERE email = $email LIMIT 1",
		map[string]any{"email": email})
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	user := first(res)
	if user == nil {
		return nil, store.ErrNotFound
	}
	return user, nil
}

func (s *Store) DeleteUser(ctx context.Context, id models.UserID) error {
	res, err := surrealdb.Query[[]models.User](ctx, s.db,
		"DELETE $id RETURN BEFORE",
		map[string]any{"id": id.RecordID()})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if first(res) == nil {
		return store.ErrNotFound
	}
	return nil
}
