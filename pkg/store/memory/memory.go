// Package memory provides an in-process implementation of
// [github.com/notekeeper/notekeeper/pkg/store.Store].
//
// It backs the unit tests and the `--store memory` mode. All state lives in
// maps guarded by one RWMutex; every operation holds the lock for its whole
// duration, so each is atomic with respect to a single note.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/notekeeper/notekeeper/pkg/models"
	"github.com/notekeeper/notekeeper/pkg/store"
)

type noteRecord struct {
	note models.Note
	seq  uint64
}

// Store keeps notes and users in memory.
type Store struct {
	mu      sync.RWMutex
	notes   map[models.NoteID]*noteRecord
	users   map[models.UserID]*models.User
	byEmail map[string]models.UserID
	seq     uint64
	now     func() time.Time

	// deletion times, read by the replicator
	deletedNotes map[models.NoteID]time.Time
	deletedUsers map[models.UserID]time.Time
}

var (
	_ store.Store      = (*Store)(nil)
	_ store.Replicator = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for timestamp assignment.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		notes:   make(map[models.NoteID]*noteRecord),
		users:   make(map[models.UserID]*models.User),
		byEmail: make(map[string]models.UserID),
		now:     time.Now,

		deletedNotes: make(map[models.NoteID]time.Time),
		deletedUsers: make(map[models.UserID]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Migrate(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) CreateNote(ctx context.Context, owner models.UserID, title, content string) (*models.Note, error) {
	if err := store.CheckNote(title, content); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	s.seq++
	rec := &noteRecord{
		note: models.Note{
			ID:        models.NewNoteID(),
			Title:     title,
			Content:   content,
			OwnerID:   owner,
			CreatedAt: now,
			UpdatedAt: now,
		},
		seq: s.seq,
	}
	s.notes[rec.note.ID] = rec

	note := rec.note
	return &note, nil
}

// lookup returns the record if owner owns it. Callers hold the lock.
func (s *Store) lookup(owner models.UserID, raw string) (*noteRecord, error) {
	id, err := store.ParseNoteID(raw)
	if err != nil {
		return nil, err
	}
	rec, ok := s.notes[id]
	if !ok || rec.note.OwnerID != owner {
		return nil, store.ErrNotFound
	}
	return rec, nil
}

func (s *Store) GetNote(ctx context.Context, owner models.UserID, id string) (*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.lookup(owner, id)
	if err != nil {
		return nil, err
	}
	note := rec.note
	return &note, nil
}

func (s *Store) ListNotes(ctx context.Context, owner models.UserID, q store.ListQuery) (*store.NotePage, error) {
	q = q.Normalize()
	if q.Unsearchable() {
		return &store.NotePage{Notes: []*models.Note{}}, nil
	}
	terms := store.SearchTerms(q.Search)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*noteRecord
	for _, rec := range s.notes {
		if rec.note.OwnerID != owner {
			continue
		}
		if q.Search != "" && !matches(&rec.note, terms) {
			continue
		}
		matched = append(matched, rec)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.note.CreatedAt.Equal(b.note.CreatedAt) {
			return a.note.CreatedAt.After(b.note.CreatedAt)
		}
		return a.seq > b.seq
	})

	page := &store.NotePage{Notes: []*models.Note{}, Total: int64(len(matched))}
	start := q.Offset()
	if start >= len(matched) {
		return page, nil
	}
	end := min(start+q.PageSize, len(matched))
	for _, rec := range matched[start:end] {
		note := rec.note
		page.Notes = append(page.Notes, &note)
	}
	return page, nil
}

func matches(note *models.Note, terms []string) bool {
	title := strings.ToLower(note.Title)
	content := strings.ToLower(note.Content)
	for _, term := range terms {
		if strings.Contains(title, term) || strings.Contains(content, term) {
			return true
		}
	}
	return false
}

func (s *Store) UpdateNote(ctx context.Context, owner models.UserID, id, title, content string) (*models.Note, error) {
	if _, err := store.ParseNoteID(id); err != nil {
		return nil, err
	}
	if err := store.CheckNote(title, content); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.lookup(owner, id)
	if err != nil {
		return nil, err
	}
	rec.note.Title = title
	rec.note.Content = content
	rec.note.UpdatedAt = s.now().UTC()

	note := rec.note
	return &note, nil
}

func (s *Store) DeleteNote(ctx context.Context, owner models.UserID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.lookup(owner, id)
	if err != nil {
		return err
	}
	s.removeNote(rec.note.ID)
	return nil
}

// removeNote deletes a note and leaves a tombstone. Callers hold mu.
func (s *Store) removeNote(id models.NoteID) {
	if _, ok := s.notes[id]; !ok {
		return
	}
	delete(s.notes, id)
	s.deletedNotes[id] = s.now().UTC()
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, taken := s.byEmail[email]; taken {
		return fmt.Errorf("%w: email %s already registered", store.ErrConflict, user.Email)
	}
	if user.ID.IsZero() {
		user.ID = models.NewUserID()
	}
	now := s.now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	stored := *user
	s.users[user.ID] = &stored
	s.byEmail[email] = user.ID
	return nil
}

func (s *Store) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := *user
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := *s.users[id]
	return &u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id models.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	s.removeUser(user)
	return nil
}

// removeUser deletes a user and leaves a tombstone. Callers hold mu.
func (s *Store) removeUser(user *models.User) {
	delete(s.byEmail, strings.ToLower(user.Email))
	delete(s.users, user.ID)
	s.deletedUsers[user.ID] = s.now().UTC()
}
