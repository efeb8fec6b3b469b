package memory

import (
	"context"
	"strings"
	"time"

	"github.com/notekeeper/notekeeper/pkg/models"
	"github.com/notekeeper/notekeeper/pkg/store"
)

func inWindow(t, since, until time.Time) bool {
	return !t.Before(since) && !t.After(until)
}

func (s *Store) ListModifiedNoteIDs(ctx context.Context, since, until time.Time) ([]models.NoteID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []models.NoteID
	for id, rec := range s.notes {
		if inWindow(rec.note.CreatedAt, since, until) || inWindow(rec.note.UpdatedAt, since, until) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Store) ListModifiedUserIDs(ctx context.Context, since, until time.Time) ([]models.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []models.UserID
	for id, user := range s.users {
		if inWindow(user.CreatedAt, since, until) || inWindow(user.UpdatedAt, since, until) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Store) LoadNote(ctx context.Context, id models.NoteID) (*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.notes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	note := rec.note
	return &note, nil
}

func (s *Store) SaveNote(ctx context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.notes[note.ID]; ok {
		rec.note = *note
		return nil
	}
	s.seq++
	s.notes[note.ID] = &noteRecord{note: *note, seq: s.seq}
	return nil
}

func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.users[user.ID]; ok {
		delete(s.byEmail, strings.ToLower(old.Email))
	}
	u := *user
	s.users[user.ID] = &u
	s.byEmail[strings.ToLower(user.Email)] = user.ID
	return nil
}

func (s *Store) ListDeletedNoteIDs(ctx context.Context, since, until time.Time) ([]models.NoteID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []models.NoteID
	for id, at := range s.deletedNotes {
		if inWindow(at, since, until) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Store) ListDeletedUserIDs(ctx context.Context, since, until time.Time) ([]models.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []models.UserID
	for id, at := range s.deletedUsers {
		if inWindow(at, since, until) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Store) PurgeNote(ctx context.Context, id models.NoteID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeNote(id)
	return nil
}

func (s *Store) PurgeUser(ctx context.Context, id models.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.users[id]; ok {
		s.removeUser(user)
	}
	return nil
}
