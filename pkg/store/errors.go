package store

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/notekeeper/notekeeper/pkg/models"
)

var (
	// ErrNotFound means the record is absent or belongs to another owner.
	ErrNotFound = errors.New("not found")
	// ErrInvalidID means the identifier is not well-formed for this store.
	ErrInvalidID = errors.New("invalid identifier")
	// ErrConflict means a unique constraint was violated.
	ErrConflict = errors.New("conflict")
	// ErrReadOnly means writes are currently rejected.
	ErrReadOnly = errors.New("operation denied: application is in read-only mode for data consistency")
	// ErrInvalidNote means title or content violate the note constraints.
	ErrInvalidNote = errors.New("invalid note")
)

// ParseNoteID converts a raw identifier into a NoteID, failing with ErrInvalidID.
func ParseNoteID(raw string) (models.NoteID, error) {
	id, err := models.ParseNoteID(raw)
	if err != nil {
		return models.NoteID{}, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return id, nil
}

// CheckNote enforces the persisted-note constraints on already trimmed input.
// Stores call it on every write in addition to the request validation.
func CheckNote(title, content string) error {
	if n := utf8.RuneCountInString(title); n == 0 || n > models.MaxTitleLength || title != strings.TrimSpace(title) {
		return fmt.Errorf("%w: title must be 1-%d trimmed characters", ErrInvalidNote, models.MaxTitleLength)
	}
	if n := utf8.RuneCountInString(content); n == 0 || n > models.MaxContentLength || content != strings.TrimSpace(content) {
		return fmt.Errorf("%w: content must be 1-%d trimmed characters", ErrInvalidNote, models.MaxContentLength)
	}
	return nil
}
