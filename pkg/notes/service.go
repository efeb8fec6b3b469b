// Package notes applies the note rules on top of a store: input validation,
// identity checks, pagination and the mapping of store failures to outcomes a
// caller may see.
package notes

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/notekeeper/notekeeper/pkg/models"
	"github.com/notekeeper/notekeeper/pkg/store"
	"github.com/notekeeper/notekeeper/pkg/validate"
)

// Service runs note operations for an explicit identity.
type Service struct {
	store  store.NoteStore
	logger zerolog.Logger
}

func NewService(s store.NoteStore, logger zerolog.Logger) *Service {
	return &Service{store: s, logger: logger}
}

// ListParams are the raw list inputs; zero or negative values take defaults.
type ListParams struct {
	Page     int
	PageSize int
	Query    string
}

type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalNotes  int64 `json:"totalNotes"`
	HasNext     bool  `json:"hasNextPage"`
	HasPrev     bool  `json:"hasPrevPage"`
}

type ListResult struct {
	Notes      []*models.Note `json:"notes"`
	Pagination Pagination     `json:"pagination"`
}

// NewPagination derives page metadata from a normalized query and a total.
func NewPagination(q store.ListQuery, total int64) Pagination {
	size := int64(q.PageSize)
	if size < 1 {
		size = store.DefaultPageSize
	}
	totalPages := total / size
	if total%size != 0 {
		totalPages++
	}
	return Pagination{
		CurrentPage: q.Page,
		TotalPages:  int(totalPages),
		TotalNotes:  total,
		HasNext:     int64(q.Page) < totalPages,
		HasPrev:     q.Page > 1,
	}
}

func (s *Service) Create(ctx context.Context, who models.Identity, title, content string) (*models.Note, error) {
	if err := checkIdentity(who); err != nil {
		return nil, err
	}
	title, content, err := validated(title, content)
	if err != nil {
		return nil, err
	}

	note, err := s.store.CreateNote(ctx, who.UserID, title, content)
	if err != nil {
		return nil, s.fail(err, "create", who, "", "Server error while creating note")
	}
	return note, nil
}

func (s *Service) List(ctx context.Context, who models.Identity, p ListParams) (*ListResult, error) {
	if err := checkIdentity(who); err != nil {
		return nil, err
	}

	q := store.ListQuery{Page: p.Page, PageSize: p.PageSize, Search: p.Query}.Normalize()
	page, err := s.store.ListNotes(ctx, who.UserID, q)
	if err != nil {
		return nil, s.fail(err, "list", who, "", "Server error while fetching notes")
	}

	notes := page.Notes
	if notes == nil {
		notes = []*models.Note{}
	}
	return &ListResult{Notes: notes, Pagination: NewPagination(q, page.Total)}, nil
}

func (s *Service) Get(ctx context.Context, who models.Identity, id string) (*models.Note, error) {
	if err := checkIdentity(who); err != nil {
		return nil, err
	}

	note, err := s.store.GetNote(ctx, who.UserID, id)
	if err != nil {
		return nil, s.fail(err, "get", who, id, "Server error while fetching note")
	}
	return note, nil
}

func (s *Service) Update(ctx context.Context, who models.Identity, id, title, content string) (*models.Note, error) {
	if err := checkIdentity(who); err != nil {
		return nil, err
	}
	title, content, err := validated(title, content)
	if err != nil {
		return nil, err
	}

	note, err := s.store.UpdateNote(ctx, who.UserID, id, title, content)
	if err != nil {
		return nil, s.fail(err, "update", who, id, "Server error while updating note")
	}
	return note, nil
}

func (s *Service) Delete(ctx context.Context, who models.Identity, id string) error {
	if err := checkIdentity(who); err != nil {
		return err
	}

	if err := s.store.DeleteNote(ctx, who.UserID, id); err != nil {
		return s.fail(err, "delete", who, id, "Server error while deleting note")
	}
	return nil
}

func checkIdentity(who models.Identity) error {
	if who.IsZero() {
		return &Error{Code: AccessDenied, Message: MsgAccessDenied}
	}
	return nil
}

func validated(title, content string) (string, string, error) {
	if fields := validate.Validate(title, content); len(fields) > 0 {
		return "", "", &Error{Code: ValidationFailed, Message: MsgValidationFailed, Fields: fields}
	}
	title, content = validate.Trim(title, content)
	return title, content, nil
}

// fail maps a store error to a caller-facing *Error. Only unexpected
// failures are logged; their detail stays in the log.
func (s *Service) fail(err error, op string, who models.Identity, noteID, internal string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &Error{Code: ResourceNotFound, Message: MsgNotFound}
	case errors.Is(err, store.ErrInvalidID):
		return &Error{Code: BadRequest, Message: MsgInvalidID}
	case errors.Is(err, store.ErrReadOnly):
		return &Error{Code: Unavailable, Message: MsgReadOnly}
	}

	event := s.logger.Error().
		Err(err).
		Str("op", op).
		Str("user_id", who.UserID.String())
	if noteID != "" {
		event = event.Str("note_id", noteID)
	}
	event.Msg("note operation failed")

	return &Error{Code: InternalFailure, Message: internal}
}
