package notes_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/notekeeper/notekeeper/pkg/models"
	"github.com/notekeeper/notekeeper/pkg/notes"
	"github.com/notekeeper/notekeeper/pkg/store"
	"github.com/notekeeper/notekeeper/pkg/store/memory"
	"github.com/notekeeper/notekeeper/pkg/validate"
)

func identity(name string) models.Identity {
	return models.Identity{UserID: models.NewUserID(), Email: name + "@example.com", Name: name}
}

func requireCode(t *testing.T, err error, code notes.Code) *notes.Error {
	t.Helper()
	var nerr *notes.Error
	require.ErrorAs(t, err, &nerr)
	require.Equal(t, code, nerr.Code, nerr.Message)
	return nerr
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc := notes.NewService(memory.New(), zerolog.Nop())
	alice := identity("alice")

	created, err := svc.Create(ctx, alice, "  Shopping  ", "\tmilk,eggs\n")
	require.NoError(t, err)
	assert.Equal(t, "Shopping", created.Title)
	assert.Equal(t, "milk,eggs", created.Content)
	assert.Equal(t, alice.UserID, created.OwnerID)

	got, err := svc.Get(ctx, alice, created.ID.String())
	require.NoError(t, err)
	if diff := cmp.Diff(created, got); diff != "" {
		t.Errorf("get mismatch (-created +got):\n%s", diff)
	}
}

func TestValidationStopsBeforeStore(t *testing.T) {
	ctx := context.Background()
	s := &countingStore{NoteStore: memory.New()}
	svc := notes.NewService(s, zerolog.Nop())
	alice := identity("alice")

	_, err := svc.Create(ctx, alice, "", strings.Repeat("c", 5001))
	nerr := requireCode(t, err, notes.ValidationFailed)
	assert.Equal(t, notes.MsgValidationFailed, nerr.Message)
	assert.Equal(t, []validate.FieldError{
		{Field: "title", Message: validate.TitleMessage},
		{Field: "content", Message: validate.ContentMessage},
	}, nerr.Fields)

	_, err = svc.Update(ctx, alice, models.NewNoteID().String(), strings.Repeat("t", 101), "c")
	requireCode(t, err, notes.ValidationFailed)

	assert.Zero(t, s.calls)
}

func TestBoundaries(t *testing.T) {
	ctx := context.Background()
	svc := notes.NewService(memory.New(), zerolog.Nop())
	alice := identity("alice")

	_, err := svc.Create(ctx, alice, strings.Repeat("t", 100), strings.Repeat("c", 5000))
	require.NoError(t, err)

	_, err = svc.Create(ctx, alice, strings.Repeat("t", 101), "c")
	requireCode(t, err, notes.ValidationFailed)

	_, err = svc.Create(ctx, alice, "t", strings.Repeat("c", 5001))
	requireCode(t, err, notes.ValidationFailed)
}

func TestCrossOwnerIsolation(t *testing.T) {
	ctx := context.Background()
	svc := notes.NewService(memory.New(), zerolog.Nop())
	alice, bob := identity("alice"), identity("bob")

	note, err := svc.Create(ctx, alice, "Private", "alice only")
	require.NoError(t, err)
	id := note.ID.String()

	_, err = svc.Get(ctx, bob, id)
	bobGet := requireCode(t, err, notes.ResourceNotFound)

	_, err = svc.Get(ctx, bob, models.NewNoteID().String())
	missing := requireCode(t, err, notes.ResourceNotFound)
	assert.Equal(t, missing, bobGet, "foreign and missing notes must look identical")

	_, err = svc.Update(ctx, bob, id, "Hijacked", "x")
	requireCode(t, err, notes.ResourceNotFound)
	requireCode(t, svc.Delete(ctx, bob, id), notes.ResourceNotFound)

	got, err := svc.Get(ctx, alice, id)
	require.NoError(t, err)
	assert.Equal(t, "Private", got.Title)
}

func TestDeleteTwice(t *testing.T) {
	ctx := context.Background()
	svc := notes.NewService(memory.New(), zerolog.Nop())
	alice := identity("alice")

	note, err := svc.Create(ctx, alice, "Gone", "soon")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, alice, note.ID.String()))
	nerr := requireCode(t, svc.Delete(ctx, alice, note.ID.String()), notes.ResourceNotFound)
	assert.Equal(t, notes.MsgNotFound, nerr.Message)
}

func TestInvalidID(t *testing.T) {
	ctx := context.Background()
	svc := notes.NewService(memory.New(), zerolog.Nop())
	alice := identity("alice")

	_, err := svc.Get(ctx, alice, "123")
	nerr := requireCode(t, err, notes.BadRequest)
	assert.Equal(t, notes.MsgInvalidID, nerr.Message)

	_, err = svc.Update(ctx, alice, "123", "t", "c")
	requireCode(t, err, notes.BadRequest)
	requireCode(t, svc.Delete(ctx, alice, "123"), notes.BadRequest)
}

func TestZeroIdentity(t *testing.T) {
	ctx := context.Background()
	s := &countingStore{NoteStore: memory.New()}
	svc := notes.NewService(s, zerolog.Nop())

	_, err := svc.Create(ctx, models.Identity{}, "t", "c")
	requireCode(t, err, notes.AccessDenied)
	_, err = svc.List(ctx, models.Identity{}, notes.ListParams{})
	requireCode(t, err, notes.AccessDenied)
	assert.Zero(t, s.calls)
}

func TestSearchScenario(t *testing.T) {
	ctx := context.Background()
	svc := notes.NewService(memory.New(), zerolog.Nop())
	alice := identity("alice")

	_, err := svc.Create(ctx, alice, "Shopping", "milk,eggs")
	require.NoError(t, err)
	_, err = svc.Create(ctx, alice, "Work", "finish report")
	require.NoError(t, err)

	res, err := svc.List(ctx, alice, notes.ListParams{Query: "report"})
	require.NoError(t, err)
	require.Len(t, res.Notes, 1)
	assert.Equal(t, "Work", res.Notes[0].Title)
	assert.Equal(t, notes.Pagination{CurrentPage: 1, TotalPages: 1, TotalNotes: 1}, res.Pagination)
}

func TestListPagination(t *testing.T) {
	ctx := context.Background()
	svc := notes.NewService(memory.New(), zerolog.Nop())
	alice := identity("alice")

	for i := 0; i < 23; i++ {
		_, err := svc.Create(ctx, alice, fmt.Sprintf("Note %d", i), "body")
		require.NoError(t, err)
	}

	res, err := svc.List(ctx, alice, notes.ListParams{})
	require.NoError(t, err)
	assert.Len(t, res.Notes, 10)
	assert.Equal(t, "Note 22", res.Notes[0].Title)
	assert.Equal(t, notes.Pagination{CurrentPage: 1, TotalPages: 3, TotalNotes: 23, HasNext: true}, res.Pagination)

	res, err = svc.List(ctx, alice, notes.ListParams{Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, res.Notes, 3)
	assert.Equal(t, notes.Pagination{CurrentPage: 3, TotalPages: 3, TotalNotes: 23, HasPrev: true}, res.Pagination)

	res, err = svc.List(ctx, alice, notes.ListParams{Page: 9})
	require.NoError(t, err)
	assert.NotNil(t, res.Notes)
	assert.Empty(t, res.Notes)
	assert.True(t, res.Pagination.HasPrev)
	assert.False(t, res.Pagination.HasNext)

	empty, err := svc.List(ctx, identity("bob"), notes.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, notes.Pagination{CurrentPage: 1}, empty.Pagination)
}

func TestPaginationProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.Int64Range(0, math.MaxInt64).Draw(t, "total")
		q := store.ListQuery{
			Page:     rapid.Int().Draw(t, "page"),
			PageSize: rapid.Int().Draw(t, "pageSize"),
		}.Normalize()
		if q.Page < 1 || q.Page > store.MaxPage || q.PageSize < 1 || q.PageSize > store.MaxPageSize {
			t.Fatalf("query out of range: %+v", q)
		}
		if q.Offset() < 0 {
			t.Fatalf("negative offset for %+v", q)
		}
		p := notes.NewPagination(q, total)

		size := big.NewInt(int64(q.PageSize))
		covered := new(big.Int).Mul(big.NewInt(int64(p.TotalPages)), size)
		if covered.Cmp(big.NewInt(total)) < 0 {
			t.Fatalf("totalPages %d too small for %d notes", p.TotalPages, total)
		}
		if p.TotalPages > 0 {
			short := new(big.Int).Mul(big.NewInt(int64(p.TotalPages-1)), size)
			if short.Cmp(big.NewInt(total)) >= 0 {
				t.Fatalf("totalPages %d too large for %d notes", p.TotalPages, total)
			}
		}
		if p.TotalPages < 0 {
			t.Fatalf("negative totalPages: %+v", p)
		}
		if p.HasNext != (q.Page < p.TotalPages) {
			t.Fatalf("hasNext mismatch: %+v", p)
		}
		if p.HasPrev != (q.Page > 1) {
			t.Fatalf("hasPrev mismatch: %+v", p)
		}
	})
}

func TestListClampsHugePages(t *testing.T) {
	ctx := context.Background()
	svc := notes.NewService(memory.New(), zerolog.Nop())
	alice := identity("alice")
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, alice, fmt.Sprintf("Note %d", i), "body")
		require.NoError(t, err)
	}

	res, err := svc.List(ctx, alice, notes.ListParams{Page: math.MaxInt, PageSize: math.MaxInt})
	require.NoError(t, err)
	assert.Empty(t, res.Notes)
	assert.Equal(t, notes.Pagination{CurrentPage: store.MaxPage, TotalPages: 1, TotalNotes: 3, HasPrev: true}, res.Pagination)

	res, err = svc.List(ctx, alice, notes.ListParams{PageSize: math.MaxInt})
	require.NoError(t, err)
	assert.Len(t, res.Notes, 3)
	assert.Equal(t, notes.Pagination{CurrentPage: 1, TotalPages: 1, TotalNotes: 3}, res.Pagination)
}

type countingStore struct {
	store.NoteStore
	calls int
}

func (c *countingStore) CreateNote(ctx context.Context, owner models.UserID, title, content string) (*models.Note, error) {
	c.calls++
	return c.NoteStore.CreateNote(ctx, owner, title, content)
}

func (c *countingStore) UpdateNote(ctx context.Context, owner models.UserID, id, title, content string) (*models.Note, error) {
	c.calls++
	return c.NoteStore.UpdateNote(ctx, owner, id, title, content)
}

func (c *countingStore) ListNotes(ctx context.Context, owner models.UserID, q store.ListQuery) (*store.NotePage, error) {
	c.calls++
	return c.NoteStore.ListNotes(ctx, owner, q)
}

const secretDetail = `pq: relation "notes" does not exist at 10.0.0.7:5432`

type failingStore struct{}

func (failingStore) CreateNote(context.Context, models.UserID, string, string) (*models.Note, error) {
	return nil, errors.New(secretDetail)
}

func (failingStore) GetNote(context.Context, models.UserID, string) (*models.Note, error) {
	return nil, errors.New(secretDetail)
}

func (failingStore) ListNotes(context.Context, models.UserID, store.ListQuery) (*store.NotePage, error) {
	return nil, errors.New(secretDetail)
}

func (failingStore) UpdateNote(context.Context, models.UserID, string, string, string) (*models.Note, error) {
	return nil, errors.New(secretDetail)
}

func (failingStore) DeleteNote(context.Context, models.UserID, string) error {
	return errors.New(secretDetail)
}

func TestInternalFailureHidesDetail(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	svc := notes.NewService(failingStore{}, zerolog.New(&logs))
	alice := identity("alice")
	id := models.NewNoteID().String()

	ops := map[string]func() error{
		"Server error while creating note": func() error { _, err := svc.Create(ctx, alice, "t", "c"); return err },
		"Server error while fetching notes": func() error {
			_, err := svc.List(ctx, alice, notes.ListParams{})
			return err
		},
		"Server error while fetching note": func() error { _, err := svc.Get(ctx, alice, id); return err },
		"Server error while updating note": func() error { _, err := svc.Update(ctx, alice, id, "t", "c"); return err },
		"Server error while deleting note": func() error { return svc.Delete(ctx, alice, id) },
	}
	for message, op := range ops {
		t.Run(message, func(t *testing.T) {
			logs.Reset()
			err := op()
			nerr := requireCode(t, err, notes.InternalFailure)
			assert.Equal(t, message, nerr.Message)
			assert.NotContains(t, err.Error(), "pq:")
			assert.Contains(t, logs.String(), "relation")
			assert.Contains(t, logs.String(), alice.UserID.String())
		})
	}
}

func TestReadOnlyStore(t *testing.T) {
	ctx := context.Background()
	svc := notes.NewService(store.NewReadOnlyStore(memory.New(), func() bool { return true }), zerolog.Nop())

	_, err := svc.Create(ctx, identity("alice"), "t", "c")
	requireCode(t, err, notes.Unavailable)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, notes.BadRequest, notes.CodeOf(fmt.Errorf("wrapped: %w", &notes.Error{Code: notes.BadRequest})))
	assert.Equal(t, notes.InternalFailure, notes.CodeOf(errors.New("plain")))
}
