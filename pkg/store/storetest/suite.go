// Package storetest is a conformance suite every store backend runs.
package storetest

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/notekeeper/notekeeper/pkg/models"
	"github.com/notekeeper/notekeeper/pkg/store"
)

// Suite exercises a store.Store. NewStore must return an empty, migrated store.
type Suite struct {
	suite.Suite

	NewStore func() store.Store

	ctx   context.Context
	store store.Store
}

func (s *Suite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.NewStore()
}

func (s *Suite) TearDownTest() {
	if s.store != nil {
		s.Require().NoError(s.store.Close())
	}
}

func (s *Suite) newUser(email string) models.UserID {
	u := &models.User{Email: email, Name: email, PasswordHash: "x"}
	s.Require().NoError(s.store.CreateUser(s.ctx, u))
	s.Require().False(u.ID.IsZero())
	return u.ID
}

func (s *Suite) TestCreateGetRoundTrip() {
	owner := s.newUser("a@example.com")

	created, err := s.store.CreateNote(s.ctx, owner, "Shopping", "milk,eggs")
	s.Require().NoError(err)
	s.False(created.ID.IsZero())
	s.Equal(owner, created.OwnerID)
	s.False(created.CreatedAt.IsZero())
	s.False(created.UpdatedAt.IsZero())

	got, err := s.store.GetNote(s.ctx, owner, created.ID.String())
	s.Require().NoError(err)
	s.Equal(created.ID, got.ID)
	s.Equal("Shopping", got.Title)
	s.Equal("milk,eggs", got.Content)
	s.Equal(owner, got.OwnerID)
	s.WithinDuration(created.CreatedAt, got.CreatedAt, time.Millisecond)
}

func (s *Suite) TestCreateRejectsInvalidNote() {
	owner := s.newUser("a@example.com")

	_, err := s.store.CreateNote(s.ctx, owner, "", "content")
	s.ErrorIs(err, store.ErrInvalidNote)
}

func (s *Suite) TestMalformedIdentifier() {
	owner := s.newUser("a@example.com")

	_, err := s.store.GetNote(s.ctx, owner, "not-an-id")
	s.ErrorIs(err, store.ErrInvalidID)

	_, err = s.store.UpdateNote(s.ctx, owner, "not-an-id", "t", "c")
	s.ErrorIs(err, store.ErrInvalidID)

	s.ErrorIs(s.store.DeleteNote(s.ctx, owner, "not-an-id"), store.ErrInvalidID)
}

func (s *Suite) TestMissingNote() {
	owner := s.newUser("a@example.com")
	missing := models.NewNoteID().String()

	_, err := s.store.GetNote(s.ctx, owner, missing)
	s.ErrorIs(err, store.ErrNotFound)

	_, err = s.store.UpdateNote(s.ctx, owner, missing, "t", "c")
	s.ErrorIs(err, store.ErrNotFound)

	s.ErrorIs(s.store.DeleteNote(s.ctx, owner, missing), store.ErrNotFound)
}

func (s *Suite) TestOwnershipIsolation() {
	alice := s.newUser("alice@example.com")
	bob := s.newUser("bob@example.com")

	note, err := s.store.CreateNote(s.ctx, alice, "Private", "alice only")
	s.Require().NoError(err)
	id := note.ID.String()

	_, err = s.store.GetNote(s.ctx, bob, id)
	s.ErrorIs(err, store.ErrNotFound)

	_, err = s.store.UpdateNote(s.ctx, bob, id, "Hijacked", "bob was here")
	s.ErrorIs(err, store.ErrNotFound)

	s.ErrorIs(s.store.DeleteNote(s.ctx, bob, id), store.ErrNotFound)

	page, err := s.store.ListNotes(s.ctx, bob, store.ListQuery{})
	s.Require().NoError(err)
	s.Empty(page.Notes)
	s.Zero(page.Total)

	got, err := s.store.GetNote(s.ctx, alice, id)
	s.Require().NoError(err)
	s.Equal("Private", got.Title)
	s.Equal("alice only", got.Content)
}

func (s *Suite) TestUpdate() {
	owner := s.newUser("a@example.com")

	note, err := s.store.CreateNote(s.ctx, owner, "Draft", "first")
	s.Require().NoError(err)

	updated, err := s.store.UpdateNote(s.ctx, owner, note.ID.String(), "Final", "second")
	s.Require().NoError(err)
	s.Equal(note.ID, updated.ID)
	s.Equal(owner, updated.OwnerID)
	s.Equal("Final", updated.Title)
	s.Equal("second", updated.Content)
	s.False(updated.UpdatedAt.Before(note.UpdatedAt))
	s.WithinDuration(note.CreatedAt, updated.CreatedAt, time.Millisecond)

	got, err := s.store.GetNote(s.ctx, owner, note.ID.String())
	s.Require().NoError(err)
	s.Equal("Final", got.Title)
}

func (s *Suite) TestDeleteTwice() {
	owner := s.newUser("a@example.com")

	note, err := s.store.CreateNote(s.ctx, owner, "Gone", "soon")
	s.Require().NoError(err)

	s.Require().NoError(s.store.DeleteNote(s.ctx, owner, note.ID.String()))
	s.ErrorIs(s.store.DeleteNote(s.ctx, owner, note.ID.String()), store.ErrNotFound)

	_, err = s.store.GetNote(s.ctx, owner, note.ID.String())
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *Suite) TestListPagination() {
	owner := s.newUser("a@example.com")
	other := s.newUser("b@example.com")

	const total = 23
	for i := 0; i < total; i++ {
		_, err := s.store.CreateNote(s.ctx, owner, fmt.Sprintf("Note %02d", i), "body")
		s.Require().NoError(err)
	}
	_, err := s.store.CreateNote(s.ctx, other, "Not mine", "body")
	s.Require().NoError(err)

	all, err := s.store.ListNotes(s.ctx, owner, store.ListQuery{Page: 1, PageSize: 100})
	s.Require().NoError(err)
	s.Require().Len(all.Notes, total)
	s.EqualValues(total, all.Total)
	for i := 1; i < len(all.Notes); i++ {
		s.False(all.Notes[i].CreatedAt.After(all.Notes[i-1].CreatedAt), "notes must be newest first")
	}

	for _, size := range []int{1, 5, 10, 23, 50} {
		var ids []models.NoteID
		for page := 1; ; page++ {
			res, err := s.store.ListNotes(s.ctx, owner, store.ListQuery{Page: page, PageSize: size})
			s.Require().NoError(err)
			s.EqualValues(total, res.Total)
			if len(res.Notes) == 0 {
				break
			}
			s.LessOrEqual(len(res.Notes), size)
			for _, n := range res.Notes {
				ids = append(ids, n.ID)
			}
		}
		s.Require().Len(ids, total, "page size %d", size)
		for i, n := range all.Notes {
			s.Equal(n.ID, ids[i], "page size %d position %d", size, i)
		}
	}

	defaults, err := s.store.ListNotes(s.ctx, owner, store.ListQuery{Page: 0, PageSize: 0})
	s.Require().NoError(err)
	s.Len(defaults.Notes, store.DefaultPageSize)
	s.Equal(all.Notes[0].ID, defaults.Notes[0].ID)

	beyond, err := s.store.ListNotes(s.ctx, owner, store.ListQuery{Page: 10, PageSize: 10})
	s.Require().NoError(err)
	s.Empty(beyond.Notes)
	s.EqualValues(total, beyond.Total)

	huge, err := s.store.ListNotes(s.ctx, owner, store.ListQuery{Page: math.MaxInt, PageSize: math.MaxInt})
	s.Require().NoError(err)
	s.Empty(huge.Notes)
	s.EqualValues(total, huge.Total)

	capped, err := s.store.ListNotes(s.ctx, owner, store.ListQuery{Page: 1, PageSize: math.MaxInt})
	s.Require().NoError(err)
	s.Len(capped.Notes, total)
	s.EqualValues(total, capped.Total)
}

func (s *Suite) TestSearch() {
	alice := s.newUser("alice@example.com")
	bob := s.newUser("bob@example.com")

	_, err := s.store.CreateNote(s.ctx, alice, "Shopping", "milk,eggs")
	s.Require().NoError(err)
	work, err := s.store.CreateNote(s.ctx, alice, "Work", "finish report")
	s.Require().NoError(err)

	res, err := s.store.ListNotes(s.ctx, alice, store.ListQuery{Search: "report"})
	s.Require().NoError(err)
	s.Require().Len(res.Notes, 1)
	s.Equal(work.ID, res.Notes[0].ID)
	s.EqualValues(1, res.Total)

	res, err = s.store.ListNotes(s.ctx, alice, store.ListQuery{Search: "shopping"})
	s.Require().NoError(err)
	s.Require().Len(res.Notes, 1)
	s.Equal("Shopping", res.Notes[0].Title)

	res, err = s.store.ListNotes(s.ctx, bob, store.ListQuery{Search: "report"})
	s.Require().NoError(err)
	s.Empty(res.Notes)
	s.Zero(res.Total)

	res, err = s.store.ListNotes(s.ctx, alice, store.ListQuery{Search: "   "})
	s.Require().NoError(err)
	s.EqualValues(2, res.Total)

	for _, search := range []string{"!!!", "%", "_", ",;-"} {
		res, err = s.store.ListNotes(s.ctx, alice, store.ListQuery{Search: search})
		s.Require().NoError(err)
		s.NotNil(res.Notes)
		s.Empty(res.Notes, "search %q", search)
		s.Zero(res.Total, "search %q", search)
	}
}

func (s *Suite) TestUsers() {
	u := &models.User{Email: "carol@example.com", Name: "Carol", PasswordHash: "hash"}
	s.Require().NoError(s.store.CreateUser(s.ctx, u))

	got, err := s.store.GetUser(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("carol@example.com", got.Email)
	s.Equal("hash", got.PasswordHash)

	byEmail, err := s.store.GetUserByEmail(s.ctx, "carol@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, byEmail.ID)

	err = s.store.CreateUser(s.ctx, &models.User{Email: "carol@example.com", Name: "Other", PasswordHash: "x"})
	s.ErrorIs(err, store.ErrConflict)

	s.Require().NoError(s.store.DeleteUser(s.ctx, u.ID))

	_, err = s.store.GetUser(s.ctx, u.ID)
	s.ErrorIs(err, store.ErrNotFound)
	_, err = s.store.GetUserByEmail(s.ctx, "carol@example.com")
	s.ErrorIs(err, store.ErrNotFound)
	s.ErrorIs(s.store.DeleteUser(s.ctx, u.ID), store.ErrNotFound)
}

func (s *Suite) TestReplicator() {
	r, ok := s.store.(store.Replicator)
	if !ok {
		s.T().Skip("store does not implement store.Replicator")
	}

	before := time.Now().Add(-time.Minute)
	owner := s.newUser("a@example.com")
	note, err := s.store.CreateNote(s.ctx, owner, "Synced", "content")
	s.Require().NoError(err)
	after := time.Now().Add(time.Minute)

	ids, err := r.ListModifiedNoteIDs(s.ctx, before, after)
	s.Require().NoError(err)
	s.Contains(ids, note.ID)

	userIDs, err := r.ListModifiedUserIDs(s.ctx, before, after)
	s.Require().NoError(err)
	s.Contains(userIDs, owner)

	ids, err = r.ListModifiedNoteIDs(s.ctx, after, after.Add(time.Hour))
	s.Require().NoError(err)
	s.NotContains(ids, note.ID)

	loaded, err := r.LoadNote(s.ctx, note.ID)
	s.Require().NoError(err)
	s.Equal(note.ID, loaded.ID)

	copied := &models.Note{
		ID:        models.NewNoteID(),
		Title:     "Imported",
		Content:   "from elsewhere",
		OwnerID:   owner,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt: time.Date(2024, 1, 3, 3, 4, 5, 0, time.UTC),
	}
	s.Require().NoError(r.SaveNote(s.ctx, copied))
	s.Require().NoError(r.SaveNote(s.ctx, copied))

	got, err := s.store.GetNote(s.ctx, owner, copied.ID.String())
	s.Require().NoError(err)
	s.Equal("Imported", got.Title)
	s.True(copied.CreatedAt.Equal(got.CreatedAt.UTC()))

	_, err = r.LoadNote(s.ctx, models.NewNoteID())
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *Suite) TestReplicatorDeletions() {
	r, ok := s.store.(store.Replicator)
	if !ok {
		s.T().Skip("store does not implement store.Replicator")
	}

	before := time.Now().Add(-time.Minute)
	owner := s.newUser("a@example.com")
	leaving := s.newUser("b@example.com")
	deleted, err := s.store.CreateNote(s.ctx, owner, "Deleted", "content")
	s.Require().NoError(err)
	purged, err := s.store.CreateNote(s.ctx, owner, "Purged", "content")
	s.Require().NoError(err)
	kept, err := s.store.CreateNote(s.ctx, owner, "Kept", "content")
	s.Require().NoError(err)

	s.Require().NoError(s.store.DeleteNote(s.ctx, owner, deleted.ID.String()))
	s.Require().NoError(r.PurgeNote(s.ctx, purged.ID))
	s.Require().NoError(r.PurgeNote(s.ctx, models.NewNoteID()), "purging a missing note")
	s.Require().NoError(s.store.DeleteUser(s.ctx, leaving))
	s.Require().NoError(r.PurgeUser(s.ctx, owner))
	s.Require().NoError(r.PurgeUser(s.ctx, models.NewUserID()), "purging a missing user")
	after := time.Now().Add(time.Minute)

	_, err = r.LoadNote(s.ctx, purged.ID)
	s.ErrorIs(err, store.ErrNotFound)
	_, err = s.store.GetUser(s.ctx, owner)
	s.ErrorIs(err, store.ErrNotFound)

	noteIDs, err := r.ListDeletedNoteIDs(s.ctx, before, after)
	s.Require().NoError(err)
	s.Contains(noteIDs, deleted.ID)
	s.Contains(noteIDs, purged.ID)
	s.NotContains(noteIDs, kept.ID)

	userIDs, err := r.ListDeletedUserIDs(s.ctx, before, after)
	s.Require().NoError(err)
	s.ElementsMatch([]models.UserID{leaving, owner}, userIDs)

	noteIDs, err = r.ListDeletedNoteIDs(s.ctx, after, after.Add(time.Hour))
	s.Require().NoError(err)
	s.Empty(noteIDs)

	// A failed delete leaves no tombstone.
	s.ErrorIs(s.store.DeleteNote(s.ctx, owner, models.NewNoteID().String()), store.ErrNotFound)
	noteIDs, err = r.ListDeletedNoteIDs(s.ctx, before, after)
	s.Require().NoError(err)
	s.Len(noteIDs, 2)
}
