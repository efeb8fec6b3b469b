package store

import (
	"context"

	"github.com/notekeeper/notekeeper/pkg/models"
)

// ReadOnlyStore wraps a Store and rejects writes while isReadOnly reports true.
//
// It is used around the final catch-up sync of a backend migration: writes are
// blocked so the two backends can converge, reads keep working. The toggle is
// evaluated on every call, so the application can flip modes without
// rebuilding the store.
type ReadOnlyStore struct {
	Store
	isReadOnly func() bool
}

// NewReadOnlyStore creates a new read-only wrapper for a store
func NewReadOnlyStore(store Store, isReadOnly func() bool) *ReadOnlyStore {
	return &ReadOnlyStore{
		Store:      store,
		isReadOnly: isReadOnly,
	}
}

// Unwrap returns the underlying store
func (r *ReadOnlyStore) Unwrap() Store {
	return r.Store
}

func (r *ReadOnlyStore) checkReadOnly() error {
	if r.isReadOnly() {
		return ErrReadOnly
	}
	return nil
}

func (r *ReadOnlyStore) CreateNote(ctx context.Context, owner models.UserID, title, content string) (*models.Note, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.CreateNote(ctx, owner, title, content)
}

func (r *ReadOnlyStore) UpdateNote(ctx context.Context, owner models.UserID, id, title, content string) (*models.Note, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.UpdateNote(ctx, owner, id, title, content)
}

func (r *ReadOnlyStore) DeleteNote(ctx context.Context, owner models.UserID, id string) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteNote(ctx, owner, id)
}

func (r *ReadOnlyStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateUser(ctx, user)
}

func (r *ReadOnlyStore) DeleteUser(ctx context.Context, id models.UserID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteUser(ctx, id)
}

// Migrate is allowed in read-only mode since it only adds schema.
func (r *ReadOnlyStore) Migrate(ctx context.Context) error {
	return r.Store.Migrate(ctx)
}
