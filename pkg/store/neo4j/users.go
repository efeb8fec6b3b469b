package neo4j

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/notekeeper/notekeeper/pkg/models"
	"github.com/notekeeper/notekeeper/pkg/store"
)

func userFromRecord(record *neo4j.Record) (*models.User, error) {
	node, _, err := neo4j.GetRecordValue[neo4j.Node](record, "u")
	if err != nil {
		return nil, err
	}
	rawID, err := neo4j.GetProperty[string](node, "id")
	if err != nil {
		return nil, err
	}
	id, err := models.ParseUserID(rawID)
	if err != nil {
		return nil, err
	}
	email, err := neo4j.GetProperty[string](node, "email")
	if err != nil {
		return nil, err
	}
	name, err := neo4j.GetProperty[string](node, "name")
	if err != nil {
		return nil, err
	}
	hash, err := neo4j.GetProperty[string](node, "passwordHash")
	if err != nil {
		return nil, err
	}
	createdAt, err := neo4j.GetProperty[time.Time](node, "createdAt")
	if err != nil {
		return nil, err
	}
	updatedAt, err := neo4j.GetProperty[time.Time](node, "updatedAt")
	if err != nil {
		return nil, err
	}
	return &models.User{
		ID:           id,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    createdAt.UTC(),
		UpdatedAt:    updatedAt.UTC(),
	}, nil
}

func userParams(user *models.User) map[string]any {
	return map[string]any{
		"id":           user.ID.String(),
		"email":        user.Email,
		"emailKey":     strings.ToLower(user.Email),
		"name":         user.Name,
		"passwordHash": user.PasswordHash,
		"createdAt":    user.CreatedAt.UTC(),
		"updatedAt":    user.UpdatedAt.UTC(),
	}
}

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

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			CREATE (u:User {
				id: $id,
				email: $email,
				emailKey: $emailKey,
				name: $name,
				passwordHash: $passwordHash,
				createdAt: $createdAt,
				updatedAt: $updatedAt
			})`, userParams(user))
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: email %s already registered", store.ErrConflict, user.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) findUser(ctx context.Context, query string, params map[string]any) (*models.User, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	return neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) (*models.User, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, store.ErrNotFound
		}
		return userFromRecord(records[0])
	})
}

func (s *Store) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	user, err := s.findUser(ctx, "MATCH (u:User {id: $id}) RETURN u", map[string]any{"id": id.String()})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.findUser(ctx, "MATCH (u:User {emailKey: $emailKey}) RETURN u",
		map[string]any{"emailKey": strings.ToLower(email)})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

func (s *Store) DeleteUser(ctx context.Context, id models.UserID) error {
	deleted, err := s.deleteNode(ctx, "MATCH (u:User {id: $id}) DELETE u", models.UsersTable,
		map[string]any{"id": id.String()})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if deleted == 0 {
		return store.ErrNotFound
	}
	return nil
}
