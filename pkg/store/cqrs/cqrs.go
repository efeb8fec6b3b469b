package cqrs

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/notekeeper/notekeeper/pkg/models"
	"github.com/notekeeper/notekeeper/pkg/store"
)

// MigrationMode selects which store serves reads and writes.
type MigrationMode string

const (
	// ModeSingle operates with only the primary store.
	ModeSingle MigrationMode = "single"

	// ModeReadOnly rejects writes while reads continue from the primary.
	ModeReadOnly MigrationMode = "read_only"

	// ModeSwitching reads from the secondary and writes to the primary.
	ModeSwitching MigrationMode = "switching"

	// ModeReversed reads from and writes to the secondary.
	ModeReversed MigrationMode = "reversed"
)

// ParseMode validates a mode name.
func ParseMode(s string) (MigrationMode, error) {
	switch m := MigrationMode(s); m {
	case ModeSingle, ModeReadOnly, ModeSwitching, ModeReversed:
		return m, nil
	case "":
		return ModeSingle, nil
	default:
		return "", fmt.Errorf("unknown migration mode: %s", s)
	}
}

// CQRSStore routes store operations between two backends.
type CQRSStore struct {
	primary   store.Store
	secondary store.Store
	mode      MigrationMode
	logger    zerolog.Logger
	mu        sync.RWMutex
}

var _ store.Store = (*CQRSStore)(nil)

// Option configures a CQRSStore.
type Option func(*CQRSStore)

// WithLogger sets the logger used for sync warnings.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *CQRSStore) { c.logger = logger }
}

// NewCQRSStore creates a store routing between primary and secondary.
func NewCQRSStore(primary, secondary store.Store, mode MigrationMode, opts ...Option) *CQRSStore {
	c := &CQRSStore{
		primary:   primary,
		secondary: secondary,
		mode:      mode,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetMode changes the migration mode.
func (c *CQRSStore) SetMode(mode MigrationMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == ModeReadOnly && mode != ModeSwitching && mode != ModeSingle {
		return fmt.Errorf("can only transition from read_only to switching or single mode")
	}

	c.mode = mode
	return nil
}

// GetMode returns the current migration mode.
func (c *CQRSStore) GetMode() MigrationMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// SwapStores makes the secondary the new primary.
func (c *CQRSStore) SwapStores() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.primary, c.secondary = c.secondary, c.primary
}

func (c *CQRSStore) readStore() store.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch c.mode {
	case ModeSwitching, ModeReversed:
		return c.secondary
	default:
		return c.primary
	}
}

func (c *CQRSStore) writeStore() (store.Store, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch c.mode {
	case ModeReadOnly:
		return nil, store.ErrReadOnly
	case ModeReversed:
		return c.secondary, nil
	default:
		return c.primary, nil
	}
}

// Migrate migrates the primary, then the secondary.
func (c *CQRSStore) Migrate(ctx context.Context) error {
	if err := c.primary.Migrate(ctx); err != nil {
		return fmt.Errorf("primary migration failed: %w", err)
	}
	if c.secondary != nil {
		if err := c.secondary.Migrate(ctx); err != nil {
			return fmt.Errorf("secondary migration failed: %w", err)
		}
	}
	return nil
}

// Close closes both stores and returns the first error.
func (c *CQRSStore) Close() error {
	primaryErr := c.primary.Close()
	var secondaryErr error
	if c.secondary != nil {
		secondaryErr = c.secondary.Close()
	}
	if primaryErr != nil {
		return primaryErr
	}
	return secondaryErr
}

// Note operations
func (c *CQRSStore) CreateNote(ctx context.Context, owner models.UserID, title, content string) (*models.Note, error) {
	s, err := c.writeStore()
	if err != nil {
		return nil, err
	}
	return s.CreateNote(ctx, owner, title, content)
}

func (c *CQRSStore) GetNote(ctx context.Context, owner models.UserID, id string) (*models.Note, error) {
	return c.readStore().GetNote(ctx, owner, id)
}

func (c *CQRSStore) ListNotes(ctx context.Context, owner models.UserID, q store.ListQuery) (*store.NotePage, error) {
	return c.readStore().ListNotes(ctx, owner, q)
}

func (c *CQRSStore) UpdateNote(ctx context.Context, owner models.UserID, id, title, content string) (*models.Note, error) {
	s, err := c.writeStore()
	if err != nil {
		return nil, err
	}
	return s.UpdateNote(ctx, owner, id, title, content)
}

func (c *CQRSStore) DeleteNote(ctx context.Context, owner models.UserID, id string) error {
	s, err := c.writeStore()
	if err != nil {
		return err
	}
	return s.DeleteNote(ctx, owner, id)
}

// User operations
func (c *CQRSStore) CreateUser(ctx context.Context, user *models.User) error {
	s, err := c.writeStore()
	if err != nil {
		return err
	}
	return s.CreateUser(ctx, user)
}

func (c *CQRSStore) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	return c.readStore().GetUser(ctx, id)
}

func (c *CQRSStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return c.readStore().GetUserByEmail(ctx, email)
}

func (c *CQRSStore) DeleteUser(ctx context.Context, id models.UserID) error {
	s, err := c.writeStore()
	if err != nil {
		return err
	}
	return s.DeleteUser(ctx, id)
}
