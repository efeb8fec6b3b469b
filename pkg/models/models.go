package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	// MaxTitleLength is the longest title, in characters, a note may carry.
	MaxTitleLength = 100
	// MaxContentLength is the longest content, in characters, a note may carry.
	MaxContentLength = 5000
)

// User is an account that owns notes.
// PasswordHash is a bcrypt hash and is only ever returned to the auth layer;
// HTTP responses carry an Identity instead.
type User struct {
	ID           UserID    `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Name         string    `gorm:"not null" json:"name"`
	PasswordHash string    `gorm:"not null" json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BeforeCreate hook to generate ID if not set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID.IsZero() {
		u.ID = NewUserID()
	}
	return nil
}

// Identity returns the public view of the user.
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Email: u.Email, Name: u.Name}
}

// Note is a personal text note. ID and OwnerID never change after creation.
type Note struct {
	ID        NoteID    `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string    `gorm:"size:100;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	OwnerID   UserID    `gorm:"column:user_id;type:uuid;not null;index:idx_notes_owner_created,priority:1" json:"userId"`
	CreatedAt time.Time `gorm:"index:idx_notes_owner_created,priority:2,sort:desc" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate hook to generate ID if not set
func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID.IsZero() {
		n.ID = NewNoteID()
	}
	return nil
}

// Identity is the authenticated caller of a request. It is produced once per
// request by the authenticator and passed explicitly to every note operation.
type Identity struct {
	UserID UserID `json:"id"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
}

// IsZero reports whether the identity was never resolved.
func (i Identity) IsZero() bool { return i.UserID.IsZero() }
