package client

import (
	"fmt"
	"time"

	"github.com/notekeeper/notekeeper/pkg/models"
	"github.com/notekeeper/notekeeper/pkg/notes"
	"github.com/notekeeper/notekeeper/pkg/validate"
)

// SignUpRequest represents a sign-up request
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// SignInRequest represents a sign-in request
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents an authentication response
type AuthResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      *models.Identity `json:"user"`
}

// NoteRequest is the body of create and update requests.
type NoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NoteResponse wraps a single note. Message is set on writes.
type NoteResponse struct {
	Message string       `json:"message,omitempty"`
	Note    *models.Note `json:"note"`
}

// MessageResponse is returned by operations without a resource body.
type MessageResponse struct {
	Message string `json:"message"`
}

// ListNotesResponse is one page of notes.
type ListNotesResponse = notes.ListResult

// ListOptions selects a page of notes. Zero values take the server defaults.
type ListOptions struct {
	Page  int
	Limit int
	Query string
}

// HealthResponse reports the serving backend.
type HealthResponse struct {
	Status   string `json:"status"`
	Backend  string `json:"backend"`
	Mode     string `json:"mode,omitempty"`
	ReadOnly bool   `json:"readOnly"`
	Time     int64  `json:"time"`
}

// APIError is an error response from the server. It doubles as the
// server's error body.
type APIError struct {
	StatusCode int                   `json:"-"`
	Message    string                `json:"message"`
	Errors     []validate.FieldError `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status=%d, message=%s", e.StatusCode, e.Message)
}
