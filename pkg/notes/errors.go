package notes

import (
	"errors"

	"github.com/notekeeper/notekeeper/pkg/validate"
)

// Code classifies the outcome of a failed operation.
type Code string

const (
	AccessDenied     Code = "access_denied"
	ValidationFailed Code = "validation_failed"
	BadRequest       Code = "bad_request"
	ResourceNotFound Code = "resource_not_found"
	Unavailable      Code = "unavailable"
	InternalFailure  Code = "internal_failure"
)

// Caller-facing messages.
const (
	MsgValidationFailed = "Validation failed"
	MsgNotFound         = "Note not found"
	MsgInvalidID        = "Invalid note ID format"
	MsgAccessDenied     = "Access denied"
	MsgReadOnly         = "Notes are read-only during maintenance"
)

// Error is the only error type the Service returns. Message is safe to show
// to the caller; it never carries storage detail.
type Error struct {
	Code    Code
	Message string
	Fields  []validate.FieldError
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// CodeOf returns the code of err, or InternalFailure if err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return InternalFailure
}
