// Package validate checks note input before it reaches the store.
package validate

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Field messages.
const (
	TitleMessage   = "Title is required and must be between 1-100 characters"
	ContentMessage = "Content is required and must be between 1-5000 characters"
)

// FieldError names a rejected field and why.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// noteInput lengths are counted in runes by the validator.
type noteInput struct {
	Title   string `validate:"required,max=100"`
	Content string `validate:"required,max=5000"`
}

var fields = map[string]FieldError{
	"Title":   {Field: "title", Message: TitleMessage},
	"Content": {Field: "content", Message: ContentMessage},
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Trim returns title and content without surrounding whitespace.
func Trim(title, content string) (string, string) {
	return strings.TrimSpace(title), strings.TrimSpace(content)
}

// Validate trims title and content and reports every violated field,
// title first. An empty result means the input is acceptable.
func Validate(title, content string) []FieldError {
	title, content = Trim(title, content)

	err := validate.Struct(noteInput{Title: title, Content: content})
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// Only reachable if noteInput stops being a struct.
		panic(err)
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		if f, ok := fields[fe.StructField()]; ok {
			out = append(out, f)
		}
	}
	return out
}
