package validate

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Account field messages.
const (
	EmailMessage    = "A valid email address is required"
	PasswordMessage = "Password must be at least 8 characters"
	NameMessage     = "Name is required and must be at most 100 characters"
)

type signUpInput struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=8,max=72"`
	Name     string `validate:"required,max=100"`
}

var accountFields = map[string]FieldError{
	"Email":    {Field: "email", Message: EmailMessage},
	"Password": {Field: "password", Message: PasswordMessage},
	"Name":     {Field: "name", Message: NameMessage},
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp checks registration input. Email and name are trimmed first;
// the password is taken as given.
func SignUp(email, password, name string) []FieldError {
	err := validate.Struct(signUpInput{
		Email:    NormalizeEmail(email),
		Password: password,
		Name:     strings.TrimSpace(name),
	})
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		panic(err)
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		if f, ok := accountFields[fe.StructField()]; ok {
			out = append(out, f)
		}
	}
	return out
}
