package auth

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrWrongPassword means the password does not match the stored hash.
var ErrWrongPassword = errors.New("wrong password")

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares password with a hash from HashPassword.
func CheckPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrWrongPassword
	}
	return err
}

var absentUserHash = sync.OnceValue(func() string {
	hash, err := HashPassword(uuid.NewString())
	if err != nil {
		return ""
	}
	return hash
})

// AbsentUserHash returns a bcrypt hash at the default cost of a random secret
// no client knows. Sign-in compares against it when the email is unknown, so
// that path costs one bcrypt comparison like a wrong password does.
func AbsentUserHash() string {
	return absentUserHash()
}
