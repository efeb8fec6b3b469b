// Package auth resolves bearer tokens to identities and mints them.
//
// Tokens are HS256 JWTs whose subject is the user id. A request is
// authenticated in three steps: the header must carry a bearer token, the
// token must verify and be unexpired, and its subject must still exist. The
// three failures have distinct errors for logging, and all of them match
// [ErrAccessDenied] so callers can treat them alike.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/notekeeper/notekeeper/pkg/models"
	"github.com/notekeeper/notekeeper/pkg/store"
)

// ErrAccessDenied is the kind every authentication failure reports.
var ErrAccessDenied = errors.New("access denied")

var (
	// ErrMalformedCredential means the header is missing or not "Bearer <token>".
	ErrMalformedCredential = &authError{msg: "malformed credential"}
	// ErrInvalidCredential means the token failed verification or has expired.
	ErrInvalidCredential = &authError{msg: "invalid credential"}
	// ErrUnknownIdentity means the token verified but its subject no longer exists.
	ErrUnknownIdentity = &authError{msg: "unknown identity"}
)

type authError struct{ msg string }

func (e *authError) Error() string { return e.msg }

func (e *authError) Is(target error) bool { return target == ErrAccessDenied }

// UserLookup resolves a user id. It returns store.ErrNotFound for unknown users.
type UserLookup interface {
	GetUser(ctx context.Context, id models.UserID) (*models.User, error)
}

const bearerPrefix = "Bearer "

// Authenticator verifies bearer tokens.
type Authenticator struct {
	secret []byte
	users  UserLookup
	now    func() time.Time
}

// NewAuthenticator creates an Authenticator. now may be nil.
func NewAuthenticator(secret []byte, users UserLookup, now func() time.Time) *Authenticator {
	if now == nil {
		now = time.Now
	}
	return &Authenticator{secret: secret, users: users, now: now}
}

// Authenticate resolves an Authorization header value to an identity.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (models.Identity, error) {
	raw, ok := strings.CutPrefix(header, bearerPrefix)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return models.Identity{}, ErrMalformedCredential
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	userID, err := models.ParseUserID(claims.Subject)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	user, err := a.users.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Identity{}, ErrUnknownIdentity
	}
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to look up user %s: %w", userID, err)
	}
	return user.Identity(), nil
}

// Issuer mints tokens for users.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer. now may be nil.
func NewIssuer(secret []byte, ttl time.Duration, now func() time.Time) *Issuer {
	if now == nil {
		now = time.Now
	}
	return &Issuer{secret: secret, ttl: ttl, now: now}
}

// Issue returns a signed token for user and its expiry.
func (i *Issuer) Issue(user *models.User) (string, time.Time, error) {
	issuedAt := i.now()
	expiresAt := issuedAt.Add(i.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}
