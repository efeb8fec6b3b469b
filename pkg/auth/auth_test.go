package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/notekeeper/notekeeper/pkg/auth"
	"github.com/notekeeper/notekeeper/pkg/models"
	"github.com/notekeeper/notekeeper/pkg/store/memory"
)

var secret = []byte("test-secret")

type fixture struct {
	ctx    context.Context
	users  *memory.Store
	user   *models.User
	now    time.Time
	issuer *auth.Issuer
	authn  *auth.Authenticator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		users: memory.New(),
		user:  &models.User{Email: "erin@example.com", Name: "Erin", PasswordHash: "x"},
		now:   time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.users.CreateUser(f.ctx, f.user))
	clock := func() time.Time { return f.now }
	f.issuer = auth.NewIssuer(secret, time.Hour, clock)
	f.authn = auth.NewAuthenticator(secret, f.users, clock)
	return f
}

func (f *fixture) token(t *testing.T) string {
	t.Helper()
	token, expiresAt, err := f.issuer.Issue(f.user)
	require.NoError(t, err)
	require.Equal(t, f.now.Add(time.Hour), expiresAt)
	return token
}

func TestAuthenticateValid(t *testing.T) {
	f := newFixture(t)

	identity, err := f.authn.Authenticate(f.ctx, "Bearer "+f.token(t))
	require.NoError(t, err)
	assert.Equal(t, models.Identity{UserID: f.user.ID, Email: "erin@example.com", Name: "Erin"}, identity)
}

func TestAuthenticateMalformed(t *testing.T) {
	f := newFixture(t)
	token := f.token(t)

	for _, header := range []string{"", "Bearer", "Bearer ", "Basic " + token, "bearer " + token, token} {
		_, err := f.authn.Authenticate(f.ctx, header)
		assert.ErrorIs(t, err, auth.ErrMalformedCredential, "header %q", header)
		assert.ErrorIs(t, err, auth.ErrAccessDenied)
	}
}

func TestAuthenticateInvalid(t *testing.T) {
	f := newFixture(t)
	token := f.token(t)

	forged, _, err := auth.NewIssuer([]byte("other-secret"), time.Hour, func() time.Time { return f.now }).Issue(f.user)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: f.user.ID.String(),
	}).SignedString(secret)
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		ExpiresAt: jwt.NewNumericDate(f.now.Add(time.Hour)),
	}).SignedString(secret)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   f.user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(f.now.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"wrong secret":      forged,
		"corrupt signature": corrupt(token),
		"garbage":           "abc.def.ghi",
		"no expiry":         noExpiry,
		"bad subject":       badSubject,
		"alg none":          unsigned,
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.authn.Authenticate(f.ctx, "Bearer "+tok)
			assert.ErrorIs(t, err, auth.ErrInvalidCredential)
			assert.ErrorIs(t, err, auth.ErrAccessDenied)
			assert.NotErrorIs(t, err, auth.ErrUnknownIdentity)
		})
	}
}

// corrupt changes the first signature character.
func corrupt(token string) string {
	i := strings.LastIndex(token, ".") + 1
	c := "A"
	if token[i] == 'A' {
		c = "B"
	}
	return token[:i] + c + token[i+1:]
}

func TestAuthenticateExpired(t *testing.T) {
	f := newFixture(t)
	token := f.token(t)

	f.now = f.now.Add(2 * time.Hour)
	_, err := f.authn.Authenticate(f.ctx, "Bearer "+token)
	assert.ErrorIs(t, err, auth.ErrInvalidCredential)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestAuthenticateDeletedUser(t *testing.T) {
	f := newFixture(t)
	token := f.token(t)

	require.NoError(t, f.users.DeleteUser(f.ctx, f.user.ID))

	_, err := f.authn.Authenticate(f.ctx, "Bearer "+token)
	assert.ErrorIs(t, err, auth.ErrUnknownIdentity)
	assert.ErrorIs(t, err, auth.ErrAccessDenied)
	assert.NotErrorIs(t, err, auth.ErrInvalidCredential)
}

type brokenLookup struct{}

func (brokenLookup) GetUser(context.Context, models.UserID) (*models.User, error) {
	return nil, errors.New("connection reset")
}

func TestAuthenticateLookupFailure(t *testing.T) {
	f := newFixture(t)
	authn := auth.NewAuthenticator(secret, brokenLookup{}, func() time.Time { return f.now })

	_, err := authn.Authenticate(f.ctx, "Bearer "+f.token(t))
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrAccessDenied)
}

func TestPassword(t *testing.T) {
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, auth.CheckPassword(hash, "correct horse"))
	assert.ErrorIs(t, auth.CheckPassword(hash, "battery staple"), auth.ErrWrongPassword)
}

func TestAbsentUserHash(t *testing.T) {
	hash := auth.AbsentUserHash()
	require.NotEmpty(t, hash)
	assert.Equal(t, hash, auth.AbsentUserHash(), "computed once")

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)

	for _, password := range []string{"", "password123", hash} {
		assert.ErrorIs(t, auth.CheckPassword(hash, password), auth.ErrWrongPassword)
	}
}
