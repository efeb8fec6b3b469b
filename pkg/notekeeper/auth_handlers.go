package notekeeper

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/notekeeper/notekeeper/pkg/auth"
	"github.com/notekeeper/notekeeper/pkg/client"
	"github.com/notekeeper/notekeeper/pkg/models"
	"github.com/notekeeper/notekeeper/pkg/store"
	"github.com/notekeeper/notekeeper/pkg/validate"
)

const msgInvalidCredentials = "Invalid email or password"

func (a *App) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req client.SignUpRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if fields := validate.SignUp(req.Email, req.Password, req.Name); len(fields) > 0 {
		respondJSON(w, http.StatusBadRequest, client.APIError{Message: "Validation failed", Errors: fields})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		respondJSON(w, http.StatusBadRequest, client.APIError{
			Message: "Validation failed",
			Errors:  []validate.FieldError{{Field: "password", Message: validate.PasswordMessage}},
		})
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to hash password")
		respondError(w, http.StatusInternalServerError, "Server error during sign up")
		return
	}

	user := &models.User{
		Email:        validate.NormalizeEmail(req.Email),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
	}
	if err := a.store.CreateUser(r.Context(), user); err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			respondError(w, http.StatusConflict, "Email already registered")
		case errors.Is(err, store.ErrReadOnly):
			respondError(w, http.StatusServiceUnavailable, "Sign up is unavailable during maintenance")
		default:
			a.logger.Error().Err(err).Msg("failed to create user")
			respondError(w, http.StatusInternalServerError, "Server error during sign up")
		}
		return
	}

	a.respondToken(w, http.StatusCreated, user)
}

func (a *App) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req client.SignInRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := a.store.GetUserByEmail(r.Context(), validate.NormalizeEmail(req.Email))
	if errors.Is(err, store.ErrNotFound) {
		_ = a.checkPassword(auth.AbsentUserHash(), req.Password)
		respondError(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to look up user")
		respondError(w, http.StatusInternalServerError, "Server error during sign in")
		return
	}

	if err := a.checkPassword(user.PasswordHash, req.Password); err != nil {
		if !errors.Is(err, auth.ErrWrongPassword) {
			a.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to check password")
		}
		respondError(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	a.respondToken(w, http.StatusOK, user)
}

func (a *App) respondToken(w http.ResponseWriter, status int, user *models.User) {
	token, expiresAt, err := a.issuer.Issue(user)
	if err != nil {
		a.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to issue token")
		respondError(w, http.StatusInternalServerError, "Server error while issuing token")
		return
	}

	identity := user.Identity()
	respondJSON(w, status, client.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      &identity,
	})
}

func (a *App) handleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, identityFrom(r.Context()))
}
