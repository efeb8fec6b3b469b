package notekeeper

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/notekeeper/notekeeper/pkg/auth"
	"github.com/notekeeper/notekeeper/pkg/models"
)

// Auth failure messages.
const (
	msgNoToken      = "Access denied. No token provided or invalid format."
	msgInvalidToken = "Invalid token."
	msgAuthFailure  = "Server error during authentication."
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (a *App) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		a.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type identityKey struct{}

func identityFrom(ctx context.Context) models.Identity {
	who, _ := ctx.Value(identityKey{}).(models.Identity)
	return who
}

// requireAuth resolves the bearer token before calling next. Unknown users
// and bad tokens get the same response.
func (a *App) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := a.authn.Authenticate(r.Context(), r.Header.Get("Authorization"))
		switch {
		case err == nil:
			next(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, who)))
		case errors.Is(err, auth.ErrMalformedCredential):
			respondError(w, http.StatusUnauthorized, msgNoToken)
		case errors.Is(err, auth.ErrAccessDenied):
			a.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("token rejected")
			respondError(w, http.StatusUnauthorized, msgInvalidToken)
		default:
			a.logger.Error().Err(err).Str("path", r.URL.Path).Msg("authentication failed")
			respondError(w, http.StatusInternalServerError, msgAuthFailure)
		}
	}
}
