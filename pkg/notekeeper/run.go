package notekeeper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
)

// Router returns the HTTP handler serving the API.
func (a *App) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(a.logRequests)

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", a.handleHealth).Methods("GET")

	api.HandleFunc("/auth/signup", a.handleSignUp).Methods("POST")
	api.HandleFunc("/auth/signin", a.handleSignIn).Methods("POST")
	api.HandleFunc("/auth/me", a.requireAuth(a.handleGetCurrentUser)).Methods("GET")

	api.HandleFunc("/notes", a.requireAuth(a.handleCreateNote)).Methods("POST")
	api.HandleFunc("/notes", a.requireAuth(a.handleListNotes)).Methods("GET")
	api.HandleFunc("/notes/{id}", a.requireAuth(a.handleGetNote)).Methods("GET")
	api.HandleFunc("/notes/{id}", a.requireAuth(a.handleUpdateNote)).Methods("PUT")
	api.HandleFunc("/notes/{id}", a.requireAuth(a.handleDeleteNote)).Methods("DELETE")

	router.HandleFunc("/health", a.handleHealth).Methods("GET")

	router.NotFoundHandler = a.logRequests(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Route not found")
	}))

	return router
}

// Run serves the API until ctx is cancelled.
func (a *App) Run(ctx context.Context, cmd *RunCommand) error {
	if a.config.Auth.Secret == "" {
		return errors.New("auth secret is required: set JWT_SECRET or auth.secret")
	}

	addr := fmt.Sprintf(":%s", a.config.Server.Port)
	a.logger.Info().
		Str("addr", addr).
		Str("backend", a.config.Store.Backend).
		Str("mode", string(a.config.Store.Mode)).
		Bool("read_only", a.IsReadOnly()).
		Msg("Starting notekeeper server")

	server := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	syncCtx, stopSync := context.WithCancel(ctx)
	syncDone := a.startSync(syncCtx)
	defer func() {
		stopSync()
		<-syncDone
	}()

	hup := make(chan os.Signal, 1)
	if cmd.Reload != nil {
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("Shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case err := <-serverErr:
			return err
		case <-hup:
			a.reloadWith(cmd.Reload)
		}
	}
}

// startSync starts the background cqrs sync when store.sync_interval is set.
// The returned channel closes once the sync loop has stopped.
func (a *App) startSync(ctx context.Context) <-chan struct{} {
	interval := a.config.Store.SyncInterval
	if interval <= 0 {
		return closed()
	}
	c, ok := a.cqrsStore()
	if !ok {
		a.logger.Warn().
			Str("backend", a.config.Store.Backend).
			Msg("store.sync_interval is ignored without the cqrs backend")
		return closed()
	}
	a.logger.Info().Dur("interval", interval).Msg("Starting continuous sync")
	return c.StartContinuousSync(ctx, interval)
}

func closed() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
