package notekeeper

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/notekeeper/notekeeper/pkg/client"
	"github.com/notekeeper/notekeeper/pkg/notes"
)

const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

func (a *App) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req client.NoteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	note, err := a.notes.Create(r.Context(), identityFrom(r.Context()), req.Title, req.Content)
	if err != nil {
		respondNotesError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, client.NoteResponse{
		Message: "Note created successfully",
		Note:    note,
	})
}

func (a *App) handleListNotes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	// Unparsable numbers fall back to the defaults.
	page, _ := strconv.Atoi(query.Get("page"))
	limit, _ := strconv.Atoi(query.Get("limit"))

	result, err := a.notes.List(r.Context(), identityFrom(r.Context()), notes.ListParams{
		Page:     page,
		PageSize: limit,
		Query:    query.Get("query"),
	})
	if err != nil {
		respondNotesError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (a *App) handleGetNote(w http.ResponseWriter, r *http.Request) {
	note, err := a.notes.Get(r.Context(), identityFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		respondNotesError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, client.NoteResponse{Note: note})
}

func (a *App) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var req client.NoteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	note, err := a.notes.Update(r.Context(), identityFrom(r.Context()), mux.Vars(r)["id"], req.Title, req.Content)
	if err != nil {
		respondNotesError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, client.NoteResponse{
		Message: "Note updated successfully",
		Note:    note,
	})
}

func (a *App) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := a.notes.Delete(r.Context(), identityFrom(r.Context()), mux.Vars(r)["id"]); err != nil {
		respondNotesError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, client.MessageResponse{Message: "Note deleted successfully"})
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := client.HealthResponse{
		Status:   "healthy",
		Backend:  a.config.Store.Backend,
		ReadOnly: a.IsReadOnly(),
		Time:     time.Now().Unix(),
	}
	if c, ok := a.cqrsStore(); ok {
		response.Mode = string(c.GetMode())
	}
	respondJSON(w, http.StatusOK, response)
}

var statusByCode = map[notes.Code]int{
	notes.AccessDenied:     http.StatusUnauthorized,
	notes.ValidationFailed: http.StatusBadRequest,
	notes.BadRequest:       http.StatusBadRequest,
	notes.ResourceNotFound: http.StatusNotFound,
	notes.Unavailable:      http.StatusServiceUnavailable,
	notes.InternalFailure:  http.StatusInternalServerError,
}

// respondNotesError writes a *notes.Error. Anything else becomes a bare 500.
func respondNotesError(w http.ResponseWriter, err error) {
	var nerr *notes.Error
	if !errors.As(err, &nerr) {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	status, ok := statusByCode[nerr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	respondJSON(w, status, client.APIError{Message: nerr.Message, Errors: nerr.Fields})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_, _ = w.Write(response)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, client.APIError{Message: message})
}
