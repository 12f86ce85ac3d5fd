package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bayni/apiserver/internal/services"
	"github.com/bayni/apiserver/internal/store"
)

const maxJSONBodyBytes = 1 << 20

type contextKey string

const contextSubjectKey contextKey = "sub"

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

func userIDFromContext(ctx context.Context) (string, error) {
	subject, ok := ctx.Value(contextSubjectKey).(string)
	if !ok {
		return "", errors.New("missing subject")
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", errors.New("invalid subject")
	}
	return subject, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps store and service errors to HTTP responses.
// Unknown errors become a 500 with "failed to <action>".
func writeServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrDuplicateUsername),
		errors.Is(err, store.ErrAlreadyExists),
		errors.Is(err, store.ErrInvalidTransition),
		errors.Is(err, store.ErrSlotConflict),
		errors.Is(err, store.ErrSlotLimit),
		errors.Is(err, store.ErrDateHasSlots):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "failed to "+action)
	}
}
