package handlers

import (
	"errors"
	"net/http"

	"github.com/bayni/apiserver/internal/services"
	"github.com/bayni/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
)

// UserHandler provides HTTP handlers for profiles and the device session.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers profile routes. All of them require authentication.
func UserRouter(r chi.Router, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewUserHandler(userService)

	r.Use(authMiddleware)
	r.Put("/me", handler.UpdateMe)
	r.Put("/me/password", handler.ChangePassword)
	r.Delete("/me", handler.DeleteMe)
	r.Get("/{username}", handler.GetUser)
}

// Session returns the user of the device session, or 404 when nobody is
// logged in.
func (h *UserHandler) Session(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Session(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no active session")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req services.ProfileInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, err, "update profile")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req services.PasswordInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.userService.ChangePassword(r.Context(), userID, req); err != nil {
		writeServiceError(w, err, "change password")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteMe removes the account. The device session ends with it.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.userService.DeleteAccount(r.Context(), userID); err != nil {
		writeServiceError(w, err, "delete account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
