package handlers

import (
	"net/http"

	"github.com/bayni/apiserver/internal/services"
	"github.com/bayni/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// ConsultationHandler provides HTTP handlers for consultation requests.
type ConsultationHandler struct {
	consultationService *services.ConsultationService
}

func NewConsultationHandler(consultationService *services.ConsultationService) *ConsultationHandler {
	return &ConsultationHandler{consultationService: consultationService}
}

// ConsultationRouter registers consultation routes. All of them require
// authentication.
func ConsultationRouter(r chi.Router, consultationService *services.ConsultationService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewConsultationHandler(consultationService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListConsultations)
	r.Post("/", handler.CreateConsultation)
	r.Route("/{consultationID}", func(r chi.Router) {
		r.Post("/answer", handler.AnswerConsultation)
		r.Post("/close", handler.CloseConsultation)
	})
}

// ListConsultations returns the caller's consultations, or all of them for
// a doctor. ?status= narrows the list.
func (h *ConsultationHandler) ListConsultations(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	status := types.ConsultationStatus(r.URL.Query().Get("status"))
	items, err := h.consultationService.List(r.Context(), userID, status)
	if err != nil {
		writeServiceError(w, err, "list consultations")
		return
	}
	writeJSON(w, http.StatusOK, ConsultationListResponse{Items: items})
}

func (h *ConsultationHandler) CreateConsultation(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req services.ConsultationInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	c, err := h.consultationService.Submit(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, err, "create consultation")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ConsultationHandler) AnswerConsultation(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AnswerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	c, err := h.consultationService.Answer(r.Context(), userID, chi.URLParam(r, "consultationID"), req.Answer)
	if err != nil {
		writeServiceError(w, err, "answer consultation")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ConsultationHandler) CloseConsultation(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	c, err := h.consultationService.Close(r.Context(), userID, chi.URLParam(r, "consultationID"))
	if err != nil {
		writeServiceError(w, err, "close consultation")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type AnswerRequest struct {
	Answer string `json:"answer"`
}

// ConsultationListResponse wraps a consultation list.
type ConsultationListResponse struct {
	Items []types.Consultation `json:"items"`
}
