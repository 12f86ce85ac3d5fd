package handlers

import (
	"net/http"

	"github.com/bayni/apiserver/internal/services"
	"github.com/bayni/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// ScheduleHandler provides HTTP handlers for doctors and their calendars.
type ScheduleHandler struct {
	scheduleService *services.ScheduleService
	userService     *services.UserService
}

func NewScheduleHandler(scheduleService *services.ScheduleService, userService *services.UserService) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleService: scheduleService,
		userService:     userService,
	}
}

// DoctorRouter registers the public doctor directory and calendar routes.
func DoctorRouter(r chi.Router, scheduleService *services.ScheduleService, userService *services.UserService) {
	handler := NewScheduleHandler(scheduleService, userService)

	r.Get("/", handler.ListDoctors)
	r.Route("/{doctorID}", func(r chi.Router) {
		r.Get("/calendar", handler.GetCalendar)
		r.Get("/slots", handler.ListSlots)
	})
}

// ScheduleRouter registers the routes a doctor uses to manage their own
// calendar. All of them require authentication.
func ScheduleRouter(r chi.Router, scheduleService *services.ScheduleService, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewScheduleHandler(scheduleService, userService)

	r.Use(authMiddleware)
	r.Post("/availability/{date}", handler.ToggleDate)
	r.Post("/slots", handler.CreateSlot)
	r.Delete("/slots/{slotID}", handler.DeleteSlot)
}

func (h *ScheduleHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.userService.ListDoctors(r.Context())
	if err != nil {
		writeServiceError(w, err, "list doctors")
		return
	}
	writeJSON(w, http.StatusOK, DoctorListResponse{Items: doctors})
}

// GetCalendar returns the month grid for ?month=YYYY-MM.
func (h *ScheduleHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	days, err := h.scheduleService.Calendar(r.Context(), chi.URLParam(r, "doctorID"), r.URL.Query().Get("month"))
	if err != nil {
		writeServiceError(w, err, "load calendar")
		return
	}
	writeJSON(w, http.StatusOK, CalendarResponse{Days: days})
}

// ListSlots returns the doctor's slots on ?date=YYYY-MM-DD, or all of them.
func (h *ScheduleHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.scheduleService.Slots(r.Context(), chi.URLParam(r, "doctorID"), r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, err, "list slots")
		return
	}
	writeJSON(w, http.StatusOK, SlotListResponse{Items: slots})
}

func (h *ScheduleHandler) ToggleDate(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	date := chi.URLParam(r, "date")
	available, err := h.scheduleService.ToggleDate(r.Context(), userID, date)
	if err != nil {
		writeServiceError(w, err, "update availability")
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{Date: date, Available: available})
}

func (h *ScheduleHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req services.SlotInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	slot, err := h.scheduleService.AddSlot(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, err, "create slot")
		return
	}
	writeJSON(w, http.StatusCreated, slot)
}

func (h *ScheduleHandler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.scheduleService.RemoveSlot(r.Context(), userID, chi.URLParam(r, "slotID")); err != nil {
		writeServiceError(w, err, "delete slot")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type DoctorListResponse struct {
	Items []types.User `json:"items"`
}

type CalendarResponse struct {
	Days []types.CalendarDay `json:"days"`
}

type SlotListResponse struct {
	Items []types.Schedule `json:"items"`
}

type AvailabilityResponse struct {
	Date      string `json:"date"`
	Available bool   `json:"available"`
}
