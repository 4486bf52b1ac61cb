package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

var clientMessages = map[error]string{
	ErrMissingFields:       "Missing required fields",
	ErrInvalidPhone:        "Invalid phone number length",
	ErrDoctorNotFound:      "Doctor not found",
	ErrDoctorInactive:      "Doctor is not accepting appointments",
	ErrInvalidDateTime:     "Invalid date or time format",
	ErrTooSoon:             "Booking must be at least 1 hour in advance",
	ErrTooFar:              "Booking cannot be more than 90 days in advance",
	ErrSlotTaken:           "Time slot already booked",
	ErrAppointmentNotFound: "Appointment not found",
	ErrInvalidStatus:       "Invalid status",
}

// ClientMessage returns the caller-facing message for a booking error, or
// false when err is not one the caller may see.
func ClientMessage(err error) (string, bool) {
	for sentinel, msg := range clientMessages {
		if errors.Is(err, sentinel) {
			return msg, true
		}
	}
	return "", false
}

// NameResolver fills in doctor names for list responses.
type NameResolver interface {
	DoctorName(ctx context.Context, doctorID string) string
}

// Handler serves the admin appointment endpoints.
type Handler struct {
	svc    *Service
	names  NameResolver
	logger *logging.Logger
}

// NewHandler creates a new appointments handler. names may be nil.
func NewHandler(svc *Service, names NameResolver, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, names: names, logger: logger}
}

// ListAppointmentsResponse is the response for listing appointments
type ListAppointmentsResponse struct {
	Appointments []*Appointment `json:"appointments"`
	Count        int            `json:"count"`
}

// List handles GET /admin/appointments
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Status:   Status(strings.ToLower(strings.TrimSpace(q.Get("status")))),
		Date:     strings.TrimSpace(q.Get("date")),
		DoctorID: strings.TrimSpace(q.Get("doctor_id")),
		Limit:    50,
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 && v <= 500 {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		filter.Offset = v
	}
	if filter.Date != "" {
		if _, err := ParseSlot(filter.Date, "00:00", nil); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date or time format")
			return
		}
	}

	list, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.fail(w, err, "failed to list appointments")
		return
	}
	h.respondList(w, r, list)
}

// Upcoming handles GET /admin/doctors/{doctorID}/appointments
func (h *Handler) Upcoming(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Upcoming(r.Context(), chi.URLParam(r, "doctorID"))
	if err != nil {
		h.fail(w, err, "failed to list upcoming appointments")
		return
	}
	h.respondList(w, r, list)
}

func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, list []*Appointment) {
	if list == nil {
		list = []*Appointment{}
	}
	if h.names != nil {
		for _, a := range list {
			if a.DoctorName == "" {
				a.DoctorName = h.names.DoctorName(r.Context(), a.DoctorID)
			}
		}
	}
	writeJSON(w, http.StatusOK, ListAppointmentsResponse{Appointments: list, Count: len(list)})
}

// Create handles POST /admin/appointments
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in ManualBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	a, err := h.svc.BookManual(r.Context(), in)
	if err != nil {
		h.fail(w, err, "failed to create appointment")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PUT /admin/appointments/{appointmentID}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	a, err := h.svc.SetStatus(r.Context(), chi.URLParam(r, "appointmentID"), Status(strings.ToLower(strings.TrimSpace(req.Status))))
	if err != nil {
		h.fail(w, err, "failed to update appointment")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Delete handles DELETE /admin/appointments/{appointmentID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "appointmentID")); err != nil {
		h.fail(w, err, "failed to delete appointment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, err error, fallback string) {
	msg, ok := ClientMessage(err)
	switch {
	case errors.Is(err, ErrAppointmentNotFound), errors.Is(err, ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, msg)
	case errors.Is(err, ErrSlotTaken):
		writeError(w, http.StatusConflict, msg)
	case ok:
		writeError(w, http.StatusBadRequest, msg)
	default:
		h.logger.Error(fallback, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "error", "message": message})
}
