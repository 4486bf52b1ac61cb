package doctors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// Handler serves the admin doctor endpoints.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a new doctors handler
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// ListDoctorsResponse is the response for listing doctors
type ListDoctorsResponse struct {
	Doctors []*Doctor `json:"doctors"`
	Count   int       `json:"count"`
}

// List handles GET /admin/doctors
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list doctors", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list doctors")
		return
	}
	if list == nil {
		list = []*Doctor{}
	}
	writeJSON(w, http.StatusOK, ListDoctorsResponse{Doctors: list, Count: len(list)})
}

// Get handles GET /admin/doctors/{doctorID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Get(r.Context(), chi.URLParam(r, "doctorID"))
	if err != nil {
		h.fail(w, err, "failed to load doctor")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Create handles POST /admin/doctors
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	d, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.fail(w, err, "failed to create doctor")
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// Update handles PUT /admin/doctors/{doctorID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	d, err := h.svc.Update(r.Context(), chi.URLParam(r, "doctorID"), in)
	if err != nil {
		h.fail(w, err, "failed to update doctor")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ToggleActive handles POST /admin/doctors/{doctorID}/toggle-active
func (h *Handler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.ToggleActive(r.Context(), chi.URLParam(r, "doctorID"))
	if err != nil {
		h.fail(w, err, "failed to toggle doctor")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Delete handles DELETE /admin/doctors/{doctorID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Delete(r.Context(), chi.URLParam(r, "doctorID"))
	if err != nil {
		h.fail(w, err, "failed to delete doctor")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) fail(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "Doctor not found")
	case errors.Is(err, ErrInvalidName), errors.Is(err, ErrInvalidTimezone), errors.Is(err, ErrInvalidSlotLength):
		writeError(w, http.StatusBadRequest, err.Error())
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
