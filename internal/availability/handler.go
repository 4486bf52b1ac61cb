package availability

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// Handler serves the admin availability endpoints.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// ListRules handles GET /admin/doctors/{doctorID}/rules
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.svc.ListRules(r.Context(), chi.URLParam(r, "doctorID"))
	if err != nil {
		h.fail(w, err, "failed to list rules")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules, "count": len(rules)})
}

// CreateRule handles POST /admin/doctors/{doctorID}/rules
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var in RuleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	rule, err := h.svc.CreateRule(r.Context(), chi.URLParam(r, "doctorID"), in)
	if err != nil {
		h.fail(w, err, "failed to create rule")
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

// UpdateRule handles PUT /admin/rules/{ruleID}
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	var in RuleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	rule, err := h.svc.UpdateRule(r.Context(), chi.URLParam(r, "ruleID"), in)
	if err != nil {
		h.fail(w, err, "failed to update rule")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// DeleteRule handles DELETE /admin/rules/{ruleID}
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteRule(r.Context(), chi.URLParam(r, "ruleID")); err != nil {
		h.fail(w, err, "failed to delete rule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListExceptions handles GET /admin/doctors/{doctorID}/exceptions
func (h *Handler) ListExceptions(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListExceptions(r.Context(), chi.URLParam(r, "doctorID"))
	if err != nil {
		h.fail(w, err, "failed to list exceptions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exceptions": list, "count": len(list)})
}

// CreateException handles POST /admin/doctors/{doctorID}/exceptions
func (h *Handler) CreateException(w http.ResponseWriter, r *http.Request) {
	var in ExceptionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	e, err := h.svc.CreateException(r.Context(), chi.URLParam(r, "doctorID"), in)
	if err != nil {
		h.fail(w, err, "failed to create exception")
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// UpdateException handles PUT /admin/exceptions/{exceptionID}
func (h *Handler) UpdateException(w http.ResponseWriter, r *http.Request) {
	var in ExceptionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	e, err := h.svc.UpdateException(r.Context(), chi.URLParam(r, "exceptionID"), in)
	if err != nil {
		h.fail(w, err, "failed to update exception")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// DeleteException handles DELETE /admin/exceptions/{exceptionID}
func (h *Handler) DeleteException(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteException(r.Context(), chi.URLParam(r, "exceptionID")); err != nil {
		h.fail(w, err, "failed to delete exception")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// WeeklySchedule handles GET /admin/doctors/{doctorID}/schedule
func (h *Handler) WeeklySchedule(w http.ResponseWriter, r *http.Request) {
	grid, err := h.svc.WeeklyGrid(r.Context(), chi.URLParam(r, "doctorID"))
	if err != nil {
		h.fail(w, err, "failed to build schedule")
		return
	}
	writeJSON(w, http.StatusOK, grid)
}

func (h *Handler) fail(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "Doctor not found")
	case errors.Is(err, ErrRuleNotFound), errors.Is(err, ErrExceptionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidRecurrence), errors.Is(err, ErrInvalidDayOfWeek),
		errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidTimeRange):
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
