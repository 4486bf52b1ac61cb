package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/archive"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

const maxWebhookBody = 1 << 20

// Booker is the part of the appointments service the webhooks drive.
type Booker interface {
	Book(ctx context.Context, req appointments.BookingRequest) (*appointments.Appointment, error)
	Cancel(ctx context.Context, id, reason string) (*appointments.Appointment, error)
}

// PayloadArchiver keeps a copy of each raw delivery.
type PayloadArchiver interface {
	Put(ctx context.Context, id string, rec archive.Record) (string, error)
}

// RetellWebhookHandler receives booking and cancellation calls from the voice
// assistant. The shared secret is checked by middleware before these run.
type RetellWebhookHandler struct {
	booker   Booker
	archiver PayloadArchiver
	metrics  *metrics.WebhookMetrics
	logger   *logging.Logger
}

func NewRetellWebhookHandler(booker Booker, archiver PayloadArchiver, m *metrics.WebhookMetrics, logger *logging.Logger) *RetellWebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &RetellWebhookHandler{booker: booker, archiver: archiver, metrics: m, logger: logger}
}

type retellAppointmentRequest struct {
	DoctorID         string `json:"doctor_id"`
	CallerNumber     string `json:"caller_number"`
	PatientFirstName string `json:"patient_first_name"`
	PatientLastName  string `json:"patient_last_name"`
	PatientTCNumber  string `json:"patient_tc_number"`
	RequestedDate    string `json:"requested_date"`
	RequestedTime    string `json:"requested_time"`
}

// RetellAppointmentResponse is returned when a slot is booked.
type RetellAppointmentResponse struct {
	Status        string `json:"status"`
	AppointmentID string `json:"appointment_id"`
	BookedDate    string `json:"booked_date"`
	BookedTime    string `json:"booked_time"`
}

type retellCancelRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

// HandleAppointment handles POST /webhooks/retell/appointment
func (h *RetellWebhookHandler) HandleAppointment(w http.ResponseWriter, r *http.Request) {
	const endpoint = "appointment"
	start := time.Now()
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.finish(r, endpoint, "bad_request", body, start)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	var req retellAppointmentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.finish(r, endpoint, "bad_request", body, start)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.DoctorID) == "" || strings.TrimSpace(req.CallerNumber) == "" ||
		strings.TrimSpace(req.RequestedDate) == "" || strings.TrimSpace(req.RequestedTime) == "" {
		h.finish(r, endpoint, outcomeFor(appointments.ErrMissingFields), body, start)
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	appt, err := h.booker.Book(r.Context(), appointments.BookingRequest{
		DoctorID:         req.DoctorID,
		Phone:            req.CallerNumber,
		Date:             req.RequestedDate,
		Time:             req.RequestedTime,
		PatientFirstName: req.PatientFirstName,
		PatientLastName:  req.PatientLastName,
		PatientTCNumber:  req.PatientTCNumber,
		Source:           appointments.SourceWebhook,
		RawPayload:       json.RawMessage(body),
	})
	h.finish(r, endpoint, outcomeFor(err), body, start)
	if err != nil {
		if msg, ok := appointments.ClientMessage(err); ok {
			h.logger.Info("retell booking rejected", "doctor_id", req.DoctorID, "reason", msg)
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		h.logger.Error("retell booking failed", "error", err, "doctor_id", req.DoctorID, "request_id", chimw.GetReqID(r.Context()))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, RetellAppointmentResponse{
		Status:        "accepted",
		AppointmentID: appt.ID,
		BookedDate:    req.RequestedDate,
		BookedTime:    req.RequestedTime,
	})
}

// HandleCancel handles POST /webhooks/retell/cancel
func (h *RetellWebhookHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	const endpoint = "cancel"
	start := time.Now()
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	var req retellCancelRequest
	if err == nil {
		err = json.Unmarshal(body, &req)
	}
	if err != nil {
		h.finish(r, endpoint, "bad_request", body, start)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.AppointmentID) == "" {
		h.finish(r, endpoint, "missing_fields", body, start)
		writeError(w, http.StatusBadRequest, "Missing appointment ID")
		return
	}

	_, err = h.booker.Cancel(r.Context(), strings.TrimSpace(req.AppointmentID), req.Reason)
	h.finish(r, endpoint, outcomeFor(err), body, start)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "success",
			"message": "Appointment cancelled successfully",
		})
	case errors.Is(err, appointments.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "Appointment not found")
	default:
		h.logger.Error("retell cancellation failed", "error", err, "appointment_id", req.AppointmentID)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// finish records metrics and archives the payload. Archive failures are logged only.
func (h *RetellWebhookHandler) finish(r *http.Request, endpoint, outcome string, body []byte, start time.Time) {
	h.metrics.Observe(endpoint, outcome, time.Since(start).Seconds())
	if h.archiver == nil {
		return
	}
	id := chimw.GetReqID(r.Context())
	if id == "" {
		id = uuid.NewString()
	}
	id = strings.NewReplacer("/", "-", " ", "-").Replace(id)
	if _, err := h.archiver.Put(r.Context(), id, archive.Record{
		Endpoint:  endpoint,
		RequestID: id,
		Outcome:   outcome,
		Payload:   json.RawMessage(body),
	}); err != nil {
		h.logger.Warn("failed to archive webhook payload", "error", err, "endpoint", endpoint)
	}
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, appointments.ErrMissingFields):
		return "missing_fields"
	case errors.Is(err, appointments.ErrInvalidPhone):
		return "invalid_phone"
	case errors.Is(err, appointments.ErrDoctorNotFound), errors.Is(err, appointments.ErrDoctorInactive):
		return "doctor_unavailable"
	case errors.Is(err, appointments.ErrInvalidDateTime):
		return "invalid_datetime"
	case errors.Is(err, appointments.ErrTooSoon), errors.Is(err, appointments.ErrTooFar):
		return "outside_window"
	case errors.Is(err, appointments.ErrSlotTaken):
		return "slot_taken"
	case errors.Is(err, appointments.ErrAppointmentNotFound):
		return "not_found"
	}
	return "error"
}
