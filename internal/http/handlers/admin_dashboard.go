package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

const recentAppointmentsLimit = 5

// RecentAppointments lists the newest bookings for the overview.
type RecentAppointments interface {
	Recent(ctx context.Context, limit int) ([]*appointments.Appointment, error)
}

// DoctorNames resolves doctor display names, normally through the dashboard cache.
type DoctorNames interface {
	DoctorName(ctx context.Context, doctorID string) string
}

// AdminDashboardHandler serves the dashboard overview.
type AdminDashboardHandler struct {
	db       *sql.DB
	recent   RecentAppointments
	names    DoctorNames
	gatherer prometheus.Gatherer
	loc      *time.Location
	now      func() time.Time
	logger   *logging.Logger
}

// NewAdminDashboardHandler creates a new admin dashboard handler. Today's
// count is computed in loc.
func NewAdminDashboardHandler(db *sql.DB, recent RecentAppointments, names DoctorNames, gatherer prometheus.Gatherer, loc *time.Location, logger *logging.Logger) *AdminDashboardHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AdminDashboardHandler{
		db:       db,
		recent:   recent,
		names:    names,
		gatherer: gatherer,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
	}
}

// DashboardOverviewResponse contains the main dashboard metrics.
type DashboardOverviewResponse struct {
	Doctors      DoctorTotals                `json:"doctors"`
	Appointments AppointmentTotals           `json:"appointments"`
	Recent       []*appointments.Appointment `json:"recent_appointments"`
	Webhooks     []metrics.WebhookCount      `json:"webhooks"`
	GeneratedAt  time.Time                   `json:"generated_at"`
}

type DoctorTotals struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

type AppointmentTotals struct {
	Total    int            `json:"total"`
	Today    int            `json:"today"`
	ByStatus map[string]int `json:"by_status"`
}

// GetOverview handles GET /admin/overview
func (h *AdminDashboardHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := DashboardOverviewResponse{
		Appointments: AppointmentTotals{ByStatus: map[string]int{}},
		Recent:       []*appointments.Appointment{},
		Webhooks:     []metrics.WebhookCount{},
		GeneratedAt:  h.now().UTC(),
	}

	if err := h.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE active)
		FROM doctors
	`).Scan(&resp.Doctors.Total, &resp.Doctors.Active); err != nil {
		h.logger.Error("failed to count doctors", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load overview")
		return
	}

	rows, err := h.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM appointments GROUP BY status`)
	if err != nil {
		h.logger.Error("failed to count appointments", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load overview")
		return
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			h.logger.Error("failed to scan appointment counts", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load overview")
			return
		}
		resp.Appointments.ByStatus[status] = count
		resp.Appointments.Total += count
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("failed to read appointment counts", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load overview")
		return
	}

	today := h.now().In(h.loc).Format("2006-01-02")
	if err := h.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM appointments
		WHERE status <> 'cancelled'
		  AND (scheduled_at AT TIME ZONE timezone)::date = $1::date
	`, today).Scan(&resp.Appointments.Today); err != nil {
		h.logger.Error("failed to count today's appointments", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load overview")
		return
	}

	if h.recent != nil {
		list, err := h.recent.Recent(ctx, recentAppointmentsLimit)
		if err != nil {
			h.logger.Warn("failed to load recent appointments", "error", err)
		} else if list != nil {
			for _, a := range list {
				if a.DoctorName == "" && h.names != nil {
					a.DoctorName = h.names.DoctorName(ctx, a.DoctorID)
				}
			}
			resp.Recent = list
		}
	}

	if h.gatherer != nil {
		snap, err := metrics.WebhookSnapshot(h.gatherer)
		if err != nil {
			h.logger.Warn("failed to gather webhook metrics", "error", err)
		} else {
			resp.Webhooks = snap
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "error", "message": message})
}
