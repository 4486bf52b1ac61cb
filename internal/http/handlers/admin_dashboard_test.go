package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

type fixedRecent []*appointments.Appointment

func (f fixedRecent) Recent(_ context.Context, limit int) ([]*appointments.Appointment, error) {
	if len(f) > limit {
		return f[:limit], nil
	}
	return f, nil
}

type mapNames map[string]string

func (m mapNames) DoctorName(_ context.Context, id string) string { return m[id] }

func TestGetOverview(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reg := prometheus.NewRegistry()
	metrics.NewWebhookMetrics(reg).Observe("appointment", "accepted", 0.1)

	ist, err := time.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)
	recent := fixedRecent{{ID: "a1", DoctorID: "d1"}, {ID: "a2", DoctorID: "d2", DoctorName: "Known"}}
	h := NewAdminDashboardHandler(db, recent, mapNames{"d1": "Elif Demir"}, reg, ist, logging.Default())
	h.now = func() time.Time { return time.Date(2030, 1, 1, 22, 30, 0, 0, time.UTC) }

	mock.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(\*\) FILTER \(WHERE active\) FROM doctors`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "active"}).AddRow(3, 2))
	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM appointments GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("scheduled", 4).AddRow("cancelled", 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM appointments WHERE status <> 'cancelled'`).
		WithArgs("2030-01-02").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	rec := httptest.NewRecorder()
	h.GetOverview(rec, httptest.NewRequest(http.MethodGet, "/admin/overview", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DashboardOverviewResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, DoctorTotals{Total: 3, Active: 2}, resp.Doctors)
	assert.Equal(t, 5, resp.Appointments.Total)
	assert.Equal(t, 2, resp.Appointments.Today)
	assert.Equal(t, map[string]int{"scheduled": 4, "cancelled": 1}, resp.Appointments.ByStatus)
	require.Len(t, resp.Recent, 2)
	assert.Equal(t, "Elif Demir", resp.Recent[0].DoctorName)
	assert.Equal(t, "Known", resp.Recent[1].DoctorName)
	assert.Equal(t, []metrics.WebhookCount{{Endpoint: "appointment", Outcome: "accepted", Count: 1}}, resp.Webhooks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOverviewDatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h := NewAdminDashboardHandler(db, nil, nil, nil, nil, nil)
	mock.ExpectQuery("FROM doctors").WillReturnError(errors.New("connection reset"))

	rec := httptest.NewRecorder()
	h.GetOverview(rec, httptest.NewRequest(http.MethodGet, "/admin/overview", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}
