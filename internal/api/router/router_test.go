package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/availability"
	"github.com/wolfman30/clinic-scheduler/internal/doctors"
	"github.com/wolfman30/clinic-scheduler/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-scheduler/internal/http/middleware"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

const (
	testWebhookSecret = "retell-test-secret"
	testStaffSecret   = "staff-test-secret"
)

var testNow = time.Date(2029, 12, 15, 9, 0, 0, 0, time.UTC)

type testStack struct {
	handler http.Handler
	appts   *appointments.InMemoryRepository
}

func newTestStack(t *testing.T, auth httpmiddleware.AuthConfig, db Pinger) *testStack {
	t.Helper()
	logger := logging.New("error")

	apptRepo := appointments.NewInMemoryRepository()
	availRepo := availability.NewInMemoryRepository()
	docRepo := doctors.NewInMemoryRepository(doctors.InMemoryCascade{
		DeleteRules:        availRepo.DeleteRulesByDoctor,
		DeleteExceptions:   availRepo.DeleteExceptionsByDoctor,
		CancelAppointments: apptRepo.CancelByDoctor,
	})
	apptRepo.GuardDoctors(docRepo.Hold)
	require.NoError(t, docRepo.Create(context.Background(), &doctors.Doctor{
		ID: "d1", FirstName: "Elif", LastName: "Demir", Timezone: "Europe/Istanbul", SlotLength: 15, Active: true,
	}))

	docSvc := doctors.NewService(docRepo, nil, logger)
	availSvc := availability.NewService(availRepo, docRepo, nil, logger)
	apptSvc := appointments.NewService(apptRepo, docRepo, nil, logger, appointments.Options{
		Now: func() time.Time { return testNow },
	})

	h := New(&Config{
		Logger:              logger,
		DB:                  db,
		RetellWebhooks:      handlers.NewRetellWebhookHandler(apptSvc, nil, nil, logger),
		RetellWebhookSecret: testWebhookSecret,
		Auth:                auth,
		Doctors:             doctors.NewHandler(docSvc, logger),
		Availability:        availability.NewHandler(availSvc, logger),
		Appointments:        appointments.NewHandler(apptSvc, nil, logger),
	})
	return &testStack{handler: h, appts: apptRepo}
}

func staffToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "front-desk",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testStaffSecret))
	require.NoError(t, err)
	return signed
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestRouterHealthEndpoint(t *testing.T) {
	stack := newTestStack(t, httpmiddleware.AuthConfig{}, nil)

	rr := httptest.NewRecorder()
	stack.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode(t, rr)["status"])
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return errors.New("connection refused") }

func TestRouterHealthReportsDatabase(t *testing.T) {
	stack := newTestStack(t, httpmiddleware.AuthConfig{}, failingPinger{})

	rr := httptest.NewRecorder()
	stack.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "degraded", decode(t, rr)["status"])
}

func TestRouterWebhookRequiresSecret(t *testing.T) {
	stack := newTestStack(t, httpmiddleware.AuthConfig{}, nil)
	body := `{"doctor_id":"d1","caller_number":"5551234567","requested_date":"2030-01-01","requested_time":"10:00"}`

	for _, secret := range []string{"", "wrong"} {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/retell/appointment", bytes.NewBufferString(body))
		if secret != "" {
			req.Header.Set(httpmiddleware.RetellSecretHeader, secret)
		}
		rr := httptest.NewRecorder()
		stack.handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Unauthorized", decode(t, rr)["error"])
	}
	recent, err := stack.appts.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestRouterWebhookBooksAndCancels(t *testing.T) {
	stack := newTestStack(t, httpmiddleware.AuthConfig{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/retell/appointment",
		bytes.NewBufferString(`{"doctor_id":"d1","caller_number":"5551234567","requested_date":"2030-01-01","requested_time":"10:00"}`))
	req.Header.Set(httpmiddleware.RetellSecretHeader, testWebhookSecret)
	rr := httptest.NewRecorder()
	stack.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	booked := decode(t, rr)
	assert.Equal(t, "accepted", booked["status"])
	assert.Equal(t, "2030-01-01", booked["booked_date"])
	assert.Equal(t, "10:00", booked["booked_time"])
	id, _ := booked["appointment_id"].(string)
	require.NotEmpty(t, id)

	req = httptest.NewRequest(http.MethodPost, "/webhooks/retell/cancel", bytes.NewBufferString(`{"appointment_id":"`+id+`"}`))
	req.Header.Set(httpmiddleware.RetellSecretHeader, testWebhookSecret)
	rr = httptest.NewRecorder()
	stack.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Appointment cancelled successfully", decode(t, rr)["message"])

	a, err := stack.appts.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusCancelled, a.Status)
}

func TestRouterWebhookRejectsGet(t *testing.T) {
	stack := newTestStack(t, httpmiddleware.AuthConfig{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/webhooks/retell/cancel", nil)
	req.Header.Set(httpmiddleware.RetellSecretHeader, testWebhookSecret)
	rr := httptest.NewRecorder()
	stack.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/webhooks/retell/appointment", nil)
	rr = httptest.NewRecorder()
	stack.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "Method not allowed", decode(t, rr)["message"])
}

func TestRouterAdminDisabledWithoutAuth(t *testing.T) {
	stack := newTestStack(t, httpmiddleware.AuthConfig{}, nil)

	rr := httptest.NewRecorder()
	stack.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/doctors", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Not found", decode(t, rr)["message"])
}

func TestRouterAdminRequiresToken(t *testing.T) {
	stack := newTestStack(t, httpmiddleware.AuthConfig{StaffSecret: testStaffSecret}, nil)

	rr := httptest.NewRecorder()
	stack.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/doctors", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouterAdminRoutes(t *testing.T) {
	stack := newTestStack(t, httpmiddleware.AuthConfig{StaffSecret: testStaffSecret}, nil)
	token := staffToken(t)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		} else {
			req = httptest.NewRequest(method, path, nil)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		stack.handler.ServeHTTP(rr, req)
		return rr
	}

	rr := do(http.MethodGet, "/admin/doctors", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(http.MethodGet, "/admin/doctors/d1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Elif", decode(t, rr)["first_name"])

	rr = do(http.MethodPost, "/admin/appointments",
		`{"doctor_id":"d1","patient_phone":"5551234567","appointment_date":"2029-12-15","appointment_time":"08:00"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(http.MethodGet, "/admin/appointments?doctor_id=d1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 1, decode(t, rr)["count"])

	rr = do(http.MethodGet, "/admin/doctors/d1/schedule", "")
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(http.MethodPost, "/admin/doctors/d1/toggle-active", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, decode(t, rr)["active"])

	rr = do(http.MethodDelete, "/admin/doctors/d1", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.EqualValues(t, 1, decode(t, rr)["appointments_cancelled"])

	rr = do(http.MethodGet, "/admin/doctors/d1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(http.MethodPatch, "/admin/doctors", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
