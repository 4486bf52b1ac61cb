package doctors

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() (chi.Router, *Service) {
	svc := NewService(NewInMemoryRepository(InMemoryCascade{}), nil, nil)
	r := chi.NewRouter()
	h := NewHandler(svc, nil)
	r.Get("/admin/doctors", h.List)
	r.Post("/admin/doctors", h.Create)
	r.Get("/admin/doctors/{doctorID}", h.Get)
	r.Delete("/admin/doctors/{doctorID}", h.Delete)
	return r, svc
}

func TestHandlerCreateAndGet(t *testing.T) {
	r, _ := newTestRouter()

	body, _ := json.Marshal(map[string]any{"first_name": "Elif", "last_name": "Demir", "specialty": "Cardiology"})
	req := httptest.NewRequest(http.MethodPost, "/admin/doctors", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created Doctor
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "Cardiology", created.Specialty)

	req = httptest.NewRequest(http.MethodGet, "/admin/doctors/"+created.ID, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerUnknownDoctor(t *testing.T) {
	_, svc := newTestRouter()
	h := NewHandler(svc, nil)

	req := httptest.NewRequest(http.MethodDelete, "/admin/doctors/ghost", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("doctorID", "ghost")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Doctor not found", resp["message"])
}

func TestHandlerRejectsInvalidInput(t *testing.T) {
	r, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/admin/doctors", bytes.NewReader([]byte(`{"first_name":""}`)))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/admin/doctors", bytes.NewReader([]byte(`{`)))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerListEmpty(t *testing.T) {
	r, _ := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/admin/doctors", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"doctors":[],"count":0}`, rec.Body.String())
}
