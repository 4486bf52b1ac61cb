package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowMethods(t *testing.T) {
	var called bool
	h := AllowMethods(http.MethodPost)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/webhooks/retell/appointment", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.False(t, called)
	assert.Equal(t, "POST", rr.Header().Get("Allow"))
	var body map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Method not allowed", body["message"])

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhooks/retell/appointment", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.True(t, called)
}
