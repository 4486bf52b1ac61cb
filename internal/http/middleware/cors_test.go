package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	cases := []struct {
		name       string
		origins    []string
		origin     string
		method     string
		preflight  bool
		wantAllow  string
		wantStatus int
		wantCalled bool
	}{
		{name: "listed origin", origins: []string{"https://admin.example.com/"}, origin: "https://admin.example.com", method: http.MethodGet, wantAllow: "https://admin.example.com", wantStatus: http.StatusOK, wantCalled: true},
		{name: "unknown origin", origins: []string{"https://admin.example.com"}, origin: "https://evil.example.com", method: http.MethodGet, wantStatus: http.StatusOK, wantCalled: true},
		{name: "wildcard", origins: []string{"*"}, origin: "https://any.example.com", method: http.MethodGet, wantAllow: "https://any.example.com", wantStatus: http.StatusOK, wantCalled: true},
		{name: "preflight", origins: []string{"https://admin.example.com"}, origin: "https://admin.example.com", method: http.MethodOptions, preflight: true, wantAllow: "https://admin.example.com", wantStatus: http.StatusNoContent},
		{name: "no origin", origins: []string{"*"}, method: http.MethodGet, wantStatus: http.StatusOK, wantCalled: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			h := CORS(tc.origins)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(tc.method, "/admin/overview", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPut)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantCalled, called)
			assert.Equal(t, tc.wantAllow, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
