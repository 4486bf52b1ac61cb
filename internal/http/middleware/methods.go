package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
)

// AllowMethods answers 405 in the JSON error envelope for any other method,
// ahead of authentication and rate limiting.
func AllowMethods(methods ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		allowed[strings.ToUpper(m)] = struct{}{}
	}
	allow := strings.Join(methods, ", ")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := allowed[r.Method]; !ok {
				w.Header().Set("Allow", allow)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusMethodNotAllowed)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": "Method not allowed"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
