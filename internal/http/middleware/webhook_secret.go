package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// RetellSecretHeader carries the shared secret on voice assistant webhooks.
const RetellSecretHeader = "X-Retell-Secret"

// SharedSecret rejects requests whose header does not match secret before the
// body is read. An empty secret rejects everything.
func SharedSecret(header, secret string) func(http.Handler) http.Handler {
	want := []byte(strings.TrimSpace(secret))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(header))
			if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
