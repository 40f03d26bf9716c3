package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AdminToken guards admin endpoints with a static shared token, presented
// either as a Bearer credential or in the X-Admin-Token header. An empty
// configured token disables admin access entirely.
func AdminToken(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 {
				http.Error(w, "admin auth disabled", http.StatusUnauthorized)
				return
			}
			presented := r.Header.Get("X-Admin-Token")
			if presented == "" {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
					presented = strings.TrimPrefix(auth, "Bearer ")
				}
			}
			if presented == "" {
				http.Error(w, "missing admin token", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(presented), expected) != 1 {
				http.Error(w, "invalid admin token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
