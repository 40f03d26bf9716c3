package middleware

import (
	"net/http"
	"strings"
)

// corsPolicy is the precomputed decision table for one CORS mounting.
type corsPolicy struct {
	allowAny bool
	origins  map[string]struct{}
}

func (p corsPolicy) allows(origin string) bool {
	if p.allowAny {
		return true
	}
	_, ok := p.origins[origin]
	return ok
}

// CORS answers cross-origin requests against an origin allowlist. A "*"
// entry allows every origin: the widget and webchat routes are mounted that
// way because the snippet embeds on arbitrary customer sites, while the rest
// of the API runs behind the configured list. The advertised headers and
// methods cover the admin surface (PUT upserts, X-Admin-Token) so a
// dashboard can call it from a browser.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	policy := corsPolicy{origins: map[string]struct{}{}}
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		switch {
		case origin == "":
		case origin == "*":
			policy.allowAny = true
		default:
			policy.origins[origin] = struct{}{}
		}
	}

	const (
		allowedHeaders = "Authorization, Content-Type, X-Admin-Token"
		allowedMethods = "GET, POST, PUT, OPTIONS"
		preflightAge   = "600"
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin != "" && policy.allows(origin) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Allow-Headers", allowedHeaders)
				h.Set("Access-Control-Allow-Methods", allowedMethods)
				h.Set("Access-Control-Max-Age", preflightAge)
			}

			if r.Method == http.MethodOptions && origin != "" && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
