package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/vitrineapp/vitrine-ai-platform/internal/business"
	"github.com/vitrineapp/vitrine-ai-platform/pkg/logging"
)

// Handler exposes the magic-link HTTP endpoints.
type Handler struct {
	links         *MagicLink
	businesses    business.Repository
	publicBaseURL string
	dashboardURL  string
	logger        *logging.Logger
}

// NewHandler creates the auth handler. publicBaseURL is the externally
// reachable base of this API (used to build verify links); dashboardURL is
// where verified owners are redirected, or empty to render a confirmation
// page instead.
func NewHandler(links *MagicLink, businesses business.Repository, publicBaseURL, dashboardURL string, logger *logging.Logger) *Handler {
	if links == nil {
		panic("auth: links cannot be nil")
	}
	if businesses == nil {
		panic("auth: businesses cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		links:         links,
		businesses:    businesses,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		dashboardURL:  dashboardURL,
		logger:        logger.Component("auth"),
	}
}

// RequestLinkPayload is the POST /auth/magic-link request body.
type RequestLinkPayload struct {
	Email        string `json:"email"`
	BusinessSlug string `json:"business_slug"`
}

// RequestLink handles POST /auth/magic-link. It validates the email shape
// and the business, then returns the verify URL directly in the response.
func (h *Handler) RequestLink(w http.ResponseWriter, r *http.Request) {
	var req RequestLinkPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		writeJSONError(w, http.StatusBadRequest, "invalid email format")
		return
	}
	slug := strings.TrimSpace(req.BusinessSlug)
	if slug == "" {
		writeJSONError(w, http.StatusBadRequest, "business_slug is required")
		return
	}

	if _, err := h.businesses.GetBySlug(r.Context(), slug); err != nil {
		if errors.Is(err, business.ErrBusinessNotFound) {
			writeJSONError(w, http.StatusNotFound, "business not found")
			return
		}
		ref := middleware.GetReqID(r.Context())
		h.logger.Error("business lookup failed", "slug", slug, "ref", ref, "error", err)
		writeJSONError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	token, err := h.links.Issue(email, slug)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			writeJSONError(w, http.StatusServiceUnavailable, "sign-in is not configured")
			return
		}
		ref := middleware.GetReqID(r.Context())
		h.logger.Error("magic-link issue failed", "slug", slug, "ref", ref, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "could not issue link")
		return
	}

	h.logger.Info("magic link issued", "business_slug", slug)
	writeJSON(w, http.StatusOK, map[string]string{
		"verify_url": fmt.Sprintf("%s/auth/verify?token=%s", h.publicBaseURL, url.QueryEscape(token)),
	})
}

// Verify handles GET /auth/verify. A valid token redirects to the dashboard
// when one is configured, otherwise renders a minimal confirmation page.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		writeJSONError(w, http.StatusBadRequest, "token is required")
		return
	}

	email, slug, err := h.links.Verify(tokenString)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			writeJSONError(w, http.StatusServiceUnavailable, "sign-in is not configured")
			return
		}
		writeJSONError(w, http.StatusUnauthorized, "invalid or expired link")
		return
	}

	h.logger.Info("magic link verified", "business_slug", slug)

	if h.dashboardURL != "" {
		http.Redirect(w, r, dashboardRedirect(h.dashboardURL, slug), http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, verifiedPage, html.EscapeString(email), html.EscapeString(slug))
}

// dashboardRedirect appends the business slug to the dashboard URL,
// preserving any query it already carries.
func dashboardRedirect(dashboard, slug string) string {
	u, err := url.Parse(dashboard)
	if err != nil {
		return dashboard
	}
	q := u.Query()
	q.Set("business", slug)
	u.RawQuery = q.Encode()
	return u.String()
}

const verifiedPage = `<!DOCTYPE html>
<html lang="fr">
<head><meta charset="utf-8"><title>Connexion confirmée</title></head>
<body>
<h1>Connexion confirmée</h1>
<p>Adresse vérifiée : %s</p>
<p>Établissement : %s</p>
</body>
</html>
`

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
