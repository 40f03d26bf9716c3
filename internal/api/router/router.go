// Package router assembles the HTTP surface: widget delivery, the chat
// endpoints, public business lookups, the magic-link flow and the admin API.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vitrineapp/vitrine-ai-platform/internal/auth"
	"github.com/vitrineapp/vitrine-ai-platform/internal/bookings"
	"github.com/vitrineapp/vitrine-ai-platform/internal/business"
	"github.com/vitrineapp/vitrine-ai-platform/internal/chat"
	httpmiddleware "github.com/vitrineapp/vitrine-ai-platform/internal/http/middleware"
	"github.com/vitrineapp/vitrine-ai-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger          *logging.Logger
	ChatHandler     *chat.Handler
	BusinessHandler *business.Handler
	AuthHandler     *auth.Handler
	StatsHandler    *bookings.StatsHandler
	MetricsHandler  http.Handler

	AdminToken         string
	CORSAllowedOrigins []string

	// Per-IP rate limit on the chat endpoint; zero disables limiting.
	ChatRateLimit float64
	ChatRateBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Widget and chat routes answer any origin: the widget embeds on
	// arbitrary customer sites.
	r.Group(func(widget chi.Router) {
		widget.Use(httpmiddleware.CORS([]string{"*"}))
		if cfg.ChatHandler != nil {
			widget.Get("/widget.js", cfg.ChatHandler.HandleWidgetJS)
			widget.Get("/webchat/ws", cfg.ChatHandler.HandleWebSocket)
			if cfg.ChatRateLimit > 0 {
				widget.With(httpmiddleware.RateLimit(cfg.ChatRateLimit, cfg.ChatRateBurst)).
					Post("/webchat/message", cfg.ChatHandler.HandleMessage)
			} else {
				widget.Post("/webchat/message", cfg.ChatHandler.HandleMessage)
			}
		}
	})

	// Everything else runs behind the configured allowlist.
	r.Group(func(api chi.Router) {
		if len(cfg.CORSAllowedOrigins) > 0 {
			api.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
		}

		api.Get("/health", handleHealth)
		if cfg.MetricsHandler != nil {
			api.Handle("/metrics", cfg.MetricsHandler)
		}

		if cfg.BusinessHandler != nil {
			api.Get("/businesses/{slug}", cfg.BusinessHandler.GetPublic)
		}

		if cfg.AuthHandler != nil {
			api.Post("/auth/magic-link", cfg.AuthHandler.RequestLink)
			api.Get("/auth/verify", cfg.AuthHandler.Verify)
		}

		// Admin routes (protected by the shared admin token)
		api.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminToken(cfg.AdminToken))
			if cfg.BusinessHandler != nil {
				admin.Get("/businesses", cfg.BusinessHandler.List)
				admin.Put("/businesses/{slug}", cfg.BusinessHandler.Upsert)
				admin.Get("/businesses/{slug}", cfg.BusinessHandler.GetAdmin)
			}
			if cfg.StatsHandler != nil {
				admin.Get("/businesses/{slug}/stats", cfg.StatsHandler.GetStats)
				admin.Get("/businesses/{slug}/bookings", cfg.StatsHandler.ListRecent)
			}
		})
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
