package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/vitrineapp/vitrine-ai-platform/pkg/logging"
)

// Handler serves the widget-facing chat endpoints.
type Handler struct {
	engine *Engine
	logger *logging.Logger
}

func NewHandler(engine *Engine, logger *logging.Logger) *Handler {
	if engine == nil {
		panic("chat: engine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		engine: engine,
		logger: logger,
	}
}

// HandleMessage handles POST /webchat/message.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.engine.HandleMessage(r.Context(), req)
	if err != nil {
		h.respondEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) respondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrMissingField) {
		writeJSONError(w, http.StatusBadRequest, "business_slug and message are required")
		return
	}

	ref := middleware.GetReqID(r.Context())
	if errors.Is(err, ErrDispatchFailed) {
		h.logger.Error("booking dispatch failed", "ref", ref, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "Désolé, nous n'avons pas pu transmettre votre demande. Merci de réessayer dans un instant.",
			"ref":   ref,
		})
		return
	}

	h.logger.Error("chat message failed", "ref", ref, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "Désolé, une erreur est survenue. Merci de réessayer.",
		"ref":   ref,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
