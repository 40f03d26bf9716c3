package chat

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"
)

// wsInbound is what the widget sends over the socket.
type wsInbound struct {
	Type    string `json:"type"` // "message", "ping"
	Message string `json:"message,omitempty"`
}

// wsOutbound is what the server sends back.
type wsOutbound struct {
	Type      string `json:"type"` // "session", "reply", "pong", "error"
	SessionID string `json:"session_id,omitempty"`
	Reply     *Reply `json:"reply,omitempty"`
	Text      string `json:"text,omitempty"`
}

// HandleWebSocket handles GET /webchat/ws. It carries the same dialogue as
// POST /webchat/message over a persistent connection: the business slug
// comes from the `business` query parameter, the session id is assigned on
// connect and kept for the socket's lifetime.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	slug := r.URL.Query().Get("business")
	if slug == "" {
		_ = websocket.JSON.Send(conn, wsOutbound{Type: "error", Text: "missing business parameter"})
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = generateSessionID()
	}
	_ = websocket.JSON.Send(conn, wsOutbound{Type: "session", SessionID: sessionID})

	h.logger.Info("webchat connection opened", "business_slug", slug, "session_id", sessionID)
	defer h.logger.Debug("webchat connection closed", "business_slug", slug, "session_id", sessionID)

	for {
		var msg wsInbound
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, wsOutbound{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Message) == "" {
			continue
		}

		resp, err := h.engine.HandleMessage(r.Context(), MessageRequest{
			BusinessSlug: slug,
			SessionID:    sessionID,
			Message:      msg.Message,
		})
		if err != nil {
			text := "Désolé, une erreur est survenue. Merci de réessayer."
			if errors.Is(err, ErrDispatchFailed) {
				text = "Désolé, nous n'avons pas pu transmettre votre demande. Merci de réessayer dans un instant."
			}
			h.logger.Error("webchat message failed", "business_slug", slug, "session_id", sessionID, "error", err)
			_ = websocket.JSON.Send(conn, wsOutbound{Type: "error", Text: text})
			continue
		}
		_ = websocket.JSON.Send(conn, wsOutbound{Type: "reply", SessionID: resp.SessionID, Reply: &resp.Reply})
	}
}
