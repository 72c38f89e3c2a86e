package websocket

import (
	"github.com/KBesada24/ai-code-sentinel/orchestrator"
	"github.com/KBesada24/ai-code-sentinel/render"
	"github.com/KBesada24/ai-code-sentinel/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const localsSessionID = "ws_session_id"

// SessionLookup finds the session a websocket wants to watch
type SessionLookup interface {
	Get(id string) (*orchestrator.Orchestrator, bool)
}

// Handler upgrades HTTP requests into session-watching websocket clients
type Handler struct {
	hub      *Hub
	sessions SessionLookup
}

// NewHandler creates a websocket handler backed by hub
func NewHandler(hub *Hub, sessions SessionLookup) *Handler {
	return &Handler{hub: hub, sessions: sessions}
}

// Upgrade rejects non-websocket requests and unknown sessions
func (h *Handler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return utils.ErrorResponse(c, fiber.StatusUpgradeRequired, "WEBSOCKET_REQUIRED", "WebSocket upgrade required", nil)
	}

	sessionID := c.Query("session_id")
	if sessionID == "" {
		return utils.BadRequestResponse(c, "session_id query parameter is required", nil)
	}
	if _, ok := h.sessions.Get(sessionID); !ok {
		return utils.NotFoundResponse(c, "Session")
	}

	c.Locals(localsSessionID, sessionID)
	return c.Next()
}

// Handle returns the fiber handler that runs the connection
func (h *Handler) Handle() fiber.Handler {
	return websocket.New(h.serve)
}

func (h *Handler) serve(conn *websocket.Conn) {
	sessionID, _ := conn.Locals(localsSessionID).(string)
	client := NewClient(conn, h.hub, sessionID)

	if !h.attach(client) {
		conn.Close()
		return
	}

	h.hub.logger.WithSource("websocket").Info("New WebSocket connection established", map[string]interface{}{
		"client_id":   client.ID,
		"session_id":  sessionID,
		"remote_addr": conn.RemoteAddr().String(),
	})

	go client.WritePump()
	client.ReadPump()
}

// attach registers client with the hub, which sends the current session view
// before any later transition
func (h *Handler) attach(client *Client) bool {
	if o, ok := h.sessions.Get(client.SessionID); ok {
		client.snapshot = func() interface{} {
			return render.BuildSessionView(o.ID(), o.Snapshot())
		}
	}
	return h.hub.RegisterClient(client)
}

// Stats returns statistics about WebSocket connections
func (h *Handler) Stats() map[string]interface{} {
	if h == nil || h.hub == nil {
		return map[string]interface{}{
			"status":            "disabled",
			"connected_clients": 0,
		}
	}
	return h.hub.Stats()
}
