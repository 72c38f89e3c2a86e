package websocket

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/KBesada24/ai-code-sentinel/models"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	sendBufferSize = 64
)

// Client is one websocket connection watching a single session
type Client struct {
	ID        string
	SessionID string
	conn      *websocket.Conn
	send      chan models.WSMessage
	hub       *Hub
	lastSeen  atomic.Int64

	// snapshot renders the watched session; the hub sends it on registration
	snapshot func() interface{}
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, hub *Hub, sessionID string) *Client {
	client := &Client{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		conn:      conn,
		send:      make(chan models.WSMessage, sendBufferSize),
		hub:       hub,
	}
	client.touch()
	return client
}

func (c *Client) touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

// LastSeen returns the time of the last frame received from the peer
func (c *Client) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

// IsAlive checks if the client connection is still alive
func (c *Client) IsAlive() bool {
	return time.Since(c.LastSeen()) < pongWait
}

// ReadPump reads client frames until the connection closes
func (c *Client) ReadPump() {
	logger := c.hub.logger.WithSource("websocket_client")

	defer func() {
		c.hub.UnregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.touch()
		return nil
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket read error", err, map[string]interface{}{
					"client_id":  c.ID,
					"session_id": c.SessionID,
				})
			}
			return
		}
		c.touch()

		var message models.WSMessage
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			logger.Warn("Failed to parse WebSocket message", map[string]interface{}{
				"client_id": c.ID,
				"error":     err.Error(),
			})
			continue
		}

		if !models.IsClientMessageType(message.Type) {
			logger.Warn("Invalid WebSocket message type", map[string]interface{}{
				"client_id":    c.ID,
				"message_type": message.Type,
			})
			continue
		}

		if !c.handleMessage(message) {
			return
		}
	}
}

// WritePump writes queued messages and pings to the connection
func (c *Client) WritePump() {
	logger := c.hub.logger.WithSource("websocket_client")
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			messageBytes, err := json.Marshal(message)
			if err != nil {
				logger.Error("Failed to marshal WebSocket message", err, map[string]interface{}{
					"client_id":    c.ID,
					"message_type": message.Type,
				})
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, messageBytes); err != nil {
				logger.Warn("Failed to write WebSocket message", map[string]interface{}{
					"client_id": c.ID,
					"error":     err.Error(),
				})
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage reacts to a client frame; false ends the read loop
func (c *Client) handleMessage(message models.WSMessage) bool {
	switch message.Type {
	case models.WSTypeHeartbeat:
		c.hub.SendToClient(c, models.WSTypeHeartbeat, map[string]interface{}{"status": "pong"})
		return true

	case models.WSTypeDisconnect:
		c.hub.logger.WithSource("websocket_client").Info("WebSocket client requested disconnect", map[string]interface{}{
			"client_id":  c.ID,
			"session_id": c.SessionID,
		})
		return false

	default:
		return true
	}
}
