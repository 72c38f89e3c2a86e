package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/KBesada24/ai-code-sentinel/models"
	"github.com/KBesada24/ai-code-sentinel/orchestrator"
	"github.com/KBesada24/ai-code-sentinel/render"
	"github.com/KBesada24/ai-code-sentinel/utils"
)

// clients that have not sent a frame or pong within pongWait are dropped
const staleSweepInterval = pongWait

type directMessage struct {
	client  *Client
	message models.WSMessage
}

// Hub routes session updates to the websocket clients watching each session.
// All registration changes happen on the Run goroutine.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	sessions   map[string]map[*Client]bool
	broadcast  chan models.WSMessage
	direct     chan directMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *utils.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger *utils.Logger) *Hub {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan models.WSMessage, 256),
		direct:     make(chan directMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations and messages until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	log := h.logger.WithSource("websocket_hub")
	sweep := time.NewTicker(staleSweepInterval)
	defer sweep.Stop()
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case <-sweep.C:
			if removed := h.sweepStale(); removed > 0 {
				log.Info("Removed stale WebSocket clients", map[string]interface{}{
					"removed":       removed,
					"total_clients": h.GetConnectedClients(),
				})
			}

		case client := <-h.register:
			h.add(client)
			log.Info("WebSocket client connected", map[string]interface{}{
				"client_id":     client.ID,
				"session_id":    client.SessionID,
				"total_clients": h.GetConnectedClients(),
			})

			// current view first, read on the Run goroutine
			if client.snapshot != nil {
				h.deliver(client, models.WSMessage{
					Type:      models.WSTypeReviewState,
					SessionID: client.SessionID,
					Data:      client.snapshot(),
					Timestamp: time.Now(),
					ClientID:  client.ID,
				})
			}

			welcome := models.WSMessage{
				Type:      models.WSTypeConnect,
				SessionID: client.SessionID,
				Data:      map[string]interface{}{"status": "connected", "client_id": client.ID},
				Timestamp: time.Now(),
				ClientID:  client.ID,
			}
			h.deliver(client, welcome)

		case client := <-h.unregister:
			if h.remove(client) {
				log.Info("WebSocket client disconnected", map[string]interface{}{
					"client_id":     client.ID,
					"session_id":    client.SessionID,
					"total_clients": h.GetConnectedClients(),
				})
			}

		case dm := <-h.direct:
			h.mu.RLock()
			registered := h.clients[dm.client]
			h.mu.RUnlock()
			if registered {
				h.deliver(dm.client, dm.message)
			}

		case message := <-h.broadcast:
			targets := h.recipients(message.SessionID)
			log.Debug("Broadcasting WebSocket message", map[string]interface{}{
				"type":       message.Type,
				"session_id": message.SessionID,
				"recipients": len(targets),
			})
			for _, client := range targets {
				h.deliver(client, message)
			}
		}
	}
}

// deliver drops clients whose send buffer is full
func (h *Hub) deliver(client *Client, message models.WSMessage) {
	select {
	case client.send <- message:
	default:
		h.remove(client)
		h.logger.WithSource("websocket_hub").Warn("Removed unresponsive WebSocket client", map[string]interface{}{
			"client_id":  client.ID,
			"session_id": client.SessionID,
		})
	}
}

// sweepStale removes clients whose connection stopped answering
func (h *Hub) sweepStale() int {
	h.mu.RLock()
	stale := make([]*Client, 0)
	for client := range h.clients {
		if !client.IsAlive() {
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	removed := 0
	for _, client := range stale {
		if h.remove(client) {
			removed++
		}
	}
	return removed
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	if client.SessionID == "" {
		return
	}
	watchers, ok := h.sessions[client.SessionID]
	if !ok {
		watchers = make(map[*Client]bool)
		h.sessions[client.SessionID] = watchers
	}
	watchers[client] = true
}

func (h *Hub) remove(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return false
	}
	delete(h.clients, client)
	if watchers, ok := h.sessions[client.SessionID]; ok {
		delete(watchers, client)
		if len(watchers) == 0 {
			delete(h.sessions, client.SessionID)
		}
	}
	close(client.send)
	return true
}

// recipients returns the watchers of sessionID, or every client when it is empty
func (h *Hub) recipients(sessionID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	source := h.clients
	if sessionID != "" {
		source = h.sessions[sessionID]
	}
	out := make([]*Client, 0, len(source))
	for client := range source {
		out = append(out, client)
	}
	return out
}

func (h *Hub) shutdown() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[*Client]bool)
	h.sessions = make(map[string]map[*Client]bool)
}

// NotifyState pushes the rendered session view to its watchers. It never blocks,
// so it is safe to call while the session lock is held.
func (h *Hub) NotifyState(sessionID string, state orchestrator.State) {
	h.publish(models.WSMessage{
		Type:      models.WSTypeReviewState,
		SessionID: sessionID,
		Data:      render.BuildSessionView(sessionID, state),
		Timestamp: time.Now(),
		ClientID:  "server",
	})
}

func (h *Hub) publish(message models.WSMessage) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.WithSource("websocket_hub").Warn("Broadcast channel is full, message dropped", map[string]interface{}{
			"type":       message.Type,
			"session_id": message.SessionID,
		})
	}
}

// SendToClient queues a message for one client
func (h *Hub) SendToClient(client *Client, msgType string, data interface{}) {
	select {
	case h.direct <- directMessage{client: client, message: models.WSMessage{
		Type:      msgType,
		SessionID: client.SessionID,
		Data:      data,
		Timestamp: time.Now(),
		ClientID:  client.ID,
	}}:
	default:
		h.logger.WithSource("websocket_hub").Warn("Direct channel is full, message dropped", map[string]interface{}{
			"client_id": client.ID,
			"type":      msgType,
		})
	}
}

// GetConnectedClients returns the number of connected clients
func (h *Hub) GetConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetSessionWatchers returns how many clients watch sessionID
func (h *Hub) GetSessionWatchers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// GetClientIDs returns a list of all connected client IDs
func (h *Hub) GetClientIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clientIDs := make([]string, 0, len(h.clients))
	for client := range h.clients {
		clientIDs = append(clientIDs, client.ID)
	}
	sort.Strings(clientIDs)
	return clientIDs
}

// RegisterClient registers a new client with the hub
func (h *Hub) RegisterClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// UnregisterClient unregisters a client from the hub
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Stats returns connection statistics
func (h *Hub) Stats() map[string]interface{} {
	clientIDs := h.GetClientIDs()

	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "running"
	select {
	case <-h.done:
		status = "stopped"
	default:
	}

	return map[string]interface{}{
		"status":            status,
		"connected_clients": len(h.clients),
		"watched_sessions":  len(h.sessions),
		"client_ids":        clientIDs,
	}
}
