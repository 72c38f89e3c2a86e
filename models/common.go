package models

import (
	"time"
)

// WebSocket message types
const (
	WSTypeReviewState = "review_state"
	WSTypeConnect     = "connect"
	WSTypeDisconnect  = "disconnect"
	WSTypeHeartbeat   = "heartbeat"
	WSTypeError       = "error"
)

// HealthStatus is the body of GET /health
type HealthStatus struct {
	Status      string            `json:"status"`
	Version     string            `json:"version"`
	Environment string            `json:"environment"`
	Uptime      string            `json:"uptime"`
	Sessions    int               `json:"sessions"`
	Checks      map[string]string `json:"checks"`
	Timestamp   time.Time         `json:"timestamp"`
}

// WSMessage represents a WebSocket message structure
type WSMessage struct {
	Type      string      `json:"type" validate:"required,oneof=review_state connect disconnect heartbeat error"`
	SessionID string      `json:"session_id,omitempty"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
	ClientID  string      `json:"client_id" validate:"required"`
}

// IsClientMessageType reports whether a client may send msgType
func IsClientMessageType(msgType string) bool {
	switch msgType {
	case WSTypeConnect, WSTypeDisconnect, WSTypeHeartbeat:
		return true
	default:
		return false
	}
}
