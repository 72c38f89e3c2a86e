package middleware

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
)

// EndpointMetrics holds counters for one route
type EndpointMetrics struct {
	Route               string    `json:"route"`
	Method              string    `json:"method"`
	RequestCount        int64     `json:"request_count"`
	ErrorCount          int64     `json:"error_count"`
	ErrorRate           float64   `json:"error_rate"`
	TotalResponseTime   int64     `json:"total_response_time_ms"`
	AverageResponseTime float64   `json:"average_response_time_ms"`
	MinResponseTime     int64     `json:"min_response_time_ms"`
	MaxResponseTime     int64     `json:"max_response_time_ms"`
	LastAccessed        time.Time `json:"last_accessed"`
}

// MetricsSnapshot is a point-in-time copy of the collected metrics
type MetricsSnapshot struct {
	RequestCount        int64                       `json:"request_count"`
	ActiveRequests      int64                       `json:"active_requests"`
	AverageResponseTime float64                     `json:"average_response_time_ms"`
	Endpoints           map[string]*EndpointMetrics `json:"endpoints"`
	Since               time.Time                   `json:"since"`
}

// Metrics collects per-route request timing
type Metrics struct {
	active    int64
	mu        sync.Mutex
	total     int64
	totalMs   int64
	endpoints map[string]*EndpointMetrics
	since     time.Time
}

// NewMetrics creates an empty collector
func NewMetrics() *Metrics {
	return &Metrics{
		endpoints: make(map[string]*EndpointMetrics),
		since:     time.Now(),
	}
}

// Handler records timing and error counts for every request.
// A request counts as an error when it returns one or answers with status >= 500.
func (m *Metrics) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		atomic.AddInt64(&m.active, 1)
		defer atomic.AddInt64(&m.active, -1)

		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start).Milliseconds()

		failed := err != nil || c.Response().StatusCode() >= fiber.StatusInternalServerError
		m.record(c.Method(), c.Route().Path, elapsed, failed)

		return err
	}
}

func (m *Metrics) record(method, route string, elapsedMs int64, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.totalMs += elapsedMs

	key := method + " " + route
	ep, ok := m.endpoints[key]
	if !ok {
		ep = &EndpointMetrics{Route: route, Method: method, MinResponseTime: elapsedMs}
		m.endpoints[key] = ep
	}

	ep.RequestCount++
	ep.TotalResponseTime += elapsedMs
	if failed {
		ep.ErrorCount++
	}
	if elapsedMs < ep.MinResponseTime {
		ep.MinResponseTime = elapsedMs
	}
	if elapsedMs > ep.MaxResponseTime {
		ep.MaxResponseTime = elapsedMs
	}
	ep.AverageResponseTime = float64(ep.TotalResponseTime) / float64(ep.RequestCount)
	ep.ErrorRate = float64(ep.ErrorCount) / float64(ep.RequestCount) * 100
	ep.LastAccessed = time.Now()
}

// Snapshot copies the current metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		RequestCount:   m.total,
		ActiveRequests: atomic.LoadInt64(&m.active),
		Endpoints:      make(map[string]*EndpointMetrics, len(m.endpoints)),
		Since:          m.since,
	}
	if m.total > 0 {
		snap.AverageResponseTime = float64(m.totalMs) / float64(m.total)
	}
	for key, ep := range m.endpoints {
		cp := *ep
		snap.Endpoints[key] = &cp
	}
	return snap
}

// Reset clears all counters
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total = 0
	m.totalMs = 0
	m.endpoints = make(map[string]*EndpointMetrics)
	m.since = time.Now()
}
