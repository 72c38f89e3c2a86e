package handlers

import (
	"runtime"
	"sort"
	"time"

	"github.com/KBesada24/ai-code-sentinel/middleware"
	"github.com/KBesada24/ai-code-sentinel/utils"
	"github.com/gofiber/fiber/v2"
)

// SessionCounter reports how many review sessions are live
type SessionCounter interface {
	Len() int
}

// MetricsHandler serves request metrics and runtime statistics
type MetricsHandler struct {
	metrics  *middleware.Metrics
	sessions SessionCounter
	logger   *utils.Logger
}

// NewMetricsHandler creates a new metrics handler. sessions may be nil.
func NewMetricsHandler(metrics *middleware.Metrics, sessions SessionCounter, logger *utils.Logger) *MetricsHandler {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &MetricsHandler{
		metrics:  metrics,
		sessions: sessions,
		logger:   logger,
	}
}

// GetMetrics handles GET /api/metrics
func (h *MetricsHandler) GetMetrics(c *fiber.Ctx) error {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	sessions := 0
	if h.sessions != nil {
		sessions = h.sessions.Len()
	}

	return utils.SuccessResponse(c, "Metrics retrieved successfully", fiber.Map{
		"requests": h.metrics.Snapshot(),
		"sessions": fiber.Map{
			"active": sessions,
		},
		"memory": fiber.Map{
			"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
			"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
			"heap_alloc_mb": float64(memStats.HeapAlloc) / 1024 / 1024,
			"num_gc":        memStats.NumGC,
		},
		"runtime": fiber.Map{
			"version":       runtime.Version(),
			"num_goroutine": runtime.NumGoroutine(),
			"num_cpu":       runtime.NumCPU(),
		},
		"connection_pools": utils.GetAllPoolStats(),
		"timestamp":        time.Now().UTC(),
	})
}

type rankedEndpoint struct {
	Key string `json:"key"`
	*middleware.EndpointMetrics
}

// GetTopEndpoints handles GET /api/metrics/top?sort_by=&limit=
func (h *MetricsHandler) GetTopEndpoints(c *fiber.Ctx) error {
	sortBy := c.Query("sort_by", "request_count")
	limit := c.QueryInt("limit", 10)
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	snap := h.metrics.Snapshot()
	endpoints := make([]rankedEndpoint, 0, len(snap.Endpoints))
	for key, ep := range snap.Endpoints {
		endpoints = append(endpoints, rankedEndpoint{Key: key, EndpointMetrics: ep})
	}

	var less func(a, b rankedEndpoint) bool
	switch sortBy {
	case "average_response_time":
		less = func(a, b rankedEndpoint) bool { return a.AverageResponseTime > b.AverageResponseTime }
	case "error_rate":
		less = func(a, b rankedEndpoint) bool { return a.ErrorRate > b.ErrorRate }
	default:
		sortBy = "request_count"
		less = func(a, b rankedEndpoint) bool { return a.RequestCount > b.RequestCount }
	}
	sort.SliceStable(endpoints, func(i, j int) bool {
		if less(endpoints[i], endpoints[j]) {
			return true
		}
		if less(endpoints[j], endpoints[i]) {
			return false
		}
		return endpoints[i].Key < endpoints[j].Key
	})

	total := len(endpoints)
	if total > limit {
		endpoints = endpoints[:limit]
	}

	return utils.SuccessResponse(c, "Top endpoints retrieved successfully", fiber.Map{
		"sort_by":   sortBy,
		"limit":     limit,
		"total":     total,
		"endpoints": endpoints,
	})
}

// ResetMetrics handles POST /api/metrics/reset
func (h *MetricsHandler) ResetMetrics(c *fiber.Ctx) error {
	h.metrics.Reset()

	h.logger.WithTraceID(utils.GetTraceID(c)).WithSource("metrics").Info("Metrics reset", map[string]interface{}{
		"reset_by": c.IP(),
	})

	return utils.SuccessResponse(c, "Metrics reset successfully", nil)
}
