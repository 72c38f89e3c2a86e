package handlers

import (
	"io"
	"net/http"
	"testing"

	"github.com/KBesada24/ai-code-sentinel/middleware"
	"github.com/KBesada24/ai-code-sentinel/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCounter int

func (f fixedCounter) Len() int { return int(f) }

func setupMetricsApp() (*fiber.App, *middleware.Metrics) {
	metrics := middleware.NewMetrics()
	handler := NewMetricsHandler(metrics, fixedCounter(3), utils.NewLoggerWithWriter("error", "json", io.Discard))

	app := fiber.New()
	app.Use(metrics.Handler())
	app.Get("/api/metrics", handler.GetMetrics)
	app.Get("/api/metrics/top", handler.GetTopEndpoints)
	app.Post("/api/metrics/reset", handler.ResetMetrics)
	app.Get("/a", func(c *fiber.Ctx) error { return c.SendString("a") })
	app.Get("/b", func(c *fiber.Ctx) error { return c.SendString("b") })
	return app, metrics
}

func TestMetricsHandler_GetMetrics(t *testing.T) {
	app, _ := setupMetricsApp()

	resp, body := doJSON(t, app, http.MethodGet, "/api/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body.Success)

	data := body.Data.(map[string]interface{})
	assert.Equal(t, float64(3), data["sessions"].(map[string]interface{})["active"])
	assert.Contains(t, data, "requests")
	assert.Contains(t, data, "memory")
	assert.Contains(t, data, "connection_pools")
}

func TestMetricsHandler_GetTopEndpoints(t *testing.T) {
	app, _ := setupMetricsApp()

	for _, path := range []string{"/a", "/b", "/b"} {
		resp, err := app.Test(mustRequest(t, http.MethodGet, path))
		require.NoError(t, err)
		resp.Body.Close()
	}

	resp, body := doJSON(t, app, http.MethodGet, "/api/metrics/top?limit=1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	data := body.Data.(map[string]interface{})
	assert.Equal(t, "request_count", data["sort_by"])
	assert.Equal(t, float64(1), data["limit"])
	endpoints := data["endpoints"].([]interface{})
	require.Len(t, endpoints, 1)
	assert.Equal(t, "GET /b", endpoints[0].(map[string]interface{})["key"])
}

func TestMetricsHandler_UnknownSortFallsBack(t *testing.T) {
	app, _ := setupMetricsApp()

	_, body := doJSON(t, app, http.MethodGet, "/api/metrics/top?sort_by=nonsense&limit=500", nil)
	data := body.Data.(map[string]interface{})
	assert.Equal(t, "request_count", data["sort_by"])
	assert.Equal(t, float64(10), data["limit"])
}

func TestMetricsHandler_Reset(t *testing.T) {
	app, metrics := setupMetricsApp()

	resp, err := app.Test(mustRequest(t, http.MethodGet, "/a"))
	require.NoError(t, err)
	resp.Body.Close()

	resp, body := doJSON(t, app, http.MethodPost, "/api/metrics/reset", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body.Success)

	snap := metrics.Snapshot()
	assert.NotContains(t, snap.Endpoints, "GET /a")
	assert.Contains(t, snap.Endpoints, "POST /api/metrics/reset")
}

func mustRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, path, nil)
	require.NoError(t, err)
	return req
}
