package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/KBesada24/ai-code-sentinel/config"
	"github.com/KBesada24/ai-code-sentinel/handlers"
	"github.com/KBesada24/ai-code-sentinel/middleware"
	"github.com/KBesada24/ai-code-sentinel/models"
	"github.com/KBesada24/ai-code-sentinel/orchestrator"
	"github.com/KBesada24/ai-code-sentinel/services"
	"github.com/KBesada24/ai-code-sentinel/utils"
	"github.com/KBesada24/ai-code-sentinel/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
)

const version = "1.0.0"

// Global variable to track server start time for uptime calculation
var startTime = time.Now()

// dependencies holds the long-lived components shared by the routes
type dependencies struct {
	service  services.ReviewService
	status   services.StatusReporter
	store    *orchestrator.Store
	hub      *websocket.Hub
	metrics  *middleware.Metrics
	health   *utils.HealthRegistry
	shutdown *utils.GracefulShutdown
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if errs := cfg.Validate(); len(errs) > 0 {
		log.Fatal("Configuration validation failed: ", strings.Join(errs, "; "))
	}

	logger := utils.InitLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting AI Code Sentinel", map[string]interface{}{
		"version":     version,
		"environment": cfg.Environment,
		"port":        cfg.Port,
		"model":       cfg.OpenAIModel,
	})
	if !cfg.HasProviderCredentials() {
		logger.Warn("OPENAI_API_KEY is not set, reviews will fail until it is configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	service := services.NewAIReviewService(cfg, logger)
	deps := buildDependencies(ctx, cfg, logger, service)

	app, err := newApp(cfg, logger, deps)
	if err != nil {
		logger.Error("Failed to build application", err)
		os.Exit(1)
	}

	startServerWithGracefulShutdown(app, cfg, logger, deps, cancel)
}

// buildDependencies starts the hub and session janitor and registers their shutdown
func buildDependencies(ctx context.Context, cfg *config.Config, logger *utils.Logger, service services.ReviewService) *dependencies {
	deps := &dependencies{
		service:  service,
		metrics:  middleware.NewMetrics(),
		health:   utils.NewHealthRegistry(),
		shutdown: utils.NewGracefulShutdown(30*time.Second, logger),
	}
	deps.status, _ = service.(services.StatusReporter)

	var notifier orchestrator.Notifier
	if cfg.EnableWebSocket {
		hub := websocket.NewHub(logger)
		hubCtx, stopHub := context.WithCancel(ctx)
		go hub.Run(hubCtx)
		deps.hub = hub
		notifier = hub

		deps.shutdown.Register("websocket_hub", func(context.Context) error {
			stopHub()
			return nil
		})
	}

	deps.store = orchestrator.NewStore(service, notifier, orchestrator.Options{
		ReviewTimeout: cfg.ReviewTimeout,
	}, logger)

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	deps.store.StartJanitor(janitorCtx, janitorInterval(cfg.SessionIdleTTL), cfg.SessionIdleTTL)
	deps.shutdown.Register("session_janitor", func(context.Context) error {
		stopJanitor()
		return nil
	})

	deps.shutdown.Register("connection_pools", func(context.Context) error {
		utils.CloseAllPools()
		return nil
	})

	deps.health.Register("review_provider", func(context.Context) error {
		if !cfg.HasProviderCredentials() {
			return services.ErrNotConfigured
		}
		if deps.status != nil && !deps.status.IsAvailable() {
			return errors.New("review provider unavailable")
		}
		return nil
	})

	return deps
}

func janitorInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}

// newApp creates the Fiber app with middleware and routes
func newApp(cfg *config.Config, logger *utils.Logger, deps *dependencies) (*fiber.App, error) {
	app := createFiberApp(cfg, logger)
	setupMiddleware(app, cfg, logger, deps.metrics)
	if err := setupRoutes(app, cfg, logger, deps); err != nil {
		return nil, err
	}
	return app, nil
}

// createFiberApp creates and configures the Fiber application
func createFiberApp(cfg *config.Config, logger *utils.Logger) *fiber.App {
	errorConfig := middleware.DefaultErrorHandlingConfig(logger, cfg.EnableDetailedErrors || cfg.IsDevelopment())

	return fiber.New(fiber.Config{
		AppName:      "AI Code Sentinel v" + version,
		ServerHeader: "AI-Code-Sentinel",
		ErrorHandler: middleware.NewErrorHandler(errorConfig),
		ReadTimeout:  30 * time.Second,
		// a session review blocks until the provider settles
		WriteTimeout: cfg.ReviewTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    middleware.DefaultValidationConfig(cfg.MaxCodeLength).MaxBodySize,
		JSONEncoder:  utils.JSONMarshal,
		JSONDecoder:  utils.JSONUnmarshal,

		DisableStartupMessage: cfg.IsProduction(),
	})
}

// setupMiddleware configures all middleware for the application
func setupMiddleware(app *fiber.App, cfg *config.Config, logger *utils.Logger, metrics *middleware.Metrics) {
	errorConfig := middleware.DefaultErrorHandlingConfig(logger, cfg.EnableDetailedErrors || cfg.IsDevelopment())

	// Recovery middleware (should be first)
	app.Use(middleware.PanicRecovery(errorConfig))

	app.Use(middleware.CorrelationID())
	app.Use(middleware.StructuredLogging(logger))
	app.Use(middleware.AccessLog(middleware.DefaultAccessLogConfig(logger)))
	app.Use(middleware.ErrorLogging(logger))

	app.Use(corsMiddleware(cfg))
	app.Use(metrics.Handler())
	app.Use(middleware.RequestValidation(middleware.DefaultValidationConfig(cfg.MaxCodeLength)))
}

// corsMiddleware uses CORS_ORIGINS when set, otherwise the frontend and local origins
func corsMiddleware(cfg *config.Config) fiber.Handler {
	if len(cfg.CORSOrigins) > 0 {
		return middleware.CORSWithOrigins(cfg.CORSOrigins)
	}
	return middleware.NewCORS(middleware.DefaultCORSConfig(cfg.FrontendURL))
}

// reviewLimiter guards the endpoints that call the review provider
func reviewLimiter(cfg *config.Config) fiber.Handler {
	if !cfg.EnableRateLimiting {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}
	return middleware.RateLimiting(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	})
}

// setupRoutes configures all routes for the application
func setupRoutes(app *fiber.App, cfg *config.Config, logger *utils.Logger, deps *dependencies) error {
	pageHandler, err := handlers.NewPageHandler(cfg)
	if err != nil {
		return fmt.Errorf("failed to load page templates: %w", err)
	}
	reviewHandler := handlers.NewReviewHandler(deps.service, cfg)
	sessionHandler := handlers.NewSessionHandler(deps.store, cfg)
	metricsHandler := handlers.NewMetricsHandler(deps.metrics, deps.store, logger)

	var wsHandler *websocket.Handler
	if deps.hub != nil {
		wsHandler = websocket.NewHandler(deps.hub, deps.store)
	}

	app.Get("/", pageHandler.Index)
	app.Get("/health", healthCheckHandler(cfg, deps))

	if wsHandler != nil {
		app.Use(cfg.WSEndpoint, wsHandler.Upgrade)
		app.Get(cfg.WSEndpoint, wsHandler.Handle())
	}

	limiter := reviewLimiter(cfg)
	api := app.Group("/api")

	api.Get("/", apiInfoHandler(cfg))
	api.Get("/languages", reviewHandler.GetLanguages)

	review := api.Group("/review")
	review.Post("/", limiter, reviewHandler.Review)
	review.Get("/status", reviewHandler.GetStatus)
	review.Get("/health", reviewHandler.HealthCheck)

	sessions := api.Group("/sessions")
	sessions.Post("/", sessionHandler.CreateSession)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Delete("/:id", sessionHandler.DeleteSession)
	sessions.Put("/:id/code", sessionHandler.UpdateCode)
	sessions.Put("/:id/language", sessionHandler.SelectLanguage)
	sessions.Post("/:id/review", limiter, sessionHandler.RunReview)
	sessions.Post("/:id/clear", sessionHandler.ClearSession)

	metrics := api.Group("/metrics")
	metrics.Get("/", metricsHandler.GetMetrics)
	metrics.Get("/top", metricsHandler.GetTopEndpoints)
	metrics.Post("/reset", metricsHandler.ResetMetrics)

	api.Get("/ws/stats", func(c *fiber.Ctx) error {
		return utils.SuccessResponse(c, "WebSocket statistics", wsHandler.Stats())
	})

	app.Use(middleware.NotFoundHandler())

	logger.Info("Routes configured successfully", map[string]interface{}{
		"health_endpoint":    "/health",
		"api_base":           "/api",
		"websocket_endpoint": cfg.WSEndpoint,
		"websocket_enabled":  wsHandler != nil,
		"rate_limiting":      cfg.EnableRateLimiting,
	})
	return nil
}

func apiInfoHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return utils.SuccessResponse(c, "AI Code Sentinel API", fiber.Map{
			"version":     version,
			"environment": cfg.Environment,
			"endpoints": []string{
				"GET / - Review page",
				"GET /health - Health check",
				"GET /api - API information",
				"GET /api/languages - Supported languages",
				"POST /api/review - Review a code snippet",
				"GET /api/review/status - Review service status",
				"GET /api/review/health - Review provider health check",
				"POST /api/sessions - Create a review session",
				"GET /api/sessions/:id - Get session state",
				"PUT /api/sessions/:id/code - Edit session code",
				"PUT /api/sessions/:id/language - Select session language",
				"POST /api/sessions/:id/review - Run a review for the session",
				"POST /api/sessions/:id/clear - Clear session output",
				"DELETE /api/sessions/:id - Delete a session",
				"GET /api/metrics - Request and runtime metrics",
				"GET /api/metrics/top - Busiest endpoints",
				"POST /api/metrics/reset - Reset request metrics",
				"GET /api/ws/stats - WebSocket statistics",
				"GET " + cfg.WSEndpoint + "?session_id= - Live session updates",
			},
		})
	}
}

// healthCheckHandler reports liveness; failing checks degrade the status but keep 200
func healthCheckHandler(cfg *config.Config, deps *dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		checks, healthy := deps.health.Run(c.UserContext())
		checks["server"] = "ok"
		if deps.hub != nil {
			checks["websocket"] = deps.hub.Stats()["status"].(string)
		} else {
			checks["websocket"] = "disabled"
		}

		status := "healthy"
		if !healthy {
			status = "degraded"
		}

		return utils.SuccessResponse(c, "Health check passed", models.HealthStatus{
			Status:      status,
			Version:     version,
			Environment: cfg.Environment,
			Uptime:      time.Since(startTime).Round(time.Second).String(),
			Sessions:    deps.store.Len(),
			Checks:      checks,
			Timestamp:   time.Now().UTC(),
		})
	}
}

// startServerWithGracefulShutdown starts the server with graceful shutdown handling
func startServerWithGracefulShutdown(app *fiber.App, cfg *config.Config, logger *utils.Logger, deps *dependencies, cancel context.CancelFunc) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	// registered last so it runs first
	deps.shutdown.Register("http_server", app.ShutdownWithContext)

	go func() {
		address := cfg.GetServerAddress()
		logger.Info("Server starting", map[string]interface{}{
			"address":     address,
			"environment": cfg.Environment,
			"page":        fmt.Sprintf("http://localhost:%s/", cfg.Port),
		})

		if err := app.Listen(address); err != nil {
			logger.Error("Server failed to start", err, map[string]interface{}{
				"address": address,
			})
			log.Fatal("Server failed to start: ", err)
		}
	}()

	<-quit
	logger.Info("Shutdown signal received, starting graceful shutdown")

	if err := deps.shutdown.Shutdown(context.Background()); err != nil {
		logger.Error("Shutdown completed with errors", err)
	}
	cancel()

	logger.Info("Server shutdown completed")
}
