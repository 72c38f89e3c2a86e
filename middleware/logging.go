package middleware

import (
	"time"

	"github.com/KBesada24/ai-code-sentinel/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	headerTraceID   = "X-Trace-ID"
	headerRequestID = "X-Request-ID"
	localsRequestID = "request_id"
	localsLogger    = "logger"
)

// AccessLogConfig holds access log configuration
type AccessLogConfig struct {
	Logger          *utils.Logger
	SkipPaths       []string
	SkipSuccessLogs bool
	SlowThreshold   time.Duration
}

// DefaultAccessLogConfig returns the access log defaults
func DefaultAccessLogConfig(logger *utils.Logger) AccessLogConfig {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return AccessLogConfig{
		Logger:        logger,
		SkipPaths:     []string{"/health"},
		SlowThreshold: 2 * time.Second,
	}
}

// CorrelationID makes sure every request carries a trace and a request id
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		traceID := c.Get(headerTraceID)
		if traceID == "" {
			traceID = uuid.New().String()
		}
		requestID := c.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(headerTraceID, traceID)
		c.Set(headerRequestID, requestID)
		utils.SetTraceID(c, traceID)
		c.Locals(localsRequestID, requestID)

		return c.Next()
	}
}

// StructuredLogging stores a request-scoped logger in the context
func StructuredLogging(logger *utils.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(localsLogger, logger.WithTraceID(utils.GetTraceID(c)).WithSource("http").WithContext(map[string]interface{}{
			"request_id": getRequestID(c),
		}))
		return c.Next()
	}
}

// AccessLog writes one entry per completed request
func AccessLog(config AccessLogConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if shouldSkipPath(c.Path(), config.SkipPaths) {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		statusCode := c.Response().StatusCode()
		if config.SkipSuccessLogs && statusCode < 400 && err == nil && duration < config.SlowThreshold {
			return err
		}

		fields := map[string]interface{}{
			"method":      c.Method(),
			"path":        c.Path(),
			"route":       c.Route().Path,
			"status_code": statusCode,
			"duration_ms": duration.Milliseconds(),
			"ip":          c.IP(),
			"user_agent":  c.Get(fiber.HeaderUserAgent),
			"request_id":  getRequestID(c),
		}
		if id := c.Params("id"); id != "" {
			fields["session_id"] = id
		}
		if err != nil {
			fields["error"] = err.Error()
		}

		log := config.Logger.WithTraceID(utils.GetTraceID(c)).WithSource("access")
		switch {
		case statusCode >= 500:
			log.Error("Request completed with server error", err, fields)
		case statusCode >= 400:
			log.Warn("Request completed with client error", fields)
		case config.SlowThreshold > 0 && duration >= config.SlowThreshold:
			log.Warn("Slow request", fields)
		default:
			log.Info("Request completed", fields)
		}

		return err
	}
}

// ErrorLogging logs errors returned by handlers before the error handler runs
func ErrorLogging(logger *utils.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err != nil {
			logger.WithTraceID(utils.GetTraceID(c)).WithSource("error").Error("Request processing error", err, map[string]interface{}{
				"method":     c.Method(),
				"path":       c.Path(),
				"request_id": getRequestID(c),
			})
		}
		return err
	}
}

func shouldSkipPath(path string, skipPaths []string) bool {
	for _, skipPath := range skipPaths {
		if path == skipPath {
			return true
		}
	}
	return false
}

func getRequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(localsRequestID).(string); ok {
		return id
	}
	return ""
}

// GetLoggerFromContext returns the request-scoped logger
func GetLoggerFromContext(c *fiber.Ctx) *utils.LoggerWithContext {
	if logger, ok := c.Locals(localsLogger).(*utils.LoggerWithContext); ok {
		return logger
	}

	return utils.GetLogger().WithTraceID(utils.GetTraceID(c)).WithSource("http").WithContext(map[string]interface{}{
		"request_id": getRequestID(c),
	})
}
