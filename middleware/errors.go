package middleware

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/KBesada24/ai-code-sentinel/utils"
	"github.com/gofiber/fiber/v2"
)

// ErrorHandlingConfig holds error handling configuration
type ErrorHandlingConfig struct {
	Logger         *utils.Logger
	ShowDetails    bool
	CustomErrorMap map[int]string
}

// DefaultErrorHandlingConfig returns default error handling configuration
func DefaultErrorHandlingConfig(logger *utils.Logger, showDetails bool) ErrorHandlingConfig {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return ErrorHandlingConfig{
		Logger:      logger,
		ShowDetails: showDetails,
		CustomErrorMap: map[int]string{
			fiber.StatusNotFound:              "The requested resource was not found",
			fiber.StatusMethodNotAllowed:      "The HTTP method is not allowed for this resource",
			fiber.StatusRequestTimeout:        "The request timed out",
			fiber.StatusRequestEntityTooLarge: "The request body is too large",
			fiber.StatusTooManyRequests:       "Too many requests, please try again later",
			fiber.StatusInternalServerError:   "An internal server error occurred",
			fiber.StatusServiceUnavailable:    "Service temporarily unavailable",
		},
	}
}

var fiberErrorCodes = map[int]string{
	fiber.StatusBadRequest:            "BAD_REQUEST",
	fiber.StatusNotFound:              "NOT_FOUND",
	fiber.StatusMethodNotAllowed:      "METHOD_NOT_ALLOWED",
	fiber.StatusRequestTimeout:        "REQUEST_TIMEOUT",
	fiber.StatusRequestEntityTooLarge: "BODY_TOO_LARGE",
	fiber.StatusUnsupportedMediaType:  "INVALID_CONTENT_TYPE",
	fiber.StatusTooManyRequests:       "RATE_LIMIT_EXCEEDED",
	fiber.StatusInternalServerError:   "INTERNAL_ERROR",
	fiber.StatusBadGateway:            "REVIEW_FAILED",
	fiber.StatusServiceUnavailable:    "SERVICE_UNAVAILABLE",
}

// NewErrorHandler builds the fiber.Config ErrorHandler that renders every
// returned error as a StandardResponse.
func NewErrorHandler(cfg ErrorHandlingConfig) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if !errors.As(err, &fiberErr) {
			cfg.Logger.WithTraceID(utils.GetTraceID(c)).WithSource("error").Error("Unhandled request error", err, map[string]interface{}{
				"method": c.Method(),
				"path":   c.Path(),
			})

			message := "An unexpected error occurred"
			if cfg.ShowDetails {
				message = err.Error()
			}
			return utils.InternalServerErrorResponse(c, message)
		}

		message := fiberErr.Message
		if custom, ok := cfg.CustomErrorMap[fiberErr.Code]; ok {
			message = custom
		}
		code, ok := fiberErrorCodes[fiberErr.Code]
		if !ok {
			code = "UNKNOWN_ERROR"
		}

		return utils.ErrorResponse(c, fiberErr.Code, code, message, nil)
	}
}

// PanicRecovery turns a handler panic into a 500 StandardResponse
func PanicRecovery(cfg ErrorHandlingConfig) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())

				cfg.Logger.WithTraceID(utils.GetTraceID(c)).WithSource("panic").Error("Panic recovered", nil, map[string]interface{}{
					"method":      c.Method(),
					"path":        c.Path(),
					"panic_value": fmt.Sprintf("%v", r),
					"stack_trace": stack,
				})

				var details map[string]string
				if cfg.ShowDetails {
					details = map[string]string{
						"panic_value": fmt.Sprintf("%v", r),
						"stack_trace": stack,
					}
				}

				err = utils.ErrorResponse(c, fiber.StatusInternalServerError,
					"PANIC_RECOVERED", "An unexpected error occurred", details)
			}
		}()

		return c.Next()
	}
}

// NotFoundHandler answers unknown routes
func NotFoundHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return utils.NotFoundResponse(c, "Endpoint")
	}
}
