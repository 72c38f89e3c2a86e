package middleware

import (
	"fmt"
	"strings"

	"github.com/KBesada24/ai-code-sentinel/utils"
	"github.com/gofiber/fiber/v2"
)

// ValidationConfig holds request validation configuration
type ValidationConfig struct {
	MaxBodySize int
	SkipPaths   []string
}

// DefaultValidationConfig sizes the body limit from the maximum code length,
// leaving room for JSON escaping.
func DefaultValidationConfig(maxCodeLength int) ValidationConfig {
	maxBody := 1024 * 1024
	if maxCodeLength > 0 {
		maxBody = maxCodeLength*2 + 4096
	}
	return ValidationConfig{
		MaxBodySize: maxBody,
	}
}

// RequestValidation rejects oversized, non-JSON or malformed JSON bodies
func RequestValidation(config ValidationConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !isBodyMethod(c.Method()) || shouldSkipPath(c.Path(), config.SkipPaths) {
			return c.Next()
		}

		body := c.Body()
		if config.MaxBodySize > 0 && len(body) > config.MaxBodySize {
			return utils.ErrorResponse(c, fiber.StatusRequestEntityTooLarge, "BODY_TOO_LARGE",
				fmt.Sprintf("Request body exceeds maximum size of %d bytes", config.MaxBodySize), nil)
		}

		if len(body) == 0 {
			return c.Next()
		}

		contentType := c.Get(fiber.HeaderContentType)
		if !isJSONContentType(contentType) {
			return utils.ErrorResponse(c, fiber.StatusUnsupportedMediaType, "INVALID_CONTENT_TYPE",
				"Content-Type must be application/json", nil)
		}

		if !utils.IsValidJSON(string(body)) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_JSON",
				"Request body contains invalid JSON", nil)
		}

		return c.Next()
	}
}

func isBodyMethod(method string) bool {
	switch method {
	case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch:
		return true
	default:
		return false
	}
}

func isJSONContentType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), fiber.MIMEApplicationJSON)
}
