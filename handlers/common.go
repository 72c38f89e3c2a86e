package handlers

import (
	"errors"
	"strconv"

	"github.com/KBesada24/ai-code-sentinel/orchestrator"
	"github.com/KBesada24/ai-code-sentinel/services"
	"github.com/KBesada24/ai-code-sentinel/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// parseAndValidate decodes the JSON body into dst and runs struct validation.
// It writes the error response itself and reports whether the handler may continue.
func parseAndValidate(c *fiber.Ctx, v *validator.Validate, dst interface{}) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, utils.BadRequestResponse(c, "Invalid request body", map[string]string{
			"error": err.Error(),
		})
	}

	if err := v.Struct(dst); err != nil {
		return false, utils.ValidationErrorResponse(c, utils.ValidationDetails(err))
	}

	return true, nil
}

// checkCodeLength rejects code above limit; zero disables the check
func checkCodeLength(c *fiber.Ctx, code string, limit int) (bool, error) {
	if limit <= 0 || len(code) <= limit {
		return true, nil
	}
	return false, utils.ValidationErrorResponse(c, map[string]string{
		"code": "Code must be at most " + strconv.Itoa(limit) + " bytes",
	})
}

// reviewErrorResponse maps a review service error to an HTTP error
func reviewErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotConfigured):
		return utils.ServiceUnavailableResponse(c, "Review")
	case utils.IsCircuitBreakerError(err):
		return utils.ServiceUnavailableResponse(c, "Review")
	case errors.Is(err, services.ErrRateLimited):
		return utils.ErrorResponse(c, fiber.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
			"Too many requests. Please try again later.", nil)
	default:
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "REVIEW_FAILED",
			orchestrator.NewReviewFailed(err).Display(), nil)
	}
}
