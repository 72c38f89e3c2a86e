package handlers

import (
	"context"
	"time"

	"github.com/KBesada24/ai-code-sentinel/config"
	"github.com/KBesada24/ai-code-sentinel/middleware"
	"github.com/KBesada24/ai-code-sentinel/models"
	"github.com/KBesada24/ai-code-sentinel/render"
	"github.com/KBesada24/ai-code-sentinel/services"
	"github.com/KBesada24/ai-code-sentinel/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ReviewHandler handles stateless review endpoints
type ReviewHandler struct {
	service       services.ReviewService
	status        services.StatusReporter
	validator     *validator.Validate
	timeout       time.Duration
	maxCodeLength int
}

// NewReviewHandler creates a new review handler. Status endpoints are
// served only when service also implements services.StatusReporter.
func NewReviewHandler(service services.ReviewService, cfg *config.Config) *ReviewHandler {
	status, _ := service.(services.StatusReporter)
	return &ReviewHandler{
		service:       service,
		status:        status,
		validator:     models.NewValidator(),
		timeout:       cfg.ReviewTimeout,
		maxCodeLength: cfg.MaxCodeLength,
	}
}

// reviewResponse pairs the raw result with its rendered panel
type reviewResponse struct {
	Result *models.CodeReviewResult `json:"result"`
	View   *render.ResultView       `json:"view"`
}

// Review handles POST /api/review
func (h *ReviewHandler) Review(c *fiber.Ctx) error {
	var req models.ReviewRequest
	if ok, err := parseAndValidate(c, h.validator, &req); !ok {
		return err
	}
	if ok, err := checkCodeLength(c, req.Code, h.maxCodeLength); !ok {
		return err
	}

	ctx := context.Background()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.service.Review(ctx, req.Code, req.Language)
	if err != nil {
		middleware.GetLoggerFromContext(c).WithSource("review_handler").Warn("Review failed", map[string]interface{}{
			"error":    err.Error(),
			"language": req.Language,
		})
		return reviewErrorResponse(c, err)
	}

	return utils.SuccessResponse(c, "Review completed successfully", reviewResponse{
		Result: result,
		View:   render.BuildResultView(result),
	})
}

// GetLanguages handles GET /api/languages
func (h *ReviewHandler) GetLanguages(c *fiber.Ctx) error {
	return utils.SuccessResponse(c, "Supported languages retrieved successfully", map[string]interface{}{
		"languages":   models.SupportedLanguages,
		"default":     models.DefaultLanguage,
		"sample_code": models.SampleCode,
	})
}

// GetStatus handles GET /api/review/status
func (h *ReviewHandler) GetStatus(c *fiber.Ctx) error {
	if h.status == nil {
		return utils.ServiceUnavailableResponse(c, "Review")
	}

	statusInfo := map[string]interface{}{
		"service_name":    "Review Service",
		"service_version": "1.0.0",
		"status":          h.status.GetStatus(),
		"endpoints": []string{
			"POST /api/review - Review a code snippet",
			"GET /api/review/status - Get review service status",
			"GET /api/review/health - Check the review provider",
		},
		"supported_languages": models.SupportedLanguages,
		"ratings":             models.Ratings,
		"issue_types":         models.IssueTypes,
	}

	message := "Review service status retrieved successfully"
	if !h.status.IsAvailable() {
		message = "Review service is currently unavailable"
	}

	return utils.SuccessResponse(c, message, statusInfo)
}

// HealthCheck handles GET /api/review/health
func (h *ReviewHandler) HealthCheck(c *fiber.Ctx) error {
	if h.status == nil {
		return utils.ServiceUnavailableResponse(c, "Review")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.status.HealthCheck(ctx); err != nil {
		return utils.ServiceUnavailableResponse(c, "Review")
	}

	return utils.SuccessResponse(c, "Review service health check passed", map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"message":   "Review service is operational",
	})
}
