package handlers

import (
	"context"
	"errors"

	"github.com/KBesada24/ai-code-sentinel/config"
	"github.com/KBesada24/ai-code-sentinel/models"
	"github.com/KBesada24/ai-code-sentinel/orchestrator"
	"github.com/KBesada24/ai-code-sentinel/render"
	"github.com/KBesada24/ai-code-sentinel/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// SessionHandler exposes orchestrator operations per browser session
type SessionHandler struct {
	store         *orchestrator.Store
	validator     *validator.Validate
	maxCodeLength int
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(store *orchestrator.Store, cfg *config.Config) *SessionHandler {
	return &SessionHandler{
		store:         store,
		validator:     models.NewValidator(),
		maxCodeLength: cfg.MaxCodeLength,
	}
}

type createSessionRequest struct {
	Code     *string `json:"code"`
	Language string  `json:"language" validate:"omitempty,language"`
}

type updateCodeRequest struct {
	Code string `json:"code"`
}

type selectLanguageRequest struct {
	Language string `json:"language" validate:"required,language"`
}

// CreateSession handles POST /api/sessions. An empty body seeds the sample snippet.
func (h *SessionHandler) CreateSession(c *fiber.Ctx) error {
	var req createSessionRequest
	if len(c.Body()) > 0 {
		if ok, err := parseAndValidate(c, h.validator, &req); !ok {
			return err
		}
	}

	code := models.SampleCode
	if req.Code != nil {
		code = *req.Code
	}
	if ok, err := checkCodeLength(c, code, h.maxCodeLength); !ok {
		return err
	}

	o := h.store.Create(code, req.Language)
	return utils.CreatedResponse(c, "Session created successfully", render.BuildSessionView(o.ID(), o.Snapshot()))
}

// GetSession handles GET /api/sessions/:id
func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	o, ok := h.store.Get(c.Params("id"))
	if !ok {
		return utils.NotFoundResponse(c, "Session")
	}
	return utils.SuccessResponse(c, "Session retrieved successfully", render.BuildSessionView(o.ID(), o.Snapshot()))
}

// DeleteSession handles DELETE /api/sessions/:id
func (h *SessionHandler) DeleteSession(c *fiber.Ctx) error {
	if !h.store.Delete(c.Params("id")) {
		return utils.NotFoundResponse(c, "Session")
	}
	return utils.SuccessResponse(c, "Session deleted successfully", nil)
}

// UpdateCode handles PUT /api/sessions/:id/code
func (h *SessionHandler) UpdateCode(c *fiber.Ctx) error {
	o, ok := h.store.Get(c.Params("id"))
	if !ok {
		return utils.NotFoundResponse(c, "Session")
	}

	var req updateCodeRequest
	if ok, err := parseAndValidate(c, h.validator, &req); !ok {
		return err
	}
	if ok, err := checkCodeLength(c, req.Code, h.maxCodeLength); !ok {
		return err
	}

	state := o.EditCode(req.Code)
	return utils.SuccessResponse(c, "Code updated successfully", render.BuildSessionView(o.ID(), state))
}

// SelectLanguage handles PUT /api/sessions/:id/language
func (h *SessionHandler) SelectLanguage(c *fiber.Ctx) error {
	o, ok := h.store.Get(c.Params("id"))
	if !ok {
		return utils.NotFoundResponse(c, "Session")
	}

	var req selectLanguageRequest
	if ok, err := parseAndValidate(c, h.validator, &req); !ok {
		return err
	}

	state := o.SelectLanguage(req.Language)
	return utils.SuccessResponse(c, "Language updated successfully", render.BuildSessionView(o.ID(), state))
}

// RunReview handles POST /api/sessions/:id/review. It blocks until the review settles;
// a failed review is still a 200 carrying the failure in the view.
func (h *SessionHandler) RunReview(c *fiber.Ctx) error {
	o, ok := h.store.Get(c.Params("id"))
	if !ok {
		return utils.NotFoundResponse(c, "Session")
	}

	state, err := o.RunReview(context.Background())
	switch {
	case errors.Is(err, orchestrator.ErrNothingToReview):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "NOTHING_TO_REVIEW", "There is no code to review", nil)
	case errors.Is(err, orchestrator.ErrReviewInFlight):
		return utils.ConflictResponse(c, "REVIEW_IN_FLIGHT", "A review is already in progress for this session")
	case err != nil:
		return utils.InternalServerErrorResponse(c, err.Error())
	}

	message := "Review completed successfully"
	if state.Phase == orchestrator.PhaseFailure {
		message = "Review failed"
	}
	return utils.SuccessResponse(c, message, render.BuildSessionView(o.ID(), state))
}

// ClearSession handles POST /api/sessions/:id/clear
func (h *SessionHandler) ClearSession(c *fiber.Ctx) error {
	o, ok := h.store.Get(c.Params("id"))
	if !ok {
		return utils.NotFoundResponse(c, "Session")
	}

	state := o.ClearAll()
	return utils.SuccessResponse(c, "Session cleared successfully", render.BuildSessionView(o.ID(), state))
}
