package services

import (
	"context"

	"github.com/KBesada24/ai-code-sentinel/models"
)

// ReviewService performs one AI-driven review of a code snippet
type ReviewService interface {
	Review(ctx context.Context, code, language string) (*models.CodeReviewResult, error)
}

// StatusReporter exposes availability of a review backend
type StatusReporter interface {
	IsAvailable() bool
	GetStatus() map[string]interface{}
	HealthCheck(ctx context.Context) error
}
