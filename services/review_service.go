package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/KBesada24/ai-code-sentinel/config"
	"github.com/KBesada24/ai-code-sentinel/models"
	"github.com/KBesada24/ai-code-sentinel/utils"
	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// ErrNotConfigured is returned when no provider API key is set
var ErrNotConfigured = errors.New("review service is not configured: OPENAI_API_KEY is missing")

// ErrRateLimited is wrapped when the local limiter or the provider throttles a review
var ErrRateLimited = errors.New("rate limit exceeded")

// AIReviewService reviews code through an OpenAI-compatible chat completion API
type AIReviewService struct {
	client         *openai.Client
	config         *config.Config
	model          string
	rateLimiter    *rate.Limiter
	decoder        *ResultDecoder
	mu             sync.RWMutex
	isAvailable    bool
	lastError      error
	lastCheck      time.Time
	reviewCount    int64
	failureCount   int64
	circuitBreaker *utils.CircuitBreaker
	retryExecutor  *utils.RetryExecutor
	pool           *utils.ConnectionPool
	logger         *utils.Logger
}

// NewAIReviewService creates a review service from configuration
func NewAIReviewService(cfg *config.Config, logger *utils.Logger) *AIReviewService {
	if logger == nil {
		logger = utils.GetLogger()
	}

	pool := utils.OpenAIConnectionPool()

	var client *openai.Client
	isAvailable := false

	if cfg.OpenAIAPIKey != "" {
		clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
		if cfg.OpenAIBaseURL != "" {
			clientConfig.BaseURL = strings.TrimRight(cfg.OpenAIBaseURL, "/")
		}
		clientConfig.HTTPClient = pool.GetClient()
		client = openai.NewClientWithConfig(clientConfig)
		isAvailable = true
	}

	// 1 request per second with a burst of 10
	limiter := rate.NewLimiter(rate.Every(time.Second), 10)

	var breaker *utils.CircuitBreaker
	if cfg.EnableCircuitBreaker {
		breaker = utils.NewCircuitBreaker(&utils.CircuitBreakerConfig{
			MaxFailures:      3,
			Timeout:          60 * time.Second,
			MaxRequests:      2,
			SuccessThreshold: 2,
			Name:             "review_provider",
		}, logger)
	}

	retryConfig := &utils.RetryConfig{
		MaxAttempts:       cfg.ReviewMaxAttempts,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}

	model := cfg.OpenAIModel
	if model == "" {
		model = openai.GPT4oMini
	}

	return &AIReviewService{
		client:         client,
		config:         cfg,
		model:          model,
		rateLimiter:    limiter,
		decoder:        NewResultDecoder(),
		isAvailable:    isAvailable,
		lastCheck:      time.Now(),
		circuitBreaker: breaker,
		retryExecutor:  utils.NewRetryExecutor(retryConfig, logger),
		pool:           pool,
		logger:         logger,
	}
}

// IsAvailable reports whether the last provider call succeeded
func (s *AIReviewService) IsAvailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isAvailable && s.client != nil
}

// Review sends code to the provider and decodes the structured result
func (s *AIReviewService) Review(ctx context.Context, code, language string) (*models.CodeReviewResult, error) {
	if s.client == nil {
		return nil, ErrNotConfigured
	}

	requestID := uuid.New().String()
	log := s.logger.WithSource("review_service").WithContext(map[string]interface{}{
		"request_id": requestID,
		"language":   language,
	})
	start := time.Now()

	var content string
	err := s.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		return s.guard(ctx, func(ctx context.Context) error {
			if err := s.rateLimiter.Wait(ctx); err != nil {
				return fmt.Errorf("%w: %w", ErrRateLimited, err)
			}

			resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model: s.model,
				Messages: []openai.ChatCompletionMessage{
					{
						Role:    openai.ChatMessageRoleSystem,
						Content: ReviewSystemPrompt(),
					},
					{
						Role:    openai.ChatMessageRoleUser,
						Content: BuildReviewPrompt(code, language),
					},
				},
				Temperature: 0.2,
				ResponseFormat: &openai.ChatCompletionResponseFormat{
					Type: openai.ChatCompletionResponseFormatTypeJSONObject,
				},
			})
			if err != nil {
				s.updateAvailability(false, err)
				var apiErr *openai.APIError
				if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
					return fmt.Errorf("%w: review request failed: %w", ErrRateLimited, err)
				}
				return fmt.Errorf("review request failed: %w", err)
			}

			s.updateAvailability(true, nil)

			if len(resp.Choices) == 0 {
				return fmt.Errorf("%w: no choices returned", ErrMalformedResponse)
			}
			content = resp.Choices[0].Message.Content
			return nil
		})
	})
	if err != nil {
		retriesExhausted := utils.IsRetryableError(err)
		err = unwrapRetry(err)
		s.recordOutcome(false)
		log.Error("Review request failed", err, map[string]interface{}{
			"duration_ms":       time.Since(start).Milliseconds(),
			"retries_exhausted": retriesExhausted,
		})
		return nil, err
	}

	result, err := s.decoder.Decode(content)
	if err != nil {
		s.recordOutcome(false)
		log.Warn("Review response rejected", map[string]interface{}{
			"error":          err.Error(),
			"content_length": len(content),
		})
		return nil, err
	}

	s.recordOutcome(true)
	log.Info("Review completed", map[string]interface{}{
		"rating":      string(result.Rating),
		"issue_count": len(result.Issues),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return result, nil
}

func (s *AIReviewService) guard(ctx context.Context, fn func(context.Context) error) error {
	if s.circuitBreaker == nil {
		return fn(ctx)
	}
	return s.circuitBreaker.Execute(ctx, fn)
}

// unwrapRetry drops the attempt prefix so callers see the provider error
func unwrapRetry(err error) error {
	var retryErr *utils.RetryableError
	if errors.As(err, &retryErr) && retryErr.Err != nil {
		return retryErr.Err
	}
	return err
}

func (s *AIReviewService) recordOutcome(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reviewCount++
	if !success {
		s.failureCount++
	}
}

func (s *AIReviewService) updateAvailability(available bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.isAvailable = available
	s.lastError = err
	s.lastCheck = time.Now()
}

// GetStatus returns the current status of the review service
func (s *AIReviewService) GetStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := map[string]interface{}{
		"available":     s.isAvailable && s.client != nil,
		"configured":    s.client != nil,
		"model":         s.model,
		"last_check":    s.lastCheck,
		"review_count":  s.reviewCount,
		"failure_count": s.failureCount,
		"max_attempts":  s.config.ReviewMaxAttempts,
		"connections":   s.pool.GetStats(),
	}

	if s.lastError != nil {
		status["last_error"] = s.lastError.Error()
	}
	if s.circuitBreaker != nil {
		status["circuit_breaker"] = s.circuitBreaker.GetStats()
	}

	return status
}

// HealthCheck performs a minimal provider call
func (s *AIReviewService) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return ErrNotConfigured
	}

	return s.guard(ctx, func(ctx context.Context) error {
		if err := s.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w during health check: %w", ErrRateLimited, err)
		}

		_, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: "Hello",
				},
			},
			MaxTokens: 5,
		})
		if err != nil {
			s.updateAvailability(false, err)
			return fmt.Errorf("review service health check failed: %w", err)
		}

		s.updateAvailability(true, nil)
		return nil
	})
}
