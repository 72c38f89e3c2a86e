package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KBesada24/ai-code-sentinel/config"
	"github.com/KBesada24/ai-code-sentinel/models"
	"github.com/KBesada24/ai-code-sentinel/services"
	"github.com/KBesada24/ai-code-sentinel/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockReviewService is a mock implementation of the review service
type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) Review(ctx context.Context, code, language string) (*models.CodeReviewResult, error) {
	args := m.Called(code, language)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CodeReviewResult), args.Error(1)
}

// MockStatusService adds status reporting to MockReviewService
type MockStatusService struct {
	MockReviewService
}

func (m *MockStatusService) IsAvailable() bool {
	return m.Called().Bool(0)
}

func (m *MockStatusService) GetStatus() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

func (m *MockStatusService) HealthCheck(ctx context.Context) error {
	return m.Called().Error(0)
}

func testConfig() *config.Config {
	return &config.Config{
		ReviewTimeout:   5 * time.Second,
		MaxCodeLength:   1000,
		EnableWebSocket: true,
		WSEndpoint:      "/ws",
	}
}

func goodResult() *models.CodeReviewResult {
	return &models.CodeReviewResult{
		Rating:            models.RatingGood,
		Summary:           "Fine.",
		Explanation:       "Uses **var**.",
		Issues:            []models.CodeIssue{},
		Suggestions:       []string{"add semicolons"},
		ImprovedCode:      "function f() { return 1; }",
		AIUsagePercentage: 20,
	}
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, utils.StandardResponse) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var response utils.StandardResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	return resp, response
}

func TestReviewHandler_Review(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		mockResult     *models.CodeReviewResult
		mockError      error
		expectedStatus int
		expectedCode   string
		expectCall     bool
	}{
		{
			name:           "successful review",
			requestBody:    models.ReviewRequest{Code: "function f(){return 1}", Language: "JavaScript"},
			mockResult:     goodResult(),
			expectedStatus: http.StatusOK,
			expectCall:     true,
		},
		{
			name:           "blank code",
			requestBody:    models.ReviewRequest{Code: "   ", Language: "JavaScript"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "unsupported language",
			requestBody:    models.ReviewRequest{Code: "x", Language: "COBOL"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "code too long",
			requestBody:    models.ReviewRequest{Code: strings.Repeat("a", 1001), Language: "Go"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "invalid JSON body",
			requestBody:    "invalid json",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "BAD_REQUEST",
		},
		{
			name:           "service not configured",
			requestBody:    models.ReviewRequest{Code: "x", Language: "Go"},
			mockError:      services.ErrNotConfigured,
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   "SERVICE_UNAVAILABLE",
			expectCall:     true,
		},
		{
			name:           "circuit open",
			requestBody:    models.ReviewRequest{Code: "x", Language: "Go"},
			mockError:      &utils.CircuitBreakerError{State: utils.StateOpen, Message: "open"},
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   "SERVICE_UNAVAILABLE",
			expectCall:     true,
		},
		{
			name:           "rate limited",
			requestBody:    models.ReviewRequest{Code: "x", Language: "Go"},
			mockError:      fmt.Errorf("%w: %w", services.ErrRateLimited, context.DeadlineExceeded),
			expectedStatus: http.StatusTooManyRequests,
			expectedCode:   "RATE_LIMIT_EXCEEDED",
			expectCall:     true,
		},
		{
			name:           "rate limit wording without sentinel",
			requestBody:    models.ReviewRequest{Code: "x", Language: "Go"},
			mockError:      errors.New("provider said: rate limit reached for org"),
			expectedStatus: http.StatusBadGateway,
			expectedCode:   "REVIEW_FAILED",
			expectCall:     true,
		},
		{
			name:           "malformed model output",
			requestBody:    models.ReviewRequest{Code: "x", Language: "Go"},
			mockError:      fmt.Errorf("%w: no JSON object found", services.ErrMalformedResponse),
			expectedStatus: http.StatusBadGateway,
			expectedCode:   "REVIEW_FAILED",
			expectCall:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockReviewService)
			if tt.expectCall {
				svc.On("Review", mock.Anything, mock.Anything).Return(tt.mockResult, tt.mockError)
			}

			handler := NewReviewHandler(svc, testConfig())
			app := fiber.New()
			app.Post("/api/review", handler.Review)

			resp, response := doJSON(t, app, http.MethodPost, "/api/review", tt.requestBody)

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedCode == "" {
				assert.True(t, response.Success)
				data := response.Data.(map[string]interface{})
				view := data["view"].(map[string]interface{})
				assert.Equal(t, float64(80), view["humanPercentage"])
				assert.Equal(t, "Likely Human", view["verdict"])
			} else {
				assert.False(t, response.Success)
				require.NotNil(t, response.Error)
				assert.Equal(t, tt.expectedCode, response.Error.Code)
			}

			if tt.expectCall {
				svc.AssertExpectations(t)
			} else {
				svc.AssertNotCalled(t, "Review", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestReviewHandler_ReviewFailedMessage(t *testing.T) {
	svc := new(MockReviewService)
	svc.On("Review", "x", "Go").Return(nil, errors.New("quota exhausted"))

	handler := NewReviewHandler(svc, testConfig())
	app := fiber.New()
	app.Post("/api/review", handler.Review)

	_, response := doJSON(t, app, http.MethodPost, "/api/review", models.ReviewRequest{Code: "x", Language: "Go"})

	require.NotNil(t, response.Error)
	assert.Equal(t, "Analysis failed: quota exhausted", response.Error.Message)
}

func TestReviewHandler_ValidationDetailsUseJSONNames(t *testing.T) {
	handler := NewReviewHandler(new(MockReviewService), testConfig())
	app := fiber.New()
	app.Post("/api/review", handler.Review)

	_, response := doJSON(t, app, http.MethodPost, "/api/review", map[string]string{"code": "", "language": "Nope"})

	require.NotNil(t, response.Error)
	assert.Contains(t, response.Error.Details, "code")
	assert.Equal(t, "Unsupported language", response.Error.Details["language"])
}

func TestReviewHandler_GetLanguages(t *testing.T) {
	handler := NewReviewHandler(new(MockReviewService), testConfig())
	app := fiber.New()
	app.Get("/api/languages", handler.GetLanguages)

	resp, response := doJSON(t, app, http.MethodGet, "/api/languages", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := response.Data.(map[string]interface{})
	assert.Equal(t, "JavaScript", data["default"])
	assert.Len(t, data["languages"], len(models.SupportedLanguages))
}

func TestReviewHandler_StatusAndHealth(t *testing.T) {
	svc := new(MockStatusService)
	svc.On("GetStatus").Return(map[string]interface{}{"available": true})
	svc.On("IsAvailable").Return(true)
	svc.On("HealthCheck").Return(nil).Once()
	svc.On("HealthCheck").Return(errors.New("down")).Once()

	handler := NewReviewHandler(svc, testConfig())
	app := fiber.New()
	app.Get("/api/review/status", handler.GetStatus)
	app.Get("/api/review/health", handler.HealthCheck)

	resp, response := doJSON(t, app, http.MethodGet, "/api/review/status", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Review service status retrieved successfully", response.Message)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/review/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, response = doJSON(t, app, http.MethodGet, "/api/review/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "SERVICE_UNAVAILABLE", response.Error.Code)
}

func TestReviewHandler_StatusWithoutReporter(t *testing.T) {
	handler := NewReviewHandler(new(MockReviewService), testConfig())
	app := fiber.New()
	app.Get("/api/review/status", handler.GetStatus)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/review/status", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
