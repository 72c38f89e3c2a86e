package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/KBesada24/ai-code-sentinel/models"
	"github.com/KBesada24/ai-code-sentinel/orchestrator"
	"github.com/KBesada24/ai-code-sentinel/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupSessionApp(svc *MockReviewService) (*fiber.App, *orchestrator.Store) {
	logger := utils.NewLoggerWithWriter("error", "json", io.Discard)
	store := orchestrator.NewStore(svc, nil, orchestrator.Options{}, logger)
	handler := NewSessionHandler(store, testConfig())

	app := fiber.New()
	sessions := app.Group("/api/sessions")
	sessions.Post("/", handler.CreateSession)
	sessions.Get("/:id", handler.GetSession)
	sessions.Delete("/:id", handler.DeleteSession)
	sessions.Put("/:id/code", handler.UpdateCode)
	sessions.Put("/:id/language", handler.SelectLanguage)
	sessions.Post("/:id/review", handler.RunReview)
	sessions.Post("/:id/clear", handler.ClearSession)
	return app, store
}

func viewOf(t *testing.T, response utils.StandardResponse) map[string]interface{} {
	t.Helper()
	data, ok := response.Data.(map[string]interface{})
	require.True(t, ok, "expected session view, got %#v", response.Data)
	return data
}

func TestSessionHandler_CreateWithoutBodySeedsSample(t *testing.T) {
	app, store := setupSessionApp(new(MockReviewService))

	resp, response := doJSON(t, app, http.MethodPost, "/api/sessions", nil)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	view := viewOf(t, response)
	assert.Equal(t, models.SampleCode, view["code"])
	assert.Equal(t, models.DefaultLanguage, view["language"])
	assert.Equal(t, "idle", view["phase"])
	assert.Equal(t, true, view["canReview"])
	assert.Equal(t, 1, store.Len())
}

func TestSessionHandler_CreateWithBody(t *testing.T) {
	app, _ := setupSessionApp(new(MockReviewService))

	resp, response := doJSON(t, app, http.MethodPost, "/api/sessions", map[string]string{"code": "", "language": "Rust"})

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	view := viewOf(t, response)
	assert.Equal(t, "", view["code"])
	assert.Equal(t, "Rust", view["language"])
	assert.Equal(t, false, view["canReview"])

	resp, _ = doJSON(t, app, http.MethodPost, "/api/sessions", map[string]string{"language": "Klingon"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionHandler_EditSelectAndGet(t *testing.T) {
	app, store := setupSessionApp(new(MockReviewService))
	o := store.Create("a", "Go")
	base := "/api/sessions/" + o.ID()

	resp, response := doJSON(t, app, http.MethodPut, base+"/code", map[string]string{"code": "fn main() {}"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "fn main() {}", viewOf(t, response)["code"])

	resp, response = doJSON(t, app, http.MethodPut, base+"/language", map[string]string{"language": "Rust"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Rust", viewOf(t, response)["language"])

	resp, _ = doJSON(t, app, http.MethodPut, base+"/language", map[string]string{"language": "rust"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, response = doJSON(t, app, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	view := viewOf(t, response)
	assert.Equal(t, "fn main() {}", view["code"])
	assert.Equal(t, "Rust", view["language"])
}

func TestSessionHandler_RunReviewSuccess(t *testing.T) {
	svc := new(MockReviewService)
	svc.On("Review", "function f(){return 1}", "JavaScript").Return(goodResult(), nil)

	app, store := setupSessionApp(svc)
	o := store.Create("function f(){return 1}", "JavaScript")

	resp, response := doJSON(t, app, http.MethodPost, "/api/sessions/"+o.ID()+"/review", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	view := viewOf(t, response)
	assert.Equal(t, "success", view["phase"])
	assert.Equal(t, false, view["loading"])
	result := view["result"].(map[string]interface{})
	assert.Equal(t, float64(80), result["humanPercentage"])
	svc.AssertExpectations(t)
}

func TestSessionHandler_RunReviewFailureWithoutMessage(t *testing.T) {
	svc := new(MockReviewService)
	svc.On("Review", mock.Anything, mock.Anything).Return(nil, errors.New(""))

	app, store := setupSessionApp(svc)
	o := store.Create("x", "Go")

	resp, response := doJSON(t, app, http.MethodPost, "/api/sessions/"+o.ID()+"/review", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Review failed", response.Message)
	view := viewOf(t, response)
	assert.Equal(t, "failure", view["phase"])
	assert.Equal(t, orchestrator.FallbackFailureMessage, view["error"])
	assert.Nil(t, view["result"])
}

func TestSessionHandler_RunReviewBlankCode(t *testing.T) {
	svc := new(MockReviewService)
	app, store := setupSessionApp(svc)
	o := store.Create("  \n", "Go")

	resp, response := doJSON(t, app, http.MethodPost, "/api/sessions/"+o.ID()+"/review", nil)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "NOTHING_TO_REVIEW", response.Error.Code)
	svc.AssertNotCalled(t, "Review", mock.Anything, mock.Anything)
}

func TestSessionHandler_RunReviewWhilePending(t *testing.T) {
	release := make(chan time.Time)
	svc := new(MockReviewService)
	svc.On("Review", mock.Anything, mock.Anything).WaitUntil(release).Return(goodResult(), nil).Once()

	app, store := setupSessionApp(svc)
	o := store.Create("x", "Go")

	done := make(chan struct{})
	go func() {
		_, _ = o.RunReview(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool { return o.Snapshot().Loading }, time.Second, time.Millisecond)

	resp, response := doJSON(t, app, http.MethodPost, "/api/sessions/"+o.ID()+"/review", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "REVIEW_IN_FLIGHT", response.Error.Code)

	close(release)
	<-done
	assert.Equal(t, orchestrator.PhaseSuccess, o.Snapshot().Phase)
}

func TestSessionHandler_ClearAndDelete(t *testing.T) {
	app, store := setupSessionApp(new(MockReviewService))
	o := store.Create("some code", "Go")
	base := "/api/sessions/" + o.ID()

	resp, response := doJSON(t, app, http.MethodPost, base+"/clear", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	view := viewOf(t, response)
	assert.Equal(t, "", view["code"])
	assert.Equal(t, "Go", view["language"])

	resp, _ = doJSON(t, app, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, response = doJSON(t, app, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", response.Error.Code)
}

func TestSessionHandler_UnknownSession(t *testing.T) {
	app, _ := setupSessionApp(new(MockReviewService))

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/sessions/missing"},
		{http.MethodDelete, "/api/sessions/missing"},
		{http.MethodPut, "/api/sessions/missing/code"},
		{http.MethodPost, "/api/sessions/missing/review"},
		{http.MethodPost, "/api/sessions/missing/clear"},
	} {
		resp, _ := doJSON(t, app, tc.method, tc.path, map[string]string{"code": "x"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, tc.path)
	}
}
