package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/KBesada24/ai-code-sentinel/models"
	"github.com/KBesada24/ai-code-sentinel/services"
	"github.com/KBesada24/ai-code-sentinel/utils"
)

// Notifier observes every state transition of a session
type Notifier interface {
	NotifyState(sessionID string, state State)
}

// Options tunes orchestrator behavior
type Options struct {
	// ReviewTimeout bounds one service call; zero means no bound
	ReviewTimeout time.Duration
}

// Orchestrator owns the editing and review state of one session
type Orchestrator struct {
	id         string
	service    services.ReviewService
	notifier   Notifier
	opts       Options
	logger     *utils.Logger
	mu         sync.Mutex
	state      State
	lastActive time.Time
}

// New creates an orchestrator starting from initial
func New(id string, initial State, service services.ReviewService, notifier Notifier, opts Options, logger *utils.Logger) *Orchestrator {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &Orchestrator{
		id:         id,
		service:    service,
		notifier:   notifier,
		opts:       opts,
		logger:     logger,
		state:      initial,
		lastActive: time.Now(),
	}
}

// ID returns the session id
func (o *Orchestrator) ID() string {
	return o.id
}

// Snapshot returns the current state
func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastActive returns the time of the last operation
func (o *Orchestrator) LastActive() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastActive
}

// EditCode replaces the code unconditionally
func (o *Orchestrator) EditCode(code string) State {
	return o.dispatch(EditCode{Code: code})
}

// SelectLanguage replaces the language; it does not start a review
func (o *Orchestrator) SelectLanguage(language string) State {
	return o.dispatch(SelectLanguage{Language: language})
}

// ClearAll empties the code and drops result and error.
// A pending review keeps running and its outcome is still recorded.
func (o *Orchestrator) ClearAll() State {
	return o.dispatch(ClearAll{})
}

// RunReview starts a review and blocks until it settles.
// It fails fast with ErrNothingToReview or ErrReviewInFlight and leaves state untouched.
func (o *Orchestrator) RunReview(ctx context.Context) (State, error) {
	o.mu.Lock()
	if strings.TrimSpace(o.state.Code) == "" {
		s := o.state
		o.mu.Unlock()
		return s, ErrNothingToReview
	}
	if o.state.Loading {
		s := o.state
		o.mu.Unlock()
		return s, ErrReviewInFlight
	}
	o.apply(StartReview{})
	generation := o.state.Generation
	code, language := o.state.Code, o.state.Language
	o.mu.Unlock()

	log := o.logger.WithSource("orchestrator").WithContext(map[string]interface{}{
		"session_id": o.id,
		"generation": generation,
	})
	log.Debug("Review started", map[string]interface{}{"language": language})

	if o.opts.ReviewTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.ReviewTimeout)
		defer cancel()
	}

	result, err := o.invoke(ctx, code, language)

	var settle Action
	switch {
	case err != nil:
		failure := NewReviewFailed(err)
		log.Warn("Review failed", map[string]interface{}{"error": failure.Display()})
		settle = ReviewFailedAction{Generation: generation, Err: failure}
	case result == nil:
		settle = ReviewFailedAction{Generation: generation, Err: &ReviewFailed{}}
	default:
		log.Debug("Review succeeded", map[string]interface{}{"rating": string(result.Rating)})
		settle = ReviewSucceeded{Generation: generation, Result: result}
	}

	return o.dispatch(settle), nil
}

// invoke calls the service and turns a panic into an error
func (o *Orchestrator) invoke(ctx context.Context, code, language string) (result *models.CodeReviewResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.WithSource("orchestrator").Error("Review service panicked", fmt.Errorf("%v", r), map[string]interface{}{
				"session_id": o.id,
			})
			result = nil
			err = fmt.Errorf("review service panicked: %v", r)
		}
	}()
	return o.service.Review(ctx, code, language)
}

func (o *Orchestrator) dispatch(action Action) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.apply(action)
	return o.state
}

// apply must be called with mu held
func (o *Orchestrator) apply(action Action) {
	o.state = Reduce(o.state, action)
	o.lastActive = time.Now()
	if o.notifier != nil {
		o.notifier.NotifyState(o.id, o.state)
	}
}
