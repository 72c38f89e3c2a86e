package utils

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	// StateClosed - requests are allowed
	StateClosed CircuitBreakerState = iota
	// StateOpen - requests are rejected
	StateOpen
	// StateHalfOpen - limited trial requests are allowed
	StateHalfOpen
)

// String returns the string representation of the circuit breaker state
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig holds configuration for a circuit breaker
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit
	MaxFailures int
	// Timeout is how long the circuit stays open before a trial request
	Timeout time.Duration
	// MaxRequests caps the trial requests in flight while half-open
	MaxRequests int
	// SuccessThreshold is the number of trial successes needed to close again
	SuccessThreshold int
	// Name identifies the breaker in logs and stats
	Name string
}

// DefaultCircuitBreakerConfig returns a default configuration
func DefaultCircuitBreakerConfig(name string) *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		MaxRequests:      3,
		SuccessThreshold: 2,
		Name:             name,
	}
}

// CircuitBreaker guards calls to an unreliable upstream
type CircuitBreaker struct {
	config           *CircuitBreakerConfig
	state            CircuitBreakerState
	failures         int
	successes        int
	requests         int
	lastFailureTime  time.Time
	lastSuccessTime  time.Time
	stateChangedTime time.Time
	mu               sync.RWMutex
	logger           *Logger
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config *CircuitBreakerConfig, logger *Logger) *CircuitBreaker {
	if config == nil {
		config = DefaultCircuitBreakerConfig("default")
	}
	if logger == nil {
		logger = GetLogger()
	}

	return &CircuitBreaker{
		config:           config,
		state:            StateClosed,
		stateChangedTime: time.Now(),
		logger:           logger,
	}
}

// Execute runs fn unless the circuit is open
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !cb.allowRequest() {
		state := cb.GetState()
		return &CircuitBreakerError{
			State:   state,
			Message: fmt.Sprintf("circuit breaker %s is %s", cb.config.Name, state),
		}
	}

	if err := fn(ctx); err != nil {
		cb.recordFailure()
		return err
	}

	cb.recordSuccess()
	return nil
}

func (cb *CircuitBreaker) allowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.stateChangedTime) >= cb.config.Timeout {
			cb.setState(StateHalfOpen)
			cb.requests = 1
			return true
		}
		return false
	case StateHalfOpen:
		if cb.requests >= cb.config.MaxRequests {
			return false
		}
		cb.requests++
		return true
	default:
		return false
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastSuccessTime = time.Now()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.requests > 0 {
			cb.requests--
		}
		if cb.successes >= cb.config.SuccessThreshold {
			cb.setState(StateClosed)
			cb.failures = 0
			cb.successes = 0
			cb.requests = 0
		}
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = time.Now()

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.config.MaxFailures {
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		// any trial failure reopens
		cb.setState(StateOpen)
		cb.successes = 0
		cb.requests = 0
	}

	cb.logger.WithSource("circuit_breaker").Warn("Request failed", map[string]interface{}{
		"circuit_breaker": cb.config.Name,
		"state":           cb.state.String(),
		"failures":        cb.failures,
	})
}

// setState must be called with mu held
func (cb *CircuitBreaker) setState(newState CircuitBreakerState) {
	if cb.state == newState {
		return
	}
	oldState := cb.state
	cb.state = newState
	cb.stateChangedTime = time.Now()

	cb.logger.WithSource("circuit_breaker").Info("Circuit breaker state changed", map[string]interface{}{
		"circuit_breaker": cb.config.Name,
		"old_state":       oldState.String(),
		"new_state":       newState.String(),
		"failures":        cb.failures,
	})
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// GetStats returns statistics about the circuit breaker
func (cb *CircuitBreaker) GetStats() map[string]interface{} {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return map[string]interface{}{
		"name":               cb.config.Name,
		"state":              cb.state.String(),
		"failures":           cb.failures,
		"successes":          cb.successes,
		"last_failure_time":  cb.lastFailureTime,
		"last_success_time":  cb.lastSuccessTime,
		"state_changed_time": cb.stateChangedTime,
		"max_failures":       cb.config.MaxFailures,
		"timeout":            cb.config.Timeout.String(),
	}
}

// Reset closes the circuit and clears counters
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
	cb.requests = 0
	cb.stateChangedTime = time.Now()
}

// CircuitBreakerError is returned when a call is rejected by an open circuit
type CircuitBreakerError struct {
	State   CircuitBreakerState
	Message string
}

// Error implements the error interface
func (e *CircuitBreakerError) Error() string {
	return e.Message
}

// IsCircuitBreakerError checks if an error is a circuit breaker error
func IsCircuitBreakerError(err error) bool {
	var cbErr *CircuitBreakerError
	return errors.As(err, &cbErr)
}
