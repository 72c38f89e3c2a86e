package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryExecutor_SingleAttemptDoesNotRetry(t *testing.T) {
	re := NewRetryExecutor(&RetryConfig{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiplier: 2}, quietLogger())

	calls := 0
	err := re.Execute(context.Background(), func(context.Context) error {
		calls++
		return errors.New("timeout talking to upstream")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, IsRetryableError(err))
}

func TestRetryExecutor_RetriesTransientErrors(t *testing.T) {
	re := NewRetryExecutor(&RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffMultiplier: 2}, quietLogger())

	calls := 0
	err := re.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("rate limit reached")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExecutor_StopsOnPermanentError(t *testing.T) {
	re := NewRetryExecutor(&RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiplier: 2}, quietLogger())

	permanent := errors.New("invalid api key")
	calls := 0
	err := re.Execute(context.Background(), func(context.Context) error {
		calls++
		return permanent
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, permanent)
	assert.False(t, IsRetryableError(err))
}

func TestRetryExecutor_DoesNotRetryOpenCircuit(t *testing.T) {
	re := NewRetryExecutor(&RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiplier: 2}, quietLogger())

	calls := 0
	err := re.Execute(context.Background(), func(context.Context) error {
		calls++
		return &CircuitBreakerError{State: StateOpen, Message: "circuit breaker openai is OPEN"}
	})

	assert.Equal(t, 1, calls)
	assert.True(t, IsCircuitBreakerError(err))
}

func TestRetryExecutor_ContextCancelled(t *testing.T) {
	re := NewRetryExecutor(nil, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := re.Execute(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExponentialBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, ExponentialBackoff(1, 100*time.Millisecond, time.Second, 2, false))
	assert.Equal(t, 400*time.Millisecond, ExponentialBackoff(3, 100*time.Millisecond, time.Second, 2, false))
	assert.Equal(t, time.Second, ExponentialBackoff(10, 100*time.Millisecond, time.Second, 2, false))

	withJitter := ExponentialBackoff(1, 100*time.Millisecond, time.Second, 2, true)
	assert.GreaterOrEqual(t, withJitter, 100*time.Millisecond)
	assert.LessOrEqual(t, withJitter, 110*time.Millisecond)
}

func TestIsTransientError(t *testing.T) {
	assert.True(t, IsTransientError(errors.New("dial tcp: Connection Refused")))
	assert.True(t, IsTransientError(errors.New("context deadline exceeded (Client.Timeout)")))
	assert.False(t, IsTransientError(errors.New("bad request")))
	assert.False(t, IsTransientError(nil))
}
