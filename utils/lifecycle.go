package utils

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

type shutdownStep struct {
	name string
	fn   func(context.Context) error
}

// GracefulShutdown runs registered shutdown steps in reverse registration order
type GracefulShutdown struct {
	steps   []shutdownStep
	timeout time.Duration
	logger  *Logger
	mu      sync.Mutex
}

// NewGracefulShutdown creates a new graceful shutdown handler
func NewGracefulShutdown(timeout time.Duration, logger *Logger) *GracefulShutdown {
	if logger == nil {
		logger = GetLogger()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &GracefulShutdown{
		timeout: timeout,
		logger:  logger,
	}
}

// Register adds a named shutdown step
func (gs *GracefulShutdown) Register(name string, fn func(context.Context) error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.steps = append(gs.steps, shutdownStep{name: name, fn: fn})
}

// Shutdown runs every step, last registered first. A failing or panicking
// step does not stop the others; the deadline does.
func (gs *GracefulShutdown) Shutdown(ctx context.Context) error {
	gs.mu.Lock()
	steps := make([]shutdownStep, len(gs.steps))
	copy(steps, gs.steps)
	gs.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, gs.timeout)
	defer cancel()

	log := gs.logger.WithSource("graceful_shutdown")
	log.Info("Starting graceful shutdown", map[string]interface{}{
		"steps":   len(steps),
		"timeout": gs.timeout.String(),
	})

	var errs []error
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		if err := runStep(shutdownCtx, step); err != nil {
			errs = append(errs, err)
			log.Error("Shutdown step failed", err, map[string]interface{}{
				"step": step.name,
			})
		}

		if shutdownCtx.Err() != nil {
			log.Warn("Shutdown timeout reached", map[string]interface{}{
				"remaining_steps": i,
			})
			errs = append(errs, shutdownCtx.Err())
			break
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	log.Info("Graceful shutdown completed successfully")
	return nil
}

func runStep(ctx context.Context, step shutdownStep) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: shutdown step panicked: %v", step.name, r)
		}
	}()

	if err := step.fn(ctx); err != nil {
		return fmt.Errorf("%s: %w", step.name, err)
	}
	return nil
}

// HealthRegistry holds named health checks for the health endpoint
type HealthRegistry struct {
	mu     sync.RWMutex
	checks map[string]func(context.Context) error
}

// NewHealthRegistry creates an empty registry
func NewHealthRegistry() *HealthRegistry {
	return &HealthRegistry{checks: make(map[string]func(context.Context) error)}
}

// Register adds or replaces a named check
func (hr *HealthRegistry) Register(name string, check func(context.Context) error) {
	hr.mu.Lock()
	defer hr.mu.Unlock()
	hr.checks[name] = check
}

// Run executes every check and reports "ok" or the error text per check
func (hr *HealthRegistry) Run(ctx context.Context) (map[string]string, bool) {
	hr.mu.RLock()
	names := make([]string, 0, len(hr.checks))
	for name := range hr.checks {
		names = append(names, name)
	}
	checks := make(map[string]func(context.Context) error, len(hr.checks))
	for k, v := range hr.checks {
		checks[k] = v
	}
	hr.mu.RUnlock()
	sort.Strings(names)

	results := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := runCheck(ctx, checks[name]); err != nil {
			results[name] = err.Error()
			healthy = false
			continue
		}
		results[name] = "ok"
	}
	return results, healthy
}

func runCheck(ctx context.Context, check func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("health check panicked: %v", r)
		}
	}()
	return check(ctx)
}
