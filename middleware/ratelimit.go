package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/KBesada24/ai-code-sentinel/utils"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// IdleTTL evicts limiters for keys not seen for this long; zero keeps them forever
	IdleTTL        time.Duration
	SkipPaths      []string
	KeyGenerator   func(*fiber.Ctx) string
	OnLimitReached func(*fiber.Ctx) error
}

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiting limits requests per key, by client IP unless KeyGenerator is set
func RateLimiting(config RateLimitConfig) fiber.Handler {
	limiters := make(map[string]*keyedLimiter)
	var mu sync.Mutex
	lastSweep := time.Now()

	if config.KeyGenerator == nil {
		config.KeyGenerator = func(c *fiber.Ctx) string {
			return c.IP()
		}
	}

	retryAfter := "1"
	if config.RequestsPerSecond > 0 && config.RequestsPerSecond < 1 {
		retryAfter = strconv.Itoa(int(1/config.RequestsPerSecond + 0.5))
	}

	if config.OnLimitReached == nil {
		config.OnLimitReached = func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderRetryAfter, retryAfter)
			return utils.ErrorResponse(c, fiber.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
				"Too many requests", map[string]string{
					"retry_after": retryAfter,
				})
		}
	}

	return func(c *fiber.Ctx) error {
		if shouldSkipPath(c.Path(), config.SkipPaths) {
			return c.Next()
		}

		key := config.KeyGenerator(c)
		now := time.Now()

		mu.Lock()
		if config.IdleTTL > 0 && now.Sub(lastSweep) >= config.IdleTTL {
			for k, kl := range limiters {
				if now.Sub(kl.lastSeen) >= config.IdleTTL {
					delete(limiters, k)
				}
			}
			lastSweep = now
		}
		kl, ok := limiters[key]
		if !ok {
			kl = &keyedLimiter{limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.BurstSize)}
			limiters[key] = kl
		}
		kl.lastSeen = now
		allowed := kl.limiter.Allow()
		mu.Unlock()

		if !allowed {
			GetLoggerFromContext(c).WithSource("rate_limiter").Warn("Rate limit exceeded", map[string]interface{}{
				"key":                 key,
				"path":                c.Path(),
				"method":              c.Method(),
				"requests_per_second": config.RequestsPerSecond,
				"burst_size":          config.BurstSize,
			})
			return config.OnLimitReached(c)
		}

		return c.Next()
	}
}
