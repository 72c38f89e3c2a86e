package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server Configuration
	Port        string
	Host        string
	Environment string

	// Review Provider Configuration
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// CORS Configuration
	FrontendURL string
	CORSOrigins []string

	// WebSocket Configuration
	WSEndpoint string

	// Logging Configuration
	LogLevel  string
	LogFormat string

	// Review Configuration
	ReviewTimeout     time.Duration
	ReviewMaxAttempts int
	MaxCodeLength     int
	SessionIdleTTL    time.Duration

	// Rate Limiting Configuration
	RateLimitRPS   float64
	RateLimitBurst int

	// Feature Toggles
	EnableWebSocket      bool
	EnableRateLimiting   bool
	EnableCircuitBreaker bool
	EnableDetailedErrors bool
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		// Server Configuration
		Port:        getEnv("PORT", "8080"),
		Host:        getEnv("HOST", "0.0.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Review Provider Configuration
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		// CORS Configuration
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		CORSOrigins: getEnvAsSlice("CORS_ORIGINS"),

		// WebSocket Configuration
		WSEndpoint: getEnv("WS_ENDPOINT", "/ws"),

		// Logging Configuration
		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),

		// Review Configuration
		ReviewTimeout:     getEnvAsDuration("REVIEW_TIMEOUT", 90*time.Second),
		ReviewMaxAttempts: getEnvAsInt("REVIEW_MAX_ATTEMPTS", 1),
		MaxCodeLength:     getEnvAsInt("MAX_CODE_LENGTH", 100000),
		SessionIdleTTL:    getEnvAsDuration("SESSION_IDLE_TTL", 30*time.Minute),

		// Rate Limiting Configuration
		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 5),

		// Feature Toggles (default to enabled)
		EnableWebSocket:      getEnvAsBool("ENABLE_WEBSOCKET", true),
		EnableRateLimiting:   getEnvAsBool("ENABLE_RATE_LIMITING", true),
		EnableCircuitBreaker: getEnvAsBool("ENABLE_CIRCUIT_BREAKER", true),
		EnableDetailedErrors: getEnvAsBool("ENABLE_DETAILED_ERRORS", false),
	}
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer with a fallback default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as float with a fallback default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as boolean with a fallback default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsSlice splits a comma separated variable, dropping empty entries
func getEnvAsSlice(key string) []string {
	var items []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// getEnvAsDuration parses values like "90s" or "30m"
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// HasProviderCredentials reports whether the review provider can be reached
func (c *Config) HasProviderCredentials() bool {
	return c.OpenAIAPIKey != ""
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return c.Host + ":" + c.Port
}

// Validate validates the configuration and returns any errors
func (c *Config) Validate() []string {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "PORT is required")
	}

	if c.Host == "" {
		errors = append(errors, "HOST is required")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		errors = append(errors, "LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.LogFormat) {
		errors = append(errors, "LOG_FORMAT must be one of: json, text")
	}

	validEnvironments := []string{"development", "staging", "production"}
	if !contains(validEnvironments, c.Environment) {
		errors = append(errors, "ENVIRONMENT must be one of: development, staging, production")
	}

	if c.ReviewTimeout <= 0 {
		errors = append(errors, "REVIEW_TIMEOUT must be a positive duration")
	}

	if c.ReviewMaxAttempts < 1 {
		errors = append(errors, "REVIEW_MAX_ATTEMPTS must be at least 1")
	}

	if c.MaxCodeLength < 1 {
		errors = append(errors, "MAX_CODE_LENGTH must be at least 1")
	}

	if c.EnableRateLimiting && (c.RateLimitRPS <= 0 || c.RateLimitBurst < 1) {
		errors = append(errors, "RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}

	return errors
}

// contains checks if a slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
