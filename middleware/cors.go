package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool
	ExposeHeaders    []string
	MaxAge           int
}

// DefaultCORSConfig allows the configured frontend plus local development origins
func DefaultCORSConfig(frontendURL string) CORSConfig {
	origins := []string{"http://localhost:8080", "http://127.0.0.1:8080"}
	if frontendURL != "" && !containsString(origins, frontendURL) {
		origins = append([]string{frontendURL}, origins...)
	}

	return CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{
			fiber.MethodGet,
			fiber.MethodPost,
			fiber.MethodPut,
			fiber.MethodDelete,
			fiber.MethodOptions,
			fiber.MethodHead,
		},
		AllowHeaders: []string{
			fiber.HeaderOrigin,
			fiber.HeaderContentType,
			fiber.HeaderAccept,
			headerTraceID,
			headerRequestID,
		},
		ExposeHeaders: []string{
			headerTraceID,
			headerRequestID,
		},
		MaxAge: 86400,
	}
}

// NewCORS creates a CORS middleware. Credentials are dropped for a wildcard origin.
func NewCORS(config CORSConfig) fiber.Handler {
	allowCredentials := config.AllowCredentials
	if containsString(config.AllowOrigins, "*") {
		allowCredentials = false
	}

	return cors.New(cors.Config{
		AllowOrigins:     strings.Join(config.AllowOrigins, ","),
		AllowMethods:     strings.Join(config.AllowMethods, ","),
		AllowHeaders:     strings.Join(config.AllowHeaders, ","),
		AllowCredentials: allowCredentials,
		ExposeHeaders:    strings.Join(config.ExposeHeaders, ","),
		MaxAge:           config.MaxAge,
	})
}

// CORSWithOrigins creates a CORS middleware for an explicit origin list
func CORSWithOrigins(origins []string) fiber.Handler {
	config := DefaultCORSConfig("")
	config.AllowOrigins = origins
	return NewCORS(config)
}

func containsString(items []string, item string) bool {
	for _, s := range items {
		if s == item {
			return true
		}
	}
	return false
}
