package server

import (
	"time"

	"github.com/agentstation/harvester/pkg/constants"
)

// Config holds server configuration.
type Config struct {
	Host string
	Port int

	// CORS on the catalog route
	CORSEnabled bool
	CORSOrigins []string

	// API key guarding POST /harvest. Empty disables the route.
	APIKey     string
	AuthHeader string

	RateLimit int // Requests per minute per IP (0 to disable)
	CacheTTL  time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MetricsEnabled bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           8080,
		CORSEnabled:    true,
		AuthHeader:     "X-API-Key",
		RateLimit:      100,
		CacheTTL:       constants.CacheTTL,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Minute,
		IdleTimeout:    120 * time.Second,
		MetricsEnabled: true,
	}
}
