// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// ports, TLS, logging and CORS; everything below is VolunteerHub's own.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: volunteerhub-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Lifetime of a signed-in session

	// Redis is optional; blank keeps rate limits in process memory.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Sign-in and registration throttling per client IP
	AuthRateLimit  int
	AuthRateWindow time.Duration

	// Google OAuth (both blank disables Google sign-in)
	GoogleClientID     string
	GoogleClientSecret string

	// Base URL for OAuth callbacks, e.g. "https://volunteerhub.example"
	BaseURL string

	// Audit destination: all, db, log or off
	AuditLog string

	SessionCleanupInterval time.Duration
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c AppConfig) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}
