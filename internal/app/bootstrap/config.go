// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/system/auditlog"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for VolunteerHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: VOLUNTEERHUB_MONGO_URI, VOLUNTEERHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "volunteerhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "volunteerhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "168h", Desc: "Signed-in session lifetime (e.g., 24h, 168h)"},

	// Rate limiting
	{Name: "redis_addr", Default: "", Desc: "Redis address for shared rate limits (blank uses memory)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},
	{Name: "auth_rate_limit", Default: 10, Desc: "Sign-in/registration attempts allowed per window per IP"},
	{Name: "auth_rate_window", Default: "1m", Desc: "Rate limit window (e.g., 1m, 5m)"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},
	{Name: "base_url", Default: "http://localhost:8080", Desc: "Public base URL used for OAuth callbacks"},

	// Audit logging
	{Name: "audit_log", Default: "all", Desc: "Audit events: 'all' (db+log), 'db', 'log', or 'off'"},

	// Background work
	{Name: "session_cleanup_interval", Default: "10m", Desc: "How often expired sessions and OAuth states are purged"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "VOLUNTEERHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 7*24*time.Hour),

		RedisAddr:      appValues.String("redis_addr"),
		RedisPassword:  appValues.String("redis_password"),
		RedisDB:        appValues.Int("redis_db"),
		AuthRateLimit:  appValues.Int("auth_rate_limit"),
		AuthRateWindow: appValues.Duration("auth_rate_window", time.Minute),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),
		BaseURL:            appValues.String("base_url"),

		AuditLog: appValues.String("audit_log"),

		SessionCleanupInterval: appValues.Duration("session_cleanup_interval", 10*time.Minute),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(coreCfg.Env, appCfg)
}

// validateApp holds the checks that do not need WAFFLE types.
func validateApp(env string, appCfg AppConfig) error {
	var errs []error

	if appCfg.MongoDatabase == "" {
		errs = append(errs, errors.New("mongo_database is required"))
	}
	if appCfg.SessionKey == "" {
		errs = append(errs, errors.New("session_key is required"))
	} else if env == "prod" && len(appCfg.SessionKey) < 32 {
		errs = append(errs, errors.New("session_key must be at least 32 characters in prod"))
	}
	if (appCfg.GoogleClientID == "") != (appCfg.GoogleClientSecret == "") {
		errs = append(errs, errors.New("google_client_id and google_client_secret must be set together"))
	}
	if appCfg.GoogleEnabled() && appCfg.BaseURL == "" {
		errs = append(errs, errors.New("base_url is required for Google sign-in"))
	}
	if appCfg.AuthRateLimit <= 0 {
		errs = append(errs, fmt.Errorf("auth_rate_limit must be positive, got %d", appCfg.AuthRateLimit))
	}
	if appCfg.AuthRateWindow <= 0 {
		errs = append(errs, errors.New("auth_rate_window must be positive"))
	}
	switch appCfg.AuditLog {
	case "", auditlog.ModeAll, auditlog.ModeDB, auditlog.ModeLog, auditlog.ModeOff:
	default:
		errs = append(errs, fmt.Errorf("audit_log must be all, db, log or off, got %q", appCfg.AuditLog))
	}

	return errors.Join(errs...)
}
