// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	authgooglefeature "github.com/dalemusser/volunteerhub/internal/app/features/authgoogle"
	errorsfeature "github.com/dalemusser/volunteerhub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/volunteerhub/internal/app/features/health"
	homefeature "github.com/dalemusser/volunteerhub/internal/app/features/home"
	loginfeature "github.com/dalemusser/volunteerhub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/volunteerhub/internal/app/features/logout"
	opportunitiesfeature "github.com/dalemusser/volunteerhub/internal/app/features/opportunities"
	profilefeature "github.com/dalemusser/volunteerhub/internal/app/features/profile"
	publishfeature "github.com/dalemusser/volunteerhub/internal/app/features/publish"
	registerfeature "github.com/dalemusser/volunteerhub/internal/app/features/register"
	userinfofeature "github.com/dalemusser/volunteerhub/internal/app/features/userinfo"
	"github.com/dalemusser/volunteerhub/internal/app/store/accounts"
	"github.com/dalemusser/volunteerhub/internal/app/store/audit"
	"github.com/dalemusser/volunteerhub/internal/app/store/oauthstate"
	oppstore "github.com/dalemusser/volunteerhub/internal/app/store/opportunities"
	sessionstore "github.com/dalemusser/volunteerhub/internal/app/store/sessions"
	"github.com/dalemusser/volunteerhub/internal/app/store/signups"
	"github.com/dalemusser/volunteerhub/internal/app/store/users"
	"github.com/dalemusser/volunteerhub/internal/app/system/auditlog"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/catalog"
	"github.com/dalemusser/volunteerhub/internal/app/system/ledger"
	"github.com/dalemusser/volunteerhub/internal/app/system/metrics"
	"github.com/dalemusser/volunteerhub/internal/app/system/publication"
	"github.com/dalemusser/volunteerhub/internal/app/system/ratelimit"
	"github.com/dalemusser/volunteerhub/internal/app/system/sessionctx"
	"github.com/dalemusser/volunteerhub/internal/app/system/txn"
	"github.com/dalemusser/volunteerhub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. It builds the stores and services once,
// starts the session cleanup worker and mounts every feature router.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	sessions := sessionstore.New(db)
	sessionMgr.UseTokens(sessions)

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	// Stores
	accountStore := accounts.New(db)
	profileStore := users.New(db)
	opportunityStore := oppstore.New(db)
	signupStore := signups.New(db)
	stateStore := oauthstate.New(db)

	// Services
	m := metrics.New()
	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:   appCfg.AuditLog,
		Ledger: appCfg.AuditLog,
	})
	ldg := ledger.New(signupStore, opportunityStore, txn.New(deps.MongoClient, logger), m, logger)
	controller := sessionctx.NewController(accountStore, profileStore, ldg, logger)
	cat := catalog.New(opportunityStore, logger)
	publisher := publication.NewService(opportunityStore, m, logger)
	limiter := buildAuthLimiter(appCfg, deps, logger)

	cleanup := workers.NewSessionCleanup(sessions, stateStore, logger, appCfg.SessionCleanupInterval)
	cleanup.Start()
	if deps.bg != nil {
		deps.bg.cleanup = cleanup
	}

	r := chi.NewRouter()
	r.Use(m.Instrument)

	// Set before mounting so sub-routers inherit them.
	errorsHandler := errorsfeature.NewHandler(sessionMgr)
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", m.Handler())

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	r.Group(func(r chi.Router) {
		// Resolve the cookie to an account, then the account to a session context.
		r.Use(sessionMgr.LoadSessionUser)
		r.Use(auth.CSRF(appCfg.SessionKey, secure, http.HandlerFunc(errorsHandler.Forbidden)))
		r.Use(controller.Middleware)

		userinfofeature.MountRoutes(r, userinfofeature.NewHandler())

		homeHandler := homefeature.NewHandler(cat, sessionMgr, appCfg.GoogleEnabled(), logger)
		r.Mount("/", homefeature.Routes(homeHandler))

		// Authentication
		loginHandler := loginfeature.NewHandler(controller, sessionMgr, limiter, auditLog, m, appCfg.GoogleEnabled(), logger)
		r.Mount("/login", loginfeature.Routes(loginHandler))

		registerHandler := registerfeature.NewHandler(controller, sessionMgr, limiter, auditLog, m, logger)
		r.Mount("/register", registerfeature.Routes(registerHandler))

		logoutHandler := logoutfeature.NewHandler(sessionMgr, controller, auditLog, logger)
		r.Mount("/logout", logoutfeature.Routes(logoutHandler))

		googleHandler := authgooglefeature.NewHandler(sessionMgr, auditLog, m, stateStore, accountStore, controller,
			appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, logger)
		r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))

		profileHandler := profilefeature.NewHandler(controller, sessionMgr, auditLog, logger)
		r.Mount("/profile", profilefeature.Routes(profileHandler, sessionMgr))

		// Catalog and ledger
		oppHandler := opportunitiesfeature.NewHandler(ldg, cat, sessionMgr, auditLog, logger)
		r.Mount("/opportunities", opportunitiesfeature.Routes(oppHandler))

		publishHandler := publishfeature.NewHandler(publisher, sessionMgr, auditLog, logger)
		r.Mount("/publish", publishfeature.Routes(publishHandler, sessionMgr))
	})

	return r, nil
}

// buildAuthLimiter uses Redis when configured so every instance shares one
// window, otherwise in-memory limiters that Shutdown stops.
func buildAuthLimiter(appCfg AppConfig, deps DBDeps, logger *zap.Logger) *ratelimit.AuthLimiter {
	emailWindow := 5 * appCfg.AuthRateWindow

	if deps.Redis != nil {
		return ratelimit.NewAuthLimiter(
			ratelimit.NewRedis(deps.Redis, "volunteerhub:rl:", appCfg.AuthRateLimit, appCfg.AuthRateWindow, logger),
			ratelimit.NewRedis(deps.Redis, "volunteerhub:rl:", appCfg.AuthRateLimit, emailWindow, logger),
		)
	}

	ip := ratelimit.New(appCfg.AuthRateLimit, appCfg.AuthRateWindow)
	email := ratelimit.New(appCfg.AuthRateLimit, emailWindow)
	if deps.bg != nil {
		deps.bg.limiters = append(deps.bg.limiters, ip, email)
	}
	return ratelimit.NewAuthLimiter(ip, email)
}
