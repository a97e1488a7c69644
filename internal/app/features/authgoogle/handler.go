// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/system/apperr"
	"github.com/dalemusser/volunteerhub/internal/app/system/auditlog"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/metrics"
	"github.com/dalemusser/volunteerhub/internal/app/system/notice"
	"github.com/dalemusser/volunteerhub/internal/app/system/sessionctx"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	stateTTL           = 10 * time.Minute
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

	msgGoogleUnavailable = "Google sign-in is not available."
	msgGoogleFailed      = "Google sign-in failed. Please try again."
	msgGoogleExpired     = "Your Google sign-in expired. Please try again."
)

// StateStore keeps one-time OAuth state values.
type StateStore interface {
	Save(ctx context.Context, state, returnURL string, expiresAt time.Time) error
	Consume(ctx context.Context, state string) (returnURL string, ok bool, err error)
}

// Accounts resolves a Google identity to an account.
type Accounts interface {
	FindOrCreateGoogle(ctx context.Context, googleID, email string) (models.Account, error)
}

// Resolver loads the session context for a freshly signed-in account.
type Resolver interface {
	OnSessionChange(ctx context.Context, accountID, email string) *sessionctx.Context
}

// Sessions opens the cookie session.
type Sessions interface {
	SignIn(w http.ResponseWriter, r *http.Request, accountID, email string) (*auth.SessionUser, error)
	notice.Flasher
}

// Handler handles Google OAuth authentication.
type Handler struct {
	Log        *zap.Logger
	SessionMgr Sessions
	AuditLog   *auditlog.Logger
	Metrics    *metrics.Metrics
	StateStore StateStore
	Accounts   Accounts
	Controller Resolver

	// OAuth configuration
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "https://volunteerhub.example/auth/google/callback"

	// Endpoint and UserInfoURL default to Google's; tests point them elsewhere.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

// NewHandler creates a new Google OAuth handler.
func NewHandler(
	sessionMgr Sessions,
	audit *auditlog.Logger,
	m *metrics.Metrics,
	stateStore StateStore,
	accounts Accounts,
	controller Resolver,
	clientID, clientSecret, baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Log:          logger,
		SessionMgr:   sessionMgr,
		AuditLog:     audit,
		Metrics:      m,
		StateStore:   stateStore,
		Accounts:     accounts,
		Controller:   controller,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + "/auth/google/callback",
		Endpoint:     google.Endpoint,
		UserInfoURL:  defaultUserInfoURL,
	}
}

// oauth2Config returns the Google OAuth2 configuration.
func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
		},
		Endpoint: h.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                             |
| Initiates the Google OAuth flow by redirecting to Google's consent screen.   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		h.fail(w, r, msgGoogleUnavailable)
		return
	}

	state := generateState()
	returnURL := query.Get(r, "return")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.StateStore.Save(ctx, state, returnURL, time.Now().UTC().Add(stateTTL)); err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		h.fail(w, r, msgGoogleFailed)
		return
	}

	url := h.oauth2Config().AuthCodeURL(state)
	h.Log.Debug("initiating Google OAuth flow", zap.String("return_url", returnURL))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
| Exchanges the code, fetches the Google identity, resolves the account and    |
| opens a session.                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", r.URL.Query().Get("error_description")))
		h.Metrics.AuthAttempt("google", "denied")
		h.fail(w, r, msgGoogleFailed)
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" {
		h.fail(w, r, msgGoogleExpired)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	returnURL, valid, err := h.StateStore.Consume(ctx, state)
	if err != nil {
		h.Log.Error("failed to validate OAuth state", zap.Error(err))
		h.fail(w, r, msgGoogleFailed)
		return
	}
	if !valid {
		h.Log.Warn("invalid or expired OAuth state")
		h.fail(w, r, msgGoogleExpired)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.fail(w, r, msgGoogleFailed)
		return
	}

	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		h.Metrics.AuthAttempt("google", "exchange_failed")
		h.fail(w, r, msgGoogleFailed)
		return
	}

	info, err := h.fetchUserInfo(ctx, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		h.fail(w, r, msgGoogleFailed)
		return
	}
	if info.ID == "" || info.Email == "" || !info.EmailVerified {
		h.Log.Warn("Google identity unusable",
			zap.String("google_id", info.ID), zap.Bool("verified", info.EmailVerified))
		h.AuditLog.SignInFailed(ctx, r, info.Email, "google_unverified")
		h.fail(w, r, msgGoogleFailed)
		return
	}

	acct, err := h.Accounts.FindOrCreateGoogle(ctx, info.ID, info.Email)
	if err != nil {
		h.Log.Error("resolve Google account", zap.String("google_id", info.ID), zap.Error(err))
		h.AuditLog.SignInFailed(ctx, r, info.Email, apperr.Kind(err))
		h.Metrics.AuthAttempt("google", apperr.Kind(err))
		h.fail(w, r, apperr.Message(err, msgGoogleFailed))
		return
	}

	if _, err := h.SessionMgr.SignIn(w, r, acct.ID, acct.Email); err != nil {
		h.Log.Error("create session failed", zap.String("account_id", acct.ID), zap.Error(err))
		h.fail(w, r, msgGoogleFailed)
		return
	}

	h.AuditLog.SignInSuccess(ctx, r, acct.ID, "google")
	h.Metrics.AuthAttempt("google", apperr.Kind(nil))
	h.Log.Info("user signed in via Google", zap.String("account_id", acct.ID))

	dest := urlutil.SafeReturn(returnURL, "", "/")
	if sc := h.Controller.OnSessionChange(ctx, acct.ID, acct.Email); !sc.HasProfile() {
		dest = "/profile"
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
}

func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get(h.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info: unexpected status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return &info, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string) {
	if err := h.SessionMgr.AddNotice(w, r, msg); err != nil {
		h.Log.Warn("queue notice", zap.Error(err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// generateState creates a random one-time state string.
func generateState() string {
	return base64.RawURLEncoding.EncodeToString(securecookie.GenerateRandomKey(32))
}
