// internal/app/features/login/handler.go
package login

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/volunteerhub/internal/app/system/apperr"
	"github.com/dalemusser/volunteerhub/internal/app/system/auditlog"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/metrics"
	"github.com/dalemusser/volunteerhub/internal/app/system/notice"
	"github.com/dalemusser/volunteerhub/internal/app/system/ratelimit"
	"github.com/dalemusser/volunteerhub/internal/app/system/sessionctx"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/dalemusser/volunteerhub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
)

// Authenticator signs an account in and resolves its session context.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*sessionctx.Context, error)
}

// Sessions is the cookie side of a sign-in.
type Sessions interface {
	SignIn(w http.ResponseWriter, r *http.Request, accountID, email string) (*auth.SessionUser, error)
	notice.Flasher
	viewdata.NoticeSource
}

type Handler struct {
	Controller    Authenticator
	SessionMgr    Sessions
	Limiter       *ratelimit.AuthLimiter
	AuditLog      *auditlog.Logger
	Metrics       *metrics.Metrics
	GoogleEnabled bool
	Log           *zap.Logger
}

func NewHandler(
	controller Authenticator,
	sessionMgr Sessions,
	limiter *ratelimit.AuthLimiter,
	audit *auditlog.Logger,
	m *metrics.Metrics,
	googleEnabled bool,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Controller:    controller,
		SessionMgr:    sessionMgr,
		Limiter:       limiter,
		AuditLog:      audit,
		Metrics:       m,
		GoogleEnabled: googleEnabled,
		Log:           logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type loginFormData struct {
	viewdata.BaseVM
	Email         string
	ReturnURL     string
	GoogleEnabled bool
}

// sessionData is the JSON payload of a successful sign-in.
type sessionData struct {
	AccountID  string   `json:"account_id"`
	Email      string   `json:"email"`
	HasProfile bool     `json:"has_profile"`
	Joined     []string `json:"joined"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if sessionctx.FromRequest(r).Authenticated() {
		http.Redirect(w, r, urlutil.SafeReturn(query.Get(r, "return"), "", "/"), http.StatusSeeOther)
		return
	}
	templates.Render(w, r, "login", loginFormData{
		BaseVM:        viewdata.NewBaseVM(w, r, h.SessionMgr, "Sign In"),
		Email:         query.Get(r, "email"),
		ReturnURL:     query.Get(r, "return"),
		GoogleEnabled: h.GoogleEnabled,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, "", apperr.ErrInvalidCredential, "parse form")
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")
	returnURL := r.PostForm.Get("return")

	if ok, msg := h.Limiter.Check(r, email); !ok {
		h.AuditLog.SignInRateLimited(r.Context(), r, email)
		h.Metrics.AuthAttempt("login", apperr.Kind(apperr.ErrRateLimited))
		notice.Respond(w, r, h.SessionMgr, h.Log, failureRedirect(returnURL), apperr.ErrRateLimited, msg, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sc, err := h.Controller.SignIn(ctx, email, password)
	if err != nil {
		h.AuditLog.SignInFailed(ctx, r, email, apperr.Kind(err))
		h.fail(w, r, returnURL, err, "sign in")
		return
	}

	if _, err := h.SessionMgr.SignIn(w, r, sc.AccountID(), sc.Email()); err != nil {
		h.fail(w, r, returnURL, apperr.Store("create session", err), "create session")
		return
	}
	h.Limiter.Succeeded(email)
	h.AuditLog.SignInSuccess(ctx, r, sc.AccountID(), "password")
	h.Metrics.AuthAttempt("login", apperr.Kind(nil))

	dest := urlutil.SafeReturn(returnURL, "", "/")
	if !sc.HasProfile() {
		dest = "/profile"
	}
	notice.Respond(w, r, h.SessionMgr, h.Log, dest, nil, "", sessionData{
		AccountID:  sc.AccountID(),
		Email:      sc.Email(),
		HasProfile: sc.HasProfile(),
		Joined:     sc.Joined(),
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, returnURL string, err error, op string) {
	h.Metrics.AuthAttempt("login", apperr.Kind(err))
	if apperr.IsStore(err) {
		h.Log.Error("login failed", zap.String("op", op), zap.Error(err))
	}
	notice.Respond(w, r, h.SessionMgr, h.Log, failureRedirect(returnURL), err,
		apperr.Message(err, "Failed to sign in. Please try again."), nil)
}

// failureRedirect sends the user back to the sign-in form, keeping return.
func failureRedirect(returnURL string) string {
	if returnURL == "" {
		return "/"
	}
	return "/login?return=" + url.QueryEscape(returnURL)
}
