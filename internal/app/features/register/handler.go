// internal/app/features/register/handler.go
package register

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/volunteerhub/internal/app/system/apperr"
	"github.com/dalemusser/volunteerhub/internal/app/system/auditlog"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/metrics"
	"github.com/dalemusser/volunteerhub/internal/app/system/notice"
	"github.com/dalemusser/volunteerhub/internal/app/system/ratelimit"
	"github.com/dalemusser/volunteerhub/internal/app/system/sessionctx"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Registrar creates an account with its profile.
type Registrar interface {
	SignUp(ctx context.Context, reg sessionctx.Registration) (*sessionctx.Context, error)
}

// Sessions opens the cookie session for the new account.
type Sessions interface {
	SignIn(w http.ResponseWriter, r *http.Request, accountID, email string) (*auth.SessionUser, error)
	notice.Flasher
}

type Handler struct {
	Controller Registrar
	SessionMgr Sessions
	Limiter    *ratelimit.AuthLimiter
	AuditLog   *auditlog.Logger
	Metrics    *metrics.Metrics
	Log        *zap.Logger
}

func NewHandler(c Registrar, sm Sessions, limiter *ratelimit.AuthLimiter, audit *auditlog.Logger, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{Controller: c, SessionMgr: sm, Limiter: limiter, AuditLog: audit, Metrics: m, Log: logger}
}

const (
	msgWelcome        = "Welcome! Your account has been created."
	msgRegisterFailed = "Failed to create your account. Please try again."
)

type registeredData struct {
	AccountID  string `json:"account_id"`
	Email      string `json:"email"`
	HasProfile bool   `json:"has_profile"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /register                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleRegister creates the account and signs it in. The form lives on the
// signed-out landing page, so every failure returns there.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.respondError(w, r, apperr.Invalid("form", "Could not read the form."))
		return
	}
	reg := formRegistration(r)

	if ok, msg := h.Limiter.Check(r, reg.Email); !ok {
		h.AuditLog.SignInRateLimited(r.Context(), r, reg.Email)
		h.Metrics.AuthAttempt("register", apperr.Kind(apperr.ErrRateLimited))
		notice.Respond(w, r, h.SessionMgr, h.Log, "/", apperr.ErrRateLimited, msg, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	sc, err := h.Controller.SignUp(ctx, reg)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if _, err := h.SessionMgr.SignIn(w, r, sc.AccountID(), sc.Email()); err != nil {
		// The account exists; the user can still sign in by hand.
		h.respondError(w, r, apperr.Store("create session", err))
		return
	}

	h.AuditLog.Registered(ctx, r, sc.AccountID())
	h.Metrics.AuthAttempt("register", apperr.Kind(nil))

	dest := "/"
	if !sc.HasProfile() {
		dest = "/profile"
	}
	notice.Respond(w, r, h.SessionMgr, h.Log, dest, nil, msgWelcome, registeredData{
		AccountID:  sc.AccountID(),
		Email:      sc.Email(),
		HasProfile: sc.HasProfile(),
	})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	h.Metrics.AuthAttempt("register", apperr.Kind(err))
	if apperr.IsStore(err) {
		h.Log.Error("registration failed", zap.Error(err))
	}
	notice.Respond(w, r, h.SessionMgr, h.Log, "/", err, apperr.Message(err, msgRegisterFailed), nil)
}

func formRegistration(r *http.Request) sessionctx.Registration {
	return sessionctx.Registration{
		Email:    strings.TrimSpace(r.PostForm.Get("email")),
		Password: r.PostForm.Get("password"),
		ProfileInput: sessionctx.ProfileInput{
			FirstName:   r.PostForm.Get("first_name"),
			LastName:    r.PostForm.Get("last_name"),
			DateOfBirth: r.PostForm.Get("date_of_birth"),
			Experience:  r.PostForm.Get("experience"),
			Skills:      r.PostForm["skills"],
		},
	}
}
