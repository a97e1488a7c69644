// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/volunteerhub/internal/app/system/auditlog"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/sessionctx"
	"go.uber.org/zap"
)

// Closer tears down the derived session state.
type Closer interface {
	SignOut(sc *sessionctx.Context)
}

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Controller Closer
	AuditLog   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, controller Closer, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		Controller: controller,
		AuditLog:   audit,
	}
}

const msgSignedOut = "You have been signed out."

// ServeLogout handles GET and POST /logout.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	sc := sessionctx.FromRequest(r)
	signedIn := sc.Authenticated()
	if signedIn {
		h.AuditLog.SignOut(r.Context(), r, sc.AccountID())
	}

	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}
	if h.Controller != nil {
		h.Controller.SignOut(sc)
	}

	if signedIn {
		if err := h.SessionMgr.AddNotice(w, r, msgSignedOut); err != nil {
			h.Log.Warn("logout: queue notice", zap.Error(err))
		}
	}

	// HTMX handling: use HX-Redirect to force a client-side navigation to "/".
	if r.Header.Get("HX-Request") != "" {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
