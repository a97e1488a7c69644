// internal/app/features/opportunities/handler.go
package opportunities

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/volunteerhub/internal/app/system/apperr"
	"github.com/dalemusser/volunteerhub/internal/app/system/auditlog"
	"github.com/dalemusser/volunteerhub/internal/app/system/notice"
	"github.com/dalemusser/volunteerhub/internal/app/system/sessionctx"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Ledger is the signup bookkeeping the handlers drive.
type Ledger interface {
	SignUp(ctx context.Context, userID, opportunityID string) ([]string, error)
	CancelSignUp(ctx context.Context, userID, opportunityID string) ([]string, error)
}

// Loader returns the filtered opportunity catalog.
type Loader interface {
	Load(ctx context.Context) ([]models.Opportunity, error)
}

type Handler struct {
	Ledger   Ledger
	Catalog  Loader
	Notices  notice.Flasher
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(l Ledger, cat Loader, notices notice.Flasher, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Ledger:   l,
		Catalog:  cat,
		Notices:  notices,
		AuditLog: audit,
		Log:      logger,
	}
}

const (
	msgSignedUp      = "You have successfully signed up for this opportunity!"
	msgSignUpFailed  = "Failed to sign up. Please try again."
	msgSignUpNoAuth  = "You must be logged in to sign up for an opportunity."
	msgCanceled      = "You have successfully canceled your sign-up for this opportunity."
	msgCancelFailed  = "Failed to cancel sign-up. Please try again."
	msgCancelNoAuth  = "You must be logged in to cancel a sign-up."
	msgCatalogFailed = "Failed to load opportunities."
)

type joinedData struct {
	Joined []string `json:"joined"`
}

type listData struct {
	Opportunities []models.Opportunity `json:"opportunities"`
	Joined        []string             `json:"joined"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /opportunities – catalog + joined set as JSON                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	sc := sessionctx.FromRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	opps, err := h.Catalog.Load(ctx)
	if err != nil {
		h.Log.Error("load catalog", zap.Error(err))
		notice.JSON(w, apperr.Status(err), notice.Envelope{Kind: apperr.Kind(err), Message: msgCatalogFailed})
		return
	}
	if opps == nil {
		opps = []models.Opportunity{}
	}
	notice.JSON(w, http.StatusOK, notice.Envelope{
		Kind: apperr.Kind(nil),
		Data: listData{Opportunities: opps, Joined: sc.Joined()},
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /opportunities/{id}/signup                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	sc := sessionctx.FromRequest(r)
	oppID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	joined, err := h.Ledger.SignUp(ctx, sc.AccountID(), oppID)
	if err == nil && joined == nil {
		// Write landed but the refresh did not.
		sc.AddJoined(oppID)
	} else {
		sc.SetJoined(joined)
	}

	var msg string
	switch {
	case err == nil:
		msg = msgSignedUp
		h.AuditLog.SignupCreated(ctx, r, sc.AccountID(), oppID)
	case errors.Is(err, apperr.ErrNotAuthenticated):
		msg = msgSignUpNoAuth
	default:
		msg = apperr.Message(err, msgSignUpFailed)
		if apperr.IsStore(err) {
			h.Log.Error("signup failed",
				zap.String("account_id", sc.AccountID()),
				zap.String("opportunity_id", oppID),
				zap.Error(err))
		}
	}

	notice.Respond(w, r, h.Notices, h.Log, "/", err, msg, joinedData{Joined: sc.Joined()})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /opportunities/{id}/cancel                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	sc := sessionctx.FromRequest(r)
	oppID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	joined, err := h.Ledger.CancelSignUp(ctx, sc.AccountID(), oppID)
	if err == nil && joined == nil {
		sc.RemoveJoined(oppID)
	} else {
		sc.SetJoined(joined)
	}

	var msg string
	switch {
	case err == nil:
		msg = msgCanceled
		h.AuditLog.SignupCanceled(ctx, r, sc.AccountID(), oppID)
	case errors.Is(err, apperr.ErrNotAuthenticated):
		msg = msgCancelNoAuth
	default:
		msg = apperr.Message(err, msgCancelFailed)
		h.Log.Error("cancel signup failed",
			zap.String("account_id", sc.AccountID()),
			zap.String("opportunity_id", oppID),
			zap.Error(err))
	}

	notice.Respond(w, r, h.Notices, h.Log, "/", err, msg, joinedData{Joined: sc.Joined()})
}
