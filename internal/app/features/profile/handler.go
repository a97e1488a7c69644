// internal/app/features/profile/handler.go
package profile

import (
	"context"
	"net/http"

	"github.com/dalemusser/volunteerhub/internal/app/system/apperr"
	"github.com/dalemusser/volunteerhub/internal/app/system/auditlog"
	"github.com/dalemusser/volunteerhub/internal/app/system/notice"
	"github.com/dalemusser/volunteerhub/internal/app/system/sessionctx"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/dalemusser/volunteerhub/internal/app/system/viewdata"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// Completer writes a missing profile for the signed-in account.
type Completer interface {
	CompleteProfile(ctx context.Context, sc *sessionctx.Context, in sessionctx.ProfileInput) error
}

// Sessions is what the handler needs from the session manager.
type Sessions interface {
	notice.Flasher
	viewdata.NoticeSource
}

// Handler owns the profile page.
type Handler struct {
	Controller Completer
	Sessions   Sessions
	AuditLog   *auditlog.Logger
	Log        *zap.Logger
}

func NewHandler(c Completer, sessions Sessions, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Controller: c, Sessions: sessions, AuditLog: audit, Log: logger}
}

const (
	msgProfileSaved  = "Your profile has been saved."
	msgProfileFailed = "Failed to save your profile."
)

// profileData is the view model for the profile page.
type profileData struct {
	viewdata.BaseVM
	Profile    *models.UserProfile
	Skills     []string
	Experience []models.Experience
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /profile                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeProfile shows the stored profile, or the completion form when the
// account has none.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	sc := sessionctx.FromRequest(r)
	templates.Render(w, r, "profile", profileData{
		BaseVM:     viewdata.NewBaseVM(w, r, h.Sessions, "Your Profile"),
		Profile:    sc.Profile(),
		Skills:     models.AvailableSkills,
		Experience: models.ExperienceLevels,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /profile                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		notice.Respond(w, r, h.Sessions, h.Log, "/profile", apperr.Invalid("form", "Could not read the form."), "Could not read the form.", nil)
		return
	}
	sc := sessionctx.FromRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	err := h.Controller.CompleteProfile(ctx, sc, sessionctx.ProfileInput{
		FirstName:   r.PostForm.Get("first_name"),
		LastName:    r.PostForm.Get("last_name"),
		DateOfBirth: r.PostForm.Get("date_of_birth"),
		Experience:  r.PostForm.Get("experience"),
		Skills:      r.PostForm["skills"],
	})
	if err != nil {
		if apperr.IsStore(err) {
			h.Log.Error("complete profile", zap.String("account_id", sc.AccountID()), zap.Error(err))
		}
		notice.Respond(w, r, h.Sessions, h.Log, "/profile", err, apperr.Message(err, msgProfileFailed), nil)
		return
	}

	h.AuditLog.ProfileCompleted(ctx, r, sc.AccountID())
	notice.Respond(w, r, h.Sessions, h.Log, "/", nil, msgProfileSaved, sc.Profile())
}
