// internal/app/features/publish/handler.go
package publish

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/volunteerhub/internal/app/system/apperr"
	"github.com/dalemusser/volunteerhub/internal/app/system/auditlog"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/notice"
	"github.com/dalemusser/volunteerhub/internal/app/system/publication"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/dalemusser/volunteerhub/internal/app/system/viewdata"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// Publisher validates and stores a posting.
type Publisher interface {
	Publish(ctx context.Context, f publication.Form) (models.Opportunity, error)
}

// Sessions is what the handler needs from the session manager.
type Sessions interface {
	notice.Flasher
	viewdata.NoticeSource
}

type Handler struct {
	Publisher Publisher
	Sessions  Sessions
	AuditLog  *auditlog.Logger
	Log       *zap.Logger
}

func NewHandler(p Publisher, sessions Sessions, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Publisher: p, Sessions: sessions, AuditLog: audit, Log: logger}
}

const (
	msgPublished     = "Opportunity published successfully!"
	msgPublishFailed = "Failed to publish opportunity."
)

type formData struct {
	viewdata.BaseVM
	Form       publication.Form
	Error      string
	ErrorField string
	Skills     []string
	Experience []models.Experience
}

// Selected reports whether skill was ticked on the submitted form.
func (d formData) Selected(skill string) bool {
	for _, s := range d.Form.Skills {
		if s == skill {
			return true
		}
	}
	return false
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, f publication.Form, err error) {
	data := formData{
		BaseVM:     viewdata.NewBaseVM(w, r, h.Sessions, "Publish an Opportunity"),
		Form:       f,
		Skills:     models.AvailableSkills,
		Experience: models.ExperienceLevels,
	}
	if err != nil {
		data.Error = apperr.Message(err, msgPublishFailed)
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			data.ErrorField = ve.Field
		}
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	templates.Render(w, r, "publish", data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /publish                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, publication.Form{}, nil)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /publish                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.respondError(w, r, publication.Form{}, apperr.Invalid("form", "Could not read the form."))
		return
	}
	f := publication.Form{
		Title:       r.PostForm.Get("title"),
		CompanyName: r.PostForm.Get("company_name"),
		Skills:      r.PostForm["skills_required"],
		Experience:  r.PostForm.Get("experience_required"),
		Description: r.PostForm.Get("description"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	opp, err := h.Publisher.Publish(ctx, f)
	if err != nil {
		h.respondError(w, r, f, err)
		return
	}

	accountID := ""
	if u, ok := auth.CurrentUser(r); ok {
		accountID = u.ID
	}
	h.AuditLog.OpportunityPublished(ctx, r, accountID, opp.ID)

	// Success clears the form: redirect back to an empty one.
	notice.Respond(w, r, h.Sessions, h.Log, "/publish", nil, msgPublished, opp)
}

// respondError re-renders the form with what the user typed; JSON callers get
// the error envelope.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, f publication.Form, err error) {
	if auth.WantsJSON(r) {
		notice.JSON(w, apperr.Status(err), notice.Envelope{
			Kind:    apperr.Kind(err),
			Message: apperr.Message(err, msgPublishFailed),
		})
		return
	}
	if !apperr.IsValidation(err) {
		h.Log.Error("publish failed", zap.Error(err))
	}
	h.render(w, r, apperr.Status(err), f, err)
}

