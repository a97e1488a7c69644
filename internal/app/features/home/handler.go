package home

import (
	"context"
	"net/http"

	"github.com/dalemusser/volunteerhub/internal/app/system/catalog"
	"github.com/dalemusser/volunteerhub/internal/app/system/sessionctx"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/dalemusser/volunteerhub/internal/app/system/viewdata"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// Loader returns the filtered opportunity catalog.
type Loader interface {
	Load(ctx context.Context) ([]models.Opportunity, error)
}

// Handler holds dependencies needed to serve the home page.
type Handler struct {
	Catalog       Loader
	Notices       viewdata.NoticeSource
	GoogleEnabled bool
	Log           *zap.Logger
}

func NewHandler(cat Loader, notices viewdata.NoticeSource, googleEnabled bool, logger *zap.Logger) *Handler {
	return &Handler{
		Catalog:       cat,
		Notices:       notices,
		GoogleEnabled: googleEnabled,
		Log:           logger,
	}
}

type itemVM struct {
	models.Opportunity
	Joined bool
}

type signedOutData struct {
	viewdata.BaseVM
	Skills        []string
	Experience    []models.Experience
	GoogleEnabled bool
}

type catalogData struct {
	viewdata.BaseVM
	Items     []itemVM
	MySignups []models.Opportunity
	LoadError string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – landing                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	sc := sessionctx.FromRequest(r)
	if !sc.Authenticated() {
		templates.Render(w, r, "home_signed_out", signedOutData{
			BaseVM:        viewdata.NewBaseVM(w, r, h.Notices, "Welcome"),
			Skills:        models.AvailableSkills,
			Experience:    models.ExperienceLevels,
			GoogleEnabled: h.GoogleEnabled,
		})
		return
	}

	data := catalogData{BaseVM: viewdata.NewBaseVM(w, r, h.Notices, "Volunteer Opportunities")}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	opps, err := h.Catalog.Load(ctx)
	if err != nil {
		h.Log.Error("load catalog", zap.Error(err))
		data.LoadError = "Failed to load opportunities. Please refresh the page."
	}

	data.Items = make([]itemVM, 0, len(opps))
	for _, o := range opps {
		data.Items = append(data.Items, itemVM{Opportunity: o, Joined: sc.HasJoined(o.ID)})
	}
	data.MySignups = catalog.Joined(opps, sc.Joined())

	templates.Render(w, r, "home", data)
}
