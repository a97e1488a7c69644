package opportunities

import "github.com/go-chi/chi/v5"

// Routes mounts under /opportunities. Signup and cancel are public routes:
// without a session the ledger answers not-authenticated and the user sees
// the "must be logged in" notice.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/{id}/signup", h.HandleSignUp)
	r.Post("/{id}/cancel", h.HandleCancel)
	return r
}
