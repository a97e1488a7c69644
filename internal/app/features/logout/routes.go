// internal/app/features/logout/routes.go
package logout

import "github.com/go-chi/chi/v5"

// Routes accepts GET for links and POST for forms. Signing out without a
// session just lands on the home page.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeLogout)
	r.Post("/", h.ServeLogout)
	return r
}
