// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes is mounted under /login. The form itself also appears on the
// signed-out home page and posts here.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeLogin)
	r.Post("/", h.HandleLoginPost)
	return r
}
