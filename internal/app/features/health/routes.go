// internal/app/features/health/routes.go
package health

import "github.com/go-chi/chi/v5"

// Routes is mounted under /health. HEAD is accepted for load balancers that
// check liveness without a body.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Serve)
	r.Head("/", h.Serve)
	return r
}
