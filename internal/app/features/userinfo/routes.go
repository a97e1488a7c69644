// internal/app/features/userinfo/routes.go
package userinfo

import "github.com/go-chi/chi/v5"

// MountRoutes registers GET /api/session on the supplied router.
// No auth middleware is required; a signed-out caller gets an anonymous answer.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/api/session", h.ServeSessionInfo)
}
