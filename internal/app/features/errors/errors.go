// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/notice"
	"github.com/dalemusser/volunteerhub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
)

// pageData is the view model for error pages.
type pageData struct {
	viewdata.BaseVM
	Status  int
	Message string
	BackURL string
}

// Handler renders the fallback pages for unknown routes and methods.
// No DB needed; it just renders templates.
type Handler struct {
	Notices viewdata.NoticeSource
}

// NewHandler constructs an errors Handler. notices may be nil.
func NewHandler(notices viewdata.NoticeSource) *Handler {
	return &Handler{Notices: notices}
}

// NotFound is mounted as the router's NotFound handler.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "Page not found", "We couldn't find that page.")
}

// MethodNotAllowed is mounted as the router's MethodNotAllowed handler.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusMethodNotAllowed, "Not allowed", "That action isn't available here.")
}

// Forbidden is handed to the CSRF guard for requests without a valid
// form token.
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusForbidden, "Request expired", "That form has expired. Please go back, reload the page and try again.")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, title, msg string) {
	if auth.WantsJSON(r) {
		notice.JSON(w, status, notice.Envelope{Kind: kind(status), Message: msg})
		return
	}
	// BaseVM may save the session cookie, so build it before the status line.
	data := pageData{
		BaseVM:  viewdata.NewBaseVM(w, r, h.Notices, title),
		Status:  status,
		Message: msg,
		BackURL: "/",
	}
	w.WriteHeader(status)
	templates.Render(w, r, "error_page", data)
}

func kind(status int) string {
	switch status {
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusForbidden:
		return "forbidden"
	}
	return "not_found"
}
