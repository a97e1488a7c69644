// internal/app/features/userinfo/handler.go
package userinfo

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/volunteerhub/internal/app/system/sessionctx"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
)

// Handler reports the session context of the caller.
type Handler struct{}

// NewHandler creates a new userinfo handler.
func NewHandler() *Handler {
	return &Handler{}
}

type sessionInfo struct {
	State      string              `json:"state"`
	AccountID  string              `json:"account_id"`
	Email      string              `json:"email"`
	HasProfile bool                `json:"has_profile"`
	Profile    *models.UserProfile `json:"profile,omitempty"`
	Joined     []string            `json:"joined"`
}

// ServeSessionInfo returns JSON describing the current session context.
//
// Response format:
//
//	{ "state": "authenticated", "account_id": "...", "email": "...",
//	  "has_profile": true, "profile": {...}, "joined": ["..."] }
//
// A signed-out caller gets state "anonymous" with empty fields.
func (h *Handler) ServeSessionInfo(w http.ResponseWriter, r *http.Request) {
	sc := sessionctx.FromRequest(r)

	info := sessionInfo{
		State:      sc.State().String(),
		AccountID:  sc.AccountID(),
		Email:      sc.Email(),
		HasProfile: sc.HasProfile(),
		Profile:    sc.Profile(),
		Joined:     sc.Joined(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(info)
}
