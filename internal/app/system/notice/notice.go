// Package notice turns the outcome of a user action into what the client
// sees: a flash message plus a 303 for browsers, a JSON envelope for API
// callers.
package notice

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/volunteerhub/internal/app/system/apperr"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"go.uber.org/zap"
)

// Flasher queues a one-time message for the next page.
type Flasher interface {
	AddNotice(w http.ResponseWriter, r *http.Request, msg string) error
}

// Envelope is the JSON body of every mutating endpoint.
type Envelope struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Respond reports the outcome of an action. message is what the user reads;
// err picks the kind and status code.
func Respond(w http.ResponseWriter, r *http.Request, f Flasher, log *zap.Logger, redirect string, err error, message string, data any) {
	if auth.WantsJSON(r) {
		JSON(w, apperr.Status(err), Envelope{Kind: apperr.Kind(err), Message: message, Data: data})
		return
	}
	if message != "" && f != nil {
		if ferr := f.AddNotice(w, r, message); ferr != nil && log != nil {
			log.Warn("queue notice", zap.Error(ferr))
		}
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
