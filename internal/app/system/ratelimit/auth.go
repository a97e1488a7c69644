// internal/app/system/ratelimit/auth.go
package ratelimit

import (
	"net/http"
	"strings"
)

// AuthLimiter throttles /login and /register. Attempts are counted per
// client IP and, when an email is given, per email.
type AuthLimiter struct {
	ip    Allower
	email Allower
}

func NewAuthLimiter(ip, email Allower) *AuthLimiter {
	return &AuthLimiter{ip: ip, email: email}
}

// Check reports whether the attempt may proceed and, if not, the notice to show.
func (a *AuthLimiter) Check(r *http.Request, email string) (bool, string) {
	if a == nil {
		return true, ""
	}
	if a.ip != nil && !a.ip.Allow("ip:"+ClientIP(r)) {
		return false, "Too many attempts. Please wait a minute before trying again."
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" && a.email != nil && !a.email.Allow("email:"+email) {
		return false, "Too many attempts for this account. Please wait a few minutes."
	}
	return true, ""
}

// resetter is implemented by the in-memory limiter only; Redis windows
// simply expire.
type resetter interface {
	Reset(key string)
}

// Succeeded clears the per-email window after a successful sign-in.
func (a *AuthLimiter) Succeeded(email string) {
	if a == nil {
		return
	}
	if r, ok := a.email.(resetter); ok {
		r.Reset("email:" + strings.ToLower(strings.TrimSpace(email)))
	}
}
