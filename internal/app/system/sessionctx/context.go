// Package sessionctx holds the per-client session context: the signed-in
// account, its profile and the set of opportunities it has joined.
//
// A Context moves through Uninitialized → Loading → Authenticated or
// Anonymous. Teardown returns it to Anonymous and clears everything derived
// from the account.
package sessionctx

import (
	"context"
	"net/http"
	"sync"

	"github.com/dalemusser/volunteerhub/internal/domain/models"
)

type State int

const (
	Uninitialized State = iota
	Loading
	Authenticated
	Anonymous
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	}
	return "uninitialized"
}

type Context struct {
	mu        sync.RWMutex
	state     State
	accountID string
	email     string
	profile   *models.UserProfile
	joined    []string
}

// New returns an uninitialized context.
func New() *Context { return &Context{} }

func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Context) AccountID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accountID
}

func (c *Context) Email() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.email
}

// Profile is nil for anonymous sessions and for accounts that never
// completed registration.
func (c *Context) Profile() *models.UserProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profile
}

// HasProfile reports whether an authenticated account has a profile.
func (c *Context) HasProfile() bool { return c.Profile() != nil }

func (c *Context) Authenticated() bool { return c.State() == Authenticated }

// Joined returns a copy of the joined opportunity ids.
func (c *Context) Joined() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.joined))
	copy(out, c.joined)
	return out
}

func (c *Context) HasJoined(opportunityID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, id := range c.joined {
		if id == opportunityID {
			return true
		}
	}
	return false
}

// SetJoined replaces the joined set wholesale. A nil ids leaves the current
// view alone.
func (c *Context) SetJoined(ids []string) {
	if ids == nil {
		return
	}
	c.mu.Lock()
	c.joined = append([]string(nil), ids...)
	c.mu.Unlock()
}

// AddJoined records opportunityID in the joined view if it is not there.
func (c *Context) AddJoined(opportunityID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.joined {
		if id == opportunityID {
			return
		}
	}
	c.joined = append(c.joined, opportunityID)
}

// RemoveJoined drops opportunityID from the joined view.
func (c *Context) RemoveJoined(opportunityID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.joined[:0:0]
	for _, id := range c.joined {
		if id != opportunityID {
			kept = append(kept, id)
		}
	}
	c.joined = kept
}

func (c *Context) setProfile(p *models.UserProfile) {
	c.mu.Lock()
	c.profile = p
	c.mu.Unlock()
}

func (c *Context) begin(accountID, email string) {
	c.mu.Lock()
	c.state = Loading
	c.accountID = accountID
	c.email = email
	c.profile = nil
	c.joined = nil
	c.mu.Unlock()
}

func (c *Context) finish(p *models.UserProfile, joined []string) {
	c.mu.Lock()
	c.state = Authenticated
	c.profile = p
	c.joined = append([]string{}, joined...)
	c.mu.Unlock()
}

// Teardown clears the account, profile and joined set.
func (c *Context) Teardown() {
	c.mu.Lock()
	c.state = Anonymous
	c.accountID = ""
	c.email = ""
	c.profile = nil
	c.joined = nil
	c.mu.Unlock()
}

/*─────────────────────────────────────────────────────────────────────────────*
| Request plumbing                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey struct{}

// WithContext attaches sc to r.
func WithContext(r *http.Request, sc *Context) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxKey{}, sc))
}

// FromRequest returns the session context for r. A request that never went
// through the middleware gets an anonymous context.
func FromRequest(r *http.Request) *Context {
	if sc, ok := r.Context().Value(ctxKey{}).(*Context); ok && sc != nil {
		return sc
	}
	sc := New()
	sc.Teardown()
	return sc
}
