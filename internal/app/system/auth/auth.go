package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	sessionstore "github.com/dalemusser/volunteerhub/internal/app/store/sessions"
	"github.com/dalemusser/volunteerhub/internal/app/system/ratelimit"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session keys                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	DefaultSessionName = "volunteerhub-session"

	tokenKey  = "token"
	noticeKey = "_notice"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is the signed-in account resolved for the current request.
type SessionUser struct {
	ID    string
	Email string
	Token string
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithTestUser injects u into the request context the way LoadSessionUser does.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| SessionManager                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// Tokens is the server-side session token store.
type Tokens interface {
	Create(ctx context.Context, accountID, email, ip, userAgent string, ttl time.Duration) (sessionstore.Session, error)
	Get(ctx context.Context, token string) (*sessionstore.Session, error)
	Delete(ctx context.Context, token string) error
}

// SessionManager owns the cookie store. The cookie carries only an opaque
// token and flash notices; the account behind a token lives in Mongo.
type SessionManager struct {
	store  *sessions.CookieStore
	name   string
	maxAge time.Duration
	tokens Tokens
	log    *zap.Logger
}

// NewSessionManager builds the cookie store. The `secure` flag controls
// whether cookies are marked Secure and which SameSite mode is used.
//
// In production (secure=true), cookies are Secure + SameSite=None.
// In local dev over http://localhost, use secure=false so cookies are accepted.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = DefaultSessionName
	}
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("max_age", maxAge))

	return &SessionManager{store: store, name: name, maxAge: maxAge, log: logger}, nil
}

// UseTokens attaches the token store. Until it is set LoadSessionUser is a
// no-op and SignIn fails.
func (sm *SessionManager) UseTokens(t Tokens) *SessionManager {
	sm.tokens = t
	return sm
}

func (sm *SessionManager) session(r *http.Request) *sessions.Session {
	// A cookie that fails to decode (rotated key) yields a fresh session.
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		sm.log.Debug("session cookie rejected; starting fresh", zap.Error(err))
	}
	return sess
}

// SignIn opens a server-side session for the account and stores its token in
// the cookie. Any previous token on this cookie is revoked.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, accountID, email string) (*SessionUser, error) {
	if sm.tokens == nil {
		return nil, fmt.Errorf("session tokens not configured")
	}
	sess := sm.session(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if old, _ := sess.Values[tokenKey].(string); old != "" {
		if err := sm.tokens.Delete(ctx, old); err != nil {
			sm.log.Warn("revoke previous session token", zap.Error(err))
		}
	}

	s, err := sm.tokens.Create(ctx, accountID, email, ratelimit.ClientIP(r), r.UserAgent(), sm.maxAge)
	if err != nil {
		return nil, err
	}
	sess.Values[tokenKey] = s.Token
	if err := sm.save(w, r, sess); err != nil {
		return nil, err
	}
	return &SessionUser{ID: accountID, Email: email, Token: s.Token}, nil
}

// SignOut revokes the token and drops it from the cookie. The cookie itself
// is kept so a notice can ride along with the redirect.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess := sm.session(r)
	if tok, _ := sess.Values[tokenKey].(string); tok != "" && sm.tokens != nil {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		defer cancel()
		if err := sm.tokens.Delete(ctx, tok); err != nil {
			sm.log.Warn("delete session token", zap.Error(err))
		}
	}
	delete(sess.Values, tokenKey)
	return sm.save(w, r, sess)
}

// LoadSessionUser injects the user into context if the cookie carries a live
// token. Unknown or expired tokens are treated as signed out.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sm.tokens == nil {
			next.ServeHTTP(w, r)
			return
		}

		sess := sm.session(r)
		tok, _ := sess.Values[tokenKey].(string)
		if tok == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		s, err := sm.tokens.Get(ctx, tok)
		cancel()
		if err != nil {
			sm.log.Warn("session lookup failed", zap.Error(err))
		}
		if s != nil {
			r = withUser(r, &SessionUser{ID: s.AccountID, Email: s.Email, Token: s.Token})
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
// If not signed in:
//   - HTMX: sends HX-Redirect to /login?return=...
//   - HTML: 303 redirect to /login?return=...
//   - API:  401 Unauthorized with a plain error body.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}

		ret := url.QueryEscape(currentURI(r))

		if r.Header.Get("HX-Request") == "true" {
			w.Header().Set("HX-Redirect", "/login?return="+ret)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if wantsHTML(r) {
			http.Redirect(w, r, "/login?return="+ret, http.StatusSeeOther)
			return
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Flash notices                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// AddNotice queues a one-time message for the next rendered page.
func (sm *SessionManager) AddNotice(w http.ResponseWriter, r *http.Request, msg string) error {
	sess := sm.session(r)
	sess.AddFlash(msg, noticeKey)
	return sm.save(w, r, sess)
}

// Notices pops every queued message.
func (sm *SessionManager) Notices(w http.ResponseWriter, r *http.Request) []string {
	sess := sm.session(r)
	flashes := sess.Flashes(noticeKey)
	if len(flashes) == 0 {
		return nil
	}
	out := make([]string, 0, len(flashes))
	for _, f := range flashes {
		if s, ok := f.(string); ok {
			out = append(out, s)
		}
	}
	if err := sm.save(w, r, sess); err != nil {
		sm.log.Warn("save session after reading notices", zap.Error(err))
	}
	return out
}

// save writes the session cookie. The session is cached per request, so
// a later save already carries every earlier change; any Set-Cookie this
// manager wrote before is replaced rather than repeated.
func (sm *SessionManager) save(w http.ResponseWriter, r *http.Request, sess *sessions.Session) error {
	dropSetCookie(w.Header(), sm.name)
	return sess.Save(r, w)
}

func dropSetCookie(h http.Header, name string) {
	prev := h.Values("Set-Cookie")
	if len(prev) == 0 {
		return
	}
	h.Del("Set-Cookie")
	for _, c := range prev {
		if !strings.HasPrefix(c, name+"=") {
			h.Add("Set-Cookie", c)
		}
	}
}

// helpers

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// WantsJSON reports whether the caller asked for a JSON response.
func WantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func wantsHTML(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func currentURI(r *http.Request) string {
	u := *r.URL
	return u.RequestURI()
}
