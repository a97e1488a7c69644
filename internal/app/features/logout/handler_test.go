package logout_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/features/logout"
	sessionstore "github.com/dalemusser/volunteerhub/internal/app/store/sessions"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/sessionctx"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.uber.org/zap"
)

type memTokens struct{ live map[string]sessionstore.Session }

func (m *memTokens) Create(_ context.Context, id, email, _, _ string, ttl time.Duration) (sessionstore.Session, error) {
	s := sessionstore.Session{Token: "tok-" + id, AccountID: id, Email: email, ExpiresAt: time.Now().Add(ttl)}
	m.live[s.Token] = s
	return s, nil
}

func (m *memTokens) Get(_ context.Context, tok string) (*sessionstore.Session, error) {
	s, ok := m.live[tok]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memTokens) Delete(_ context.Context, tok string) error {
	delete(m.live, tok)
	return nil
}

type noProfiles struct{}

func (noProfiles) Get(context.Context, string) (*models.UserProfile, error)       { return nil, nil }
func (noProfiles) CreateIfAbsent(context.Context, models.UserProfile) (bool, error) { return false, nil }

type noLedger struct{}

func (noLedger) Refresh(context.Context, string) ([]string, error) { return []string{"opp-1"}, nil }

func newTestHandler(t *testing.T) (*logout.Handler, *auth.SessionManager, *memTokens, *sessionctx.Controller) {
	t.Helper()
	logger := zap.NewNop()

	sessionMgr, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", 24*time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	tokens := &memTokens{live: map[string]sessionstore.Session{}}
	sessionMgr.UseTokens(tokens)
	ctl := sessionctx.NewController(nil, noProfiles{}, noLedger{}, logger)

	return logout.NewHandler(sessionMgr, ctl, nil, logger), sessionMgr, tokens, ctl
}

func TestServeLogout_RedirectsToHome(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)

	req := httptest.NewRequest("GET", "/logout", nil)
	rec := httptest.NewRecorder()

	handler.ServeLogout(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	if location := rec.Header().Get("Location"); location != "/" {
		t.Errorf("Location: got %q, want %q", location, "/")
	}
}

func TestServeLogout_HTMX_ReturnsHXRedirect(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)

	req := httptest.NewRequest("POST", "/logout", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()

	handler.ServeLogout(rec, req)

	if hxRedirect := rec.Header().Get("HX-Redirect"); hxRedirect != "/" {
		t.Errorf("HX-Redirect: got %q, want %q", hxRedirect, "/")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d for HTMX, got %d", http.StatusOK, rec.Code)
	}
}

func TestServeLogout_RevokesSessionAndTearsDownContext(t *testing.T) {
	handler, sessionMgr, tokens, ctl := newTestHandler(t)

	// Sign in first and carry the cookie into the logout request.
	rec1 := httptest.NewRecorder()
	if _, err := sessionMgr.SignIn(rec1, httptest.NewRequest("POST", "/login", nil), "acct-1", "a@example.com"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	req2 := httptest.NewRequest("POST", "/logout", nil)
	for _, c := range rec1.Result().Cookies() {
		req2.AddCookie(c)
	}
	sc := ctl.OnSessionChange(context.Background(), "acct-1", "a@example.com")
	req2 = sessionctx.WithContext(req2, sc)

	rec2 := httptest.NewRecorder()
	handler.ServeLogout(rec2, req2)

	if len(tokens.live) != 0 {
		t.Errorf("expected token revoked, %d left", len(tokens.live))
	}
	if sc.State() != sessionctx.Anonymous {
		t.Errorf("state = %v, want anonymous", sc.State())
	}
	if len(sc.Joined()) != 0 {
		t.Errorf("joined view not cleared: %v", sc.Joined())
	}

	if n := len(rec2.Result().Cookies()); n != 1 {
		t.Fatalf("Set-Cookie count = %d, want 1", n)
	}

	// The next page shows the sign-out notice.
	req3 := httptest.NewRequest("GET", "/", nil)
	for _, c := range rec2.Result().Cookies() {
		req3.AddCookie(c)
	}
	got := sessionMgr.Notices(httptest.NewRecorder(), req3)
	if len(got) != 1 || got[0] != "You have been signed out." {
		t.Errorf("notices = %v", got)
	}
}
