package authgoogle_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/features/authgoogle"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/sessionctx"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type memStates struct{ byState map[string]string }

func (m *memStates) Save(_ context.Context, state, returnURL string, _ time.Time) error {
	m.byState[state] = returnURL
	return nil
}

func (m *memStates) Consume(_ context.Context, state string) (string, bool, error) {
	ret, ok := m.byState[state]
	delete(m.byState, state)
	return ret, ok, nil
}

type googleAccounts struct{ calls []string }

func (g *googleAccounts) FindOrCreateGoogle(_ context.Context, googleID, email string) (models.Account, error) {
	g.calls = append(g.calls, googleID+"|"+email)
	return models.Account{ID: "acct-g", Email: email}, nil
}

type noProfiles struct{}

func (noProfiles) Get(context.Context, string) (*models.UserProfile, error)       { return nil, nil }
func (noProfiles) CreateIfAbsent(context.Context, models.UserProfile) (bool, error) { return false, nil }

type noLedger struct{}

func (noLedger) Refresh(context.Context, string) ([]string, error) { return nil, nil }

type sessions struct {
	signedIn []string
	notices  []string
}

func (s *sessions) SignIn(_ http.ResponseWriter, _ *http.Request, id, email string) (*auth.SessionUser, error) {
	s.signedIn = append(s.signedIn, id)
	return &auth.SessionUser{ID: id, Email: email}, nil
}

func (s *sessions) AddNotice(_ http.ResponseWriter, _ *http.Request, msg string) error {
	s.notices = append(s.notices, msg)
	return nil
}

// fakeGoogle serves the token and userinfo endpoints.
func fakeGoogle(t *testing.T, verified bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at-1",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":             "g-123",
			"email":          "jane@example.com",
			"verified_email": verified,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestHandler(t *testing.T, srv *httptest.Server) (*authgoogle.Handler, *memStates, *googleAccounts, *sessions) {
	t.Helper()
	logger := zap.NewNop()
	states := &memStates{byState: map[string]string{}}
	accts := &googleAccounts{}
	sm := &sessions{}
	ctl := sessionctx.NewController(nil, noProfiles{}, noLedger{}, logger)

	h := authgoogle.NewHandler(sm, nil, nil, states, accts, ctl,
		"test-client-id", "test-client-secret", "http://localhost:8080", logger)
	if srv != nil {
		h.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
		h.UserInfoURL = srv.URL + "/userinfo"
	}
	return h, states, accts, sm
}

func TestIsConfigured(t *testing.T) {
	h, _, _, _ := newTestHandler(t, nil)
	if !h.IsConfigured() {
		t.Error("IsConfigured() should return true with client ID and secret")
	}
	h.ClientSecret = ""
	if h.IsConfigured() {
		t.Error("IsConfigured() should return false without a secret")
	}
}

func TestServeLogin_NotConfigured(t *testing.T) {
	h, _, _, sm := newTestHandler(t, nil)
	h.ClientID = ""

	rec := httptest.NewRecorder()
	h.ServeLogin(rec, httptest.NewRequest("GET", "/auth/google", nil))

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Errorf("got %d -> %q", rec.Code, rec.Header().Get("Location"))
	}
	if len(sm.notices) != 1 || sm.notices[0] != "Google sign-in is not available." {
		t.Errorf("notices = %v", sm.notices)
	}
}

func TestServeLogin_StoresStateAndRedirects(t *testing.T) {
	h, states, _, _ := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.ServeLogin(rec, httptest.NewRequest("GET", "/auth/google?return=/publish", nil))

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse Location: %v", err)
	}
	if !strings.HasPrefix(loc.String(), "https://accounts.google.com/") {
		t.Errorf("Location = %q, want Google consent screen", loc)
	}
	state := loc.Query().Get("state")
	if ret, ok := states.byState[state]; !ok || ret != "/publish" {
		t.Errorf("state %q not stored with return (%q, %v)", state, ret, ok)
	}
	if got := loc.Query().Get("redirect_uri"); got != "http://localhost:8080/auth/google/callback" {
		t.Errorf("redirect_uri = %q", got)
	}
}

func TestServeCallback_SignsIn(t *testing.T) {
	h, states, accts, sm := newTestHandler(t, fakeGoogle(t, true))
	states.byState["s-1"] = "/publish"

	rec := httptest.NewRecorder()
	h.ServeCallback(rec, httptest.NewRequest("GET", "/auth/google/callback?state=s-1&code=c-1", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}
	// Google accounts start without a profile.
	if loc := rec.Header().Get("Location"); loc != "/profile" {
		t.Errorf("Location = %q, want /profile", loc)
	}
	if len(accts.calls) != 1 || accts.calls[0] != "g-123|jane@example.com" {
		t.Errorf("FindOrCreateGoogle calls = %v", accts.calls)
	}
	if len(sm.signedIn) != 1 || sm.signedIn[0] != "acct-g" {
		t.Errorf("signed in = %v", sm.signedIn)
	}
	if _, ok := states.byState["s-1"]; ok {
		t.Error("state should be consumed")
	}
}

func TestServeCallback_UnknownState(t *testing.T) {
	h, _, accts, sm := newTestHandler(t, fakeGoogle(t, true))

	rec := httptest.NewRecorder()
	h.ServeCallback(rec, httptest.NewRequest("GET", "/auth/google/callback?state=nope&code=c-1", nil))

	if len(accts.calls) != 0 || len(sm.signedIn) != 0 {
		t.Error("an unknown state must not sign in")
	}
	if len(sm.notices) != 1 || sm.notices[0] != "Your Google sign-in expired. Please try again." {
		t.Errorf("notices = %v", sm.notices)
	}
}

func TestServeCallback_UnverifiedEmail(t *testing.T) {
	h, states, accts, sm := newTestHandler(t, fakeGoogle(t, false))
	states.byState["s-1"] = ""

	h.ServeCallback(httptest.NewRecorder(), httptest.NewRequest("GET", "/auth/google/callback?state=s-1&code=c-1", nil))

	if len(accts.calls) != 0 || len(sm.signedIn) != 0 {
		t.Error("an unverified Google email must not sign in")
	}
}

func TestServeCallback_ProviderError(t *testing.T) {
	h, _, _, sm := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.ServeCallback(rec, httptest.NewRequest("GET", "/auth/google/callback?error=access_denied", nil))

	if rec.Header().Get("Location") != "/" || len(sm.notices) != 1 {
		t.Errorf("got %q, notices %v", rec.Header().Get("Location"), sm.notices)
	}
}
