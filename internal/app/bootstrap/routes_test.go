package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dalemusser/volunteerhub/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

var sharedOnce sync.Once

func buildTestHandler(t *testing.T) http.Handler {
	t.Helper()
	db := testutil.SetupTestDB(t)

	coreCfg := &config.CoreConfig{Env: "test"}
	deps := DBDeps{MongoClient: db.Client(), MongoDatabase: db, bg: &background{}}
	sharedOnce.Do(func() {
		if err := Startup(context.Background(), coreCfg, validConfig(), deps, zap.NewNop()); err != nil {
			t.Fatalf("Startup: %v", err)
		}
	})
	h, err := BuildHandler(coreCfg, validConfig(), deps, zap.NewNop())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}
	t.Cleanup(func() {
		if deps.bg.cleanup != nil {
			deps.bg.cleanup.Stop()
		}
		for _, l := range deps.bg.limiters {
			l.Stop()
		}
	})
	return h
}

func hasCookie(rec *httptest.ResponseRecorder, name string) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return true
		}
	}
	return false
}

// The session stack sets the CSRF cookie, so its presence shows which
// routes run behind it.
func TestBuildHandler_SessionStackOnlyOnPages(t *testing.T) {
	h := buildTestHandler(t)

	tests := []struct {
		path    string
		session bool
	}{
		{"/health", false},
		{"/metrics", false},
		{"/static/css/site.css", false},
		{"/api/session", true},
		{"/login", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
			if got := hasCookie(rec, "_gorilla_csrf"); got != tt.session {
				t.Errorf("session stack ran = %v, want %v (status %d)", got, tt.session, rec.Code)
			}
		})
	}
}

func TestBuildHandler_FormPostNeedsToken(t *testing.T) {
	h := buildTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/logout", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("POST /logout without token = %d, want 403", rec.Code)
	}

	req := httptest.NewRequest("POST", "/opportunities/o1/signup", nil)
	req.Header.Set("Accept", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("JSON signup without session = %d, want 401", rec.Code)
	}
}
