package publish_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/features/publish"
	oppstore "github.com/dalemusser/volunteerhub/internal/app/store/opportunities"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/publication"
	"github.com/dalemusser/volunteerhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type sessions struct{ msgs []string }

func (s *sessions) AddNotice(_ http.ResponseWriter, _ *http.Request, msg string) error {
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *sessions) Notices(http.ResponseWriter, *http.Request) []string { return nil }

func newRouter(t *testing.T, h *publish.Handler) http.Handler {
	t.Helper()
	sm, err := auth.NewSessionManager("test-session-key-must-be-32-chars-long", "t", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	return publish.Routes(h, sm)
}

func form(skills ...string) url.Values {
	v := url.Values{
		"title":               {"Reading buddies"},
		"company_name":        {"City Library"},
		"experience_required": {"low"},
		"description":         {"Read with kids."},
	}
	for _, s := range skills {
		v.Add("skills_required", s)
	}
	return v
}

func postForm(v url.Values, user bool, jsonAccept bool) *http.Request {
	req := httptest.NewRequest("POST", "/", strings.NewReader(v.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if jsonAccept {
		req.Header.Set("Accept", "application/json")
	} else {
		req.Header.Set("Accept", "text/html")
	}
	if user {
		req = auth.WithTestUser(req, &auth.SessionUser{ID: "acct-1", Email: "a@example.com"})
	}
	return req
}

func TestPublish_RequiresSignIn(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := publication.NewService(oppstore.New(db), nil, zap.NewNop())
	h := publish.NewHandler(svc, &sessions{}, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	newRouter(t, h).ServeHTTP(rec, postForm(form("Tutoring"), false, false))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Location"), "/login") {
		t.Errorf("Location = %q", rec.Header().Get("Location"))
	}
}

func TestPublish_StoresZeroCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	s := &sessions{}
	svc := publication.NewService(oppstore.New(db), nil, zap.NewNop())
	h := publish.NewHandler(svc, s, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	newRouter(t, h).ServeHTTP(rec, postForm(form("Tutoring", "Teaching"), true, false))

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/publish" {
		t.Fatalf("status = %d, Location = %q", rec.Code, rec.Header().Get("Location"))
	}
	if len(s.msgs) != 1 || s.msgs[0] != "Opportunity published successfully!" {
		t.Errorf("notices = %v", s.msgs)
	}

	var doc bson.M
	if err := db.Collection(oppstore.Collection).FindOne(ctx, bson.M{"title": "Reading buddies"}).Decode(&doc); err != nil {
		t.Fatalf("find: %v", err)
	}
	switch n := doc["signup_count"].(type) {
	case int32:
		if n != 0 {
			t.Errorf("signup_count = %d", n)
		}
	case int64:
		if n != 0 {
			t.Errorf("signup_count = %d", n)
		}
	default:
		t.Errorf("signup_count type %T", doc["signup_count"])
	}
	skills, _ := doc["skills_required"].(bson.A)
	if len(skills) != 2 || skills[0] != "Tutoring" || skills[1] != "Teaching" {
		t.Errorf("skills_required = %v", doc["skills_required"])
	}
}

func TestPublish_ValidationJSON(t *testing.T) {
	h := publish.NewHandler(publication.NewService(nil, nil, zap.NewNop()), &sessions{}, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	newRouter(t, h).ServeHTTP(rec, postForm(form(), true, true))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var env struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Kind != "validation" || env.Message != "Select at least one required skill." {
		t.Errorf("envelope = %+v", env)
	}
}
