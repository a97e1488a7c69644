package opportunities_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/volunteerhub/internal/app/features/opportunities"
	oppstore "github.com/dalemusser/volunteerhub/internal/app/store/opportunities"
	"github.com/dalemusser/volunteerhub/internal/app/store/signups"
	"github.com/dalemusser/volunteerhub/internal/app/system/apperr"
	"github.com/dalemusser/volunteerhub/internal/app/system/catalog"
	"github.com/dalemusser/volunteerhub/internal/app/system/ledger"
	"github.com/dalemusser/volunteerhub/internal/app/system/sessionctx"
	"github.com/dalemusser/volunteerhub/internal/app/system/txn"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"github.com/dalemusser/volunteerhub/internal/testutil"
	"go.uber.org/zap"
)

type recordingFlasher struct{ msgs []string }

func (f *recordingFlasher) AddNotice(_ http.ResponseWriter, _ *http.Request, msg string) error {
	f.msgs = append(f.msgs, msg)
	return nil
}

type stubLedger struct {
	joined []string
	err    error
}

func (s stubLedger) SignUp(context.Context, string, string) ([]string, error) {
	return s.joined, s.err
}

func (s stubLedger) CancelSignUp(context.Context, string, string) ([]string, error) {
	return s.joined, s.err
}

type stubCatalog struct{ opps []models.Opportunity }

func (s stubCatalog) Load(context.Context) ([]models.Opportunity, error) { return s.opps, nil }

type envelope struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Data    struct {
		Joined        []string             `json:"joined"`
		Opportunities []models.Opportunity `json:"opportunities"`
	} `json:"data"`
}

func signedIn(t *testing.T, r *http.Request, accountID string) *http.Request {
	t.Helper()
	c := sessionctx.NewController(nil, noProfiles{}, noLedger{}, zap.NewNop())
	return sessionctx.WithContext(r, c.OnSessionChange(context.Background(), accountID, accountID+"@example.com"))
}

type noProfiles struct{}

func (noProfiles) Get(context.Context, string) (*models.UserProfile, error) { return nil, nil }
func (noProfiles) CreateIfAbsent(context.Context, models.UserProfile) (bool, error) {
	return false, nil
}

type noLedger struct{}

func (noLedger) Refresh(context.Context, string) ([]string, error) { return []string{}, nil }

type fixedRefresh []string

func (f fixedRefresh) Refresh(context.Context, string) ([]string, error) { return f, nil }

func signedInJoined(t *testing.T, r *http.Request, accountID string, joined ...string) *http.Request {
	t.Helper()
	c := sessionctx.NewController(nil, noProfiles{}, fixedRefresh(joined), zap.NewNop())
	return sessionctx.WithContext(r, c.OnSessionChange(context.Background(), accountID, accountID+"@example.com"))
}

func postJSON(t *testing.T, h *opportunities.Handler, path string, mutate func(*http.Request) *http.Request) envelope {
	t.Helper()
	rec := post(t, h, path, func(r *http.Request) *http.Request {
		r.Header.Set("Accept", "application/json")
		return mutate(r)
	})
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env
}

func post(t *testing.T, h *opportunities.Handler, path string, mutate func(*http.Request) *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, nil)
	if mutate != nil {
		req = mutate(req)
	}
	rec := httptest.NewRecorder()
	opportunities.Routes(h).ServeHTTP(rec, req)
	return rec
}

func TestHandleSignUp_HTMLNotice(t *testing.T) {
	f := &recordingFlasher{}
	h := opportunities.NewHandler(stubLedger{joined: []string{"o1"}}, stubCatalog{}, f, nil, zap.NewNop())

	rec := post(t, h, "/o1/signup", func(r *http.Request) *http.Request { return signedIn(t, r, "acct-1") })

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if len(f.msgs) != 1 || f.msgs[0] != "You have successfully signed up for this opportunity!" {
		t.Errorf("notices = %v", f.msgs)
	}
}

func TestHandleSignUp_AlreadySignedUpJSON(t *testing.T) {
	h := opportunities.NewHandler(stubLedger{joined: []string{"o1"}, err: apperr.ErrAlreadySignedUp}, stubCatalog{}, nil, nil, zap.NewNop())

	rec := post(t, h, "/o1/signup", func(r *http.Request) *http.Request {
		r.Header.Set("Accept", "application/json")
		return signedIn(t, r, "acct-1")
	})

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Kind != "already_signed_up" || env.Message != "You have already signed up for this opportunity." {
		t.Errorf("envelope = %+v", env)
	}
	if len(env.Data.Joined) != 1 || env.Data.Joined[0] != "o1" {
		t.Errorf("joined = %v", env.Data.Joined)
	}
}

func TestHandleCancel_StoreFailureMessage(t *testing.T) {
	f := &recordingFlasher{}
	h := opportunities.NewHandler(stubLedger{err: apperr.Store("delete signup", context.DeadlineExceeded)}, stubCatalog{}, f, nil, zap.NewNop())

	post(t, h, "/o1/cancel", func(r *http.Request) *http.Request { return signedIn(t, r, "acct-1") })

	if len(f.msgs) != 1 || f.msgs[0] != "Failed to cancel sign-up. Please try again." {
		t.Errorf("notices = %v", f.msgs)
	}
}

// A nil joined set with a nil error means the write succeeded but the
// follow-up refresh failed.
func TestHandleSignUp_RefreshFailedStillShowsJoined(t *testing.T) {
	h := opportunities.NewHandler(stubLedger{}, stubCatalog{}, nil, nil, zap.NewNop())

	env := postJSON(t, h, "/o2/signup", func(r *http.Request) *http.Request {
		return signedInJoined(t, r, "acct-1", "o1")
	})

	if env.Kind != "ok" {
		t.Errorf("kind = %q, want ok", env.Kind)
	}
	if len(env.Data.Joined) != 2 || env.Data.Joined[0] != "o1" || env.Data.Joined[1] != "o2" {
		t.Errorf("joined = %v, want [o1 o2]", env.Data.Joined)
	}
}

func TestHandleCancel_RefreshFailedDropsJoined(t *testing.T) {
	h := opportunities.NewHandler(stubLedger{}, stubCatalog{}, nil, nil, zap.NewNop())

	env := postJSON(t, h, "/o1/cancel", func(r *http.Request) *http.Request {
		return signedInJoined(t, r, "acct-1", "o1", "o2")
	})

	if len(env.Data.Joined) != 1 || env.Data.Joined[0] != "o2" {
		t.Errorf("joined = %v, want [o2]", env.Data.Joined)
	}
}

func TestServeList(t *testing.T) {
	h := opportunities.NewHandler(stubLedger{}, stubCatalog{opps: []models.Opportunity{{ID: "o1", Title: "Park cleanup"}}}, nil, nil, zap.NewNop())

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	opportunities.Routes(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data.Opportunities) != 1 || env.Data.Opportunities[0].Title != "Park cleanup" {
		t.Errorf("opportunities = %+v", env.Data.Opportunities)
	}
}

// End to end against Mongo: A and B sign up, A cancels.
func TestLedgerRoutes_TwoUsers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	opps := oppstore.New(db)
	recs := signups.New(db)
	o := fx.CreateOpportunity(ctx, "Soup kitchen", 0)

	l := ledger.New(recs, opps, txn.New(db.Client(), zap.NewNop()), nil, zap.NewNop())
	h := opportunities.NewHandler(l, catalog.New(opps, zap.NewNop()), nil, nil, zap.NewNop())

	asJSON := func(acct string) func(*http.Request) *http.Request {
		return func(r *http.Request) *http.Request {
			r.Header.Set("Accept", "application/json")
			return signedIn(t, r, acct)
		}
	}
	count := func() int64 { return fx.SignupCount(ctx, o.ID) }

	if rec := post(t, h, "/"+o.ID+"/signup", asJSON("A")); rec.Code != http.StatusOK {
		t.Fatalf("A signup = %d %s", rec.Code, rec.Body.String())
	}
	if c := count(); c != 1 {
		t.Fatalf("count after A = %d, want 1", c)
	}
	if rec := post(t, h, "/"+o.ID+"/signup", asJSON("B")); rec.Code != http.StatusOK {
		t.Fatalf("B signup = %d", rec.Code)
	}
	if c := count(); c != 2 {
		t.Fatalf("count after B = %d, want 2", c)
	}

	rec := post(t, h, "/"+o.ID+"/cancel", asJSON("A"))
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data.Joined) != 0 {
		t.Errorf("A joined after cancel = %v", env.Data.Joined)
	}
	if c := count(); c != 1 {
		t.Fatalf("count after A cancel = %d, want 1", c)
	}

	bJoined, err := l.Refresh(ctx, "B")
	if err != nil || len(bJoined) != 1 || bJoined[0] != o.ID {
		t.Errorf("B joined = %v, %v", bJoined, err)
	}
}

func TestHandleSignUp_NoSession(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	recs := signups.New(db)
	l := ledger.New(recs, oppstore.New(db), txn.New(nil, zap.NewNop()), nil, zap.NewNop())
	f := &recordingFlasher{}
	h := opportunities.NewHandler(l, stubCatalog{}, f, nil, zap.NewNop())

	rec := post(t, h, "/o1/signup", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if len(f.msgs) != 1 || f.msgs[0] != "You must be logged in to sign up for an opportunity." {
		t.Errorf("notices = %v", f.msgs)
	}
	n, err := db.Collection(signups.Collection).CountDocuments(ctx, map[string]any{})
	if err != nil || n != 0 {
		t.Errorf("signup records = %d, %v; want 0", n, err)
	}
}
