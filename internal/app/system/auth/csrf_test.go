package auth_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/gorilla/csrf"
)

const testSessionKey = "test-session-key-must-be-32-chars-long"

// csrfServer echoes the token it was handed and counts requests that got
// through the guard.
func csrfServer(t *testing.T) (http.Handler, *int, *int) {
	t.Helper()
	passed, rejected := 0, 0
	onFail := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rejected++
		http.Error(w, "forbidden", http.StatusForbidden)
	})
	h := auth.CSRF(testSessionKey, false, onFail)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		passed++
		_, _ = w.Write([]byte(csrf.Token(r)))
	}))
	return h, &passed, &rejected
}

func TestCSRF_PostWithoutTokenRejected(t *testing.T) {
	h, passed, rejected := csrfServer(t)

	req := httptest.NewRequest("POST", "/opportunities/o1/signup", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if *passed != 0 || *rejected != 1 {
		t.Errorf("passed=%d rejected=%d, want 0/1", *passed, *rejected)
	}
}

func TestCSRF_FormTokenRoundTrip(t *testing.T) {
	h, passed, _ := csrfServer(t)

	getRec := httptest.NewRecorder()
	h.ServeHTTP(getRec, httptest.NewRequest("GET", "/", nil))
	token := getRec.Body.String()
	if token == "" {
		t.Fatal("expected a token on GET")
	}

	form := url.Values{auth.CSRFFieldName: {token}}
	req := httptest.NewRequest("POST", "/publish", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range getRec.Result().Cookies() {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if *passed != 2 {
		t.Errorf("passed = %d, want 2", *passed)
	}
}

func TestCSRF_JSONCallerSkipsCheck(t *testing.T) {
	h, passed, _ := csrfServer(t)

	req := httptest.NewRequest("POST", "/opportunities/o1/signup", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || *passed != 1 {
		t.Errorf("status = %d passed = %d, want 200/1", rec.Code, *passed)
	}
}

func TestCSRF_CrossSiteJSONStillChecked(t *testing.T) {
	h, passed, _ := csrfServer(t)

	req := httptest.NewRequest("POST", "/opportunities/o1/signup", nil)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden || *passed != 0 {
		t.Errorf("status = %d passed = %d, want 403/0", rec.Code, *passed)
	}
}
