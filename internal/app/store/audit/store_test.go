package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/store/audit"
	"github.com/dalemusser/volunteerhub/internal/testutil"
)

func TestLogAndForAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().UTC().Add(-time.Minute)
	events := []audit.Event{
		{Timestamp: base, Category: audit.CategoryAuth, EventType: audit.EventSignInSuccess, AccountID: "a1", Success: true},
		{Timestamp: base.Add(time.Second), Category: audit.CategoryLedger, EventType: audit.EventSignupCreated, AccountID: "a1", Success: true,
			Details: map[string]string{"opportunity_id": "o1"}},
		{Category: audit.CategoryAuth, EventType: audit.EventSignInSuccess, AccountID: "a2", Success: true},
	}
	for _, e := range events {
		if err := s.Log(ctx, e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	got, err := s.ForAccount(ctx, "a1", 10)
	if err != nil {
		t.Fatalf("ForAccount: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ForAccount returned %d events, want 2", len(got))
	}
	if got[0].EventType != audit.EventSignupCreated {
		t.Errorf("newest event = %q, want %q", got[0].EventType, audit.EventSignupCreated)
	}
	if got[0].Details["opportunity_id"] != "o1" {
		t.Errorf("details = %v", got[0].Details)
	}
}

func TestLog_StampsTimestamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := s.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventSignOut, AccountID: "a3"}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	got, _ := s.ForAccount(ctx, "a3", 0)
	if len(got) != 1 || got[0].Timestamp.IsZero() || got[0].ID.IsZero() {
		t.Errorf("expected stamped event, got %+v", got)
	}
}
