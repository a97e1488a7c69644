package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateOpportunity inserts a complete posting with the given title and
// signup count. Returns the stored opportunity.
func (f *Fixtures) CreateOpportunity(ctx context.Context, title string, count int64) models.Opportunity {
	f.t.Helper()

	o := models.Opportunity{
		ID:                 uuid.NewString(),
		Title:              title,
		CompanyName:        "Test Org",
		SkillsRequired:     []string{"Tutoring"},
		ExperienceRequired: models.ExperienceLow,
		Description:        "Help out at " + title + ".",
		SignupCount:        count,
		CreatedAt:          time.Now().UTC(),
	}
	if _, err := f.db.Collection("opportunities").InsertOne(ctx, o); err != nil {
		f.t.Fatalf("CreateOpportunity(%q): %v", title, err)
	}
	return o
}

// CreateRawOpportunity inserts doc as-is, for malformed-document cases.
func (f *Fixtures) CreateRawOpportunity(ctx context.Context, doc bson.M) {
	f.t.Helper()
	if _, err := f.db.Collection("opportunities").InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("CreateRawOpportunity: %v", err)
	}
}

// CreateProfile inserts a valid profile for accountID.
func (f *Fixtures) CreateProfile(ctx context.Context, accountID, email string) models.UserProfile {
	f.t.Helper()

	p := models.UserProfile{
		ID:          accountID,
		Email:       email,
		FirstName:   "Test",
		LastName:    "Volunteer",
		DateOfBirth: "1990-01-01",
		Experience:  models.ExperienceMedium,
		Skills:      []string{"Tutoring"},
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("CreateProfile(%q): %v", accountID, err)
	}
	return p
}

// CreateSignup inserts a signup record without touching any counter.
func (f *Fixtures) CreateSignup(ctx context.Context, userID, opportunityID string) models.Signup {
	f.t.Helper()

	s := models.Signup{
		ID:            models.SignupID(userID, opportunityID),
		UserID:        userID,
		OpportunityID: opportunityID,
		SignedUpAt:    time.Now().UTC(),
	}
	if _, err := f.db.Collection("signups").InsertOne(ctx, s); err != nil {
		f.t.Fatalf("CreateSignup(%q, %q): %v", userID, opportunityID, err)
	}
	return s
}

// SignupCount reads the stored counter of an opportunity.
func (f *Fixtures) SignupCount(ctx context.Context, opportunityID string) int64 {
	f.t.Helper()

	var doc struct {
		SignupCount int64 `bson:"signup_count"`
	}
	if err := f.db.Collection("opportunities").FindOne(ctx, bson.M{"_id": opportunityID}).Decode(&doc); err != nil {
		f.t.Fatalf("SignupCount(%q): %v", opportunityID, err)
	}
	return doc.SignupCount
}
