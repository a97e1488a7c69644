// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the Mongo collection backing this store.
const Collection = "audit_events"

// Event categories
const (
	CategoryAuth    = "auth"
	CategoryLedger  = "ledger"
	CategoryListing = "listing"
)

// Auth event types
const (
	EventRegistered       = "registered"
	EventSignInSuccess    = "sign_in_success"
	EventSignInFailed     = "sign_in_failed"
	EventSignInRateLimit  = "sign_in_rate_limited"
	EventGoogleSignIn     = "google_sign_in"
	EventSignOut          = "sign_out"
	EventProfileCompleted = "profile_completed"
)

// Ledger and listing event types
const (
	EventSignupCreated        = "signup_created"
	EventSignupCanceled       = "signup_canceled"
	EventOpportunityPublished = "opportunity_published"
)

// Event is one audit record.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Timestamp time.Time          `bson:"timestamp"`

	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	AccountID string `bson:"account_id,omitempty"`

	IP        string `bson:"ip,omitempty"`
	UserAgent string `bson:"user_agent,omitempty"`

	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty"`
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Indexes lists the indexes the audit_events collection needs.
func Indexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_time"),
		},
		{
			Keys:    bson.D{{Key: "account_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_account"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_type"),
		},
	}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, Indexes())
	return err
}

// Log inserts an event, stamping ID and Timestamp when unset.
func (s *Store) Log(ctx context.Context, e Event) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, e)
	return err
}

// ForAccount returns the latest events for accountID, newest first.
func (s *Store) ForAccount(ctx context.Context, accountID string, limit int64) ([]Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, bson.M{"account_id": accountID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Event
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
