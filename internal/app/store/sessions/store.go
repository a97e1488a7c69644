// internal/app/store/sessions/store.go
package sessions

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the Mongo collection backing this store.
const Collection = "sessions"

// Session is a server-side sign-in record. The browser only holds the token.
type Session struct {
	Token     string    `bson:"_id"`
	AccountID string    `bson:"account_id"`
	Email     string    `bson:"email"`
	IP        string    `bson:"ip,omitempty"`
	UserAgent string    `bson:"user_agent,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Indexes lists an account lookup index and a TTL index on expires_at.
// TTL removal lags by up to a minute; Get checks expiry itself.
func Indexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "account_id", Value: 1}},
			Options: options.Index().SetName("idx_sessions_account"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_sessions_ttl"),
		},
	}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, Indexes())
	return err
}

// NewToken returns 32 random bytes, URL-safe base64 encoded.
func NewToken() (string, error) {
	b := securecookie.GenerateRandomKey(32)
	if b == nil {
		return "", errors.New("random source unavailable")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Create opens a session for accountID that lives for ttl.
func (s *Store) Create(ctx context.Context, accountID, email, ip, userAgent string, ttl time.Duration) (Session, error) {
	token, err := NewToken()
	if err != nil {
		return Session{}, err
	}
	now := time.Now().UTC()
	sess := Session{
		Token:     token,
		AccountID: accountID,
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if _, err := s.c.InsertOne(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Get returns the live session for token, or (nil, nil) when it is unknown
// or expired.
func (s *Store) Get(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}
	var sess Session
	err := s.c.FindOne(ctx, bson.M{
		"_id":        token,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&sess)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Delete ends one session. Deleting an unknown token is not an error.
func (s *Store) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": token})
	return err
}

// DeleteExpired removes sessions past their expiry.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
