// internal/app/store/users/store.go
package users

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the Mongo collection backing this store.
const Collection = "users"

// Store holds volunteer profiles, keyed by account id.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Indexes lists the indexes the users collection needs.
func Indexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "skills", Value: 1}},
			Options: options.Index().SetName("idx_users_skills"),
		},
	}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, Indexes())
	return err
}

// Get returns the profile for accountID. A missing profile is (nil, nil).
func (s *Store) Get(ctx context.Context, accountID string) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.c.FindOne(ctx, bson.M{"_id": accountID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateIfAbsent writes p unless a profile for p.ID already exists.
// It reports whether a new document was written.
func (s *Store) CreateIfAbsent(ctx context.Context, p models.UserProfile) (bool, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	fields := bson.M{
		"email":         p.Email,
		"first_name":    p.FirstName,
		"last_name":     p.LastName,
		"date_of_birth": p.DateOfBirth,
		"experience":    p.Experience,
		"skills":        p.Skills,
		"created_at":    p.CreatedAt,
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": p.ID},
		bson.M{"$setOnInsert": fields},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, err
	}
	return res.UpsertedCount == 1, nil
}
