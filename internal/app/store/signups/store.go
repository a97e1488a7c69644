// internal/app/store/signups/store.go
package signups

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/volunteerhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the Mongo collection backing this store.
const Collection = "signups"

// ErrDuplicate is returned by Insert when the signup already exists.
var ErrDuplicate = errors.New("signup already exists")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Indexes lists the indexes the signups collection needs.
func Indexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "signed_up_at", Value: -1}},
			Options: options.Index().SetName("idx_signups_user"),
		},
		{
			Keys:    bson.D{{Key: "opportunity_id", Value: 1}},
			Options: options.Index().SetName("idx_signups_opportunity"),
		},
	}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, Indexes())
	return err
}

// Exists reports whether userID has joined opportunityID.
func (s *Store) Exists(ctx context.Context, userID, opportunityID string) (bool, error) {
	n, err := s.c.CountDocuments(ctx,
		bson.M{"_id": models.SignupID(userID, opportunityID)},
		options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Insert records a signup. The composite _id makes a second insert for the
// same pair fail with ErrDuplicate.
func (s *Store) Insert(ctx context.Context, userID, opportunityID string, at time.Time) (models.Signup, error) {
	su := models.Signup{
		ID:            models.SignupID(userID, opportunityID),
		UserID:        userID,
		OpportunityID: opportunityID,
		SignedUpAt:    at.UTC(),
	}
	if _, err := s.c.InsertOne(ctx, su); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Signup{}, ErrDuplicate
		}
		return models.Signup{}, err
	}
	return su, nil
}

// Delete removes the signup and reports how many documents went away (0 or 1).
func (s *Store) Delete(ctx context.Context, userID, opportunityID string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": models.SignupID(userID, opportunityID)})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// OpportunityIDsForUser lists the opportunities userID has joined.
func (s *Store) OpportunityIDsForUser(ctx context.Context, userID string) ([]string, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetProjection(bson.M{"opportunity_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	ids := []string{}
	for cur.Next(ctx) {
		var row struct {
			OpportunityID string `bson:"opportunity_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.OpportunityID)
	}
	return ids, cur.Err()
}

// CountForOpportunity counts signup records for one opportunity. It is the
// ground truth the denormalized signup_count is checked against.
func (s *Store) CountForOpportunity(ctx context.Context, opportunityID string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"opportunity_id": opportunityID})
}
