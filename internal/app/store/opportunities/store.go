// internal/app/store/opportunities/store.go
package opportunities

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection is the Mongo collection backing this store.
const Collection = "opportunities"

// ErrNotFound is returned when no opportunity has the given id.
var ErrNotFound = errors.New("opportunity not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// idFilter matches an id stored either as a string or as an ObjectID.
// Documents written by this service use hex strings; seeded data may not.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{"_id": id}
}

// Create inserts a new opportunity with a fresh id and a zero signup count.
func (s *Store) Create(ctx context.Context, o models.Opportunity) (models.Opportunity, error) {
	o.ID = primitive.NewObjectID().Hex()
	o.SignupCount = 0
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, o); err != nil {
		return models.Opportunity{}, err
	}
	return o, nil
}

// ListRaw returns every opportunity document undecoded, in the order the
// store yields them. No sort is applied.
// Shape checking is left to the caller so malformed records can be skipped
// one at a time instead of failing the whole read.
func (s *Store) ListRaw(ctx context.Context) ([]bson.M, error) {
	cur, err := s.c.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []bson.M
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID decodes one opportunity.
func (s *Store) GetByID(ctx context.Context, id string) (models.Opportunity, error) {
	var o models.Opportunity
	err := s.c.FindOne(ctx, idFilter(id)).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Opportunity{}, ErrNotFound
	}
	return o, err
}

// IncrementSignups atomically adds delta to signup_count. A missing
// opportunity is ErrNotFound. No floor is applied to the result.
func (s *Store) IncrementSignups(ctx context.Context, id string, delta int64) error {
	res, err := s.c.UpdateOne(ctx, idFilter(id), bson.M{"$inc": bson.M{"signup_count": delta}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
