// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/store/accounts"
	"github.com/dalemusser/volunteerhub/internal/app/store/audit"
	"github.com/dalemusser/volunteerhub/internal/app/store/oauthstate"
	"github.com/dalemusser/volunteerhub/internal/app/store/sessions"
	"github.com/dalemusser/volunteerhub/internal/app/store/signups"
	"github.com/dalemusser/volunteerhub/internal/app/store/users"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// collectionSet pairs a collection with the indexes it needs.
type collectionSet struct {
	name   string
	models []mongo.IndexModel
}

func desired() []collectionSet {
	return []collectionSet{
		{accounts.Collection, accounts.Indexes()},
		{users.Collection, users.Indexes()},
		{signups.Collection, signups.Indexes()},
		{sessions.Collection, sessions.Indexes()},
		{oauthstate.Collection, oauthstate.Indexes()},
		{audit.Collection, audit.Indexes()},
	}
}

/*
EnsureAll is called at startup. Reconciling is idempotent.
Errors are aggregated so every problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, set := range desired() {
		if err := ensureIndexSet(ctx, db.Collection(set.name), set.models); err != nil {
			problems = append(problems, set.name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Reconcile a set of desired indexes for one collection                      */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
	Sparse *bool  `bson:"sparse,omitempty"`
	TTL    *int32 `bson:"expireAfterSeconds,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolOf(b *bool) bool { return b != nil && *b }

func ttlOf(t *int32) int32 {
	if t == nil {
		return -1
	}
	return *t
}

// wanted is the comparable shape of a desired index model.
type wanted struct {
	name   string
	sig    string
	unique bool
	sparse bool
	ttl    int32
}

func describe(m mongo.IndexModel) wanted {
	w := wanted{sig: keySig(m.Keys.(bson.D)), ttl: -1}
	if o := m.Options; o != nil {
		if o.Name != nil {
			w.name = *o.Name
		}
		w.unique = boolOf(o.Unique)
		w.sparse = boolOf(o.Sparse)
		if o.ExpireAfterSeconds != nil {
			w.ttl = *o.ExpireAfterSeconds
		}
	}
	return w
}

func (w wanted) matches(ex existingIndex) bool {
	return w.unique == boolOf(ex.Unique) &&
		w.sparse == boolOf(ex.Sparse) &&
		w.ttl == ttlOf(ex.TTL) &&
		(w.name == "" || w.name == ex.Name)
}

func listExisting(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listExisting(ctx, coll)
	if err != nil {
		// A collection that does not exist yet lists as an error on some
		// servers; creating the index creates the collection.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		w := describe(m)
		start := time.Now()
		fields := []zap.Field{
			zap.String("collection", coll.Name()),
			zap.String("name", w.name),
			zap.String("keys", w.sig),
			zap.Bool("unique", w.unique),
		}

		if ex, ok := existing[w.sig]; ok {
			if w.matches(ex) {
				zap.L().Info("reusing existing index", append(fields, zap.Duration("took", time.Since(start)))...)
				continue
			}
			// Same keys, different name or options: drop and recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				zap.L().Warn("drop existing index failed", append(fields, zap.String("existing", ex.Name), zap.Error(err))...)
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), w.name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			zap.L().Warn("index ensure failed", append(fields, zap.Error(err))...)
			if wafflemongo.IsDup(err) && w.unique {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)%s",
					coll.Name(), w.name, duplicateHint(coll.Name(), w.sig)))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), w.name, err))
			}
			continue
		}
		zap.L().Info("index ensured", append(fields, zap.Duration("took", time.Since(start)))...)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func duplicateHint(coll, sig string) string {
	if coll == accounts.Collection && strings.HasPrefix(sig, "email_ci:") {
		return "; find them with db.accounts.aggregate([{ $group: { _id: \"$email_ci\", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])"
	}
	return ""
}
