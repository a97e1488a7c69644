// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/volunteerhub/internal/app/store/accounts"
	"github.com/dalemusser/volunteerhub/internal/app/store/audit"
	"github.com/dalemusser/volunteerhub/internal/app/store/oauthstate"
	"github.com/dalemusser/volunteerhub/internal/app/store/opportunities"
	"github.com/dalemusser/volunteerhub/internal/app/store/sessions"
	"github.com/dalemusser/volunteerhub/internal/app/store/signups"
	"github.com/dalemusser/volunteerhub/internal/app/store/users"
	"github.com/dalemusser/volunteerhub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
//
// opportunities gets no validator: postings may be seeded by other tools and
// the catalog already drops malformed documents when it loads them.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure(accounts.Collection, accountsSchema())
	ensure(users.Collection, usersSchema())
	ensure(signups.Collection, signupsSchema())

	ensure(opportunities.Collection, nil)
	ensure(sessions.Collection, nil)
	ensure(oauthstate.Collection, nil)
	ensure(audit.Collection, nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func accountsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"_id", "email", "email_ci", "created_at"},
			"properties": bson.M{
				"_id":           nonBlank,
				"email":         nonBlank,
				"email_ci":      nonBlank,
				"password_hash": bson.M{"bsonType": "string"},
				"google_id":     bson.M{"bsonType": "string"},
				"created_at":    bson.M{"bsonType": "date"},
			},
		},
	}
}

func usersSchema() bson.M {
	levels := bson.A{}
	for _, e := range models.ExperienceLevels {
		levels = append(levels, string(e))
	}
	skills := bson.A{}
	for _, s := range models.AvailableSkills {
		skills = append(skills, s)
	}

	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"_id", "email", "first_name", "last_name", "date_of_birth", "experience", "skills", "created_at"},
			"properties": bson.M{
				"_id":           nonBlank,
				"email":         nonBlank,
				"first_name":    nonBlank,
				"last_name":     nonBlank,
				"date_of_birth": bson.M{"bsonType": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
				"experience":    bson.M{"enum": levels},
				"skills": bson.M{
					"bsonType":    "array",
					"minItems":    1,
					"uniqueItems": true,
					"items":       bson.M{"enum": skills},
				},
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func signupsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"_id", "user_id", "opportunity_id", "signed_up_at"},
			"properties": bson.M{
				"_id":            nonBlank,
				"user_id":        nonBlank,
				"opportunity_id": nonBlank,
				"signed_up_at":   bson.M{"bsonType": "date"},
			},
		},
	}
}
