// internal/app/store/accounts/store.go
package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/system/apperr"
	"github.com/dalemusser/volunteerhub/internal/app/system/inputval"
	"github.com/dalemusser/volunteerhub/internal/app/system/normalize"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// Collection is the Mongo collection backing this store.
const Collection = "accounts"

// Password bounds. bcrypt ignores input past 72 bytes, so longer passwords
// are rejected instead of silently truncated.
const (
	MinPasswordLen = 6
	MaxPasswordLen = 72
)

// Store is the account (credential) store.
type Store struct {
	c    *mongo.Collection
	cost int
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection), cost: bcrypt.DefaultCost}
}

// WithCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *Store) WithCost(cost int) *Store {
	s.cost = cost
	return s
}

// Indexes lists the indexes the accounts collection needs.
func Indexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_accounts_email_ci"),
		},
		{
			Keys:    bson.D{{Key: "google_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_accounts_google_id"),
		},
	}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, Indexes())
	return err
}

// Create registers a new email + password account.
func (s *Store) Create(ctx context.Context, email, password string) (models.Account, error) {
	email = normalize.Email(email)
	if !inputval.IsValidEmail(email) {
		return models.Account{}, apperr.ErrInvalidEmail
	}
	if len(password) < MinPasswordLen || len(password) > MaxPasswordLen {
		return models.Account{}, apperr.ErrWeakCredential
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.Account{}, apperr.Store("hash password", err)
	}

	acct := models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		EmailCI:      normalize.EmailKey(email),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, acct); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Account{}, apperr.ErrAccountExists
		}
		return models.Account{}, apperr.Store("insert account", err)
	}
	return acct, nil
}

// Authenticate checks email + password and stamps last_sign_in_at.
// Unknown email and wrong password both yield ErrInvalidCredential.
func (s *Store) Authenticate(ctx context.Context, email, password string) (models.Account, error) {
	var acct models.Account
	err := s.c.FindOne(ctx, bson.M{"email_ci": normalize.EmailKey(email)}).Decode(&acct)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Account{}, apperr.ErrInvalidCredential
	}
	if err != nil {
		return models.Account{}, apperr.Store("find account", err)
	}
	if !acct.HasPassword() {
		return models.Account{}, apperr.ErrInvalidCredential
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return models.Account{}, apperr.ErrInvalidCredential
	}

	s.touch(ctx, &acct)
	return acct, nil
}

// GetByID returns the account, or mongo.ErrNoDocuments.
func (s *Store) GetByID(ctx context.Context, id string) (models.Account, error) {
	var acct models.Account
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&acct)
	return acct, err
}

// FindOrCreateGoogle resolves a Google identity to an account. An existing
// account with the same email is linked on first use.
func (s *Store) FindOrCreateGoogle(ctx context.Context, googleID, email string) (models.Account, error) {
	var acct models.Account
	err := s.c.FindOne(ctx, bson.M{"google_id": googleID}).Decode(&acct)
	if err == nil {
		s.touch(ctx, &acct)
		return acct, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Account{}, apperr.Store("find google account", err)
	}

	email = normalize.Email(email)
	key := normalize.EmailKey(email)
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"email_ci": key, "google_id": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"google_id": googleID}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&acct)
	if err == nil {
		s.touch(ctx, &acct)
		return acct, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Account{}, apperr.Store("link google account", err)
	}

	gid := googleID
	now := time.Now().UTC()
	acct = models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		EmailCI:      key,
		GoogleID:     &gid,
		CreatedAt:    now,
		LastSignInAt: &now,
	}
	if _, err := s.c.InsertOne(ctx, acct); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Account{}, apperr.ErrAccountExists
		}
		return models.Account{}, apperr.Store("insert google account", err)
	}
	return acct, nil
}

// touch records a sign-in time; failures are not fatal to sign-in.
func (s *Store) touch(ctx context.Context, acct *models.Account) {
	now := time.Now().UTC()
	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": acct.ID}, bson.M{"$set": bson.M{"last_sign_in_at": now}}); err == nil {
		acct.LastSignInAt = &now
	}
}
