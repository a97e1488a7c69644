// internal/domain/models/account.go
package models

import "time"

// Account holds sign-in credentials. Profile data lives in UserProfile under
// the same id.
type Account struct {
	ID           string  `bson:"_id" json:"id"` // uuid
	Email        string  `bson:"email" json:"email"`
	EmailCI      string  `bson:"email_ci" json:"-"` // folded for lookups
	PasswordHash string  `bson:"password_hash,omitempty" json:"-"`
	GoogleID     *string `bson:"google_id,omitempty" json:"-"`

	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	LastSignInAt *time.Time `bson:"last_sign_in_at,omitempty" json:"last_sign_in_at,omitempty"`
}

// HasPassword reports whether the account can sign in with email + password.
func (a Account) HasPassword() bool {
	return a.PasswordHash != ""
}
