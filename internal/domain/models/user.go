// internal/domain/models/user.go
package models

import (
	"time"
)

// UserProfile is the profile document stored in the users collection.
//
// NOTE:
//   - ID is the account id; a profile is created once, at registration or
//     profile completion, and is never deleted here.
//   - An account without a profile is a half-finished registration, not an error.
type UserProfile struct {
	ID          string     `bson:"_id" json:"id"`
	Email       string     `bson:"email" json:"email"`
	FirstName   string     `bson:"first_name" json:"first_name"`
	LastName    string     `bson:"last_name" json:"last_name"`
	DateOfBirth string     `bson:"date_of_birth" json:"date_of_birth"` // YYYY-MM-DD
	Experience  Experience `bson:"experience" json:"experience"`
	Skills      []string   `bson:"skills" json:"skills"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// FullName joins first and last name for display.
func (p UserProfile) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
