// internal/domain/models/opportunity.go
package models

import "time"

// Opportunity is a volunteering posting.
//
// SignupCount is denormalized from the signups collection and is only ever
// changed through an atomic $inc by the ledger.
type Opportunity struct {
	ID                 string     `bson:"_id" json:"id"`
	Title              string     `bson:"title" json:"title"`
	CompanyName        string     `bson:"company_name" json:"company_name"`
	SkillsRequired     []string   `bson:"skills_required" json:"skills_required"`
	ExperienceRequired Experience `bson:"experience_required" json:"experience_required"`
	Description        string     `bson:"description" json:"description"`
	SignupCount        int64      `bson:"signup_count" json:"signup_count"`

	CreatedAt time.Time `bson:"created_at,omitempty" json:"created_at,omitempty"`
}
