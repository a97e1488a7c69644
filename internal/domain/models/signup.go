// internal/domain/models/signup.go
package models

import "time"

// Signup records that one account joined one opportunity.
// ID is always SignupID(UserID, OpportunityID); being the _id it is unique.
type Signup struct {
	ID            string    `bson:"_id" json:"id"`
	UserID        string    `bson:"user_id" json:"user_id"`
	OpportunityID string    `bson:"opportunity_id" json:"opportunity_id"`
	SignedUpAt    time.Time `bson:"signed_up_at" json:"signed_up_at"`
}

// SignupID builds the composite key for a (user, opportunity) pair.
func SignupID(userID, opportunityID string) string {
	return userID + "_" + opportunityID
}
