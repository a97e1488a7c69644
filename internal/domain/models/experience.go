// internal/domain/models/experience.go
package models

import "strings"

// Experience is a coarse skill level used by profiles and postings.
type Experience string

const (
	ExperienceLow    Experience = "low"
	ExperienceMedium Experience = "medium"
	ExperienceHigh   Experience = "high"
)

// ExperienceLevels lists the levels in display order.
var ExperienceLevels = []Experience{ExperienceLow, ExperienceMedium, ExperienceHigh}

// ParseExperience normalizes s and reports whether it names a known level.
func ParseExperience(s string) (Experience, bool) {
	e := Experience(strings.ToLower(strings.TrimSpace(s)))
	switch e {
	case ExperienceLow, ExperienceMedium, ExperienceHigh:
		return e, true
	}
	return "", false
}

// Label is the capitalized form shown in forms.
func (e Experience) Label() string {
	if e == "" {
		return ""
	}
	return strings.ToUpper(string(e[:1])) + string(e[1:])
}
